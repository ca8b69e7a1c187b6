package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Health is a simple health-check endpoint used by load balancers.  It
// returns a plain text "ok" with a 200 status.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Home is the liveness payload served at "/".
func Home(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"status": "AI Service Running"})
}

// Check pings one optional backend. A nil Check marks the backend as disabled.
type Check func(ctx context.Context) error

// Backend names a Check for the detailed health report.
type Backend struct {
    Name  string
    Check Check
}

// HealthHandler reports the state of the optional backends.  The text
// endpoints never depend on them, so the service is "OK" even when a
// backend is down.
type HealthHandler struct {
    Env      string
    Backends []Backend
    Now      func() time.Time
}

// Detailed handles GET /health.
func (h *HealthHandler) Detailed(c echo.Context) error {
    now := time.Now
    if h.Now != nil {
        now = h.Now
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    backends := echo.Map{}
    for _, b := range h.Backends {
        switch {
        case b.Check == nil:
            backends[b.Name] = "disabled"
        case b.Check(ctx) != nil:
            backends[b.Name] = "down"
        default:
            backends[b.Name] = "up"
        }
    }
    return c.JSON(http.StatusOK, echo.Map{
        "status":      "OK",
        "timestamp":   now().UTC().Format(time.RFC3339),
        "environment": h.Env,
        "backends":    backends,
    })
}
