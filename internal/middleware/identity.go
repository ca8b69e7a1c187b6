package middleware

// identity.go tags each request with an ID so log lines, audit events and
// the client response can be correlated.  An incoming X-Request-ID is kept;
// otherwise a random UUID is generated.

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestID returns echo's request ID middleware using UUIDv4 identifiers.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
    })
}

// RequestIDFrom returns the ID assigned to the current request, or "" when
// the RequestID middleware did not run.
func RequestIDFrom(c echo.Context) string {
    if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
        return id
    }
    return c.Request().Header.Get(echo.HeaderXRequestID)
}
