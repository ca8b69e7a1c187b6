package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/elder-health-text/internal/handler" // import the handlers that implement the endpoints
)

// RegisterRoutes registers the liveness and health endpoints.  They sit
// outside the rate limiter so health checks are never throttled.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	// Static liveness payload.
	e.GET("/", handler.Home)
	// Plain "ok" for load balancers.
	e.GET("/healthz", handler.Health)
	// Detailed report including optional backends.
	e.GET("/health", h.Detailed)
}

// RegisterText registers the two text endpoints at the root and again under
// /v1.  The given middleware (rate limiting, caching) applies to both sets.
func RegisterText(e *echo.Echo, t *handler.TextHandler, mw ...echo.MiddlewareFunc) {
	// Middleware is attached per route rather than through a root group so
	// that unknown paths are not rate limited or cached.
	for _, prefix := range []string{"", "/v1"} {
		e.POST(prefix+"/simplify", t.Simplify, mw...)
		e.POST(prefix+"/detect", t.Detect, mw...)
	}
}
