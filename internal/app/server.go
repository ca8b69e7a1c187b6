// Package app assembles the HTTP server and the audit consumer from
// configuration.  Both cmd/server and the eldertext CLI start the service
// through Run and RunConsumer.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/elder-health-text/internal/config"
	"github.com/iliyamo/elder-health-text/internal/database"
	"github.com/iliyamo/elder-health-text/internal/handler"
	"github.com/iliyamo/elder-health-text/internal/middleware"
	"github.com/iliyamo/elder-health-text/internal/router"
	"github.com/iliyamo/elder-health-text/internal/service"
)

// Deps are the optional backends the server can use.  Every field may be
// left zero; the server then runs without that feature.
type Deps struct {
	Redis     *redis.Client
	Publisher service.Publisher
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Backends  []handler.Backend
}

// NewServer builds a fully wired echo instance.
func NewServer(cfg config.Config, d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(parseLevel(cfg.LogLevel))
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infoj(log.JSON{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			})
			return nil
		},
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))

	router.RegisterRoutes(e, &handler.HealthHandler{Env: cfg.Env, Backends: d.Backends})
	text := handler.NewTextHandler(d.Publisher, cfg.MaxTextBytes)
	router.RegisterText(e, text,
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis, text.ReplayAudit),
	)
	return e
}

// parseLevel maps LOG_LEVEL onto gommon levels; unknown values mean INFO.
func parseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	}
	return log.INFO
}

// healthBackends lists every optional backend for GET /health.  A backend
// the configuration leaves off is reported as disabled.
func healthBackends(cfg config.Config, rdb *redis.Client, dbc config.AuditDBConfig) []handler.Backend {
	backends := []handler.Backend{{Name: "redis", Check: redisCheck(rdb)}}
	if cfg.AuditEnabled {
		backends = append(backends, handler.Backend{Name: "broker", Check: brokerCheck(cfg.AMQPURL)})
	} else {
		backends = append(backends, handler.Backend{Name: "broker"})
	}
	return append(backends, handler.Backend{Name: "audit_db", Check: auditDBCheck(dbc)})
}

// auditDBCheck opens, pings and closes the audit database.
func auditDBCheck(dbc config.AuditDBConfig) handler.Check {
	if !dbc.Enabled {
		return nil
	}
	return func(ctx context.Context) error {
		db, err := database.Open(ctx, dbc.User, dbc.Pass, dbc.Host, dbc.Port, dbc.Name)
		if err != nil {
			return err
		}
		return db.Close()
	}
}

// redisCheck pings the shared client.
func redisCheck(rdb *redis.Client) handler.Check {
	if rdb == nil {
		return nil
	}
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

// brokerCheck opens and closes a broker connection.
func brokerCheck(url string) handler.Check {
	return func(ctx context.Context) error {
		timeout := 2 * time.Second
		if dl, ok := ctx.Deadline(); ok {
			timeout = time.Until(dl)
		}
		conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
