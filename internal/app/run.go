package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/elder-health-text/internal/config"
	"github.com/iliyamo/elder-health-text/internal/database"
	"github.com/iliyamo/elder-health-text/internal/queue"
	"github.com/iliyamo/elder-health-text/internal/repository"
	"github.com/iliyamo/elder-health-text/internal/service"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 10 * time.Second

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func Run(ctx context.Context, cfg config.Config) error {
	var rdb *redis.Client
	if rcfg, ok := config.LoadRedisConfig(); ok {
		client, err := config.NewRedisClient(ctx, rcfg)
		if err != nil {
			log.Printf("redis unavailable, cache off and rate limits kept in-process: %v", err)
		} else {
			rdb = client
			defer rdb.Close()
		}
	}

	var pub service.Publisher = service.NopPublisher{}
	if cfg.AuditEnabled {
		pub = service.AMQPPublisher{URL: cfg.AMQPURL}
	}
	backends := healthBackends(cfg, rdb, config.LoadAuditDBConfig())

	if cfg.AuditEnabled && cfg.AuditConsume {
		go func() {
			if err := RunConsumer(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("audit-consumer: stopped: %v", err)
			}
		}()
	}

	e := NewServer(cfg, Deps{
		Redis:     rdb,
		Publisher: pub,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Backends:  backends,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Printf("shutting down")
		return e.Shutdown(sctx)
	}
}

// RunConsumer consumes audit events into the log file and, when
// AUDIT_DB_ENABLED is set, the text_audit table.
func RunConsumer(ctx context.Context, cfg config.Config) error {
	sinks := []queue.Sink{queue.NewFileSink(cfg.AuditLogPath)}

	if dbc := config.LoadAuditDBConfig(); dbc.Enabled {
		db, err := database.Open(ctx, dbc.User, dbc.Pass, dbc.Host, dbc.Port, dbc.Name)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		defer db.Close()
		repo := repository.NewAuditRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, repo)
	}

	log.Printf("audit-consumer: consuming %s", queue.TextProcessedQueue)
	return queue.StartAuditConsumer(ctx, cfg.AMQPURL, sinks...)
}
