package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/kiosk/internal/config"
	httpAdapter "github.com/aretw0/kiosk/internal/adapters/http"
	"github.com/aretw0/kiosk/pkg/adapters/memory"
	"github.com/aretw0/kiosk/pkg/adapters/postgres"
	redisAdapter "github.com/aretw0/kiosk/pkg/adapters/redis"
	"github.com/aretw0/kiosk/pkg/audit"
	service "github.com/aretw0/kiosk/pkg/kiosk"
	"github.com/aretw0/kiosk/pkg/observability"
	"github.com/aretw0/kiosk/pkg/ports"
	"github.com/aretw0/kiosk/pkg/queue"
	"github.com/aretw0/kiosk/pkg/reception"
	"github.com/aretw0/kiosk/pkg/session"
)

// auditStreamMaxLen caps the Redis audit stream.
const auditStreamMaxLen = 100_000

// app is the fully wired kiosk process.
type app struct {
	svc        *service.Service
	server     *httpAdapter.Server
	metrics    *observability.Metrics
	dispatcher *audit.Dispatcher
	backend    string

	closers []func()
	logger  *slog.Logger
}

// newApp wires configuration into a running service. The caller must Close it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{logger: logger, backend: "memory"}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var (
		store ports.CounterStore
		sink  ports.AuditSink = audit.NewLogSink(logger, slog.LevelInfo)
	)
	switch {
	case cfg.RedisURL != "":
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { client.Close() })
		store = redisAdapter.NewCounterStore(client)
		sink = redisAdapter.NewAuditStream(client, cfg.AuditStream, auditStreamMaxLen)
		a.backend = "redis"
	case cfg.DatabaseURL != "":
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		store = postgres.NewCounterStore(pool)
		a.backend = "postgres"
	default:
		store = memory.NewCounterStore()
	}

	mws := []audit.Middleware{audit.NewPIIMiddleware(cfg.AuditPIIPatterns)}
	key, err := cfg.EncryptionKey()
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	if key != nil {
		mws = append(mws, audit.NewEncryptionMiddleware(audit.EncryptionConfig{ActiveKey: key}))
	}

	a.metrics = observability.NewMetrics()
	a.dispatcher = audit.NewDispatcher(audit.Chain(sink, mws...), cfg.AuditBuffer,
		audit.WithLogger(logger),
		audit.WithDropHook(a.metrics.AuditDropped),
	)

	desk := reception.NewDesk()
	alloc := queue.New(store,
		queue.WithLocation(loc),
		queue.WithMinutesPerPatient(cfg.MinutesPerPatient),
		queue.WithLocator(desk.Catalog.Location),
		queue.WithLogger(logger),
	)

	streams := httpAdapter.NewStreamManager(0, logger)
	a.svc = service.New(alloc,
		service.WithDesk(desk),
		service.WithLogger(logger),
		service.WithHooks(a.metrics.Hooks().Merge(streams.Hooks())),
		service.WithSessionOptions(
			session.WithIdleTimeout(cfg.IdleTimeout()),
			session.WithWarningLead(cfg.WarningLead()),
			session.WithAuditSink(a.dispatcher),
		),
	)
	a.server = httpAdapter.NewServer(a.svc, streams,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(a.metrics.Handler()),
		httpAdapter.WithMaxInputSize(cfg.MaxInputSize),
	)

	logger.Info("Kiosk wired",
		"backend", a.backend,
		"idle_timeout", cfg.IdleTimeout(),
		"warning_lead", cfg.WarningLead(),
		"timezone", loc.String(),
		"audit_encrypted", key != nil,
	)
	return a, nil
}

func connectRedis(ctx context.Context, url string) (*backend.Client, error) {
	opt, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := backend.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// Handler returns the HTTP handler.
func (a *app) Handler() http.Handler {
	return a.server.Handler()
}

// Close ends every session, flushes the audit trail and releases the backends.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.svc != nil {
		if err := a.svc.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
	}
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush audit: %w", err))
		}
		if n := a.dispatcher.Dropped(); n > 0 {
			a.logger.Warn("Audit records dropped", "count", n)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	return errors.Join(errs...)
}
