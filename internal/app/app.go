// Package app assembles the engine and its adapters from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/adapters/cache"
	"github.com/emiliopalmerini/splitr/internal/adapters/clock"
	"github.com/emiliopalmerini/splitr/internal/adapters/memory"
	"github.com/emiliopalmerini/splitr/internal/adapters/otel"
	"github.com/emiliopalmerini/splitr/internal/adapters/postgres"
	"github.com/emiliopalmerini/splitr/internal/adapters/prometheus"
	"github.com/emiliopalmerini/splitr/internal/adapters/redis"
	"github.com/emiliopalmerini/splitr/internal/adapters/turso"
	"github.com/emiliopalmerini/splitr/internal/experiment"
	"github.com/emiliopalmerini/splitr/internal/migrate"
	"github.com/emiliopalmerini/splitr/internal/ports"
	"github.com/emiliopalmerini/splitr/internal/web"
)

// App holds the wired dependencies shared by the CLI commands.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Engine   *experiment.Engine
	Resolver *experiment.Resolver

	// Metrics is nil when the Prometheus endpoint is disabled.
	Metrics *prometheus.Recorder

	migrate func(ctx context.Context) (string, error)
	closers []func(ctx context.Context) error
}

type stores struct {
	experiments ports.ExperimentRepository
	assignments ports.AssignmentRepository
}

// New connects to the configured stores. The caller must Close the App.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	st, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	sessions, err := a.openSessions(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	metrics, err := a.openMetrics(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	experiments := st.experiments
	if cfg.CacheSize > 0 {
		experiments = cache.NewExperimentRepository(experiments, cfg.CacheSize, cfg.CacheTTL)
	}

	a.Engine = experiment.NewEngine(experiments, st.assignments,
		experiment.WithRandom(clock.NewRandom(cfg.Seed)),
		experiment.WithMetrics(metrics),
		experiment.WithLogger(logger),
	)
	a.Resolver = experiment.NewResolver(sessions)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (stores, error) {
	cfg := a.Config
	switch cfg.Store {
	case StoreTurso:
		db, err := turso.Open(ctx, cfg.DatabaseURL, cfg.AuthToken)
		if err != nil {
			return stores{}, errors.Wrap(err, "failed to connect to database")
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.migrate = func(ctx context.Context) (string, error) {
			applied, err := migrate.RunAll(ctx, db)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("applied %d migration(s)", applied), nil
		}
		repos := turso.NewRepositories(db)
		return stores{repos.Experiments, repos.Assignments}, nil

	case StorePostgres:
		pool, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return stores{}, errors.Wrap(err, "failed to connect to postgres")
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		a.migrate = func(ctx context.Context) (string, error) {
			version, err := postgres.Migrate(ctx, pool)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("schema at version %d", version), nil
		}
		repos := postgres.NewRepositories(pool)
		return stores{repos.Experiments, repos.Assignments}, nil

	default:
		a.migrate = func(context.Context) (string, error) {
			return "memory store needs no migrations", nil
		}
		return stores{memory.NewExperimentRepository(), memory.NewAssignmentRepository()}, nil
	}
}

func (a *App) openSessions(ctx context.Context) (ports.SessionStore, error) {
	cfg := a.Config
	if cfg.RedisAddr == "" {
		return memory.NewSessionStore(cfg.SessionCapacity, cfg.SessionTTL), nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	store := redis.NewSessionStore(client, cfg.SessionTTL)
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	return store, nil
}

func (a *App) openMetrics(ctx context.Context) (ports.MetricsRecorder, error) {
	cfg := a.Config
	var rs recorders

	if cfg.Prometheus.Enabled {
		a.Metrics = prometheus.NewRecorder()
		rs = append(rs, a.Metrics)
	}

	if cfg.Otel.Enabled {
		exporter, err := otel.NewExporter(ctx, cfg.Otel)
		if err != nil {
			return nil, errors.Wrap(err, "failed to start otel exporter")
		}
		rs = append(rs, exporter)
	}

	if len(rs) == 0 {
		return otel.NewNoOpExporter(), nil
	}
	a.closers = append(a.closers, rs.Close)
	return rs, nil
}

// Migrate brings the configured store's schema up to date.
func (a *App) Migrate(ctx context.Context) (string, error) {
	return a.migrate(ctx)
}

// Server builds the HTTP API around the engine.
func (a *App) Server() *web.Server {
	cfg := a.Config
	return web.NewServer(web.Config{
		Addr:            cfg.Addr,
		CookieName:      cfg.CookieName,
		CookieSecure:    cfg.CookieSecure,
		SessionTTL:      cfg.SessionTTL,
		MetricsPath:     cfg.Prometheus.Path,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, a.Engine, a.Resolver, a.Metrics, a.Logger)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = errors.CombineErrors(err, a.closers[i](ctx))
	}
	a.closers = nil
	return err
}
