package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/logging"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreTurso, cfg.Store)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 100000, cfg.SessionCapacity)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "splitr_sid", cfg.CookieName)
	assert.Equal(t, "splitr.db", filepath.Base(cfg.DatabaseURL))
	assert.True(t, cfg.Prometheus.Enabled)
	assert.Equal(t, "/metrics", cfg.Prometheus.Path)
	assert.False(t, cfg.Otel.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SPLITR_STORE", "memory")
	t.Setenv("SPLITR_SEED", "42")
	t.Setenv("SPLITR_CACHE_TTL", "5s")
	t.Setenv("SPLITR_PROMETHEUS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.EqualValues(t, 42, cfg.Seed)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.Prometheus.Enabled)
}

func TestLoad_Rejects(t *testing.T) {
	t.Setenv("SPLITR_STORE", "mongo")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SPLITR_STORE", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "SPLITR_POSTGRES_DSN")
}

func TestNew_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{Store: StoreMemory, CacheSize: 16, CacheTTL: time.Minute, Seed: 1}
	cfg.Prometheus.Enabled = true

	a, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	msg, err := a.Migrate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	require.NotNil(t, a.Metrics)

	exp, err := a.Engine.Create(ctx, domain.ExperimentDefinition{
		Name:              "hero",
		Variants:          []domain.Variant{{ID: "control", Weight: 1}},
		TrafficPercentage: 100,
	})
	require.NoError(t, err)
	_, err = a.Engine.Start(ctx, exp.ID)
	require.NoError(t, err)

	subject := a.Resolver.Resolve(ctx, "", "sid")
	got := a.Engine.Allocate(ctx, "hero", subject)
	assert.True(t, got.Assigned)
	assert.NotNil(t, a.Server())
}

func TestNew_TursoLocalFile(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Store:       StoreTurso,
		DatabaseURL: filepath.Join(t.TempDir(), "splitr.db"),
	}

	a, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	_, err = a.Migrate(ctx)
	require.NoError(t, err)

	_, err = a.Engine.Create(ctx, domain.ExperimentDefinition{
		Name:              "hero",
		Variants:          []domain.Variant{{ID: "control", Weight: 1}},
		TrafficPercentage: 100,
	})
	require.NoError(t, err)

	list, err := a.Engine.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
