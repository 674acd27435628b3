package turso_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/migrate"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	ctx := context.Background()
	if _, err := migrate.RunAll(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func testExperiment(id, name string) *domain.Experiment {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	return domain.NewExperiment(id, domain.ExperimentDefinition{
		Name:        name,
		Description: strPtr("button color"),
		Metric:      strPtr("purchase"),
		Variants: []domain.Variant{
			{ID: "control", Name: "Blue", Weight: 50},
			{ID: "green", Name: "Green", Weight: 50},
		},
		TrafficPercentage: 100,
	}, now)
}
