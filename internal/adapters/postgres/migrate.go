package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/emiliopalmerini/splitr/internal/logging"
	"github.com/emiliopalmerini/splitr/migrations"
)

const migrationsDir = "postgres"

// Migrate applies the embedded goose migrations and returns the resulting
// schema version.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Postgres)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, errors.Wrap(err, "failed to set goose dialect")
	}

	logging.FromContext(ctx).InfoContext(ctx, "running postgres migrations")
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return 0, errors.Wrap(err, "failed to run postgres migrations")
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	return version, nil
}
