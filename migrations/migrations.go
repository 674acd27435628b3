// Package migrations embeds the SQL schema of every supported store.
package migrations

import "embed"

// FS holds the SQLite/libsql migrations applied by internal/migrate.
//
//go:embed *.sql
var FS embed.FS

// Postgres holds the goose migrations of the Postgres store.
//
//go:embed postgres/*.sql
var Postgres embed.FS
