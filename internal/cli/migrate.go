package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/splitr/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Apply all pending schema migrations to the configured store.

SQLite and Turso use the embedded migration runner; Postgres uses goose.

Examples:
  splitr migrate
  SPLITR_STORE=postgres SPLITR_POSTGRES_DSN=postgres://... splitr migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				msg, err := a.Migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s store: %s\n", a.Config.Store, msg)
				return nil
			})
		},
	}
}
