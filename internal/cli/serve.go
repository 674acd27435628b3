package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/emiliopalmerini/splitr/internal/app"
)

func newServeCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the allocation and experiment management API.

Examples:
  splitr serve
  SPLITR_ADDR=:9000 splitr serve --migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if migrateFirst {
					msg, err := a.Migrate(ctx)
					if err != nil {
						return err
					}
					a.Logger.InfoContext(ctx, "migrations done", "store", a.Config.Store, "result", msg)
				}
				return serve(ctx, a)
			})
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

// serve runs the HTTP server until SIGINT or SIGTERM.
func serve(ctx context.Context, a *app.App) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server().Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(ctx, "shutting down")
		return nil
	})
	return g.Wait()
}
