package cli

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/splitr/internal/app"
	"github.com/emiliopalmerini/splitr/internal/logging"
)

// withApp loads the configuration, wires the application and hands it to fn.
// The logger travels in the context passed to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := app.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	ctx := logging.WithLogger(cmd.Context(), logger)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	runErr := fn(ctx, a)
	if err := a.Close(context.WithoutCancel(ctx)); err != nil {
		return errors.CombineErrors(runErr, errors.Wrap(err, "failed to close"))
	}
	return runErr
}
