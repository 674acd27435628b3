package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/splitr/internal/app"
)

func newAllocateCmd() *cobra.Command {
	var anonymous bool

	cmd := &cobra.Command{
		Use:   "allocate <experiment> <subject>",
		Short: "Allocate a subject to a variant",
		Long: `Return the variant a subject sees, enrolling it on first contact.

Examples:
  splitr allocate checkout-button user-42
  splitr allocate checkout-button 7f1c0b4e --anonymous`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				got := a.Engine.Allocate(ctx, args[0], subjectFrom(args[1], anonymous))
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", got.VariantID, got.Reason)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Treat the subject as an anonymous session id")
	return cmd
}

func newConvertCmd() *cobra.Command {
	var (
		anonymous bool
		value     float64
	)

	cmd := &cobra.Command{
		Use:   "convert <experiment> <subject>",
		Short: "Record a conversion",
		Long: `Mark the subject's assignment as converted. Repeated conversions
overwrite the earlier one. Subjects that are not enrolled are ignored.

Examples:
  splitr convert checkout-button user-42
  splitr convert checkout-button user-42 --value 19.99`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v *float64
			if cmd.Flags().Changed("value") {
				v = &value
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.RecordConversion(ctx, args[0], subjectFrom(args[1], anonymous), v); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Treat the subject as an anonymous session id")
	cmd.Flags().Float64Var(&value, "value", 0, "Conversion value")
	return cmd
}

func newAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <experiment> <user> <variant>",
		Short: "Force a user into a variant",
		Long: `Assign a user to a declared variant, bypassing the traffic gate and
weights. An existing assignment is kept and reported.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				variant, err := a.Engine.Assign(ctx, args[0], subjectFrom(args[1], false), args[2])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), variant)
				return nil
			})
		},
	}
}
