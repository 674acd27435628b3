// Package cli implements the splitr command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "splitr",
		Short: "Experiment assignment and analysis engine",
		Long: `splitr assigns subjects to experiment variants, records their conversions
and reports whether a variant beats the control.

Configuration is read from SPLITR_* environment variables.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newServeCmd(),
		newExperimentCmd(),
		newAllocateCmd(),
		newConvertCmd(),
		newAssignCmd(),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
