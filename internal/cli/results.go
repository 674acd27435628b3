package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/splitr/internal/adapters/storage"
	"github.com/emiliopalmerini/splitr/internal/app"
	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/util"
)

func newExperimentStopCmd() *cobra.Command {
	var (
		winner  string
		archive bool
	)

	cmd := &cobra.Command{
		Use:   "stop <id|name>",
		Short: "Complete an experiment",
		Long: `Complete a running or paused experiment. Completed experiments stop
enrolling subjects and ignore further conversions.

Examples:
  splitr experiment stop checkout-button --winner green
  splitr experiment stop checkout-button --archive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exp, err := lookup(ctx, a.Engine, args[0])
				if err != nil {
					return err
				}
				exp, err = a.Engine.Stop(ctx, exp.ID, optional(winner))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Experiment %s is now %s\n", exp.Name, exp.Status)

				if !archive {
					return nil
				}
				analysis, err := a.Engine.Analyze(ctx, exp.ID)
				if err != nil {
					return err
				}
				archiveStore, err := storage.NewResultsArchive()
				if err != nil {
					return err
				}
				path, err := archiveStore.Store(ctx, analysis)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Results archived to %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&winner, "winner", "w", "", "Declared winning variant")
	cmd.Flags().BoolVar(&archive, "archive", false, "Archive the final results")
	return cmd
}

func newExperimentResultsCmd() *cobra.Command {
	var (
		asJSON   bool
		archived bool
	)

	cmd := &cobra.Command{
		Use:   "results <id|name>",
		Short: "Show per-variant results and significance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exp, err := lookup(ctx, a.Engine, args[0])
				if err != nil {
					return err
				}

				var analysis *domain.Analysis
				if archived {
					archiveStore, err := storage.NewResultsArchive()
					if err != nil {
						return err
					}
					if analysis, err = archiveStore.Get(ctx, exp.ID); err != nil {
						return err
					}
					if analysis == nil {
						return errors.Wrapf(domain.ErrNotFound, "no archived results for %s", exp.Name)
					}
				} else if analysis, err = a.Engine.Analyze(ctx, exp.ID); err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), analysis)
				}
				return printAnalysis(cmd.OutOrStdout(), analysis)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.Flags().BoolVar(&archived, "archived", false, "Read the results archived at stop time")
	return cmd
}

func printAnalysis(out io.Writer, an *domain.Analysis) error {
	fmt.Fprintf(out, "Experiment: %s (%s)\n", an.ExperimentName, an.Status)
	fmt.Fprintf(out, "Started:    %s, %d day(s) running\n", util.FormatDate(an.StartDate), an.DaysRunning)
	fmt.Fprintf(out, "Subjects:   %s\n", util.FormatNumber(an.TotalUsers))
	fmt.Fprintf(out, "Control:    %s\n\n", an.ControlVariant)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tUSERS\tCONV\tRATE\tLIFT\tZ\tCONFIDENCE\tSIGNIFICANT\tAVG VALUE")
	fmt.Fprintln(w, "-------\t-----\t----\t----\t----\t-\t----------\t-----------\t---------")
	for _, r := range an.Results {
		lift, z, conf, sig := "-", "-", "-", "-"
		if r.VariantID != an.ControlVariant {
			lift = util.FormatPercent(r.Lift)
			z = fmt.Sprintf("%.2f", r.ZScore)
			conf = fmt.Sprintf("%d%%", r.Confidence)
			sig = "no"
			if r.Significant {
				sig = "yes"
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
			r.VariantID, r.Users, r.Conversions, util.FormatPercent(r.ConversionRate),
			lift, z, conf, sig, r.AverageValue)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if an.HasWinner {
		fmt.Fprintln(out, "\nA variant beats the control at 95% confidence.")
	}
	return nil
}
