package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/splitr/internal/app"
	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/util"
)

func newExperimentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiment",
		Aliases: []string{"exp"},
		Short:   "Manage experiments",
		Long:    `Create, update, start, pause and stop experiments and read their results.`,
	}

	cmd.AddCommand(
		newExperimentCreateCmd(),
		newExperimentUpdateCmd(),
		newExperimentListCmd(),
		newExperimentShowCmd(),
		newExperimentTransitionCmd("start", "Start or resume an experiment"),
		newExperimentTransitionCmd("pause", "Pause a running experiment"),
		newExperimentStopCmd(),
		newExperimentResultsCmd(),
	)
	return cmd
}

// definitionFlags are shared by create and update.
type definitionFlags struct {
	file        string
	name        string
	description string
	metric      string
	variants    []string
	traffic     int
}

func (f *definitionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML definition file")
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Experiment name")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&f.metric, "metric", "m", "", "Name of the conversion metric")
	cmd.Flags().StringArrayVarP(&f.variants, "variant", "v", nil, "Variant as id:weight (repeatable)")
	cmd.Flags().IntVarP(&f.traffic, "traffic", "t", 100, "Percentage of subjects admitted (0-100)")
}

// apply layers the file and the explicitly set flags over base.
func (f *definitionFlags) apply(cmd *cobra.Command, base domain.ExperimentDefinition) (domain.ExperimentDefinition, error) {
	def := base
	if f.file != "" {
		loaded, err := loadDefinition(f.file)
		if err != nil {
			return def, err
		}
		def = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		def.Name = f.name
	}
	if flags.Changed("description") {
		def.Description = optional(f.description)
	}
	if flags.Changed("metric") {
		def.Metric = optional(f.metric)
	}
	if flags.Changed("traffic") || (f.file == "" && base.Name == "") {
		def.TrafficPercentage = f.traffic
	}
	if flags.Changed("variant") {
		def.Variants = def.Variants[:0:0]
		for _, raw := range f.variants {
			v, err := parseVariant(raw)
			if err != nil {
				return def, err
			}
			def.Variants = append(def.Variants, v)
		}
	}
	return def, nil
}

func newExperimentCreateCmd() *cobra.Command {
	var flags definitionFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft experiment",
		Long: `Create a draft experiment from flags or a YAML file. Flags override the file.

Examples:
  splitr experiment create -n checkout-button -v control:50 -v green:50 -t 20
  splitr experiment create -f checkout-button.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := flags.apply(cmd, domain.ExperimentDefinition{})
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exp, err := a.Engine.Create(ctx, def)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created experiment %s (%s) in %s\n", exp.Name, exp.ID, exp.Status)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newExperimentUpdateCmd() *cobra.Command {
	var flags definitionFlags

	cmd := &cobra.Command{
		Use:   "update <id|name>",
		Short: "Redefine a draft experiment",
		Long:  `Replace parts of a draft experiment's definition. Only the given flags change.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exp, err := lookup(ctx, a.Engine, args[0])
				if err != nil {
					return err
				}
				def, err := flags.apply(cmd, exp.Definition())
				if err != nil {
					return err
				}
				exp, err = a.Engine.Update(ctx, exp.ID, def)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated experiment %s\n", exp.Name)
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newExperimentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exps, err := a.Engine.List(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(exps) == 0 {
					fmt.Fprintln(out, "No experiments found")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tID\tSTATUS\tTRAFFIC\tVARIANTS\tSTARTED\tENDED")
				fmt.Fprintln(w, "----\t--\t------\t-------\t--------\t-------\t-----")
				for _, e := range exps {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\t%s\n",
						e.Name, e.ID, e.Status, e.TrafficPercentage, formatVariants(e.Variants),
						util.FormatDate(e.StartDate), util.FormatDate(e.EndDate))
				}
				return w.Flush()
			})
		},
	}
}

func newExperimentShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exp, err := lookup(ctx, a.Engine, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), exp)
				}
				printExperiment(cmd.OutOrStdout(), exp)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newExperimentTransitionCmd(op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op + " <id|name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				exp, err := lookup(ctx, a.Engine, args[0])
				if err != nil {
					return err
				}
				switch op {
				case "start":
					exp, err = a.Engine.Start(ctx, exp.ID)
				case "pause":
					exp, err = a.Engine.Pause(ctx, exp.ID)
				default:
					return errors.Newf("unknown transition %q", op)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s is now %s\n", exp.Name, exp.Status)
				return nil
			})
		},
	}
}

func formatVariants(variants []domain.Variant) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, fmt.Sprintf("%s:%d", v.ID, v.Weight))
	}
	return strings.Join(parts, ",")
}

func printExperiment(out io.Writer, e *domain.Experiment) {
	fmt.Fprintf(out, "Name:     %s\n", e.Name)
	fmt.Fprintf(out, "ID:       %s\n", e.ID)
	fmt.Fprintf(out, "Status:   %s\n", e.Status)
	if e.Description != nil {
		fmt.Fprintf(out, "About:    %s\n", *e.Description)
	}
	if e.Metric != nil {
		fmt.Fprintf(out, "Metric:   %s\n", *e.Metric)
	}
	fmt.Fprintf(out, "Traffic:  %d%%\n", e.TrafficPercentage)
	fmt.Fprintf(out, "Variants: %s\n", formatVariants(e.Variants))
	fmt.Fprintf(out, "Started:  %s\n", util.FormatDate(e.StartDate))
	fmt.Fprintf(out, "Ended:    %s\n", util.FormatDate(e.EndDate))
	if e.WinnerVariant != nil {
		fmt.Fprintf(out, "Winner:   %s\n", *e.WinnerVariant)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
