package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
)

var decideCmd = &cobra.Command{
	Use:   "decide [tree-id]",
	Short: "Decide for one context and explain the prediction",
	Long: `Evaluates a stored tree, or the trees selected by a generator, against a context.
Absent time properties (day_of_week, time_of_day, ...) are derived from --timestamp and --timezone.`,
	Example: `  arbor decide lamp --context '{"presence": "home"}' --timestamp 1489998174 --timezone +01:00
  arbor decide --generator rooms.yaml --context '{"temp": 21}' --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		rawContext, _ := cmd.Flags().GetString("context")
		timestamp, _ := cmd.Flags().GetInt64("timestamp")
		timezone, _ := cmd.Flags().GetString("timezone")
		generator, _ := cmd.Flags().GetString("generator")
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")

		partial, err := cli.ParseContext(rawContext)
		if err != nil {
			return err
		}
		t, err := cli.ParseTime(timestamp, timezone)
		if err != nil {
			return err
		}

		opts := cli.DecideOptions{
			GeneratorPath: generator,
			Context:       partial,
			Time:          t,
			JSON:          jsonMode,
			Rich:          !jsonMode && isTerminal(os.Stdout),
		}
		if len(args) > 0 {
			opts.TreeID = args[0]
		}

		engine, err := cli.NewEngine(cfg, logger, nil)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		if watchMode {
			return cli.RunWatch(sigCtx, engine, opts, os.Stdout, logger)
		}
		return cli.RunDecide(sigCtx, engine, opts, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringP("context", "c", "", "Context as a JSON object")
	decideCmd.Flags().Int64("timestamp", 0, "Unix time of the decision (default now)")
	decideCmd.Flags().String("timezone", "", "UTC offset of the decision, e.g. +01:00 (default UTC)")
	decideCmd.Flags().StringP("generator", "g", "", "Generator definition (JSON or YAML) to decide with instead of a tree")
	decideCmd.Flags().Bool("json", false, "Print the decision as JSON")
	decideCmd.Flags().BoolP("watch", "w", false, "Decide again whenever the tree changes")
}
