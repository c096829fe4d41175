package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
)

var batchCmd = &cobra.Command{
	Use:   "batch [tree-id]",
	Short: "Decide for every context of an NDJSON stream",
	Long: `Reads one context per line, either bare or as {"context": {...}, "time": {...}},
and writes one result per line in input order. Rows that fail are reported in place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		generator, _ := cmd.Flags().GetString("generator")
		inputPath, _ := cmd.Flags().GetString("input")
		requestID, _ := cmd.Flags().GetString("request-id")

		// JSON Lines unless a person is reading.
		jsonMode := !isTerminal(os.Stdout)
		if cmd.Flags().Changed("json") {
			jsonMode, _ = cmd.Flags().GetBool("json")
		}

		var in io.Reader = os.Stdin
		if inputPath != "" && inputPath != "-" {
			f, err := os.Open(inputPath)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		opts := cli.BatchOptions{
			GeneratorPath: generator,
			JSON:          jsonMode,
			ChunkSize:     cfg.ChunkSize,
			RequestID:     requestID,
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

		summary, err := cli.RunBatch(sigCtx, engine, opts, in, os.Stdout, logger)
		if err != nil {
			return err
		}
		if isTerminal(os.Stderr) {
			fmt.Fprintf(os.Stderr, ">>> %d rows, %d failed.\n", summary.Rows, summary.Failed)
		}
		if sig := sigCtx.Signal(); sig != nil {
			fmt.Fprintf(os.Stderr, ">>> Interrupted (%v) after %d rows.\n", sig, summary.Rows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("generator", "g", "", "Generator definition (JSON or YAML) to decide with instead of a tree")
	batchCmd.Flags().StringP("input", "i", "-", "NDJSON input file (- for stdin)")
	batchCmd.Flags().Bool("json", false, "Write JSON Lines (default when stdout is not a terminal)")
	batchCmd.Flags().Int("chunk-size", 0, "Rows read before each evaluation round")
	batchCmd.Flags().String("request-id", "", "ID attached to every result (default a random UUID)")
}
