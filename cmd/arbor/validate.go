package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/registry"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check tree documents for consistency",
	Long: `Parses every given file, or every stored tree when no file is given, and reports
malformed documents: unknown operators, overlapping branches, leaves without predictions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		report := func(name string, err error) {
			if err != nil {
				failed++
				fmt.Printf("❌ %s: %v\n", name, err)
				return
			}
			fmt.Printf("✅ %s\n", name)
		}

		if len(args) > 0 {
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err == nil {
					_, err = registry.Parse(data)
				}
				report(path, err)
			}
		} else {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			engine, err := cli.NewEngine(cfg, logger, nil)
			if err != nil {
				return err
			}
			ids, err := engine.ListTrees(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				_, err := engine.Tree(cmd.Context(), id)
				report(id, err)
			}
		}

		if failed > 0 {
			return fmt.Errorf("validation failed: %d invalid tree(s)", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
