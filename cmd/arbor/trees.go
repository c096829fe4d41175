package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored trees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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
			fmt.Println(id)
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <tree-id>",
	Short: "Summarize a tree: outputs, depth, leaves and the properties it splits on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		engine, err := cli.NewEngine(cfg, logger, nil)
		if err != nil {
			return err
		}
		tree, err := engine.Tree(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		info, err := engine.Inspect(tree)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	},
}

var pushCmd = &cobra.Command{
	Use:   "push <tree-id> <file>",
	Short: "Validate a tree document and store it in Redis",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		if err := cli.RunPush(cmd.Context(), cfg, args[0], data, logger); err != nil {
			return err
		}
		fmt.Printf("Stored %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, inspectCmd, pushCmd)
}
