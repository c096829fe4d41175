package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <tree-id>",
	Short: "Export the tree as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of every output of the tree.
With --context, the path taken by that decision is highlighted.`,
	Args: cobra.ExactArgs(1),
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

		var overlay *graph.GraphOverlay
		if cmd.Flags().Changed("context") {
			rawContext, _ := cmd.Flags().GetString("context")
			partial, err := cli.ParseContext(rawContext)
			if err != nil {
				return err
			}
			d, err := engine.Decide(cmd.Context(), tree, partial, nil)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromDecision(d)
		}

		fmt.Print(graph.GenerateMermaid(tree, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("context", "c", "", "Highlight the path of the decision for this JSON context")
}
