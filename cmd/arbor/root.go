package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/arbor/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor evaluates decision trees locally",
	Long: `Arbor takes learned decision trees and explains the predictions they make for a context.
Trees are read from a directory (JSON, YAML or Markdown front matter) or from Redis.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("dir", ".", "Directory containing the trees")
	flags.Bool("debug", false, "Log every node and decision to stderr")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.String("redis-url", "", "Read trees from Redis instead of the directory (redis://host:port/db)")
	flags.String("redis-prefix", "arbor:tree:", "Key prefix of the trees stored in Redis")
	flags.Int("concurrency", 0, "Rows evaluated at once by batches (0 means one per CPU)")
}

// setup resolves the configuration and logger of a command.
func setup(cmd *cobra.Command) (cli.Config, *slog.Logger, error) {
	cfg, err := cli.LoadConfig(cmd.Flags())
	if err != nil {
		return cli.Config{}, nil, err
	}
	return cfg, cli.NewLogger(cfg), nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
