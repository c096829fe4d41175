package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Arbor as an MCP Server.
This allows AI agents to decide with the stored trees through tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")

		// Logs must never reach Stdout, which carries JSON-RPC.
		slog.SetDefault(logger)
		log.SetOutput(os.Stderr)

		engine, err := cli.NewEngine(cfg, logger, nil)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		if err := engine.Follow(sigCtx); err != nil {
			logger.Debug("Tree cache will not follow changes", "err", err)
		}

		srv := mcp.NewServer(engine)

		switch transport {
		case "stdio":
			logger.Info("Starting Arbor MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting Arbor MCP Server (SSE)", "port", cfg.Port)
			if err := srv.ServeSSE(sigCtx, cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
