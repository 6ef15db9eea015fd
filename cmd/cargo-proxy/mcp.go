package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cargo-proxy/internal/mcpserver"
)

var mcpCwd string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the cargo tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := newApp(cfg, mcpCwd, logger)
		return mcpserver.ServeStdio(ctx, a.mcp)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpCwd, "cwd", "", "initial directory for cargo commands")
}
