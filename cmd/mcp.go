package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/vachat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing VA benefits search, question answering and policy checks to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		deps, err := setupAssistant(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer deps.Close()

		svc, err := newService(cfg, deps)
		if err != nil {
			return err
		}

		chunks, err := deps.docs.Count(ctx)
		if err != nil {
			return err
		}
		if chunks == 0 {
			fmt.Fprintln(os.Stderr, "Warning: document store is empty. Run `vachat ingest` first.")
		}

		mcpserver.Version = Version

		// Stdout carries the protocol.
		fmt.Fprintf(os.Stderr, "vachat MCP server started on stdio (chunks=%d, slots=%v)\n", chunks, deps.engine.Slots())

		return mcpserver.NewServer(svc).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
