package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ruvxn/revtriage/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server over the tracking store",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients query the tracked error set natively.
Configure a client with:

  {
    "mcpServers": {
      "revtriage": { "command": "revtriage", "args": ["serve"] }
    }
  }

Available tools: revtriage_list_errors, revtriage_get_error,
revtriage_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
