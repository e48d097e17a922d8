package cmd

import (
	"github.com/huangsam/propensity/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd serves the scoring tools over MCP on stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the seller propensity MCP server",
	Long:  `Launch an MCP server on stdio that lets AI agents score properties, rank geographies and inspect the model.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr; stdout belongs to the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
