// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the propensity MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Seller Propensity Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: score_properties ---
	s.AddTool(mcp.NewTool("score_properties",
		mcp.WithDescription("Score properties by their likelihood to sell, highest first."),
		mcp.WithString("input_path", mcp.Description("Path to a JSON or YAML file of properties (defaults to the configured input).")),
		mcp.WithString("properties", mcp.Description("Inline JSON array of properties. Takes precedence over input_path.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of scores returned.")),
		mcp.WithBoolean("use_model", mcp.Description("Blend the latest trained model into the heuristic score. Defaults to true.")),
	), h.handleScoreProperties)

	// --- 2. Tool: rank_geographies ---
	s.AddTool(mcp.NewTool("rank_geographies",
		mcp.WithDescription("Rank geographies by the mean seller propensity of their properties."),
		mcp.WithString("input_path", mcp.Description("Path to a JSON or YAML file of properties.")),
		mcp.WithString("properties", mcp.Description("Inline JSON array of properties.")),
		mcp.WithString("levels", mcp.Description("Comma-separated geography levels (state, region, zip, county, neighborhood).")),
		mcp.WithNumber("top", mcp.Description("Number of top properties listed per geography.")),
	), h.handleRankGeographies)

	// --- 3. Tool: model_status ---
	s.AddTool(mcp.NewTool("model_status",
		mcp.WithDescription("Describe the latest trained model and its evaluation, plus the model history."),
		mcp.WithString("model_dir", mcp.Description("Directory holding trained models.")),
	), h.handleModelStatus)

	return s
}

// StartMCPServer starts the propensity MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
