package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/propensity/core"
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/input"
	"github.com/huangsam/propensity/internal/registry"
	"github.com/huangsam/propensity/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// modelStatus is the model_status tool payload.
type modelStatus struct {
	Latest  *schema.SellerModelWeights `json:"latest"`
	History []schema.ModelHistoryEntry `json:"history"`
}

func (h *toolHandler) handleScoreProperties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}
	cfg.UseModel = request.GetBool("use_model", cfg.UseModel)

	result, err := h.score(ctx, cfg, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jsonData, _ := json.MarshalIndent(struct {
		Summary       schema.ScoreSummary            `json:"summary"`
		ModelMetadata *schema.ModelMetadata          `json:"model_metadata,omitempty"`
		Scores        []schema.SellerPropensityScore `json:"scores"`
	}{result.Summary, result.ModelMetadata, result.Scores}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleRankGeographies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if l := request.GetString("levels", ""); l != "" {
		levels, err := contract.ParseGeoLevels(l)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid ranking parameters: %v", err)), nil
		}
		cfg.GeoLevels = levels
	}
	if top := request.GetInt("top", 0); top > 0 {
		cfg.TopN = top
	}

	result, err := h.score(ctx, cfg, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	jsonData, _ := json.MarshalIndent(struct {
		Summary  schema.ScoreSummary                           `json:"summary"`
		Rankings map[schema.GeoLevel][]schema.GeographyRanking `json:"rankings"`
	}{result.Summary, result.Rankings}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleModelStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := request.GetString("model_dir", h.baseCfg.ModelDir)
	if dir == "" {
		dir = contract.GetModelDir()
	}
	reg := registry.NewFileRegistry(dir)

	latest, err := reg.LoadLatest()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load model: %v", err)), nil
	}
	if latest == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no trained model found in %s", dir)), nil
	}
	history, err := reg.History()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list models: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(modelStatus{Latest: latest, History: history}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// score runs the scoring pipeline over inline properties or an input file.
func (h *toolHandler) score(ctx context.Context, cfg *contract.Config, request mcp.CallToolRequest) (*schema.ScoreAndRankResult, error) {
	ctx = core.WithSuppressHeader(ctx)

	if inline := strings.TrimSpace(request.GetString("properties", "")); inline != "" {
		props, err := input.ReadProperties(strings.NewReader(inline), input.JSONFormat)
		if err != nil {
			return nil, fmt.Errorf("invalid properties: %w", err)
		}
		result, err := core.ScoreProperties(ctx, cfg, h.mgr, props)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	if p := request.GetString("input_path", ""); p != "" {
		cfg.InputPath = p
	}
	if cfg.InputPath == "" {
		return nil, fmt.Errorf("input_path or properties is required")
	}
	return core.GetScoreResults(ctx, cfg, h.mgr)
}
