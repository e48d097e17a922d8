package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"gopkg.in/yaml.v3"
)

// FileProvider serves market data from a JSON or YAML snapshot keyed by location,
// e.g. "zip:94102", "city:austin|tx" or "state:tx".
type FileProvider struct {
	entries map[string]*schema.MarketData
}

var _ contract.MarketDataProvider = &FileProvider{} // Compile-time check

// NewFileProvider loads a snapshot file. The format follows the file extension.
func NewFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read market data: %w", err)
	}

	raw := map[string]*schema.MarketData{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse market data %s: %w", path, err)
	}
	return NewStaticProvider(raw), nil
}

// NewStaticProvider serves the given entries. Keys are normalized to lower case.
func NewStaticProvider(entries map[string]*schema.MarketData) *FileProvider {
	normalized := make(map[string]*schema.MarketData, len(entries))
	for k, v := range entries {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &FileProvider{entries: normalized}
}

// GetMarketData implements contract.MarketDataProvider.
func (f *FileProvider) GetMarketData(ctx context.Context, key contract.LocationKey) (*schema.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.entries[strings.ToLower(key.String())], nil
}

// Len returns the number of locations in the snapshot.
func (f *FileProvider) Len() int {
	return len(f.entries)
}
