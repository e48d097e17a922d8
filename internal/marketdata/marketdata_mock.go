package marketdata

import (
	"context"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of MarketDataProvider for testing.
type MockProvider struct {
	mock.Mock
}

var _ contract.MarketDataProvider = &MockProvider{} // Compile-time check

// GetMarketData implements the MarketDataProvider interface.
func (m *MockProvider) GetMarketData(ctx context.Context, key contract.LocationKey) (*schema.MarketData, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).(*schema.MarketData)
	return data, args.Error(1)
}
