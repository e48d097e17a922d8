package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func zipKey(z string) contract.LocationKey {
	return contract.LocationKey{Level: contract.ZipLocation, Value: z}
}

func listing(dom float64) *schema.MarketData {
	return &schema.MarketData{Listing: &schema.ListingMarket{MedianDaysOnMarket: schema.Ptr(dom)}}
}

func TestKeysFor(t *testing.T) {
	tests := []struct {
		name     string
		property schema.PropertyOpportunity
		expected []string
	}{
		{"all parts", schema.PropertyOpportunity{Zip: "78701", City: "Austin", State: "TX"}, []string{"zip:78701", "city:austin|tx", "state:tx"}},
		{"no zip", schema.PropertyOpportunity{City: "Austin", State: "tx"}, []string{"city:austin|tx", "state:tx"}},
		{"state only", schema.PropertyOpportunity{State: "CA"}, []string{"state:ca"}},
		{"city without state", schema.PropertyOpportunity{City: "Austin"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, k := range KeysFor(tt.property) {
				got = append(got, k.String())
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSession_LookupOrder(t *testing.T) {
	provider := NewStaticProvider(map[string]*schema.MarketData{
		"city:austin|tx": listing(30),
		"state:tx":       listing(45),
		"zip:94102":      listing(12),
	})
	s := NewSession(provider)
	ctx := context.Background()

	got := s.Lookup(ctx, schema.PropertyOpportunity{Zip: "78701", City: "Austin", State: "TX"})
	require.NotNil(t, got)
	assert.Equal(t, 30.0, *got.Listing.MedianDaysOnMarket, "city beats state when zip is unknown")

	got = s.Lookup(ctx, schema.PropertyOpportunity{Zip: "94102", City: "San Francisco", State: "CA"})
	require.NotNil(t, got)
	assert.Equal(t, 12.0, *got.Listing.MedianDaysOnMarket)

	assert.Nil(t, s.Lookup(ctx, schema.PropertyOpportunity{State: "NV"}))
}

func TestSession_SkipsEmptyData(t *testing.T) {
	provider := NewStaticProvider(map[string]*schema.MarketData{
		"zip:78701": {},
		"state:tx":  listing(45),
	})
	got := NewSession(provider).Lookup(context.Background(), schema.PropertyOpportunity{Zip: "78701", State: "TX"})
	require.NotNil(t, got)
	assert.Equal(t, 45.0, *got.Listing.MedianDaysOnMarket)
}

func TestSession_MemoizesIncludingMisses(t *testing.T) {
	m := &MockProvider{}
	m.On("GetMarketData", mock.Anything, zipKey("78701")).Return(nil, nil).Once()
	m.On("GetMarketData", mock.Anything, contract.LocationKey{Level: contract.StateLocation, Value: "tx"}).Return(listing(40), nil).Once()

	s := NewSession(m)
	p := schema.PropertyOpportunity{Zip: "78701", State: "TX"}
	for range 3 {
		got := s.Lookup(context.Background(), p)
		require.NotNil(t, got)
	}
	assert.EqualValues(t, 2, s.Fetches())
	assert.Equal(t, 2, s.Size())
	m.AssertExpectations(t)
}

func TestSession_ConcurrentCallersShareFetch(t *testing.T) {
	release := make(chan time.Time)
	m := &MockProvider{}
	m.On("GetMarketData", mock.Anything, zipKey("94102")).
		WaitUntil(release).
		Return(listing(10), nil).
		Once()

	s := NewSession(m)
	var wg sync.WaitGroup
	results := make([]*schema.MarketData, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Get(context.Background(), zipKey("94102"))
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 10.0, *r.Listing.MedianDaysOnMarket)
	}
	assert.EqualValues(t, 1, s.Fetches())
	m.AssertExpectations(t)
}

func TestSession_ErrorsAreAbsence(t *testing.T) {
	m := &MockProvider{}
	m.On("GetMarketData", mock.Anything, zipKey("10001")).Return(nil, errors.New("upstream down")).Once()

	s := NewSession(m)
	assert.Nil(t, s.Get(context.Background(), zipKey("10001")))
	assert.Nil(t, s.Get(context.Background(), zipKey("10001")))
	m.AssertExpectations(t)
}

func TestSession_NilProvider(t *testing.T) {
	s := NewSession(nil)
	assert.Nil(t, s.Lookup(context.Background(), schema.PropertyOpportunity{Zip: "94102"}))
	assert.Zero(t, s.Fetches())
}

func TestNewFileProvider(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "market.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"ZIP:94102":{"listing":{"median_days_on_market":14}}}`), 0o644))
	jp, err := NewFileProvider(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 1, jp.Len())
	got, err := jp.GetMarketData(context.Background(), zipKey("94102"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 14.0, *got.Listing.MedianDaysOnMarket)

	yamlPath := filepath.Join(dir, "market.yaml")
	yamlDoc := "state:tx:\n  economic:\n    mortgage_rate_30y: 6.8\n    unemployment_rate: 4.1\n"
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0o644))
	yp, err := NewFileProvider(yamlPath)
	require.NoError(t, err)
	got, err = yp.GetMarketData(context.Background(), contract.LocationKey{Level: contract.StateLocation, Value: "tx"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 6.8, *got.Economic.MortgageRate30Y)

	_, err = NewFileProvider(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFileProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStaticProvider(nil).GetMarketData(ctx, zipKey("94102"))
	assert.ErrorIs(t, err, context.Canceled)
}
