// Package marketdata adapts market-data collaborators and memoizes lookups for a scoring batch.
package marketdata

import (
	"strings"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"
)

// KeysFor returns the lookup keys of a property in priority order:
// ZIP, then city and state, then state. Blank parts are skipped.
func KeysFor(p schema.PropertyOpportunity) []contract.LocationKey {
	var keys []contract.LocationKey
	zip := schema.ZipCode(p.Zip)
	city := strings.ToLower(strings.TrimSpace(p.City))
	state := strings.ToLower(strings.TrimSpace(p.State))

	if zip != "" {
		keys = append(keys, contract.LocationKey{Level: contract.ZipLocation, Value: zip})
	}
	if city != "" && state != "" {
		keys = append(keys, contract.LocationKey{Level: contract.CityLocation, Value: city + "|" + state})
	}
	if state != "" {
		keys = append(keys, contract.LocationKey{Level: contract.StateLocation, Value: state})
	}
	return keys
}

// IsEmpty reports whether market data carries no source at all.
func IsEmpty(m *schema.MarketData) bool {
	return m == nil || (m.Listing == nil && m.Census == nil && m.Housing == nil && m.Economic == nil)
}
