package schema

import (
	"fmt"
	"strings"
)

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed value, or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// ZipCode trims a ZIP and drops a ZIP+4 suffix ("78701-1234" becomes "78701").
// Anything that is not of that shape is returned trimmed and left for validation to reject.
func ZipCode(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) != 10 || zip[5] != '-' {
		return zip
	}
	for _, r := range zip[:5] + zip[6:] {
		if r < '0' || r > '9' {
			return zip
		}
	}
	return zip[:5]
}

// RegionKey formats the "City, ST" region key. It is empty when either part is blank.
func RegionKey(city, state string) string {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	if city == "" || state == "" {
		return ""
	}
	return fmt.Sprintf("%s, %s", city, strings.ToUpper(state))
}

// GeographyOf derives the grouping keys of a property.
func GeographyOf(p PropertyOpportunity) GeographyKeys {
	return GeographyKeys{
		State:        strings.ToUpper(strings.TrimSpace(p.State)),
		Region:       RegionKey(p.City, p.State),
		Zip:          ZipCode(p.Zip),
		County:       strings.TrimSpace(p.County),
		Neighborhood: strings.TrimSpace(p.Neighborhood),
	}
}

// SummaryOf builds the human-facing summary of a property.
func SummaryOf(p PropertyOpportunity) PropertySummary {
	return PropertySummary{
		Address:         p.Address,
		City:            p.City,
		State:           p.State,
		Zip:             p.Zip,
		OwnerType:       p.OwnerType,
		PriorityTier:    p.PriorityTier,
		MarketValue:     p.MarketValue,
		EstimatedEquity: p.EstimatedEquity,
		YearsInHome:     p.YearsInHome,
	}
}

// AuditGroupsOf returns the bias-audit attribute values of a property.
func AuditGroupsOf(p PropertyOpportunity) map[AuditAttribute]string {
	return map[AuditAttribute]string{
		AuditOwnerType:    p.OwnerType,
		AuditPriorityTier: p.PriorityTier,
		AuditIncomeBand:   p.IncomeBand,
	}
}

// FormatLocation returns a short location label for tables.
func FormatLocation(s SellerPropensityScore) string {
	switch {
	case s.Geography.Region != "" && s.Geography.Zip != "":
		return s.Geography.Region + " " + s.Geography.Zip
	case s.Geography.Region != "":
		return s.Geography.Region
	case s.Geography.Zip != "":
		return s.Geography.Zip
	default:
		return s.Geography.State
	}
}
