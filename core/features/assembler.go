// Package features assembles the fixed-order numeric feature vector used for training and inference.
package features

import (
	"fmt"
	"time"

	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/core/signals"
	"github.com/huangsam/propensity/schema"
)

// Group sizes of the feature layout.
const (
	CoreCount        = 24
	MarketCount      = 10
	TemporalCount    = 5
	ComparativeCount = 6
	FinancialCount   = 7
	InteractionCount = 8

	// Count is the total number of features in a vector.
	Count = CoreCount + MarketCount + TemporalCount + ComparativeCount + FinancialCount + InteractionCount
)

const (
	hoursPerDay        = 24.0
	daysPerYear        = 365.25
	baselineEngagement = 50.0
	maxHealthyLTV      = 0.8
)

// input bundles everything a feature extractor may read.
type input struct {
	p      schema.PropertyOpportunity
	s      schema.SellerSignals
	m      schema.MarketData
	asOf   time.Time
	years  *float64
	income *float64
}

type feature struct {
	name    string
	extract func(in *input) *float64
}

// layout is the contractual feature order. Appending, removing or reordering
// entries invalidates every persisted model.
var layout = []feature{
	// core
	{"equity_ratio", func(in *input) *float64 { return in.s.EquityRatio }},
	{"equity_velocity", func(in *input) *float64 { return in.s.EquityVelocity }},
	{"loan_to_value", func(in *input) *float64 { return in.s.LoanToValue }},
	{"mortgage_pressure", func(in *input) *float64 { return in.s.MortgagePressure }},
	{"neighborhood_momentum", func(in *input) *float64 { return in.s.NeighborhoodMomentum }},
	{"life_event_score", func(in *input) *float64 { return in.s.LifeEventScore }},
	{"listing_momentum", func(in *input) *float64 { return in.s.ListingMomentum }},
	{"transaction_recency_score", func(in *input) *float64 { return in.s.TransactionRecencyScore }},
	{"refinance_intensity", func(in *input) *float64 { return in.s.RefinanceIntensity }},
	{"engagement_intent_score", func(in *input) *float64 { return in.s.EngagementIntentScore }},
	{"market_value", func(in *input) *float64 { return &in.p.MarketValue }},
	{"assessed_value", func(in *input) *float64 { return in.p.AssessedValue }},
	{"estimated_equity", func(in *input) *float64 { return in.s.Equity }},
	{"equity_upside", func(in *input) *float64 { return in.p.EquityUpside }},
	{"years_in_home", func(in *input) *float64 { return in.years }},
	{"loan_balance", func(in *input) *float64 { return in.p.LoanBalance }},
	{"interest_rate", func(in *input) *float64 { return in.p.InterestRate }},
	{"listing_score", func(in *input) *float64 { return in.p.ListingScore }},
	{"digital_engagement", func(in *input) *float64 { return in.p.DigitalEngagement }},
	{"multi_channel_engagement", func(in *input) *float64 { return in.p.MultiChannelEngagement }},
	{"household_income", func(in *input) *float64 { return in.income }},
	{"prior_listing_count", func(in *input) *float64 { return floatOf(in.p.PriorListingCount) }},
	{"refinance_count", func(in *input) *float64 { return intPtrFloat(in.p.RefinanceCount) }},
	{"flag_count", func(in *input) *float64 { return floatOf(len(in.s.Flags)) }},

	// market context
	{"affordability_index", func(in *input) *float64 {
		if in.m.Housing == nil {
			return nil
		}
		return in.m.Housing.AffordabilityIndex
	}},
	{"investment_potential", investmentPotential},
	{"market_velocity", marketVelocity},
	{"inventory_tightness", func(in *input) *float64 {
		if in.m.Listing == nil || in.m.Listing.MonthsOfSupply == nil {
			return nil
		}
		return floatOf(algo.Clamp01(1-*in.m.Listing.MonthsOfSupply/6) * 100)
	}},
	{"mortgage_rate_trend", mortgageRateTrend},
	{"local_unemployment", func(in *input) *float64 {
		if in.m.Economic == nil {
			return nil
		}
		return in.m.Economic.UnemploymentRate
	}},
	{"competitiveness", func(in *input) *float64 {
		if in.m.Listing == nil {
			return nil
		}
		return in.m.Listing.CompetitivenessScore
	}},
	{"price_appreciation", priceAppreciation},
	{"days_on_market", func(in *input) *float64 {
		if in.m.Listing == nil {
			return nil
		}
		return in.m.Listing.MedianDaysOnMarket
	}},
	{"months_of_supply", func(in *input) *float64 {
		if in.m.Listing == nil {
			return nil
		}
		return in.m.Listing.MonthsOfSupply
	}},

	// temporal
	{"days_since_sale", func(in *input) *float64 {
		if d := daysSince(in.p.LastSaleDate, in.asOf); d != nil {
			return d
		}
		return scale(in.s.YearsSinceSale, daysPerYear)
	}},
	{"days_since_engagement", func(in *input) *float64 { return daysSince(lastEngagement(in.p), in.asOf) }},
	{"days_since_listing", func(in *input) *float64 { return daysSince(in.p.LastListingDate, in.asOf) }},
	{"seasonal_window_score", func(in *input) *float64 { return floatOf(SeasonalWindowScore(in.asOf)) }},
	{"years_since_refinance", func(in *input) *float64 {
		return scale(daysSince(in.p.LastRefinanceDate, in.asOf), 1/daysPerYear)
	}},

	// comparative
	{"value_vs_neighborhood", func(in *input) *float64 { return ratio(&in.p.MarketValue, in.p.NeighborhoodMedianValue) }},
	{"tenure_vs_area", func(in *input) *float64 { return ratio(in.years, in.p.AreaMedianTenure) }},
	{"equity_vs_area", func(in *input) *float64 {
		if in.s.EquityRatio == nil || in.p.AreaMedianEquityRatio == nil {
			return nil
		}
		return floatOf(*in.s.EquityRatio - *in.p.AreaMedianEquityRatio)
	}},
	{"income_vs_area", func(in *input) *float64 { return ratio(in.income, areaIncome(in)) }},
	{"price_vs_area_median", func(in *input) *float64 { return ratio(&in.p.MarketValue, areaPrice(in)) }},
	{"engagement_vs_baseline", func(in *input) *float64 {
		return scale(in.s.EngagementIntentScore, 1/baselineEngagement)
	}},

	// financial and property
	{"debt_service_ratio", func(in *input) *float64 { return in.s.DebtServiceRatio }},
	{"tax_burden", func(in *input) *float64 { return ratio(in.p.AnnualTaxes, in.income) }},
	{"assessed_value_ratio", func(in *input) *float64 { return ratio(in.p.AssessedValue, &in.p.MarketValue) }},
	{"refinance_urgency", refinanceUrgency},
	{"negative_equity_risk", func(in *input) *float64 {
		if in.s.LoanToValue == nil {
			return nil
		}
		return floatOf(algo.Clamp01((*in.s.LoanToValue-maxHealthyLTV)/(1-maxHealthyLTV)) * 100)
	}},
	{"property_age", func(in *input) *float64 {
		if in.p.YearBuilt == nil || *in.p.YearBuilt > in.asOf.Year() {
			return nil
		}
		return floatOf(in.asOf.Year() - *in.p.YearBuilt)
	}},
	{"price_per_sqft", func(in *input) *float64 { return ratio(&in.p.MarketValue, in.p.SquareFeet) }},

	// interactions
	{"equity_x_tenure", func(in *input) *float64 { return product(in.s.EquityRatio, in.years, 1) }},
	{"equity_x_market_velocity", func(in *input) *float64 { return product(in.s.EquityRatio, marketVelocity(in), 1) }},
	{"life_event_x_engagement", func(in *input) *float64 {
		return product(in.s.LifeEventScore, in.s.EngagementIntentScore, 0.01)
	}},
	{"ltv_x_rate_trend", func(in *input) *float64 { return product(in.s.LoanToValue, mortgageRateTrend(in), 1) }},
	{"pressure_x_unemployment", func(in *input) *float64 {
		var unemployment *float64
		if in.m.Economic != nil {
			unemployment = in.m.Economic.UnemploymentRate
		}
		return product(in.s.MortgagePressure, unemployment, 0.01)
	}},
	{"tenure_x_appreciation", func(in *input) *float64 { return product(in.years, priceAppreciation(in), 1) }},
	{"engagement_x_listing_momentum", func(in *input) *float64 {
		return product(in.s.EngagementIntentScore, in.s.ListingMomentum, 0.01)
	}},
	{"equity_upside_ratio", func(in *input) *float64 { return ratio(in.p.EquityUpside, &in.p.MarketValue) }},
}

var featureNames = func() []string {
	names := make([]string, len(layout))
	for i, f := range layout {
		names[i] = f.name
	}
	return names
}()

// FeatureNames returns the contractual feature order. The returned slice is a copy.
func FeatureNames() []string {
	names := make([]string, len(featureNames))
	copy(names, featureNames)
	return names
}

// Assemble encodes a property, its signals and its market context as a feature vector.
// Every unknown input becomes 0 in the vector.
func Assemble(p schema.PropertyOpportunity, s schema.SellerSignals, market *schema.MarketData, asOf time.Time) schema.SellerFeatureVector {
	in := &input{
		p:      p,
		s:      s,
		asOf:   asOf,
		years:  signals.YearsInHome(p, asOf),
		income: signals.HouseholdIncome(p),
	}
	if market != nil {
		in.m = *market
	}

	values := make([]float64, len(layout))
	for i, f := range layout {
		values[i] = schema.Deref(f.extract(in), 0)
	}

	vector := schema.SellerFeatureVector{
		FeatureNames: FeatureNames(),
		Values:       values,
	}
	if p.SellerOutcome != nil {
		label := *p.SellerOutcome
		vector.Label = &label
	}
	return vector
}

// Build derives signals and assembles the feature vector in one step.
func Build(p schema.PropertyOpportunity, market *schema.MarketData, asOf time.Time) (schema.SellerSignals, schema.SellerFeatureVector) {
	s := signals.Build(p, asOf)
	return s, Assemble(p, s, market, asOf)
}

// Validate checks that a vector matches the expected feature names exactly.
func Validate(vector schema.SellerFeatureVector, expected []string) error {
	if len(vector.Values) != len(vector.FeatureNames) {
		return fmt.Errorf("%w: %d names for %d values", schema.ErrFeatureMismatch, len(vector.FeatureNames), len(vector.Values))
	}
	if len(vector.FeatureNames) != len(expected) {
		return fmt.Errorf("%w: got %d features, want %d", schema.ErrFeatureMismatch, len(vector.FeatureNames), len(expected))
	}
	for i, name := range expected {
		if vector.FeatureNames[i] != name {
			return fmt.Errorf("%w: feature %d is %q, want %q", schema.ErrFeatureMismatch, i, vector.FeatureNames[i], name)
		}
	}
	return nil
}

// SeasonalWindowScore rates how favorable the calendar month is for listing.
func SeasonalWindowScore(t time.Time) float64 {
	switch t.Month() {
	case time.March, time.April, time.May, time.June:
		return 100
	case time.July, time.August:
		return 75
	case time.February, time.September:
		return 50
	default:
		return 25
	}
}

func investmentPotential(in *input) *float64 {
	if in.m.Housing == nil || in.m.Housing.FairMarketRent == nil {
		return nil
	}
	yield, ok := algo.SafeDiv(*in.m.Housing.FairMarketRent*12, in.p.MarketValue)
	if !ok {
		return nil
	}
	return floatOf(yield * 100)
}

func marketVelocity(in *input) *float64 {
	if in.m.Listing == nil {
		return nil
	}
	return ratio(in.m.Listing.HomesSold, in.m.Listing.ActiveListings)
}

func mortgageRateTrend(in *input) *float64 {
	e := in.m.Economic
	if e == nil || e.MortgageRate30Y == nil || e.MortgageRate30YPrior == nil {
		return nil
	}
	return floatOf(*e.MortgageRate30Y - *e.MortgageRate30YPrior)
}

func priceAppreciation(in *input) *float64 {
	if in.m.Listing != nil && in.m.Listing.PriceAppreciationYoY != nil {
		return in.m.Listing.PriceAppreciationYoY
	}
	return in.p.NeighborhoodAppreciation
}

func refinanceUrgency(in *input) *float64 {
	if in.p.InterestRate == nil || in.m.Economic == nil || in.m.Economic.MortgageRate30Y == nil {
		return nil
	}
	return floatOf(*in.p.InterestRate - *in.m.Economic.MortgageRate30Y)
}

func areaIncome(in *input) *float64 {
	if in.p.AreaMedianIncome != nil {
		return in.p.AreaMedianIncome
	}
	if in.m.Census != nil && in.m.Census.MedianHouseholdIncome != nil {
		return in.m.Census.MedianHouseholdIncome
	}
	if in.m.Housing != nil {
		return in.m.Housing.AreaMedianFamilyIncome
	}
	return nil
}

func areaPrice(in *input) *float64 {
	if in.m.Listing != nil && in.m.Listing.MedianSalePrice != nil {
		return in.m.Listing.MedianSalePrice
	}
	if in.m.Census != nil {
		return in.m.Census.MedianHomeValue
	}
	return nil
}

// lastEngagement is the explicit engagement date or the latest recorded event.
func lastEngagement(p schema.PropertyOpportunity) *time.Time {
	if p.LastEngagementDate != nil {
		return p.LastEngagementDate
	}
	var latest *time.Time
	for i := range p.Events {
		t := p.Events[i].OccurredAt
		if t.IsZero() {
			continue
		}
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest
}

func daysSince(t *time.Time, asOf time.Time) *float64 {
	if t == nil || t.IsZero() {
		return nil
	}
	days := asOf.Sub(*t).Hours() / hoursPerDay
	if days < 0 {
		return nil
	}
	return &days
}

func ratio(num, den *float64) *float64 {
	if num == nil || den == nil {
		return nil
	}
	v, ok := algo.SafeDiv(*num, *den)
	if !ok {
		return nil
	}
	return &v
}

func product(a, b *float64, factor float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return floatOf(*a * *b * factor)
}

func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return floatOf(*v * factor)
}

func floatOf[T int | float64](v T) *float64 {
	f := float64(v)
	return &f
}

func intPtrFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	return floatOf(*v)
}
