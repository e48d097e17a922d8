// Package schema holds the domain types shared across the propensity engine.
package schema

import "time"

// PropertyEvent is a timestamped engagement event tied to a property.
type PropertyEvent struct {
	Type       string    `json:"type" yaml:"type" validate:"required"`
	OccurredAt time.Time `json:"occurred_at" yaml:"occurred_at" validate:"required"`
}

// PropertyOpportunity is a candidate parcel with owner, valuation and engagement attributes.
// Optional attributes are pointers: nil means unknown, which is not the same as zero.
type PropertyOpportunity struct {
	ID           string `json:"id" yaml:"id" validate:"required"`
	Address      string `json:"address,omitempty" yaml:"address"`
	City         string `json:"city,omitempty" yaml:"city"`
	State        string `json:"state,omitempty" yaml:"state" validate:"omitempty,len=2"`
	Zip          string `json:"zip,omitempty" yaml:"zip" validate:"omitempty,numeric,len=5"`
	County       string `json:"county,omitempty" yaml:"county"`
	Neighborhood string `json:"neighborhood,omitempty" yaml:"neighborhood"`
	OwnerType    string `json:"owner_type,omitempty" yaml:"owner_type"`
	PriorityTier string `json:"priority_tier,omitempty" yaml:"priority_tier"`
	IncomeBand   string `json:"income_band,omitempty" yaml:"income_band"`

	MarketValue     float64  `json:"market_value" yaml:"market_value" validate:"gte=0"`
	AssessedValue   *float64 `json:"assessed_value,omitempty" yaml:"assessed_value" validate:"omitempty,gte=0"`
	EstimatedEquity *float64 `json:"estimated_equity,omitempty" yaml:"estimated_equity"`
	EquityUpside    *float64 `json:"equity_upside,omitempty" yaml:"equity_upside"`
	LoanBalance     *float64 `json:"loan_balance,omitempty" yaml:"loan_balance" validate:"omitempty,gte=0"`
	InterestRate    *float64 `json:"interest_rate,omitempty" yaml:"interest_rate" validate:"omitempty,gte=0,lte=30"`
	MonthlyPayment  *float64 `json:"monthly_payment,omitempty" yaml:"monthly_payment" validate:"omitempty,gte=0"`
	AnnualTaxes     *float64 `json:"annual_taxes,omitempty" yaml:"annual_taxes" validate:"omitempty,gte=0"`
	HouseholdIncome *float64 `json:"household_income,omitempty" yaml:"household_income" validate:"omitempty,gte=0"`
	YearBuilt       *int     `json:"year_built,omitempty" yaml:"year_built" validate:"omitempty,gte=1600,lte=2200"`
	SquareFeet      *float64 `json:"square_feet,omitempty" yaml:"square_feet" validate:"omitempty,gt=0"`

	YearsInHome       *float64   `json:"years_in_home,omitempty" yaml:"years_in_home" validate:"omitempty,gte=0"`
	LastSaleDate      *time.Time `json:"last_sale_date,omitempty" yaml:"last_sale_date"`
	LastRefinanceDate *time.Time `json:"last_refinance_date,omitempty" yaml:"last_refinance_date"`
	RefinanceCount    *int       `json:"refinance_count,omitempty" yaml:"refinance_count" validate:"omitempty,gte=0"`
	CashOutRefinance  bool       `json:"cash_out_refinance,omitempty" yaml:"cash_out_refinance"`

	ListingScore           *float64        `json:"listing_score,omitempty" yaml:"listing_score" validate:"omitempty,gte=0,lte=100"`
	DigitalEngagement      *float64        `json:"digital_engagement,omitempty" yaml:"digital_engagement" validate:"omitempty,gte=0,lte=100"`
	MultiChannelEngagement *float64        `json:"multi_channel_engagement,omitempty" yaml:"multi_channel_engagement" validate:"omitempty,gte=0,lte=100"`
	LastEngagementDate     *time.Time      `json:"last_engagement_date,omitempty" yaml:"last_engagement_date"`
	PriorListingCount      int             `json:"prior_listing_count,omitempty" yaml:"prior_listing_count" validate:"gte=0"`
	LastListingDate        *time.Time      `json:"last_listing_date,omitempty" yaml:"last_listing_date"`
	LifeEvents             []string        `json:"life_events,omitempty" yaml:"life_events"`
	Events                 []PropertyEvent `json:"events,omitempty" yaml:"events" validate:"dive"`

	NeighborhoodMedianValue  *float64 `json:"neighborhood_median_value,omitempty" yaml:"neighborhood_median_value" validate:"omitempty,gte=0"`
	AreaMedianTenure         *float64 `json:"area_median_tenure,omitempty" yaml:"area_median_tenure" validate:"omitempty,gte=0"`
	AreaMedianEquityRatio    *float64 `json:"area_median_equity_ratio,omitempty" yaml:"area_median_equity_ratio"`
	AreaMedianIncome         *float64 `json:"area_median_income,omitempty" yaml:"area_median_income" validate:"omitempty,gte=0"`
	NeighborhoodAppreciation *float64 `json:"neighborhood_appreciation,omitempty" yaml:"neighborhood_appreciation"`

	// SellerOutcome is the historical label: 1 listed, 0 did not list, nil unknown.
	SellerOutcome *int `json:"seller_outcome,omitempty" yaml:"seller_outcome" validate:"omitempty,oneof=0 1"`
}

// ListingMarket holds listing-market statistics for an area.
type ListingMarket struct {
	MedianDaysOnMarket   *float64 `json:"median_days_on_market,omitempty" yaml:"median_days_on_market"`
	MonthsOfSupply       *float64 `json:"months_of_supply,omitempty" yaml:"months_of_supply"`
	SoldAboveListPct     *float64 `json:"sold_above_list_pct,omitempty" yaml:"sold_above_list_pct"`
	PriceDropPct         *float64 `json:"price_drop_pct,omitempty" yaml:"price_drop_pct"`
	MedianSalePrice      *float64 `json:"median_sale_price,omitempty" yaml:"median_sale_price"`
	PriceAppreciationYoY *float64 `json:"price_appreciation_yoy,omitempty" yaml:"price_appreciation_yoy"`
	HomesSold            *float64 `json:"homes_sold,omitempty" yaml:"homes_sold"`
	ActiveListings       *float64 `json:"active_listings,omitempty" yaml:"active_listings"`
	CompetitivenessScore *float64 `json:"competitiveness_score,omitempty" yaml:"competitiveness_score"`
}

// CensusProfile holds demographic statistics for an area.
type CensusProfile struct {
	MedianHouseholdIncome *float64 `json:"median_household_income,omitempty" yaml:"median_household_income"`
	MedianHomeValue       *float64 `json:"median_home_value,omitempty" yaml:"median_home_value"`
	CostBurdenedPct       *float64 `json:"cost_burdened_pct,omitempty" yaml:"cost_burdened_pct"`
	OccupancyRate         *float64 `json:"occupancy_rate,omitempty" yaml:"occupancy_rate"`
	HomeownershipRate     *float64 `json:"homeownership_rate,omitempty" yaml:"homeownership_rate"`
}

// HousingAffordability holds affordability statistics for an area.
type HousingAffordability struct {
	AffordabilityIndex     *float64 `json:"affordability_index,omitempty" yaml:"affordability_index"`
	FairMarketRent         *float64 `json:"fair_market_rent,omitempty" yaml:"fair_market_rent"`
	AreaMedianFamilyIncome *float64 `json:"area_median_family_income,omitempty" yaml:"area_median_family_income"`
}

// EconomicIndicators holds macro-economic indicators.
type EconomicIndicators struct {
	MortgageRate30Y      *float64 `json:"mortgage_rate_30y,omitempty" yaml:"mortgage_rate_30y"`
	MortgageRate30YPrior *float64 `json:"mortgage_rate_30y_prior,omitempty" yaml:"mortgage_rate_30y_prior"`
	UnemploymentRate     *float64 `json:"unemployment_rate,omitempty" yaml:"unemployment_rate"`
	GDPGrowth            *float64 `json:"gdp_growth,omitempty" yaml:"gdp_growth"`
	ConsumerConfidence   *float64 `json:"consumer_confidence,omitempty" yaml:"consumer_confidence"`
}

// MarketData bundles the market-context sources for one location.
// Each source may be independently absent.
type MarketData struct {
	Listing  *ListingMarket        `json:"listing,omitempty" yaml:"listing"`
	Census   *CensusProfile        `json:"census,omitempty" yaml:"census"`
	Housing  *HousingAffordability `json:"housing,omitempty" yaml:"housing"`
	Economic *EconomicIndicators   `json:"economic,omitempty" yaml:"economic"`
}

// SellerSignals are the derived per-property signals. Every value is optional.
type SellerSignals struct {
	Equity                  *float64     `json:"equity,omitempty"`
	EquityRatio             *float64     `json:"equity_ratio,omitempty"`
	EquityVelocity          *float64     `json:"equity_velocity,omitempty"`
	LoanToValue             *float64     `json:"loan_to_value,omitempty"`
	DebtServiceRatio        *float64     `json:"debt_service_ratio,omitempty"`
	MortgagePressure        *float64     `json:"mortgage_pressure,omitempty"`
	NeighborhoodMomentum    *float64     `json:"neighborhood_momentum,omitempty"`
	LifeEventScore          *float64     `json:"life_event_score,omitempty"`
	ListingMomentum         *float64     `json:"listing_momentum,omitempty"`
	TransactionRecencyScore *float64     `json:"transaction_recency_score,omitempty"`
	RefinanceIntensity      *float64     `json:"refinance_intensity,omitempty"`
	EngagementIntentScore   *float64     `json:"engagement_intent_score,omitempty"`
	YearsSinceSale          *float64     `json:"years_since_sale,omitempty"`
	Flags                   []SignalFlag `json:"flags,omitempty"`
}

// HasFlag reports whether the signals carry the given flag.
func (s SellerSignals) HasFlag(flag SignalFlag) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// SellerFeatureVector is the fixed-order numeric encoding of one property.
type SellerFeatureVector struct {
	FeatureNames []string  `json:"feature_names"`
	Values       []float64 `json:"values"`
	Label        *int      `json:"label,omitempty"`
}

// TrainingExample is a labeled feature vector plus the attributes used by the bias audit.
type TrainingExample struct {
	PropertyID string                    `json:"property_id"`
	Features   []float64                 `json:"features"`
	Label      int                       `json:"label"`
	Groups     map[AuditAttribute]string `json:"groups,omitempty"`
}

// StandardizationStats are per-feature means and standard deviations fit on training data.
type StandardizationStats struct {
	Means   []float64 `json:"means"`
	StdDevs []float64 `json:"std_devs"`
}
