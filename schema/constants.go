package schema

// Custom string types for type safety.
type (
	// ComponentKey identifies one of the heuristic scoring components.
	ComponentKey string

	// MetricKey identifies a sub-metric inside a heuristic component.
	MetricKey string

	// OutputMode represents the format of the output.
	OutputMode string

	// Algorithm represents the learning algorithm behind a trained model.
	Algorithm string

	// GeoLevel represents a geography level used for leaderboards.
	GeoLevel string

	// SignalFlag is a descriptive marker produced by the signal builder.
	SignalFlag string

	// AuditAttribute is a demographic attribute examined by the bias audit.
	AuditAttribute string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string
)

// Heuristic components used in the scoring logic.
const (
	OwnerEquityReadiness  ComponentKey = "owner_equity_readiness"
	MarketHeat            ComponentKey = "market_heat"
	AffordabilityPressure ComponentKey = "affordability_pressure"
	MacroEconomicMomentum ComponentKey = "macro_economic_momentum"
)

// Sub-metrics of the owner equity readiness component.
const (
	MetricEquityRatio  MetricKey = "equity_ratio"
	MetricTenure       MetricKey = "tenure"
	MetricListingScore MetricKey = "listing_score"
	MetricEquityUpside MetricKey = "equity_upside"
)

// Sub-metrics of the market heat component.
const (
	MetricDaysOnMarket      MetricKey = "days_on_market"
	MetricMonthsOfSupply    MetricKey = "months_of_supply"
	MetricSoldAboveList     MetricKey = "sold_above_list"
	MetricPriceDrops        MetricKey = "price_drops"
	MetricMarketVelocity    MetricKey = "market_velocity"
	MetricPriceAppreciation MetricKey = "price_appreciation"
)

// Sub-metrics of the affordability pressure component.
const (
	MetricAffordabilityIndex MetricKey = "affordability_index"
	MetricIncomeToPrice      MetricKey = "income_to_price"
	MetricCostBurdened       MetricKey = "cost_burdened"
	MetricPriceToIncome      MetricKey = "price_to_income"
	MetricOccupancy          MetricKey = "occupancy"
)

// Sub-metrics of the macro-economic momentum component.
const (
	MetricMortgageRate       MetricKey = "mortgage_rate"
	MetricUnemployment       MetricKey = "unemployment"
	MetricGDPGrowth          MetricKey = "gdp_growth"
	MetricConsumerConfidence MetricKey = "consumer_confidence"
	MetricHomeownership      MetricKey = "homeownership"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All learning algorithms supported.
const (
	LogisticRegression Algorithm = "logistic-regression" // default
	GradientBoosting   Algorithm = "gradient-boosting"
)

// All geography levels supported.
const (
	StateLevel        GeoLevel = "state"
	RegionLevel       GeoLevel = "region" // "City, ST"
	ZipLevel          GeoLevel = "zip"
	CountyLevel       GeoLevel = "county"
	NeighborhoodLevel GeoLevel = "neighborhood"
)

// Flags emitted by the signal builder.
const (
	FlagHighLTV           SignalFlag = "high-ltv"
	FlagNegativeEquity    SignalFlag = "negative-equity"
	FlagHighEquity        SignalFlag = "high-equity"
	FlagPaymentBurden     SignalFlag = "payment-burden"
	FlagLongTenure        SignalFlag = "long-tenure"
	FlagRecentLifeEvent   SignalFlag = "recent-life-event"
	FlagHighEngagement    SignalFlag = "high-engagement"
	FlagSerialRefinancer  SignalFlag = "serial-refinancer"
	FlagRecentlyDelisted  SignalFlag = "recently-delisted"
	FlagAboveAreaValue    SignalFlag = "above-area-value"
	FlagUnknownValuation  SignalFlag = "unknown-valuation"
	FlagEngagementSurging SignalFlag = "engagement-surging"
)

// Attributes examined by the bias audit.
const (
	AuditOwnerType    AuditAttribute = "owner_type"
	AuditPriorityTier AuditAttribute = "priority_tier"
	AuditIncomeBand   AuditAttribute = "income_band"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis" // market cache only
	NoneBackend       DatabaseBackend = "none"
)

// AllComponents lists the heuristic components in their canonical order.
var AllComponents = []ComponentKey{OwnerEquityReadiness, MarketHeat, AffordabilityPressure, MacroEconomicMomentum}

// AllGeoLevels lists the geography levels in their canonical order.
var AllGeoLevels = []GeoLevel{StateLevel, RegionLevel, ZipLevel, CountyLevel, NeighborhoodLevel}

// AllAuditAttributes lists the attributes the bias audit groups by.
var AllAuditAttributes = []AuditAttribute{AuditOwnerType, AuditPriorityTier, AuditIncomeBand}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidAlgorithms lists all valid learning algorithms.
var ValidAlgorithms = map[Algorithm]struct{}{
	LogisticRegression: {},
	GradientBoosting:   {},
}

// ValidGeoLevels lists all valid geography levels.
var ValidGeoLevels = map[GeoLevel]struct{}{
	StateLevel:        {},
	RegionLevel:       {},
	ZipLevel:          {},
	CountyLevel:       {},
	NeighborhoodLevel: {},
}

// ValidCacheBackends lists all valid market cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidRunBackends lists all valid score-run tracking backends.
var ValidRunBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// GetDefaultComponentWeights returns the overall weight of each heuristic component.
func GetDefaultComponentWeights() map[ComponentKey]float64 {
	return map[ComponentKey]float64{
		OwnerEquityReadiness:  0.35,
		MarketHeat:            0.25,
		AffordabilityPressure: 0.20,
		MacroEconomicMomentum: 0.20,
	}
}

// GetDefaultMetricWeights returns the sub-metric weights for a given component.
func GetDefaultMetricWeights(component ComponentKey) map[MetricKey]float64 {
	switch component {
	case MarketHeat:
		return map[MetricKey]float64{
			MetricDaysOnMarket:      0.30,
			MetricMonthsOfSupply:    0.25,
			MetricSoldAboveList:     0.20,
			MetricPriceDrops:        0.15,
			MetricMarketVelocity:    0.05,
			MetricPriceAppreciation: 0.05,
		}
	case AffordabilityPressure:
		return map[MetricKey]float64{
			MetricAffordabilityIndex: 0.30,
			MetricIncomeToPrice:      0.25,
			MetricCostBurdened:       0.20,
			MetricPriceToIncome:      0.15,
			MetricOccupancy:          0.10,
		}
	case MacroEconomicMomentum:
		return map[MetricKey]float64{
			MetricMortgageRate:       0.35,
			MetricUnemployment:       0.30,
			MetricGDPGrowth:          0.15,
			MetricConsumerConfidence: 0.10,
			MetricHomeownership:      0.10,
		}
	default: // OwnerEquityReadiness
		return map[MetricKey]float64{
			MetricEquityRatio:  0.35,
			MetricTenure:       0.30,
			MetricListingScore: 0.20,
			MetricEquityUpside: 0.15,
		}
	}
}
