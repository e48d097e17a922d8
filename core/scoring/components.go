package scoring

import (
	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/schema"
)

// Tunable normalization bounds. Each sub-metric is mapped to [0,1] before blending.
const (
	fullEquityRatio   = 0.8  // equity ratio at which readiness saturates
	minTenureYears    = 1.0  // tenure is scaled over [1,12] years
	maxTenureYears    = 12.0
	fullUpsideRatio   = 0.25 // equity upside as a share of market value
	staleSaleYears    = 7.0  // sale this old nudges readiness up
	freshSaleYears    = 2.0  // sale this recent nudges readiness down
	saleRecencyNudge  = 0.10
	maxDaysOnMarket   = 90.0
	maxMonthsSupply   = 6.0
	fullAboveListPct  = 50.0
	maxPriceDropPct   = 40.0
	minAppreciation   = -5.0
	appreciationRange = 20.0
	maxAffordIndex    = 200.0
	affordIndexRange  = 150.0
	fullIncomeToPrice = 0.35
	minPriceToIncome  = 2.0
	priceToIncomeSpan = 8.0
	fullCostBurdened  = 50.0
	maxMortgageRate   = 9.0
	mortgageRateSpan  = 6.0
	maxUnemployment   = 10.0
	unemploymentSpan  = 7.0
	minGDPGrowth      = -2.0
	gdpGrowthSpan     = 6.0
	minConfidence     = 50.0
	confidenceSpan    = 80.0
	minHomeownership  = 40.0
	homeownershipSpan = 40.0
)

// neutralScore is the uninformative score of a component without any usable metric.
const neutralScore = 50.0

// metric is one normalized sub-metric input; a nil value is excluded from the blend.
type metric struct {
	key   schema.MetricKey
	value *float64
}

// norm applies f to a known raw value and clamps the result to [0,1].
func norm(raw *float64, f func(float64) float64) *float64 {
	if raw == nil {
		return nil
	}
	v := algo.Clamp01(f(*raw))
	return &v
}

// blend computes a weighted average over the available metrics.
// Confidence is the share of total weight that had data.
func blend(weights map[schema.MetricKey]float64, metrics []metric) schema.ComponentResult {
	result := schema.ComponentResult{Metrics: make(map[schema.MetricKey]float64, len(metrics))}
	var total, used, sum float64
	for _, m := range metrics {
		w := weights[m.key]
		total += w
		if m.value == nil {
			result.Missing = append(result.Missing, m.key)
			continue
		}
		used += w
		sum += w * *m.value
		result.Metrics[m.key] = *m.value * 100
	}
	if used <= 0 || total <= 0 {
		result.Score = neutralScore
		result.Confidence = 0
		return result
	}
	result.Score = algo.ClampScore(sum / used * 100)
	result.Confidence = algo.ClampScore(used / total * 100)
	return result
}

// phrases collects threshold-triggered drivers and risks.
type phrases struct {
	drivers []string
	risks   []string
}

func (ph *phrases) driver(cond bool, text string) {
	if cond {
		ph.drivers = append(ph.drivers, text)
	}
}

func (ph *phrases) risk(cond bool, text string) {
	if cond {
		ph.risks = append(ph.risks, text)
	}
}

func (ph *phrases) apply(r *schema.ComponentResult) {
	r.Drivers = ph.drivers
	r.Risks = ph.risks
}

func above(v *float64, threshold float64) bool { return v != nil && *v >= threshold }
func below(v *float64, threshold float64) bool { return v != nil && *v <= threshold }

// ownerEquityReadiness scores how ready the owner is to cash out.
func ownerEquityReadiness(p schema.PropertyOpportunity, s schema.SellerSignals, in componentInput) schema.ComponentResult {
	tenure := in.years
	var upside *float64
	if p.EquityUpside != nil {
		if r, ok := algo.SafeDiv(*p.EquityUpside, p.MarketValue); ok {
			upside = &r
		}
	}

	result := blend(in.weights[schema.OwnerEquityReadiness], []metric{
		{schema.MetricEquityRatio, norm(s.EquityRatio, func(v float64) float64 { return v / fullEquityRatio })},
		{schema.MetricTenure, norm(tenure, func(v float64) float64 { return (v - minTenureYears) / (maxTenureYears - minTenureYears) })},
		{schema.MetricListingScore, norm(p.ListingScore, func(v float64) float64 { return v / 100 })},
		{schema.MetricEquityUpside, norm(upside, func(v float64) float64 { return v / fullUpsideRatio })},
	})

	// Nudge only when the sale date is known.
	if result.Confidence > 0 && p.LastSaleDate != nil && s.YearsSinceSale != nil {
		switch {
		case *s.YearsSinceSale >= staleSaleYears:
			result.Score = algo.ClampScore(result.Score * (1 + saleRecencyNudge))
		case *s.YearsSinceSale < freshSaleYears:
			result.Score = algo.ClampScore(result.Score * (1 - saleRecencyNudge))
		}
	}

	var ph phrases
	ph.driver(above(s.EquityRatio, 0.5), "High owner equity")
	ph.driver(above(tenure, 10), "Long tenure in home")
	ph.driver(above(p.ListingScore, 70), "Strong listing score")
	ph.driver(s.HasFlag(schema.FlagRecentLifeEvent), "Recent life event")
	ph.driver(s.HasFlag(schema.FlagEngagementSurging), "Surging seller engagement")
	ph.risk(below(s.EquityRatio, 0.2), "Limited equity")
	ph.risk(s.HasFlag(schema.FlagNegativeEquity), "Negative equity")
	ph.risk(tenure != nil && *tenure < freshSaleYears, "Recently purchased")
	ph.apply(&result)
	return result
}

// marketHeat scores how quickly the local market absorbs listings.
func marketHeat(in componentInput) schema.ComponentResult {
	var l schema.ListingMarket
	if in.market != nil && in.market.Listing != nil {
		l = *in.market.Listing
	}
	var velocity *float64
	if l.HomesSold != nil && l.ActiveListings != nil {
		if v, ok := algo.SafeDiv(*l.HomesSold, *l.ActiveListings); ok {
			velocity = &v
		}
	}

	result := blend(in.weights[schema.MarketHeat], []metric{
		{schema.MetricDaysOnMarket, norm(l.MedianDaysOnMarket, func(v float64) float64 { return 1 - v/maxDaysOnMarket })},
		{schema.MetricMonthsOfSupply, norm(l.MonthsOfSupply, func(v float64) float64 { return 1 - v/maxMonthsSupply })},
		{schema.MetricSoldAboveList, norm(l.SoldAboveListPct, func(v float64) float64 { return v / fullAboveListPct })},
		{schema.MetricPriceDrops, norm(l.PriceDropPct, func(v float64) float64 { return 1 - v/maxPriceDropPct })},
		{schema.MetricMarketVelocity, norm(velocity, func(v float64) float64 { return v })},
		{schema.MetricPriceAppreciation, norm(l.PriceAppreciationYoY, func(v float64) float64 { return (v - minAppreciation) / appreciationRange })},
	})

	var ph phrases
	ph.driver(below(l.MedianDaysOnMarket, 30), "Homes selling quickly")
	ph.driver(below(l.MonthsOfSupply, 3), "Tight inventory")
	ph.driver(above(l.SoldAboveListPct, 30), "Frequent over-asking sales")
	ph.risk(above(l.MonthsOfSupply, maxMonthsSupply), "Buyer's market inventory")
	ph.risk(above(l.PriceDropPct, 30), "Frequent price cuts")
	ph.risk(l.PriceAppreciationYoY != nil && *l.PriceAppreciationYoY < 0, "Declining prices")
	ph.apply(&result)
	return result
}

// affordabilityPressure scores how stretched local buyers and owners are.
func affordabilityPressure(in componentInput) schema.ComponentResult {
	var index, costBurdened, occupancy *float64
	var income, price *float64
	if m := in.market; m != nil {
		if m.Housing != nil {
			index = m.Housing.AffordabilityIndex
			income = m.Housing.AreaMedianFamilyIncome
		}
		if m.Census != nil {
			costBurdened = m.Census.CostBurdenedPct
			occupancy = m.Census.OccupancyRate
			if m.Census.MedianHouseholdIncome != nil {
				income = m.Census.MedianHouseholdIncome
			}
			price = m.Census.MedianHomeValue
		}
		if price == nil && m.Listing != nil {
			price = m.Listing.MedianSalePrice
		}
	}

	var incomeToPrice, priceToIncome *float64
	if income != nil && price != nil {
		if r, ok := algo.SafeDiv(*income, *price); ok {
			incomeToPrice = &r
		}
		if r, ok := algo.SafeDiv(*price, *income); ok {
			priceToIncome = &r
		}
	}

	result := blend(in.weights[schema.AffordabilityPressure], []metric{
		{schema.MetricAffordabilityIndex, norm(index, func(v float64) float64 { return (maxAffordIndex - v) / affordIndexRange })},
		{schema.MetricIncomeToPrice, norm(incomeToPrice, func(v float64) float64 { return v / fullIncomeToPrice })},
		{schema.MetricCostBurdened, norm(costBurdened, func(v float64) float64 { return v / fullCostBurdened })},
		{schema.MetricPriceToIncome, norm(priceToIncome, func(v float64) float64 { return (v - minPriceToIncome) / priceToIncomeSpan })},
		{schema.MetricOccupancy, norm(occupancy, func(v float64) float64 { return v / 100 })},
	})

	var ph phrases
	ph.driver(below(index, 100), "Stretched affordability")
	ph.driver(above(priceToIncome, 6), "High price-to-income ratio")
	ph.risk(above(costBurdened, 40), "Many cost-burdened households")
	ph.risk(below(occupancy, 85), "Low occupancy")
	ph.apply(&result)
	return result
}

// macroEconomicMomentum scores the national backdrop for selling.
func macroEconomicMomentum(in componentInput) schema.ComponentResult {
	var e schema.EconomicIndicators
	var homeownership *float64
	if m := in.market; m != nil {
		if m.Economic != nil {
			e = *m.Economic
		}
		if m.Census != nil {
			homeownership = m.Census.HomeownershipRate
		}
	}

	result := blend(in.weights[schema.MacroEconomicMomentum], []metric{
		{schema.MetricMortgageRate, norm(e.MortgageRate30Y, func(v float64) float64 { return (maxMortgageRate - v) / mortgageRateSpan })},
		{schema.MetricUnemployment, norm(e.UnemploymentRate, func(v float64) float64 { return (maxUnemployment - v) / unemploymentSpan })},
		{schema.MetricGDPGrowth, norm(e.GDPGrowth, func(v float64) float64 { return (v - minGDPGrowth) / gdpGrowthSpan })},
		{schema.MetricConsumerConfidence, norm(e.ConsumerConfidence, func(v float64) float64 { return (v - minConfidence) / confidenceSpan })},
		{schema.MetricHomeownership, norm(homeownership, func(v float64) float64 { return (v - minHomeownership) / homeownershipSpan })},
	})

	var ph phrases
	ph.driver(below(e.MortgageRate30Y, 6), "Favorable mortgage rates")
	ph.driver(above(e.GDPGrowth, 2.5), "Strong economic growth")
	ph.risk(above(e.MortgageRate30Y, 7.5), "Elevated mortgage rates")
	ph.risk(above(e.UnemploymentRate, 6), "Rising unemployment")
	ph.apply(&result)
	return result
}

// componentInput is what every component reads besides the property itself.
type componentInput struct {
	market  *schema.MarketData
	weights map[schema.ComponentKey]map[schema.MetricKey]float64
	years   *float64
}

// computeComponents runs all four heuristic components.
func computeComponents(p schema.PropertyOpportunity, s schema.SellerSignals, in componentInput) map[schema.ComponentKey]schema.ComponentResult {
	return map[schema.ComponentKey]schema.ComponentResult{
		schema.OwnerEquityReadiness:  ownerEquityReadiness(p, s, in),
		schema.MarketHeat:            marketHeat(in),
		schema.AffordabilityPressure: affordabilityPressure(in),
		schema.MacroEconomicMomentum: macroEconomicMomentum(in),
	}
}

// combine computes the confidence-weighted overall score and its confidence.
func combine(components map[schema.ComponentKey]schema.ComponentResult, weights map[schema.ComponentKey]float64) (score, confidence float64) {
	var num, den, totalWeight float64
	for _, key := range schema.AllComponents {
		w := weights[key]
		c := components[key]
		totalWeight += w
		effective := w * c.Confidence / 100
		num += c.Score * effective
		den += effective
	}
	if den <= 0 {
		return neutralScore, 0
	}
	score = algo.ClampScore(num / den)
	if totalWeight > 0 {
		confidence = algo.ClampScore(den / totalWeight * 100)
	}
	return score, confidence
}

// collectPhrases unions component phrases in component order, dropping duplicates.
func collectPhrases(components map[schema.ComponentKey]schema.ComponentResult) (drivers, risks []string) {
	seenDrivers := map[string]struct{}{}
	seenRisks := map[string]struct{}{}
	drivers, risks = []string{}, []string{}
	for _, key := range schema.AllComponents {
		c := components[key]
		for _, d := range c.Drivers {
			if _, ok := seenDrivers[d]; !ok {
				seenDrivers[d] = struct{}{}
				drivers = append(drivers, d)
			}
		}
		for _, r := range c.Risks {
			if _, ok := seenRisks[r]; !ok {
				seenRisks[r] = struct{}{}
				risks = append(risks, r)
			}
		}
	}
	return drivers, risks
}
