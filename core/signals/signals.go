// Package signals derives seller signals from raw property attributes.
package signals

import (
	"math"
	"strings"
	"time"

	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/schema"
)

// Tunable constants for signal derivation.
const (
	maxDebtServiceRatio   = 0.43  // DSR at which mortgage pressure saturates
	paymentBurdenRatio    = 0.36  // DSR above which a property is flagged
	mortgageTermMonths    = 360.0 // amortization term used when no payment is known
	recencySaturationYrs  = 10.0  // years since sale at which recency saturates
	delistedBonusMax      = 30.0  // listing momentum bonus for a fresh delisting
	cashOutRefinanceBonus = 15.0
	daysPerYear           = 365.25
)

// highIntentEvents are engagement events that signal intent to sell.
var highIntentEvents = map[string]struct{}{
	"valuation-request":     {},
	"seller-guide-download": {},
	"listing-consultation":  {},
	"cma-request":           {},
	"agent-contact":         {},
}

// lifeEventWeights are per-tag likelihoods that a life event precedes a sale.
var lifeEventWeights = map[string]float64{
	"divorce":            0.95,
	"probate":            0.95,
	"death":              0.95,
	"foreclosure-notice": 0.90,
	"job-relocation":     0.90,
	"downsizing":         0.85,
	"retirement":         0.80,
	"empty-nest":         0.75,
	"upsizing":           0.70,
	"health-event":       0.70,
	"new-child":          0.60,
	"marriage":           0.55,
	"job-change":         0.50,
}

// unknownLifeEventWeight applies to tags outside the table.
const unknownLifeEventWeight = 0.5

// incomeBandMidpoints approximates household income from a band label.
var incomeBandMidpoints = map[string]float64{
	"low":          35000,
	"lower-middle": 55000,
	"moderate":     60000,
	"middle":       85000,
	"upper-middle": 125000,
	"high":         200000,
}

// Build derives seller signals for a property as of the given time.
// Every signal is computed independently; one missing input never blocks another.
func Build(p schema.PropertyOpportunity, asOf time.Time) schema.SellerSignals {
	var s schema.SellerSignals

	s.Equity = equityOf(p)
	if s.Equity != nil {
		if ratio, ok := algo.SafeDiv(*s.Equity, p.MarketValue); ok {
			s.EquityRatio = &ratio
		}
	}

	years := YearsInHome(p, asOf)
	if s.EquityRatio != nil && years != nil && *years > 0 {
		velocity := algo.Round(*s.EquityRatio*100 / *years, 1)
		s.EquityVelocity = &velocity
	}

	s.LoanToValue = loanToValue(p, s.EquityRatio)
	s.DebtServiceRatio = debtServiceRatio(p)
	if s.DebtServiceRatio != nil {
		pressure := algo.Clamp01(*s.DebtServiceRatio/maxDebtServiceRatio) * 100
		s.MortgagePressure = &pressure
	}

	if p.NeighborhoodAppreciation != nil {
		momentum := algo.Clamp(50+*p.NeighborhoodAppreciation*5, 0, 100)
		s.NeighborhoodMomentum = &momentum
	}

	s.LifeEventScore = lifeEventScore(p.LifeEvents)
	s.ListingMomentum = listingMomentum(p, asOf)

	s.YearsSinceSale = YearsSinceSale(p, asOf)
	if s.YearsSinceSale != nil {
		recency := algo.Clamp01(*s.YearsSinceSale/recencySaturationYrs) * 100
		s.TransactionRecencyScore = &recency
	}

	if p.RefinanceCount != nil {
		tenure := 1.0
		if years != nil && *years > 1 {
			tenure = *years
		}
		intensity := float64(*p.RefinanceCount) / tenure * 100
		if p.CashOutRefinance {
			intensity += cashOutRefinanceBonus
		}
		intensity = math.Min(100, intensity)
		s.RefinanceIntensity = &intensity
	}

	n30, n90 := countHighIntentEvents(p.Events, asOf)
	s.EngagementIntentScore = engagementIntent(p, n30, n90)

	s.Flags = buildFlags(p, s, years, n30, asOf)
	return s
}

// YearsInHome returns the owner's tenure, falling back to the time since the last sale.
func YearsInHome(p schema.PropertyOpportunity, asOf time.Time) *float64 {
	if p.YearsInHome != nil {
		return p.YearsInHome
	}
	return yearsSince(p.LastSaleDate, asOf)
}

// YearsSinceSale returns the time since the last sale, falling back to the tenure.
func YearsSinceSale(p schema.PropertyOpportunity, asOf time.Time) *float64 {
	if y := yearsSince(p.LastSaleDate, asOf); y != nil {
		return y
	}
	return p.YearsInHome
}

// HouseholdIncome returns the known income or the midpoint of the income band.
func HouseholdIncome(p schema.PropertyOpportunity) *float64 {
	if p.HouseholdIncome != nil {
		return p.HouseholdIncome
	}
	if v, ok := incomeBandMidpoints[normalizeTag(p.IncomeBand)]; ok {
		return &v
	}
	return nil
}

// MonthlyPayment returns the known payment or an amortized estimate from balance and rate.
func MonthlyPayment(p schema.PropertyOpportunity) *float64 {
	if p.MonthlyPayment != nil {
		return p.MonthlyPayment
	}
	if p.LoanBalance == nil || p.InterestRate == nil {
		return nil
	}
	balance := *p.LoanBalance
	if balance <= 0 {
		zero := 0.0
		return &zero
	}
	r := *p.InterestRate / 100 / 12
	var payment float64
	if r <= 0 {
		payment = balance / mortgageTermMonths
	} else {
		payment = balance * r / (1 - math.Pow(1+r, -mortgageTermMonths))
	}
	return &payment
}

// IsHighIntentEvent reports whether an event type signals intent to sell.
func IsHighIntentEvent(eventType string) bool {
	_, ok := highIntentEvents[normalizeTag(eventType)]
	return ok
}

func equityOf(p schema.PropertyOpportunity) *float64 {
	if p.EstimatedEquity != nil {
		return p.EstimatedEquity
	}
	if p.LoanBalance != nil && p.MarketValue > 0 {
		equity := p.MarketValue - *p.LoanBalance
		return &equity
	}
	return nil
}

func loanToValue(p schema.PropertyOpportunity, equityRatio *float64) *float64 {
	if p.LoanBalance != nil {
		if ltv, ok := algo.SafeDiv(*p.LoanBalance, p.MarketValue); ok {
			return &ltv
		}
	}
	if equityRatio != nil {
		ltv := 1 - *equityRatio
		return &ltv
	}
	return nil
}

func debtServiceRatio(p schema.PropertyOpportunity) *float64 {
	payment := MonthlyPayment(p)
	income := HouseholdIncome(p)
	if payment == nil || income == nil {
		return nil
	}
	dsr, ok := algo.SafeDiv(*payment*12, *income)
	if !ok {
		return nil
	}
	return &dsr
}

func lifeEventScore(events []string) *float64 {
	total := 0.0
	count := 0
	for _, e := range events {
		tag := normalizeTag(e)
		if tag == "" {
			continue
		}
		w, ok := lifeEventWeights[tag]
		if !ok {
			w = unknownLifeEventWeight
		}
		total += w
		count++
	}
	if count == 0 {
		return nil
	}
	score := math.Min(100, total/float64(count)*100)
	return &score
}

func listingMomentum(p schema.PropertyOpportunity, asOf time.Time) *float64 {
	if p.ListingScore == nil && p.LastListingDate == nil && p.PriorListingCount == 0 {
		return nil
	}
	base := schema.Deref(p.ListingScore, 0)
	bonus := 0.0
	if p.LastListingDate != nil {
		days := asOf.Sub(*p.LastListingDate).Hours() / 24
		if days >= 0 && days <= 365 {
			bonus = delistedBonusMax * (1 - days/365)
		}
	}
	momentum := math.Min(100, 0.7*base+bonus)
	return &momentum
}

func countHighIntentEvents(events []schema.PropertyEvent, asOf time.Time) (n30, n90 int) {
	for _, e := range events {
		if !IsHighIntentEvent(e.Type) {
			continue
		}
		days := asOf.Sub(e.OccurredAt).Hours() / 24
		switch {
		case days < 0:
			continue
		case days <= 30:
			n30++
		case days <= 90:
			n90++
		}
	}
	return n30, n90
}

func engagementIntent(p schema.PropertyOpportunity, n30, n90 int) *float64 {
	var base float64
	switch {
	case p.MultiChannelEngagement != nil:
		base = *p.MultiChannelEngagement
	case p.DigitalEngagement != nil:
		base = *p.DigitalEngagement
	case n30+n90 > 0:
		base = 0
	default:
		return nil
	}
	score := 0.8*base + math.Min(20, 8*float64(n30)) + math.Min(10, 4*float64(n90))
	score = math.Min(100, score)
	return &score
}

func buildFlags(p schema.PropertyOpportunity, s schema.SellerSignals, years *float64, n30 int, asOf time.Time) []schema.SignalFlag {
	var flags []schema.SignalFlag
	add := func(cond bool, flag schema.SignalFlag) {
		if cond {
			flags = append(flags, flag)
		}
	}

	add(p.MarketValue <= 0, schema.FlagUnknownValuation)
	add(s.LoanToValue != nil && *s.LoanToValue > 0.8, schema.FlagHighLTV)
	add(s.EquityRatio != nil && *s.EquityRatio < 0, schema.FlagNegativeEquity)
	add(s.EquityRatio != nil && *s.EquityRatio >= 0.5, schema.FlagHighEquity)
	add(s.DebtServiceRatio != nil && *s.DebtServiceRatio > paymentBurdenRatio, schema.FlagPaymentBurden)
	add(years != nil && *years >= 10, schema.FlagLongTenure)
	add(s.LifeEventScore != nil && *s.LifeEventScore >= 70, schema.FlagRecentLifeEvent)
	add(s.EngagementIntentScore != nil && *s.EngagementIntentScore >= 70, schema.FlagHighEngagement)
	add(n30 >= 2, schema.FlagEngagementSurging)
	add(s.RefinanceIntensity != nil && *s.RefinanceIntensity >= 50, schema.FlagSerialRefinancer)
	if p.LastListingDate != nil {
		days := asOf.Sub(*p.LastListingDate).Hours() / 24
		add(days >= 0 && days <= 180, schema.FlagRecentlyDelisted)
	}
	if p.NeighborhoodMedianValue != nil && *p.NeighborhoodMedianValue > 0 {
		add(p.MarketValue > 1.2*(*p.NeighborhoodMedianValue), schema.FlagAboveAreaValue)
	}
	return flags
}

func yearsSince(t *time.Time, asOf time.Time) *float64 {
	if t == nil || t.IsZero() {
		return nil
	}
	years := asOf.Sub(*t).Hours() / 24 / daysPerYear
	if years < 0 {
		return nil
	}
	return &years
}

var tagSeparators = strings.NewReplacer(" ", "-", "_", "-")

func normalizeTag(s string) string {
	return tagSeparators.Replace(strings.ToLower(strings.TrimSpace(s)))
}
