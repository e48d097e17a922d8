package model

import (
	"context"
	"time"

	"github.com/huangsam/propensity/core/features"
	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/internal/marketdata"
	"github.com/huangsam/propensity/schema"
)

// PrepareTrainingDataset builds training examples for every property with a known outcome.
// Market data is looked up with the same ZIP, city and state order the scorer uses.
func PrepareTrainingDataset(ctx context.Context, properties []schema.PropertyOpportunity, provider contract.MarketDataProvider, asOf time.Time) ([]schema.TrainingExample, error) {
	session := marketdata.NewSession(provider)
	examples := make([]schema.TrainingExample, 0, len(properties))
	for _, p := range properties {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.SellerOutcome == nil {
			continue
		}
		_, vector := features.Build(p, session.Lookup(ctx, p), asOf)
		examples = append(examples, schema.TrainingExample{
			PropertyID: p.ID,
			Features:   vector.Values,
			Label:      *p.SellerOutcome,
			Groups:     schema.AuditGroupsOf(p),
		})
	}
	return examples, nil
}
