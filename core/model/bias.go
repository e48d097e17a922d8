package model

import (
	"sort"

	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/schema"
)

// unknownGroup labels examples with a blank attribute value.
const unknownGroup = "unknown"

// AuditBias compares mean predicted probability per group against the global mean
// for owner type, priority tier and income band. Lift is groupMean/globalMean - 1.
// The audit is skipped (nil result) when the global mean is 0.
func AuditBias(model *schema.SellerModelWeights, examples []schema.TrainingExample) (*schema.BiasAuditResult, error) {
	probs, labels, err := predictAll(model, examples)
	if err != nil {
		return nil, err
	}
	globalMean := algo.Mean(probs)
	if globalMean == 0 {
		return nil, nil
	}
	result := &schema.BiasAuditResult{GlobalMean: globalMean}

	for _, attr := range schema.AllAuditAttributes {
		type acc struct {
			probs     []float64
			positives int
		}
		groups := map[string]*acc{}
		for i, ex := range examples {
			name := ex.Groups[attr]
			if name == "" {
				name = unknownGroup
			}
			g, ok := groups[name]
			if !ok {
				g = &acc{}
				groups[name] = g
			}
			g.probs = append(g.probs, probs[i])
			g.positives += labels[i]
		}

		names := make([]string, 0, len(groups))
		for name := range groups {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			g := groups[name]
			mean := algo.Mean(g.probs)
			result.Groups = append(result.Groups, schema.BiasGroup{
				Attribute:       attr,
				Group:           name,
				Count:           len(g.probs),
				MeanProbability: mean,
				PositiveRate:    float64(g.positives) / float64(len(g.probs)),
				Lift:            mean/globalMean - 1,
			})
		}
	}
	return result, nil
}
