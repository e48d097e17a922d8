// Package agg groups scored properties into geography leaderboards.
package agg

import (
	"sort"

	"github.com/huangsam/propensity/core/algo"
	"github.com/huangsam/propensity/schema"
)

// DefaultTopN is the number of top properties kept per geography.
const DefaultTopN = 5

// AggregateGeographies groups scores by one geography level and returns the
// leaderboard sorted by mean score (ties by key). Blank keys are excluded.
// A non-positive topN keeps DefaultTopN properties per group.
func AggregateGeographies(scores []schema.SellerPropensityScore, level schema.GeoLevel, topN int) []schema.GeographyRanking {
	if topN <= 0 {
		topN = DefaultTopN
	}

	// 1. Bucket scores by key, preserving input order within each bucket
	groups := make(map[string][]schema.SellerPropensityScore)
	for _, s := range scores {
		key := s.Geography.Key(level)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], s)
	}

	// 2. Summarize each bucket
	rankings := make([]schema.GeographyRanking, 0, len(groups))
	for key, members := range groups {
		rankings = append(rankings, summarize(level, key, members, topN))
	}

	// 3. Sort the leaderboard
	return algo.RankGeographies(rankings)
}

// RankAllGeographies builds leaderboards for the given levels, or for every level when none are given.
func RankAllGeographies(scores []schema.SellerPropensityScore, levels []schema.GeoLevel, topN int) map[schema.GeoLevel][]schema.GeographyRanking {
	if len(levels) == 0 {
		levels = schema.AllGeoLevels
	}
	out := make(map[schema.GeoLevel][]schema.GeographyRanking, len(levels))
	for _, level := range levels {
		out[level] = AggregateGeographies(scores, level, topN)
	}
	return out
}

// summarize computes the statistics of one geography group.
func summarize(level schema.GeoLevel, key string, members []schema.SellerPropensityScore, topN int) schema.GeographyRanking {
	values := make([]float64, len(members))
	confidences := make([]float64, len(members))
	minScore, maxScore := members[0].Score, members[0].Score
	for i, m := range members {
		values[i] = m.Score
		confidences[i] = m.Confidence
		minScore = min(minScore, m.Score)
		maxScore = max(maxScore, m.Score)
	}

	return schema.GeographyRanking{
		Level:          level,
		Key:            key,
		SampleSize:     len(members),
		MeanScore:      algo.Mean(values),
		MedianScore:    algo.Median(values),
		MeanConfidence: algo.Mean(confidences),
		MinScore:       minScore,
		MaxScore:       maxScore,
		TopProperties:  topProperties(members, topN),
	}
}

// topProperties returns the n best-scored members (ties by property ID).
func topProperties(members []schema.SellerPropensityScore, n int) []schema.RankedProperty {
	sorted := append([]schema.SellerPropensityScore(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].PropertyID < sorted[j].PropertyID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]schema.RankedProperty, len(sorted))
	for i, s := range sorted {
		out[i] = schema.RankedProperty{
			PropertyID: s.PropertyID,
			Address:    s.Summary.Address,
			Score:      s.Score,
			Confidence: s.Confidence,
		}
	}
	return out
}
