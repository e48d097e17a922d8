package algo

import (
	"sort"

	"github.com/huangsam/propensity/schema"
)

// RankScores sorts scores by overall score in descending order (ties by property ID)
// and returns the top 'limit' entries. A non-positive limit returns all scores.
func RankScores(scores []schema.SellerPropensityScore, limit int) []schema.SellerPropensityScore {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].PropertyID < scores[j].PropertyID
	})
	if limit > 0 && len(scores) > limit {
		return scores[:limit]
	}
	return scores
}

// RankGeographies sorts geography rankings by mean score in descending order (ties by key).
func RankGeographies(groups []schema.GeographyRanking) []schema.GeographyRanking {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].MeanScore != groups[j].MeanScore {
			return groups[i].MeanScore > groups[j].MeanScore
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}
