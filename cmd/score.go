package cmd

import (
	"github.com/huangsam/propensity/core"
	"github.com/spf13/cobra"
)

// scoreCmd scores every property and prints the top ones.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score properties by their likelihood to sell",
	Long: `Compute a seller propensity score for each property in --input.

Each score blends four heuristic components:
- Owner equity readiness (equity ratio, tenure, listing score, equity upside)
- Market heat (days on market, months of supply, sold above list, price drops)
- Affordability pressure (affordability index, income to price, cost burden)
- Macro economic momentum (mortgage rate, unemployment, GDP growth, consumer confidence)

When a trained model is present it is blended in at --model-weight.

Examples:
  # Score a JSON file of properties with a market snapshot
  propensity score --input homes.json --market-data market.json

  # Show component breakdown and drivers
  propensity score --input homes.json --detail --limit 50

  # Heuristics only, as JSON
  propensity score --input homes.json --no-model --output json`,
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor("score", core.ExecutePropensityScore),
}

// rankCmd aggregates scores into geography leaderboards.
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank geographies by seller propensity",
	Long: `Score every property in --input and aggregate the scores per geography.

Each leaderboard lists the sample size, mean and median score, score range,
mean confidence and the top --top properties for every area.

Examples:
  # All levels
  propensity rank --input homes.json

  # Zip codes only, top 3 properties each
  propensity rank --input homes.json --levels zip --top 3`,
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor("rank", core.ExecutePropensityRank),
}

// trainCmd fits a model from labeled properties.
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a seller propensity model from labeled properties",
	Long: `Fit a classifier on properties whose sold outcome is known.

The model is cross-validated, audited for bias by owner type, priority tier
and income band, then persisted to --model-dir, where score and rank pick it up automatically.

Examples:
  # Default logistic regression
  propensity train --input labeled.json --market-data market.json

  # Gradient boosting with 10 folds
  propensity train --input labeled.json --algorithm gradient-boosting --folds 10`,
	PreRunE: sharedSetupWrapper,
	Run:     runExecutor("train", core.ExecutePropensityTrain),
}

// weightsCmd prints the active scoring weights.
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Show the component and metric weights used for scoring",
	Long: `Display how each heuristic component is weighted and how the model is blended in.

Custom component weights can be set under 'weights' in .propensity.yaml.

Examples:
  propensity weights
  propensity weights --output csv`,
	PreRunE: configSetupWrapper,
	Run:     runExecutor("weights", core.ExecutePropensityWeights),
}
