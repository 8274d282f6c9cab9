package trial

import (
	"fmt"
	"strings"

	"github.com/gnntune/gnntune/internal/space"
)

// Hyperparams is the fully expanded parameter set handed to a
// training run: the raw searched values plus everything derived from
// them. Recomputed fresh for every trial, never persisted on its own.
type Hyperparams struct {
	AggregatorHetero string  `json:"aggregatorHetero"`
	AggregatorType   string  `json:"aggregatorType"` // carries the _edge suffix when duplicates are counted
	ClicksSample     float64 `json:"clicksSample"`
	Delta            float64 `json:"delta"`
	Dropout          float64 `json:"dropout"`
	EmbeddingLayer   bool    `json:"embeddingLayer"`
	LR               float64 `json:"lr"`
	NLayers          int     `json:"nLayers"`
	NegSampleSize    int     `json:"negSampleSize"`
	Norm             bool    `json:"norm"`
	PurchasesSample  float64 `json:"purchasesSample"`
	UseRecency       bool    `json:"useRecency"`

	// Derived from the embed_dim size bucket.
	OutDim    int `json:"outDim"`
	HiddenDim int `json:"hiddenDim"`

	// Derived from the popularity_importance bucket.
	UsePopularity    bool    `json:"usePopularity"`
	WeightPopularity float64 `json:"weightPopularity"`
	DaysPopularity   int     `json:"daysPopularity"`
}

// edgeSuffix marks aggregators that consume edge multiplicity.
const edgeSuffix = "_edge"

var outDimBySize = map[string]int{
	SizeVerySmall: 32,
	SizeSmall:     96,
	SizeMedium:    128,
	SizeLarge:     192,
	SizeVeryLarge: 256,
}

var hiddenDimBySize = map[string]int{
	SizeVerySmall: 64,
	SizeSmall:     192,
	SizeMedium:    256,
	SizeLarge:     384,
	SizeVeryLarge: 512,
}

type popularitySettings struct {
	use    bool
	weight float64
	days   int
}

// The "No" bucket forces weight and window to zero regardless of any
// other raw parameter value.
var popularityByBucket = map[string]popularitySettings{
	PopularityNo:     {use: false, weight: 0, days: 0},
	PopularitySmall:  {use: true, weight: 0.01, days: 7},
	PopularityMedium: {use: true, weight: 0.05, days: 7},
	PopularityLarge:  {use: true, weight: 0.1, days: 7},
}

// ConfigError reports a hyperparameter combination that can never run
// a valid trial. It is raised before any training work happens.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid trial configuration: " + e.Reason
}

// Expand resolves all derived parameters for a raw vector under the
// given fixed parameters. It is a pure function of its inputs: the
// same vector and fixed parameters always produce the same result.
//
// Expansion rules:
//   - embed_dim size bucket -> (OutDim, HiddenDim) widths
//   - popularity_importance bucket -> (UsePopularity, WeightPopularity,
//     DaysPopularity) triple
//   - duplicates == count_occurrence -> aggregator gets the _edge suffix
//   - neighbor sampler "partial" -> NLayers forced to 3
func Expand(v space.Vector, fixed FixedParams) (Hyperparams, error) {
	var hp Hyperparams
	var err error

	if hp.AggregatorHetero, err = v.String("aggregator_hetero"); err != nil {
		return hp, err
	}
	if hp.AggregatorType, err = v.String("aggregator_type"); err != nil {
		return hp, err
	}
	if hp.ClicksSample, err = v.Float("clicks_sample"); err != nil {
		return hp, err
	}
	if hp.Delta, err = v.Float("delta"); err != nil {
		return hp, err
	}
	if hp.Dropout, err = v.Float("dropout"); err != nil {
		return hp, err
	}
	if hp.EmbeddingLayer, err = v.Bool("embedding_layer"); err != nil {
		return hp, err
	}
	if hp.LR, err = v.Float("lr"); err != nil {
		return hp, err
	}
	if hp.NLayers, err = v.Int("n_layers"); err != nil {
		return hp, err
	}
	if hp.NegSampleSize, err = v.Int("neg_sample_size"); err != nil {
		return hp, err
	}
	if hp.Norm, err = v.Bool("norm"); err != nil {
		return hp, err
	}
	if hp.PurchasesSample, err = v.Float("purchases_sample"); err != nil {
		return hp, err
	}
	if hp.UseRecency, err = v.Bool("use_recency"); err != nil {
		return hp, err
	}

	sizeBucket, err := v.String("embed_dim")
	if err != nil {
		return hp, err
	}
	outDim, ok := outDimBySize[sizeBucket]
	if !ok {
		return hp, &ConfigError{Reason: fmt.Sprintf("unknown size bucket %q", sizeBucket)}
	}
	hp.OutDim = outDim
	hp.HiddenDim = hiddenDimBySize[sizeBucket]

	popBucket, err := v.String("popularity_importance")
	if err != nil {
		return hp, err
	}
	pop, ok := popularityByBucket[popBucket]
	if !ok {
		return hp, &ConfigError{Reason: fmt.Sprintf("unknown popularity bucket %q", popBucket)}
	}
	hp.UsePopularity = pop.use
	hp.WeightPopularity = pop.weight
	hp.DaysPopularity = pop.days

	// Message passing must see edge multiplicity exactly when the
	// graph counts duplicate interactions.
	if fixed.Duplicates == DuplicatesCountOccurrence {
		hp.AggregatorType += edgeSuffix
	}

	// Partial neighbor sampling fixes the receptive field depth.
	if fixed.NeighborSampler == "partial" {
		hp.NLayers = 3
	}

	if err := hp.checkConsistency(fixed); err != nil {
		return hp, err
	}
	return hp, nil
}

// checkConsistency enforces the cross-parameter invariant between the
// duplicate-handling mode and the aggregator: edge-aware aggregation
// if and only if duplicates are counted.
func (hp Hyperparams) checkConsistency(fixed FixedParams) error {
	edgeAware := strings.HasSuffix(hp.AggregatorType, edgeSuffix)
	if fixed.Duplicates == DuplicatesCountOccurrence && !edgeAware {
		return &ConfigError{Reason: fmt.Sprintf(
			"duplicates mode %q requires an edge-aware aggregator, got %q",
			fixed.Duplicates, hp.AggregatorType)}
	}
	if fixed.Duplicates != DuplicatesCountOccurrence && edgeAware {
		return &ConfigError{Reason: fmt.Sprintf(
			"duplicates mode %q forbids edge-aware aggregator %q",
			fixed.Duplicates, hp.AggregatorType)}
	}
	return nil
}
