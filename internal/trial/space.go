package trial

import "github.com/gnntune/gnntune/internal/space"

// Size buckets for the embedding width dimension.
const (
	SizeVerySmall = "Very Small"
	SizeSmall     = "Small"
	SizeMedium    = "Medium"
	SizeLarge     = "Large"
	SizeVeryLarge = "Very Large"
)

// Popularity importance buckets.
const (
	PopularityNo     = "No"
	PopularitySmall  = "Small"
	PopularityMedium = "Medium"
	PopularityLarge  = "Large"
)

// SearchSpace declares the fourteen tunable dimensions of the
// recommender, in a fixed order. Conditional relationships (the size
// and popularity buckets, the edge-aware aggregator suffix) are
// resolved by Expand, not encoded in the bounds, so the optimizer
// only ever samples from this simple geometry.
func SearchSpace() (*space.Space, error) {
	return space.New(
		space.Dimension{Name: "aggregator_hetero", Kind: space.Categorical,
			Choices: []any{"mean", "sum", "max"}},
		space.Dimension{Name: "aggregator_type", Kind: space.Categorical,
			Choices: []any{"mean", "mean_nn", "pool_nn"}},
		space.Dimension{Name: "clicks_sample", Kind: space.Categorical,
			Choices: []any{0.2, 0.3, 0.4}},
		space.Dimension{Name: "delta", Kind: space.Continuous,
			Low: 0.15, High: 0.35, Prior: space.LogUniform},
		space.Dimension{Name: "dropout", Kind: space.Continuous,
			Low: 0, High: 0.8, Prior: space.Uniform},
		space.Dimension{Name: "embed_dim", Kind: space.Categorical,
			Choices: []any{SizeVerySmall, SizeSmall, SizeMedium, SizeLarge, SizeVeryLarge}},
		space.Dimension{Name: "embedding_layer", Kind: space.Categorical,
			Choices: []any{true, false}},
		space.Dimension{Name: "lr", Kind: space.Continuous,
			Low: 1e-4, High: 1e-2, Prior: space.LogUniform},
		space.Dimension{Name: "n_layers", Kind: space.Integer,
			Low: 3, High: 5},
		space.Dimension{Name: "neg_sample_size", Kind: space.Integer,
			Low: 700, High: 3000},
		space.Dimension{Name: "norm", Kind: space.Categorical,
			Choices: []any{true, false}},
		space.Dimension{Name: "popularity_importance", Kind: space.Categorical,
			Choices: []any{PopularityNo, PopularitySmall, PopularityMedium, PopularityLarge}},
		space.Dimension{Name: "purchases_sample", Kind: space.Categorical,
			Choices: []any{0.4, 0.5, 0.6}},
		space.Dimension{Name: "use_recency", Kind: space.Categorical,
			Choices: []any{true, false}},
	)
}

// DefaultVector is the domain-chosen starting point that seeds the
// first trial of a fresh search instead of a random sample.
func DefaultVector() space.Vector {
	return space.Vector{
		{Name: "aggregator_hetero", Value: "sum"},
		{Name: "aggregator_type", Value: "mean_nn"},
		{Name: "clicks_sample", Value: 0.3},
		{Name: "delta", Value: 0.266},
		{Name: "dropout", Value: 0.5},
		{Name: "embed_dim", Value: SizeMedium},
		{Name: "embedding_layer", Value: false},
		{Name: "lr", Value: 0.00565},
		{Name: "n_layers", Value: 3},
		{Name: "neg_sample_size", Value: 2500},
		{Name: "norm", Value: true},
		{Name: "popularity_importance", Value: PopularityNo},
		{Name: "purchases_sample", Value: 0.5},
		{Name: "use_recency", Value: true},
	}
}
