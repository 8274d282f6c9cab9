// Package trial turns a raw hyperparameter vector into one full
// training-and-evaluation run of the GNN recommender. It owns the
// searchable space declaration, the derived-parameter expansion
// tables, the cross-parameter validity checks and the collaborator
// contract; all of the actual training lives behind the Runner
// interface.
package trial

import "fmt"

// Duplicate handling modes for repeated user-item interactions.
const (
	DuplicatesKeepAll         = "keep_all"
	DuplicatesKeepLast        = "keep_last"
	DuplicatesCountOccurrence = "count_occurrence"
)

// Item identifier granularities.
const (
	ItemIDSpecific = "specific"
	ItemIDGeneric  = "generic"
)

// FixedParams holds the per-search configuration that is not part of
// the hyperparameter space. Its fields participate in validity
// constraints on candidate vectors, so it is passed explicitly into
// every evaluation rather than living in shared state.
type FixedParams struct {
	NumEpochs       int     `json:"numEpochs"`
	StartEpoch      int     `json:"startEpoch"`
	Patience        int     `json:"patience"`
	EdgeBatchSize   int     `json:"edgeBatchSize"`
	NodeBatchSize   int     `json:"nodeBatchSize"`
	Remove          float64 `json:"remove"` // fraction of data removed before training
	ItemIDType      string  `json:"itemIdType"`
	Duplicates      string  `json:"duplicates"`
	NeighborSampler string  `json:"neighborSampler"` // "full" or "partial"
	K               int     `json:"k"`               // ranking metric cutoff
}

// Validate rejects fixed parameter combinations that no trial could
// ever run with.
func (f FixedParams) Validate() error {
	switch f.Duplicates {
	case DuplicatesKeepAll, DuplicatesKeepLast, DuplicatesCountOccurrence:
	default:
		return fmt.Errorf("invalid duplicates mode %q", f.Duplicates)
	}
	switch f.ItemIDType {
	case ItemIDSpecific, ItemIDGeneric:
	default:
		return fmt.Errorf("invalid item id type %q", f.ItemIDType)
	}
	if f.NumEpochs <= 0 {
		return fmt.Errorf("num epochs must be positive, got %d", f.NumEpochs)
	}
	if f.Patience < 0 {
		return fmt.Errorf("patience cannot be negative, got %d", f.Patience)
	}
	if f.EdgeBatchSize <= 0 {
		return fmt.Errorf("edge batch size must be positive, got %d", f.EdgeBatchSize)
	}
	if f.Remove < 0 || f.Remove >= 1 {
		return fmt.Errorf("remove fraction %v outside [0, 1)", f.Remove)
	}
	return nil
}

// DatasetHandles identifies the interaction and feature data a
// training run operates on. The scheduler never opens these; they are
// forwarded to the training collaborator untouched.
type DatasetHandles struct {
	InteractionsPath string `json:"interactionsPath"`
	UserFeaturesPath string `json:"userFeaturesPath"`
	ItemFeaturesPath string `json:"itemFeaturesPath"`
}
