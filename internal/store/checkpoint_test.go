package store

import (
	"errors"
	"testing"
	"time"

	"github.com/gnntune/gnntune/internal/trial"
)

func TestAppendEnforcesOrder(t *testing.T) {
	cp := NewCheckpoint(46, trial.FixedParams{}, trial.DatasetHandles{})

	if err := cp.Append(TrialRecord{Index: 0, Params: testVector()}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := cp.Append(TrialRecord{Index: 1, Params: testVector()}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := cp.Append(TrialRecord{Index: 3, Params: testVector()}); err == nil {
		t.Error("Expected error for index gap")
	}
	if err := cp.Append(TrialRecord{Index: 1, Params: testVector()}); err == nil {
		t.Error("Expected error for duplicate index")
	}
	if len(cp.Trials) != 2 {
		t.Errorf("Expected 2 records, got %d", len(cp.Trials))
	}
}

func TestBestPicksLowestObjective(t *testing.T) {
	cp := NewCheckpoint(46, trial.FixedParams{}, trial.DatasetHandles{})

	if _, ok := cp.Best(); ok {
		t.Error("Empty lineage must not report a best record")
	}

	objectives := []float64{-0.12, -0.31, -0.09, -0.31}
	for i, obj := range objectives {
		cp.Append(TrialRecord{Index: i, Params: testVector(), Objective: obj})
	}

	best, ok := cp.Best()
	if !ok {
		t.Fatal("Expected a best record")
	}
	if best.Objective != -0.31 {
		t.Errorf("Expected objective -0.31, got %v", best.Objective)
	}
	// Ties resolve to the earliest record.
	if best.Index != 1 {
		t.Errorf("Expected index 1, got %d", best.Index)
	}
}

func TestCheckpointValidate(t *testing.T) {
	cp := NewCheckpoint(46, trial.FixedParams{}, trial.DatasetHandles{})
	if err := cp.Validate(); err != nil {
		t.Fatalf("Fresh checkpoint should validate: %v", err)
	}

	var vErr *ValidationError

	zero := *cp
	zero.CreatedAt = time.Time{}
	if err := zero.Validate(); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for zero CreatedAt, got %v", err)
	}

	empty := NewCheckpoint(46, trial.FixedParams{}, trial.DatasetHandles{})
	empty.Trials = []TrialRecord{{Index: 0}}
	if err := empty.Validate(); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for empty params, got %v", err)
	}

	skew := NewCheckpoint(46, trial.FixedParams{}, trial.DatasetHandles{})
	skew.Surrogate = SurrogateState{Sigma: 1, X: [][]float64{{0.5}}, Y: nil}
	if err := skew.Validate(); !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError for surrogate length skew, got %v", err)
	}
}

func TestToInfoNegatesObjective(t *testing.T) {
	cp := NewCheckpoint(46, trial.FixedParams{}, trial.DatasetHandles{})
	cp.Append(TrialRecord{Index: 0, Params: testVector(), Objective: -0.27})

	info := cp.ToInfo("checkpoint-20240301T120000.json.gz", 1234)
	if info.BestRecall != 0.27 {
		t.Errorf("Expected best recall 0.27, got %v", info.BestRecall)
	}
	if info.Trials != 1 || info.SizeBytes != 1234 {
		t.Errorf("Unexpected info: %+v", info)
	}
}

func TestNotFoundErrorIs(t *testing.T) {
	err := error(&NotFoundError{ID: "checkpoint-x.json.gz"})
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	if errors.Is(errors.New("other"), ErrNotFound) {
		t.Error("Unrelated error must not match ErrNotFound")
	}
}
