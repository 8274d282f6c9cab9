// Package store persists the state of a hyperparameter search so a
// multi-day run can survive interruption. One checkpoint artifact per
// search lineage, re-saved after every trial; the artifact on disk is
// the sole durable recovery point.
package store

import (
	"fmt"
	"time"

	"github.com/gnntune/gnntune/internal/space"
	"github.com/gnntune/gnntune/internal/trial"
)

// TrialRecord is one completed evaluation: the raw parameter vector,
// the objective it scored (negated recall, lower is better) and its
// position in the search. Records are append-only and ordered by
// creation time.
type TrialRecord struct {
	Index     int          `json:"index"`
	Params    space.Vector `json:"params"`
	Objective float64      `json:"objective"`
	At        time.Time    `json:"at"`
}

// SurrogateState carries the surrogate model's training set in
// encoded form plus its kernel width, enough to refit on resume
// without re-evaluating any point.
type SurrogateState struct {
	Sigma float64     `json:"sigma"`
	X     [][]float64 `json:"x"`
	Y     []float64   `json:"y"`
}

// Checkpoint is the full resumable state of one search lineage.
// Created empty at search start, appended to after every trial,
// never mutated retroactively.
type Checkpoint struct {
	CreatedAt time.Time            `json:"createdAt"`
	Seed      int64                `json:"seed"`
	Fixed     trial.FixedParams    `json:"fixed"`
	Handles   trial.DatasetHandles `json:"handles"`
	Trials    []TrialRecord        `json:"trials"`
	Surrogate SurrogateState       `json:"surrogate"`
}

// CheckpointInfo is listing metadata, cheap to display without the
// full trial history.
type CheckpointInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Trials     int       `json:"trials"`
	BestRecall float64   `json:"bestRecall"`
	SizeBytes  int64     `json:"sizeBytes"`
}

// NewCheckpoint starts an empty lineage.
func NewCheckpoint(seed int64, fixed trial.FixedParams, handles trial.DatasetHandles) *Checkpoint {
	return &Checkpoint{
		CreatedAt: time.Now().UTC(),
		Seed:      seed,
		Fixed:     fixed,
		Handles:   handles,
	}
}

// Append adds one trial record. Records must arrive in order; a gap
// or duplicate index indicates a scheduler bug and is rejected.
func (c *Checkpoint) Append(rec TrialRecord) error {
	if rec.Index != len(c.Trials) {
		return fmt.Errorf("trial record index %d does not follow %d existing records", rec.Index, len(c.Trials))
	}
	c.Trials = append(c.Trials, rec)
	return nil
}

// Best returns the record with the lowest objective, or false when
// the lineage is empty.
func (c *Checkpoint) Best() (TrialRecord, bool) {
	if len(c.Trials) == 0 {
		return TrialRecord{}, false
	}
	best := c.Trials[0]
	for _, r := range c.Trials[1:] {
		if r.Objective < best.Objective {
			best = r
		}
	}
	return best, true
}

// Validate checks structural integrity: monotonically indexed trials
// and a concrete creation time.
func (c *Checkpoint) Validate() error {
	if c.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	for i, r := range c.Trials {
		if r.Index != i {
			return &ValidationError{Field: "Trials", Reason: fmt.Sprintf("record %d has index %d", i, r.Index)}
		}
		if len(r.Params) == 0 {
			return &ValidationError{Field: "Trials", Reason: fmt.Sprintf("record %d has an empty parameter vector", i)}
		}
	}
	if len(c.Surrogate.X) != len(c.Surrogate.Y) {
		return &ValidationError{Field: "Surrogate", Reason: "x and y lengths differ"}
	}
	return nil
}

// ToInfo converts the checkpoint to listing metadata.
func (c *Checkpoint) ToInfo(id string, size int64) CheckpointInfo {
	info := CheckpointInfo{
		ID:        id,
		CreatedAt: c.CreatedAt,
		Trials:    len(c.Trials),
		SizeBytes: size,
	}
	if best, ok := c.Best(); ok {
		info.BestRecall = -best.Objective
	}
	return info
}

// ValidationError reports a structurally broken checkpoint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "checkpoint validation error: " + e.Field + " " + e.Reason
}

// NotFoundError is returned when a requested checkpoint artifact does
// not exist. Use errors.Is(err, ErrNotFound) to check for it.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return "checkpoint not found: " + e.ID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel for errors.Is checks.
var ErrNotFound = &NotFoundError{}
