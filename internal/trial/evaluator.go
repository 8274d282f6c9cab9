package trial

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnntune/gnntune/internal/space"
)

// Evaluator wraps one training run as a scalar objective. The search
// loop minimizes, so the returned objective is always the negated
// recall.
type Evaluator struct {
	space   *space.Space
	fixed   FixedParams
	handles DatasetHandles
	runner  Runner
}

// NewEvaluator builds an evaluator for the given search space, fixed
// parameters and dataset handles.
func NewEvaluator(s *space.Space, fixed FixedParams, handles DatasetHandles, runner Runner) (*Evaluator, error) {
	if err := fixed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixed parameters: %w", err)
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	return &Evaluator{space: s, fixed: fixed, handles: handles, runner: runner}, nil
}

// Evaluate runs one trial for the raw vector and returns the
// objective value (-recall). Expansion and the cross-parameter
// invariant check happen before any training work, so an invalid
// combination never consumes the accelerator.
func (e *Evaluator) Evaluate(ctx context.Context, v space.Vector) (float64, error) {
	if err := e.space.Validate(v); err != nil {
		return 0, fmt.Errorf("invalid parameter vector: %w", err)
	}

	hyper, err := Expand(v, e.fixed)
	if err != nil {
		return 0, err
	}

	slog.Info("Starting trial",
		"params", v.Describe(),
		"out_dim", hyper.OutDim,
		"hidden_dim", hyper.HiddenDim,
		"aggregator", hyper.AggregatorType,
	)

	start := time.Now()
	recall, err := e.runner.RunTraining(ctx, e.handles, e.fixed, hyper)
	if err != nil {
		return 0, fmt.Errorf("training run failed: %w", err)
	}
	elapsed := time.Since(start)

	slog.Info("Trial complete", "recall", recall, "elapsed", elapsed)

	return -recall, nil
}

// Fixed returns the fixed parameters this evaluator runs under.
func (e *Evaluator) Fixed() FixedParams {
	return e.fixed
}
