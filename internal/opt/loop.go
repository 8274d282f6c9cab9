package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/gnntune/gnntune/internal/space"
	"github.com/gnntune/gnntune/internal/store"
	"github.com/gnntune/gnntune/internal/trial"
)

// Objective evaluates one candidate vector and returns the value the
// loop minimizes (the trial executor's negated recall). Exactly one
// training run per call.
type Objective func(ctx context.Context, v space.Vector) (float64, error)

// Config controls one search invocation.
type Config struct {
	// MaxTrials is the total budget for the lineage. A resumed search
	// continues counting from the records it already holds, so with
	// K prior trials only MaxTrials-K new ones run.
	MaxTrials int

	// Warmup is the number of initial trials evaluated before the
	// surrogate is trusted, counting the seeded default vector.
	// Ignored on resume: reconstructed history replaces warm-up.
	Warmup int

	// Seed drives the warm-up sampler and the per-proposal
	// acquisition search, making a fresh search reproducible.
	Seed int64

	// Xi is the acquisition exploration margin.
	Xi float64

	// AcqIterations and AcqPopulation size the inner acquisition
	// search (mayfly generations and population).
	AcqIterations int
	AcqPopulation int
}

func (c *Config) setDefaults() {
	if c.Warmup <= 0 {
		c.Warmup = 10
	}
	if c.Xi == 0 {
		c.Xi = 0.01
	}
	if c.AcqIterations <= 0 {
		c.AcqIterations = 60
	}
	if c.AcqPopulation <= 0 {
		c.AcqPopulation = 24
	}
}

// Result summarizes a finished (or budget-exhausted) invocation.
type Result struct {
	CheckpointID  string
	TotalTrials   int
	NewTrials     int
	BestParams    space.Vector
	BestObjective float64
	BestRecall    float64
}

// Loop is the sequential search scheduler. Trial N+1 is never
// proposed before trial N's objective is observed and persisted.
type Loop struct {
	space     *space.Space
	objective Objective
	fsStore   *store.FSStore
	journal   *store.Journal
	cfg       Config

	id      string
	cp      *store.Checkpoint
	sg      *surrogate
	rng     *rand.Rand
	acq     *acquirer
	initial space.Vector
	resumed bool
}

// NewSearch starts a fresh lineage. The initial vector seeds trial
// zero; warm-up random samples follow before acquisition-guided
// proposals take over.
func NewSearch(s *space.Space, objective Objective, fsStore *store.FSStore, cfg Config,
	initial space.Vector, fixed trial.FixedParams, handles trial.DatasetHandles) (*Loop, error) {
	cfg.setDefaults()
	if cfg.MaxTrials <= 0 {
		return nil, fmt.Errorf("trial budget must be positive, got %d", cfg.MaxTrials)
	}
	if err := s.Validate(initial); err != nil {
		return nil, fmt.Errorf("invalid initial vector: %w", err)
	}

	cp := store.NewCheckpoint(cfg.Seed, fixed, handles)
	id := store.NewID(cp.CreatedAt)

	return &Loop{
		space:     s,
		objective: objective,
		fsStore:   fsStore,
		cfg:       cfg,
		id:        id,
		cp:        cp,
		sg:        newSurrogate(),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		acq:       newAcquirer(cfg.AcqIterations, cfg.AcqPopulation, cfg.Xi),
		initial:   initial,
	}, nil
}

// Resume reconstructs a loop from a persisted checkpoint. The
// surrogate is refit directly on the stored history and the loop
// skips straight to acquisition-guided proposals: the paid-for
// observations replace random warm-up entirely.
func Resume(s *space.Space, objective Objective, fsStore *store.FSStore, cfg Config, id string) (*Loop, error) {
	cfg.setDefaults()
	if cfg.MaxTrials <= 0 {
		return nil, fmt.Errorf("trial budget must be positive, got %d", cfg.MaxTrials)
	}

	cp, err := fsStore.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if len(cp.Trials) == 0 {
		return nil, fmt.Errorf("checkpoint %s holds no trials, nothing to resume", id)
	}

	// Refit from the raw trial records rather than blindly trusting
	// the stored encodings; every vector is re-validated on the way.
	sg := newSurrogate()
	if cp.Surrogate.Sigma > 0 {
		sg.sigma = cp.Surrogate.Sigma
	}
	for _, rec := range cp.Trials {
		enc, err := s.Encode(rec.Params)
		if err != nil {
			return nil, fmt.Errorf("checkpoint trial %d is invalid for this space: %w", rec.Index, err)
		}
		sg.Observe(enc, rec.Objective)
	}

	slog.Info("Resuming search", "checkpoint", id, "prior_trials", len(cp.Trials))

	return &Loop{
		space:     s,
		objective: objective,
		fsStore:   fsStore,
		cfg:       cfg,
		id:        id,
		cp:        cp,
		sg:        sg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		acq:       newAcquirer(cfg.AcqIterations, cfg.AcqPopulation, cfg.Xi),
		resumed:   true,
	}, nil
}

// SetJournal attaches an append-only trial log. Optional.
func (l *Loop) SetJournal(j *store.Journal) {
	l.journal = j
}

// CheckpointID returns the lineage's artifact identifier.
func (l *Loop) CheckpointID() string {
	return l.id
}

// Run executes trials until the budget is exhausted or a fatal error
// occurs. Each trial is persisted synchronously before the next one
// is proposed, so a crash never loses more than the in-flight trial.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	newTrials := 0

	for len(l.cp.Trials) < l.cfg.MaxTrials {
		if err := ctx.Err(); err != nil {
			return l.result(newTrials), err
		}

		idx := len(l.cp.Trials)
		vec, phase := l.propose(idx)

		slog.Info("Proposed candidate", "trial", idx, "phase", phase)

		objective, err := l.objective(ctx, vec)
		if err != nil {
			// Both configuration violations and collaborator failures
			// are fatal to the run; the last saved checkpoint is the
			// recovery point.
			return l.result(newTrials), fmt.Errorf("trial %d failed: %w", idx, err)
		}

		rec := store.TrialRecord{
			Index:     idx,
			Params:    vec,
			Objective: objective,
			At:        time.Now().UTC(),
		}
		if err := l.cp.Append(rec); err != nil {
			return l.result(newTrials), err
		}

		enc, err := l.space.Encode(vec)
		if err != nil {
			return l.result(newTrials), fmt.Errorf("trial %d produced an unencodable vector: %w", idx, err)
		}
		l.sg.Observe(enc, objective)
		l.cp.Surrogate = l.sg.State()

		if err := l.fsStore.Save(l.id, l.cp); err != nil {
			return l.result(newTrials), fmt.Errorf("failed to persist trial %d: %w", idx, err)
		}
		if l.journal != nil {
			if err := l.journal.Append(rec); err != nil {
				return l.result(newTrials), fmt.Errorf("failed to journal trial %d: %w", idx, err)
			}
		}
		newTrials++

		slog.Info("Trial persisted",
			"trial", idx,
			"objective", objective,
			"best", l.sg.Best(),
		)
	}

	return l.result(newTrials), nil
}

// propose selects the next candidate. Fresh lineages walk through the
// seeded default, then random warm-up, then acquisition; resumed
// lineages go straight to acquisition.
func (l *Loop) propose(idx int) (space.Vector, string) {
	if !l.resumed {
		if idx == 0 {
			return l.initial, "seed"
		}
		if idx < l.cfg.Warmup {
			return l.space.Sample(l.rng), "warmup"
		}
	}
	point := l.acq.Propose(l.sg, l.space.Len(), l.cfg.Seed+int64(idx))
	vec, err := l.space.Decode(point)
	if err != nil {
		// Decode only fails on a dimension-count mismatch, which
		// cannot happen for points the acquirer produced.
		return l.space.Sample(l.rng), "fallback"
	}
	return vec, "acquisition"
}

func (l *Loop) result(newTrials int) *Result {
	res := &Result{
		CheckpointID: l.id,
		TotalTrials:  len(l.cp.Trials),
		NewTrials:    newTrials,
	}
	if best, ok := l.cp.Best(); ok {
		res.BestParams = best.Params
		res.BestObjective = best.Objective
		res.BestRecall = -best.Objective
	}
	return res
}
