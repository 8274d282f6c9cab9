package opt

import (
	"context"
	"errors"
	"testing"

	"github.com/gnntune/gnntune/internal/space"
	"github.com/gnntune/gnntune/internal/store"
	"github.com/gnntune/gnntune/internal/trial"
)

func testConfig(maxTrials int) Config {
	return Config{
		MaxTrials:     maxTrials,
		Warmup:        10,
		Seed:          46,
		AcqIterations: 5,
		AcqPopulation: 20,
	}
}

func testSpace(t *testing.T) *space.Space {
	t.Helper()
	s, err := trial.SearchSpace()
	if err != nil {
		t.Fatalf("SearchSpace failed: %v", err)
	}
	return s
}

func newTestStore(t *testing.T) *store.FSStore {
	t.Helper()
	fs, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	return fs
}

// constantObjective records every vector it evaluates and always
// reports the same recall.
func constantObjective(recall float64, seen *[]space.Vector) Objective {
	return func(ctx context.Context, v space.Vector) (float64, error) {
		if seen != nil {
			*seen = append(*seen, v.Clone())
		}
		return -recall, nil
	}
}

func TestFreshSearchSeedsDefaultVector(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	var seen []space.Vector
	loop, err := NewSearch(s, constantObjective(0.09, &seen), fs, testConfig(1),
		trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{})
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}

	res, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.TotalTrials != 1 || res.NewTrials != 1 {
		t.Fatalf("Expected exactly one trial, got %+v", res)
	}
	if len(seen) != 1 || !seen[0].Equal(trial.DefaultVector()) {
		t.Error("Trial zero must evaluate the seeded default vector")
	}

	cp, err := fs.Load(loop.CheckpointID())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cp.Trials) != 1 {
		t.Fatalf("Expected 1 persisted record, got %d", len(cp.Trials))
	}
	if cp.Trials[0].Objective != -0.09 {
		t.Errorf("Expected objective -0.09, got %v", cp.Trials[0].Objective)
	}
	if !cp.Trials[0].Params.Equal(trial.DefaultVector()) {
		t.Error("Persisted record must hold the default vector")
	}
	if res.BestRecall != 0.09 {
		t.Errorf("Expected best recall 0.09, got %v", res.BestRecall)
	}
}

func TestWarmupReproducible(t *testing.T) {
	s := testSpace(t)

	run := func() []space.Vector {
		var seen []space.Vector
		loop, err := NewSearch(s, constantObjective(0.2, &seen), newTestStore(t), testConfig(4),
			trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{})
		if err != nil {
			t.Fatalf("NewSearch failed: %v", err)
		}
		if _, err := loop.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return seen
	}

	a, b := run(), run()
	if len(a) != 4 || len(b) != 4 {
		t.Fatalf("Expected 4 trials each, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("Trial %d diverged between identically seeded runs", i)
		}
	}
}

func TestResumeExtendsLineage(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	loop, err := NewSearch(s, constantObjective(0.15, nil), fs, testConfig(3),
		trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{})
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}
	first, err := loop.Run(context.Background())
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.TotalTrials != 3 {
		t.Fatalf("Expected 3 trials, got %d", first.TotalTrials)
	}
	prior, _ := fs.Load(loop.CheckpointID())

	resumed, err := Resume(s, constantObjective(0.15, nil), fs, testConfig(5), loop.CheckpointID())
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	second, err := resumed.Run(context.Background())
	if err != nil {
		t.Fatalf("Resumed run failed: %v", err)
	}
	if second.TotalTrials != 5 || second.NewTrials != 2 {
		t.Fatalf("Expected 3+2 trials, got %+v", second)
	}

	final, err := fs.Load(loop.CheckpointID())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(final.Trials) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(final.Trials))
	}
	for i, rec := range prior.Trials {
		if !final.Trials[i].Params.Equal(rec.Params) || final.Trials[i].Objective != rec.Objective {
			t.Errorf("Record %d changed across resume", i)
		}
	}
}

func TestResumeExhaustedBudget(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	loop, err := NewSearch(s, constantObjective(0.1, nil), fs, testConfig(2),
		trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{})
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}
	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	resumed, err := Resume(s, constantObjective(0.1, nil), fs, testConfig(2), loop.CheckpointID())
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	res, err := resumed.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.NewTrials != 0 || res.TotalTrials != 2 {
		t.Errorf("Exhausted budget must run zero new trials, got %+v", res)
	}
}

func TestResumeEmptyCheckpoint(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	cp := store.NewCheckpoint(46, trial.FixedParams{}, trial.DatasetHandles{})
	id := store.NewID(cp.CreatedAt)
	if err := fs.Save(id, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := Resume(s, constantObjective(0.1, nil), fs, testConfig(5), id); err == nil {
		t.Error("Resuming a lineage with no trials must fail")
	}
}

func TestResumeMissingCheckpoint(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	_, err := Resume(s, constantObjective(0.1, nil), fs, testConfig(5), "checkpoint-20240101T000000.json.gz")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected NotFoundError, got %v", err)
	}
}

func TestObjectiveFailureIsFatal(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	boom := errors.New("trainer unreachable")
	calls := 0
	objective := func(ctx context.Context, v space.Vector) (float64, error) {
		calls++
		if calls == 2 {
			return 0, boom
		}
		return -0.1, nil
	}

	loop, err := NewSearch(s, objective, fs, testConfig(5),
		trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{})
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}

	res, err := loop.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the objective error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected the loop to stop at the failing trial, got %d calls", calls)
	}
	if res.TotalTrials != 1 {
		t.Errorf("Expected 1 completed trial before the failure, got %d", res.TotalTrials)
	}

	// The completed trial survived; the failed one left no record.
	cp, err := fs.Load(loop.CheckpointID())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cp.Trials) != 1 {
		t.Errorf("Expected 1 persisted record, got %d", len(cp.Trials))
	}
}

func TestRunHonorsContext(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	objective := func(ctx context.Context, v space.Vector) (float64, error) {
		cancel()
		return -0.1, nil
	}

	loop, err := NewSearch(s, objective, fs, testConfig(10),
		trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{})
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}

	res, err := loop.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	// The in-flight trial completes and persists before the loop stops.
	if res.TotalTrials != 1 {
		t.Errorf("Expected 1 trial before cancellation, got %d", res.TotalTrials)
	}
}

func TestNewSearchValidation(t *testing.T) {
	s := testSpace(t)
	fs := newTestStore(t)

	if _, err := NewSearch(s, constantObjective(0.1, nil), fs, testConfig(0),
		trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{}); err == nil {
		t.Error("Expected error for zero budget")
	}

	bad := trial.DefaultVector()
	bad[0].Value = "nope"
	if _, err := NewSearch(s, constantObjective(0.1, nil), fs, testConfig(5),
		bad, trial.FixedParams{}, trial.DatasetHandles{}); err == nil {
		t.Error("Expected error for an invalid initial vector")
	}
}

func TestJournalReceivesEveryTrial(t *testing.T) {
	s := testSpace(t)
	dir := t.TempDir()
	fs, err := store.NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	loop, err := NewSearch(s, constantObjective(0.2, nil), fs, testConfig(3),
		trial.DefaultVector(), trial.FixedParams{}, trial.DatasetHandles{})
	if err != nil {
		t.Fatalf("NewSearch failed: %v", err)
	}

	j, err := store.OpenJournal(dir, loop.CheckpointID())
	if err != nil {
		t.Fatalf("OpenJournal failed: %v", err)
	}
	loop.SetJournal(j)

	if _, err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	j.Close()

	records, err := store.ReadJournal(dir, loop.CheckpointID())
	if err != nil {
		t.Fatalf("ReadJournal failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 journal lines, got %d", len(records))
	}
}
