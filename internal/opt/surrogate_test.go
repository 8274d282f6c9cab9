package opt

import (
	"math"
	"testing"
)

func TestPredictNoObservations(t *testing.T) {
	sg := newSurrogate()

	mean, variance := sg.Predict([]float64{0.5, 0.5})
	if mean != 0 || variance != 1 {
		t.Errorf("Expected (0, 1) for empty model, got (%v, %v)", mean, variance)
	}
}

func TestPredictAtObservation(t *testing.T) {
	sg := newSurrogate()
	sg.Observe([]float64{0.3, 0.7}, -0.25)

	mean, variance := sg.Predict([]float64{0.3, 0.7})
	if math.Abs(mean-(-0.25)) > 1e-9 {
		t.Errorf("Expected mean -0.25 on top of the observation, got %v", mean)
	}
	if variance > 1e-9 {
		t.Errorf("Expected zero variance on top of the observation, got %v", variance)
	}
}

func TestPredictInterpolates(t *testing.T) {
	sg := newSurrogate()
	sg.Observe([]float64{0.0, 0.0}, -0.10)
	sg.Observe([]float64{1.0, 1.0}, -0.30)

	// The midpoint is equidistant, so the kernel weights are equal.
	mean, variance := sg.Predict([]float64{0.5, 0.5})
	if math.Abs(mean-(-0.20)) > 1e-9 {
		t.Errorf("Expected mean -0.20 at the midpoint, got %v", mean)
	}
	if variance <= 0 || variance > 1 {
		t.Errorf("Expected variance in (0, 1], got %v", variance)
	}
}

func TestPredictFarFromData(t *testing.T) {
	sg := newSurrogate()
	sg.sigma = 0.01
	sg.Observe([]float64{0.0}, -0.10)
	sg.Observe([]float64{0.01}, -0.50)

	mean, variance := sg.Predict([]float64{1.0})
	if math.Abs(mean-(-0.30)) > 1e-9 {
		t.Errorf("Expected fallback to mean of observations, got %v", mean)
	}
	if variance != 1 {
		t.Errorf("Expected full uncertainty far from data, got %v", variance)
	}
}

func TestObserveCopiesInput(t *testing.T) {
	sg := newSurrogate()
	x := []float64{0.4, 0.6}
	sg.Observe(x, -0.15)

	x[0] = 99.0
	mean, _ := sg.Predict([]float64{0.4, 0.6})
	if math.Abs(mean-(-0.15)) > 1e-9 {
		t.Error("Mutating the caller's slice must not affect the model")
	}
}

func TestBestTracksMinimum(t *testing.T) {
	sg := newSurrogate()
	if !math.IsInf(sg.Best(), 1) {
		t.Error("Empty model should report +Inf as best")
	}

	sg.Observe([]float64{0.1}, -0.12)
	sg.Observe([]float64{0.2}, -0.31)
	sg.Observe([]float64{0.3}, -0.05)
	if sg.Best() != -0.31 {
		t.Errorf("Expected best -0.31, got %v", sg.Best())
	}
	if sg.Len() != 3 {
		t.Errorf("Expected 3 observations, got %d", sg.Len())
	}
}

func TestStateRestoreRoundTrip(t *testing.T) {
	sg := newSurrogate()
	sg.sigma = 0.5
	sg.Observe([]float64{0.2, 0.8}, -0.11)
	sg.Observe([]float64{0.7, 0.3}, -0.42)

	restored := restoreSurrogate(sg.State())
	if restored.Len() != 2 {
		t.Fatalf("Expected 2 observations, got %d", restored.Len())
	}
	if restored.sigma != 0.5 {
		t.Errorf("Expected sigma 0.5, got %v", restored.sigma)
	}

	probe := []float64{0.5, 0.5}
	m1, v1 := sg.Predict(probe)
	m2, v2 := restored.Predict(probe)
	if m1 != m2 || v1 != v2 {
		t.Errorf("Restored model predicts (%v, %v), original (%v, %v)", m2, v2, m1, v1)
	}
}

func TestStateIsDeepCopy(t *testing.T) {
	sg := newSurrogate()
	sg.Observe([]float64{0.5}, -0.2)

	st := sg.State()
	st.X[0][0] = 99.0

	mean, _ := sg.Predict([]float64{0.5})
	if math.Abs(mean-(-0.2)) > 1e-9 {
		t.Error("Mutating the snapshot must not affect the model")
	}
}

func TestRBFKernel(t *testing.T) {
	if got := rbf([]float64{0.3, 0.3}, []float64{0.3, 0.3}, 1.0); got != 1.0 {
		t.Errorf("Expected 1.0 for identical points, got %v", got)
	}

	near := rbf([]float64{0.0}, []float64{0.1}, 1.0)
	far := rbf([]float64{0.0}, []float64{0.9}, 1.0)
	if near <= far {
		t.Errorf("Kernel must decay with distance: near=%v far=%v", near, far)
	}
}
