// Package opt drives the sequential Bayesian optimization loop: a
// kernel surrogate over unit-cube encodings, an expected-improvement
// acquisition maximized by the mayfly optimizer, and the fresh/resume
// state machine that guarantees exactly-once-per-trial semantics.
package opt

import (
	"math"
	"sync"

	"github.com/gnntune/gnntune/internal/store"
)

// surrogate is an RBF-kernel regression model over encoded parameter
// vectors. The mean is the kernel-weighted average of observed
// objectives; the variance decays from 1 far from data to 0 on top of
// an observation.
//
// The RWMutex lets the acquisition search read predictions from
// multiple goroutines while the loop owns all writes; observations
// only ever arrive between proposals.
type surrogate struct {
	mu    sync.RWMutex
	x     [][]float64
	y     []float64
	sigma float64
}

const defaultSigma = 1.0

func newSurrogate() *surrogate {
	return &surrogate{sigma: defaultSigma}
}

// rbf is the radial basis kernel over x1 and x2, 1.0 for identical
// points and decaying with squared distance.
func rbf(x1, x2 []float64, sigma float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}
	var sum float64
	for i := range x1 {
		d := x1[i] - x2[i]
		sum += d * d
	}
	return math.Exp(-sum / (2 * sigma * sigma))
}

// Predict returns the expected objective and the uncertainty at x.
// With no observations it returns (0, 1): total ignorance.
func (s *surrogate) Predict(x []float64) (mean, variance float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.x) == 0 {
		return 0, 1
	}

	var sumK, sumKY, maxK float64
	for i := range s.x {
		k := rbf(x, s.x[i], s.sigma)
		sumK += k
		sumKY += k * s.y[i]
		if k > maxK {
			maxK = k
		}
	}

	if sumK < 1e-12 {
		// Too far from every observation for the weights to matter.
		var total float64
		for _, v := range s.y {
			total += v
		}
		return total / float64(len(s.y)), 1
	}

	mean = sumKY / sumK
	variance = 1 - maxK
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}

// Observe adds one (point, objective) pair. The input is copied so
// later mutation by the caller cannot corrupt the model.
func (s *surrogate) Observe(x []float64, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]float64, len(x))
	copy(cp, x)
	s.x = append(s.x, cp)
	s.y = append(s.y, y)
}

// Best returns the lowest objective observed so far.
func (s *surrogate) Best() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := math.Inf(1)
	for _, v := range s.y {
		if v < best {
			best = v
		}
	}
	return best
}

// Len returns the number of observations.
func (s *surrogate) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.x)
}

// State snapshots the model for checkpointing.
func (s *surrogate) State() store.SurrogateState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	x := make([][]float64, len(s.x))
	for i, row := range s.x {
		x[i] = append([]float64(nil), row...)
	}
	return store.SurrogateState{
		Sigma: s.sigma,
		X:     x,
		Y:     append([]float64(nil), s.y...),
	}
}

// restoreSurrogate rebuilds a model from checkpointed state.
func restoreSurrogate(st store.SurrogateState) *surrogate {
	s := newSurrogate()
	if st.Sigma > 0 {
		s.sigma = st.Sigma
	}
	for i := range st.X {
		s.Observe(st.X[i], st.Y[i])
	}
	return s
}
