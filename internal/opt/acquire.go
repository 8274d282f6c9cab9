package opt

import (
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// normalCDF is the cumulative distribution function of the standard
// normal distribution.
func normalCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// normalPDF is the density of the standard normal distribution.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2.0) / math.Sqrt(2.0*math.Pi)
}

// expectedImprovement scores a candidate by the expected gain over
// the best objective observed so far (we minimize, so improvement
// means a lower predicted mean). Xi is the exploration margin: the
// minimum improvement worth chasing. Always non-negative; higher is
// more promising.
func expectedImprovement(mean, variance, best, xi float64) float64 {
	sigma := math.Sqrt(variance)
	if sigma < 1e-12 {
		return 0
	}
	imp := best - mean - xi
	z := imp / sigma
	return imp*normalCDF(z) + sigma*normalPDF(z)
}

// acquirer selects the next candidate point by maximizing expected
// improvement over the surrogate. The inner numerical search runs on
// the normalized unit cube, which conveniently matches the mayfly
// library's scalar bounds. This search may burn CPU across the
// optimizer's population but never overlaps a trial evaluation, so it
// only affects wall-clock time to the next proposal.
type acquirer struct {
	iterations int
	population int
	xi         float64
}

func newAcquirer(iterations, population int, xi float64) *acquirer {
	return &acquirer{iterations: iterations, population: population, xi: xi}
}

// Propose returns the most promising point of the unit cube according
// to the surrogate. The same seed and surrogate state always yield
// the same proposal.
func (a *acquirer) Propose(sg *surrogate, dim int, seed int64) []float64 {
	best := sg.Best()

	score := func(x []float64) float64 {
		mean, variance := sg.Predict(x)
		// mayfly minimizes; flip the sign to maximize improvement.
		return -expectedImprovement(mean, variance, best, a.xi)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = score
	config.ProblemSize = dim
	config.MaxIterations = a.iterations
	config.NPop = a.population
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Degrade to a plain random point rather than stalling the
		// whole search on an inner-optimizer failure.
		rng := rand.New(rand.NewSource(seed))
		x := make([]float64, dim)
		for i := range x {
			x[i] = rng.Float64()
		}
		return x
	}

	x := result.GlobalBest.Position
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		} else if x[i] > 1 {
			x[i] = 1
		}
	}
	return x
}
