// Package space models a mixed continuous/integer/categorical search
// space. Dimensions are declared once, in a fixed order, with unique
// names; that order and those names are part of the checkpoint
// contract and must stay stable for the whole lifetime of a search.
package space

import (
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
)

// Kind identifies the type of a search dimension.
type Kind int

const (
	Continuous Kind = iota
	Integer
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Prior selects the sampling distribution for continuous dimensions.
type Prior int

const (
	Uniform Prior = iota
	LogUniform
)

// Dimension is one named search axis. Continuous and integer
// dimensions use the inclusive [Low, High] bounds; categorical
// dimensions use the ordered Choices list.
type Dimension struct {
	Name    string
	Kind    Kind
	Low     float64
	High    float64
	Prior   Prior
	Choices []any
}

func (d Dimension) validate() error {
	if d.Name == "" {
		return fmt.Errorf("dimension name cannot be empty")
	}
	switch d.Kind {
	case Continuous, Integer:
		if d.Low > d.High {
			return fmt.Errorf("dimension %q: low %v exceeds high %v", d.Name, d.Low, d.High)
		}
		if d.Prior == LogUniform && d.Low <= 0 {
			return fmt.Errorf("dimension %q: log-uniform prior requires positive bounds", d.Name)
		}
	case Categorical:
		if len(d.Choices) == 0 {
			return fmt.Errorf("dimension %q: categorical dimension needs at least one choice", d.Name)
		}
	default:
		return fmt.Errorf("dimension %q: unknown kind %d", d.Name, d.Kind)
	}
	return nil
}

// Space is an ordered collection of dimensions with unique names.
type Space struct {
	dims  []Dimension
	index map[string]int
}

// New builds a space from the given dimensions, preserving order.
// Returns an error on duplicate names or invalid bounds.
func New(dims ...Dimension) (*Space, error) {
	s := &Space{index: make(map[string]int, len(dims))}
	for _, d := range dims {
		if err := s.add(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Space) add(d Dimension) error {
	if err := d.validate(); err != nil {
		return err
	}
	if _, exists := s.index[d.Name]; exists {
		return fmt.Errorf("duplicate dimension name %q", d.Name)
	}
	s.index[d.Name] = len(s.dims)
	s.dims = append(s.dims, d)
	return nil
}

// Len returns the number of dimensions.
func (s *Space) Len() int {
	return len(s.dims)
}

// Dimensions returns a copy of the ordered dimension list.
func (s *Space) Dimensions() []Dimension {
	out := make([]Dimension, len(s.dims))
	copy(out, s.dims)
	return out
}

// Sample draws one random vector from the declared priors. The same
// rng state always produces the same vector, which is what makes
// warm-up sequences reproducible under a fixed seed.
func (s *Space) Sample(rng *rand.Rand) Vector {
	vals := make([]Assignment, len(s.dims))
	for i, d := range s.dims {
		switch d.Kind {
		case Continuous:
			if d.Prior == LogUniform {
				lo, hi := math.Log(d.Low), math.Log(d.High)
				vals[i] = Assignment{Name: d.Name, Value: math.Exp(lo + rng.Float64()*(hi-lo))}
			} else {
				vals[i] = Assignment{Name: d.Name, Value: d.Low + rng.Float64()*(d.High-d.Low)}
			}
		case Integer:
			lo, hi := int64(d.Low), int64(d.High)
			vals[i] = Assignment{Name: d.Name, Value: int(lo + rng.Int63n(hi-lo+1))}
		case Categorical:
			vals[i] = Assignment{Name: d.Name, Value: d.Choices[rng.Intn(len(d.Choices))]}
		}
	}
	return Vector(vals)
}

// Validate checks that the vector assigns exactly one in-bounds value
// to every dimension, in declaration order.
func (s *Space) Validate(v Vector) error {
	if len(v) != len(s.dims) {
		return fmt.Errorf("vector has %d values, space has %d dimensions", len(v), len(s.dims))
	}
	for i, d := range s.dims {
		a := v[i]
		if a.Name != d.Name {
			return fmt.Errorf("position %d: expected dimension %q, got %q", i, d.Name, a.Name)
		}
		switch d.Kind {
		case Continuous:
			f, ok := toFloat(a.Value)
			if !ok {
				return fmt.Errorf("dimension %q: value %v is not numeric", d.Name, a.Value)
			}
			if f < d.Low || f > d.High {
				return fmt.Errorf("dimension %q: value %v outside [%v, %v]", d.Name, f, d.Low, d.High)
			}
		case Integer:
			f, ok := toFloat(a.Value)
			if !ok || f != math.Trunc(f) {
				return fmt.Errorf("dimension %q: value %v is not an integer", d.Name, a.Value)
			}
			if f < d.Low || f > d.High {
				return fmt.Errorf("dimension %q: value %v outside [%v, %v]", d.Name, f, d.Low, d.High)
			}
		case Categorical:
			if choiceIndex(d.Choices, a.Value) < 0 {
				return fmt.Errorf("dimension %q: value %v is not an allowed choice", d.Name, a.Value)
			}
		}
	}
	return nil
}

// Encode maps a vector onto the unit cube [0,1]^d: continuous values
// are scaled linearly (logarithmically for log-uniform priors),
// integers linearly, and categoricals by choice index. The surrogate
// model and acquisition search only ever see this geometry.
func (s *Space) Encode(v Vector) ([]float64, error) {
	if err := s.Validate(v); err != nil {
		return nil, err
	}
	x := make([]float64, len(s.dims))
	for i, d := range s.dims {
		switch d.Kind {
		case Continuous:
			f, _ := toFloat(v[i].Value)
			if d.Prior == LogUniform {
				lo, hi := math.Log(d.Low), math.Log(d.High)
				x[i] = unit(math.Log(f), lo, hi)
			} else {
				x[i] = unit(f, d.Low, d.High)
			}
		case Integer:
			f, _ := toFloat(v[i].Value)
			x[i] = unit(f, d.Low, d.High)
		case Categorical:
			idx := choiceIndex(d.Choices, v[i].Value)
			if len(d.Choices) == 1 {
				x[i] = 0
			} else {
				x[i] = float64(idx) / float64(len(d.Choices)-1)
			}
		}
	}
	return x, nil
}

// Decode maps a point of the unit cube back to a concrete vector,
// clamping out-of-cube coordinates and snapping integer and
// categorical dimensions to their nearest member. Decoded vectors are
// always valid by construction.
func (s *Space) Decode(x []float64) (Vector, error) {
	if len(x) != len(s.dims) {
		return nil, fmt.Errorf("point has %d coordinates, space has %d dimensions", len(x), len(s.dims))
	}
	vals := make([]Assignment, len(s.dims))
	for i, d := range s.dims {
		u := clamp(x[i], 0, 1)
		switch d.Kind {
		case Continuous:
			if d.Prior == LogUniform {
				lo, hi := math.Log(d.Low), math.Log(d.High)
				vals[i] = Assignment{Name: d.Name, Value: math.Exp(lo + u*(hi-lo))}
			} else {
				vals[i] = Assignment{Name: d.Name, Value: d.Low + u*(d.High-d.Low)}
			}
		case Integer:
			vals[i] = Assignment{Name: d.Name, Value: int(math.Round(d.Low + u*(d.High-d.Low)))}
		case Categorical:
			idx := int(math.Round(u * float64(len(d.Choices)-1)))
			vals[i] = Assignment{Name: d.Name, Value: d.Choices[idx]}
		}
	}
	return Vector(vals), nil
}

func unit(v, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	return clamp((v-lo)/(hi-lo), 0, 1)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// choiceIndex locates a value in a choice list, tolerating the
// numeric widening JSON round-trips introduce (ints come back as
// float64).
func choiceIndex(choices []any, v any) int {
	for i, c := range choices {
		if c == v {
			return i
		}
		cf, cok := toFloat(c)
		vf, vok := toFloat(v)
		if cok && vok && cf == vf {
			return i
		}
	}
	return -1
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	default:
		return 0, false
	}
}
