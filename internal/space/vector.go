package space

import (
	"fmt"
	"math"
	"strings"
)

// Assignment binds one concrete value to a named dimension.
type Assignment struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Vector is one concrete point of the search space: one assignment
// per dimension, in declaration order. Treat vectors as immutable
// once constructed; Clone before modifying.
type Vector []Assignment

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

func (v Vector) lookup(name string) (any, error) {
	for _, a := range v {
		if a.Name == name {
			return a.Value, nil
		}
	}
	return nil, fmt.Errorf("vector has no dimension %q", name)
}

// Float returns the named value as a float64.
func (v Vector) Float(name string) (float64, error) {
	raw, err := v.lookup(name)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("dimension %q: value %v is not numeric", name, raw)
	}
	return f, nil
}

// Int returns the named value as an int. Values that arrived through
// JSON are float64 and are accepted when integral.
func (v Vector) Int(name string) (int, error) {
	f, err := v.Float(name)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("dimension %q: value %v is not an integer", name, f)
	}
	return int(f), nil
}

// Bool returns the named value as a bool.
func (v Vector) Bool(name string) (bool, error) {
	raw, err := v.lookup(name)
	if err != nil {
		return false, err
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("dimension %q: value %v is not a bool", name, raw)
	}
	return b, nil
}

// String returns the named value as a string.
func (v Vector) String(name string) (string, error) {
	raw, err := v.lookup(name)
	if err != nil {
		return "", err
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("dimension %q: value %v is not a string", name, raw)
	}
	return s, nil
}

// Equal reports whether two vectors assign the same values to the
// same dimensions in the same order. Numeric values compare by value
// so a vector survives a JSON round trip intact.
func (v Vector) Equal(other Vector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i].Name != other[i].Name {
			return false
		}
		if v[i].Value == other[i].Value {
			continue
		}
		af, aok := toFloat(v[i].Value)
		bf, bok := toFloat(other[i].Value)
		if !aok || !bok || af != bf {
			return false
		}
	}
	return true
}

// Describe renders the vector as "name=value" pairs for logs.
func (v Vector) Describe() string {
	parts := make([]string, len(v))
	for i, a := range v {
		parts[i] = fmt.Sprintf("%s=%v", a.Name, a.Value)
	}
	return strings.Join(parts, " ")
}
