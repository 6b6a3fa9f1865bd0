package phase

import "math"

// TwoPi is the full phase circle in radians.
const TwoPi = 2 * math.Pi

// Vector is an ordered assignment of one phase angle per mode. Vectors are
// value objects: pipeline stages never mutate a vector they received, they
// return fresh copies.
type Vector []float64

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Normalized returns a copy with every component wrapped into [0, 2pi).
func (v Vector) Normalized() Vector {
	out := make(Vector, len(v))
	for i, p := range v {
		out[i] = NormalizeAngle(p)
	}
	return out
}

// NormalizeAngle wraps an angle into [0, 2pi). Total over all finite inputs.
func NormalizeAngle(p float64) float64 {
	wrapped := math.Mod(p, TwoPi)
	if wrapped < 0 {
		wrapped += TwoPi
	}
	return wrapped
}
