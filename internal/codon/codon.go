package codon

import "math"

// epsilon keeps a codon of exactly 1.0 inside the last bucket.
const epsilon = 0.001

// #region classify
// Classify maps a codon onto one of n buckets.
func Classify(c float64, n int) int {
	if n <= 1 {
		return 0
	}
	idx := int(math.Floor(c * (float64(n) - epsilon)))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// Rescale returns the position of c inside the bucket Classify picked, scaled
// back onto [0,1), so the same codon can drive a nested choice.
func Rescale(c float64, n int) float64 {
	if n <= 1 {
		return clampUnit(c)
	}
	width := 1 / float64(n)
	return clampUnit(math.Mod(c, width) * float64(n))
}

// Take classifies c into n buckets and replaces c with its rescaled remainder.
func Take(c *float64, n int) int {
	idx := Classify(*c, n)
	*c = Rescale(*c, n)
	return idx
}

// #endregion classify

// #region enum-forms
// ClassifyEnum maps a codon onto a member of T.
func ClassifyEnum[T Enum](c float64) T {
	var zero T
	return T(Classify(c, zero.Cardinality()))
}

// RescaleEnum rescales c relative to the bucket width of T.
func RescaleEnum[T Enum](c float64) float64 {
	var zero T
	return Rescale(c, zero.Cardinality())
}

// ClassifyAndRescale picks a member of T and leaves the remainder in c.
func ClassifyAndRescale[T Enum](c *float64) T {
	var zero T
	return T(Take(c, zero.Cardinality()))
}

// #endregion enum-forms

// #region helpers
func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v >= 1:
		return math.Nextafter(1, 0)
	}
	return v
}

// #endregion helpers
