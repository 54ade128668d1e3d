package codon

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type colour int

func (colour) Cardinality() int { return 3 }

func TestClassifyBuckets(t *testing.T) {
	cases := []struct {
		c    float64
		n    int
		want int
	}{
		{0, 4, 0},
		{0.24, 4, 0},
		{0.26, 4, 1},
		{0.6, 4, 2},
		{0.99, 4, 3},
		{1.0, 4, 3},
		{0.5, 1, 0},
		{0.5, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.c, tc.n), "Classify(%v, %d)", tc.c, tc.n)
	}
}

func TestClassifyAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		c := rng.Float64()
		n := 1 + rng.Intn(120)
		idx := Classify(c, n)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, n)
	}
}

func TestRescaleStaysInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	inputs := []float64{0, 1, 0.5, 0.25, 0.999999}
	for i := 0; i < 5000; i++ {
		inputs = append(inputs, rng.Float64())
	}
	for _, c := range inputs {
		for n := 1; n <= 12; n++ {
			r := Rescale(c, n)
			require.GreaterOrEqual(t, r, 0.0, "Rescale(%v, %d)", c, n)
			require.Less(t, r, 1.0, "Rescale(%v, %d)", c, n)
		}
	}
}

func TestRescaleRemainder(t *testing.T) {
	assert.InDelta(t, 0.2, Rescale(0.6, 2), 1e-12)
	assert.InDelta(t, 0.5, Rescale(0.375, 4), 1e-12)
	assert.Less(t, Rescale(1.0, 1), 1.0)
}

func TestTakeConsumesInPlace(t *testing.T) {
	c := 0.6
	idx := Take(&c, 2)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 0.2, c, 1e-12)
}

func TestEnumForms(t *testing.T) {
	assert.Equal(t, colour(2), ClassifyEnum[colour](0.9))
	assert.InDelta(t, Rescale(0.9, 3), RescaleEnum[colour](0.9), 0)

	c := 0.5
	got := ClassifyAndRescale[colour](&c)
	assert.Equal(t, colour(1), got)
	assert.InDelta(t, 0.5, c, 1e-9)
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, clampUnit(math.NaN()))
	assert.Equal(t, 0.0, clampUnit(-1))
	assert.Less(t, clampUnit(1), 1.0)
}
