package expr

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

var testQuantities = []env.Quantity{env.Glucose, env.GlucoseAverage}

func TestDecodeOperatorTree(t *testing.T) {
	d := NewDecoder(testQuantities, 0)
	cur := codon.NewCursor([]float64{0.61, 0.05, 0.25, 0.035})

	got, err := d.Decode(cur)
	require.NoError(t, err)

	want := Operator{Op: Add, Lhs: QuantityRef{Quantity: env.Glucose}, Rhs: Number{Value: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded tree mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, cur.Pos())

	ctx := env.NewContext(nil, 1)
	ctx.SetQuantity(env.Glucose, 6.5)
	assert.Equal(t, 9.5, got.Eval(ctx))

	var tr transcript.Transcript
	got.Transcribe(ctx, &tr)
	assert.Equal(t, "( glucose + 3.00 )", tr.Format())
}

func TestDepthCeilingForcesTerminals(t *testing.T) {
	codons := make([]float64, 100)
	for i := range codons {
		codons[i] = 0.9 // function production until the ceiling
	}
	d := NewDecoder(testQuantities, 0)
	cur := codon.NewCursor(codons)

	got, err := d.Decode(cur)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDepth+1, Depth(got))
	assert.Equal(t, DefaultMaxDepth+1, Size(got))
	// six functions, one production codon and two digit groups for the literal
	assert.Equal(t, DefaultMaxDepth+3, cur.Pos())
}

func TestDecodeExhaustedCursor(t *testing.T) {
	d := NewDecoder(testQuantities, 2)
	_, err := d.Decode(codon.NewCursor([]float64{0.61, 0.05}))
	assert.ErrorIs(t, err, codon.ErrExhausted)
}

func TestDecodeRandomNeverNaN(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := NewDecoder(testQuantities, 0)
	ctx := env.NewContext(nil, 1)
	inputs := []float64{0, -1e300, 1e300, math.Inf(1), 7.5}

	for i := 0; i < 2000; i++ {
		codons := make([]float64, 64)
		for k := range codons {
			codons[k] = rng.Float64()
		}
		n, err := d.Decode(codon.NewCursor(codons))
		if err != nil {
			require.ErrorIs(t, err, codon.ErrExhausted)
			continue
		}
		require.LessOrEqual(t, Depth(n), DefaultMaxDepth+1)
		for _, v := range inputs {
			ctx.SetQuantity(env.Glucose, v)
			ctx.SetQuantity(env.GlucoseAverage, -v)
			require.False(t, math.IsNaN(n.Eval(ctx)), "NaN from genome %d with input %v", i, v)
		}
	}
}

func TestFunctionsAreTotal(t *testing.T) {
	ctx := env.NewContext(nil, 1)
	for fn := Func(0); int(fn) < fn.Cardinality(); fn++ {
		for _, x := range []float64{-math.MaxFloat64, -1, 0, 1, math.MaxFloat64} {
			v := Function{Fn: fn, Operand: Number{Value: x}}.Eval(ctx)
			assert.False(t, math.IsNaN(v), "%s(%v)", fn, x)
			assert.False(t, math.IsInf(v, 0), "%s(%v)", fn, x)
		}
	}
}

func TestQuotientBounded(t *testing.T) {
	ctx := env.NewContext(nil, 1)
	q := Quotient{Lhs: Number{Value: 4}, Rhs: Number{Value: 0}}
	assert.Equal(t, 4.0, q.Eval(ctx))
	q = Quotient{Lhs: Number{Value: 10}, Rhs: Number{Value: math.MaxFloat64}}
	assert.Equal(t, 0.0, q.Eval(ctx))
}

func classifiesEnds[T codon.Enum](t *testing.T) {
	t.Helper()
	var zero T
	n := zero.Cardinality()
	assert.Equal(t, 0, int(codon.ClassifyEnum[T](0)))
	assert.Equal(t, n-1, int(codon.ClassifyEnum[T](0.999)))
}

func TestEnumsClassifyOntoEveryMember(t *testing.T) {
	classifiesEnds[ArithOp](t)
	classifiesEnds[Func](t)
	classifiesEnds[production](t)
	classifiesEnds[terminal](t)
	classifiesEnds[numberForm](t)
}
