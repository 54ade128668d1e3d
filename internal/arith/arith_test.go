package arith

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/expr"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

func TestDecodeOneExpressionPerOutput(t *testing.T) {
	g, err := codon.NewGenome([]float64{
		0.61, 0.05, 0.25, 0.035, // glucose_avg5 + 3
		0.61, 0.61, 0.61, 0.61, // runs out of codons
	})
	require.NoError(t, err)

	p, stats, err := Decode(g, codon.Layout{Slots: 2, SlotWidth: 4}, 0)
	require.NoError(t, err)

	want := Program{Exprs: []expr.Node{
		expr.Operator{Op: expr.Add, Lhs: expr.QuantityRef{Quantity: env.GlucoseAverage}, Rhs: expr.Number{Value: 3}},
		expr.Number{},
	}}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("program mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, codon.DecodeStats{Slots: 2, Failed: 1, Produced: 1}, stats)

	ctx := env.NewContext(nil, 1)
	var tr transcript.Transcript
	p.Transcribe(ctx, &tr)
	assert.Equal(t, []string{"basal_rate = ( glucose_avg5 + 3.00 )", "bolus = 0.00"}, tr.Lines())

	ctx.SetQuantity(env.GlucoseAverage, 4)
	p.Eval(ctx)
	assert.Equal(t, 7.0, ctx.Output(env.BasalRate))

	ctx.SetQuantity(env.GlucoseAverage, -10)
	p.Eval(ctx)
	assert.Equal(t, 0.0, ctx.Output(env.BasalRate))
}

func TestDecodeNeedsSlotPerOutput(t *testing.T) {
	g, err := codon.NewGenome(make([]float64, 12))
	require.NoError(t, err)
	_, _, err = Decode(g, codon.Layout{Slots: 3, SlotWidth: 4}, 0)
	assert.ErrorIs(t, err, ErrSlots)
}
