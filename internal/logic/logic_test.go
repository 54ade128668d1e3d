package logic

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

var registerGenome = []float64{
	0.5, 0.01, 0, 0, 0, 0, 0, // r2 := glucose
	0.9, 0.2, 0.14, 0.21, 0.105, 0.21, 0.025, // emit bolus := 2 when r2 > 10
	0.1, 0, 0, 0, 0, 0, 0, // no-op
	0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, // nested not runs out of codons
}

var registerLayout = codon.Layout{Slots: 4, SlotWidth: 7}

func TestDecodeHandComputed(t *testing.T) {
	g, err := codon.NewGenome(registerGenome)
	require.NoError(t, err)

	p, stats, err := Decode(g, registerLayout, 0)
	require.NoError(t, err)

	want := Program{Statements: []Statement{
		Assign{Register: env.Register2, Value: expr.QuantityRef{Quantity: env.Glucose}},
		Emit{
			Output: env.Bolus,
			Value:  expr.Number{Value: 2},
			When: Compare{
				Lhs: expr.QuantityRef{Quantity: env.Register2},
				Op:  env.Greater,
				Rhs: expr.Number{Value: 10},
			},
		},
	}}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("program mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, codon.DecodeStats{Slots: 4, NoOps: 1, Failed: 1, Produced: 2}, stats)

	ctx := env.NewContext(nil, 1)
	var tr transcript.Transcript
	p.Transcribe(ctx, &tr)
	assert.Equal(t, []string{
		"r2 := glucose",
		"emit bolus := 2.00 when r2 > 10.00",
	}, tr.Lines())
}

func TestEvalUsesRegisters(t *testing.T) {
	g, err := codon.NewGenome(registerGenome)
	require.NoError(t, err)
	p, _, err := Decode(g, registerLayout, 0)
	require.NoError(t, err)

	ctx := env.NewContext(nil, 1)
	ctx.SetQuantity(env.Glucose, 12)
	p.Eval(ctx)
	assert.Equal(t, 2.0, ctx.Output(env.Bolus))
	assert.Equal(t, 12.0, ctx.Quantity(env.Register2))

	ctx.ResetOutputs()
	ctx.SetQuantity(env.Glucose, 8)
	p.Eval(ctx)
	assert.Equal(t, 0.0, ctx.Output(env.Bolus))
}

func TestLaterEmitOverwrites(t *testing.T) {
	always := Compare{Lhs: expr.Number{Value: 1}, Op: env.Greater, Rhs: expr.Number{Value: 0}}
	p := Program{Statements: []Statement{
		Emit{Output: env.BasalRate, Value: expr.Number{Value: 1}, When: always},
		Emit{Output: env.BasalRate, Value: expr.Number{Value: 3}, When: always},
		Emit{Output: env.BasalRate, Value: expr.Number{Value: 5}, When: Not{Operand: always}},
	}}
	ctx := env.NewContext(nil, 1)
	p.Eval(ctx)
	assert.Equal(t, 3.0, ctx.Output(env.BasalRate))
}

func TestBoolConnectives(t *testing.T) {
	ctx := env.NewContext(nil, 1)
	yes := Compare{Lhs: expr.Number{Value: 2}, Op: env.Greater, Rhs: expr.Number{Value: 1}}
	no := Not{Operand: yes}

	assert.True(t, Or{Lhs: no, Rhs: yes}.Holds(ctx))
	assert.False(t, And{Lhs: no, Rhs: yes}.Holds(ctx))

	var tr transcript.Transcript
	And{Lhs: yes, Rhs: no}.Transcribe(ctx, &tr)
	assert.Equal(t, "( 2.00 > 1.00 and not ( 2.00 > 1.00 ) )", tr.Format())
}

func TestDecodeRejectsNarrowSlots(t *testing.T) {
	g, err := codon.NewGenome([]float64{0.5})
	require.NoError(t, err)
	_, _, err = Decode(g, codon.Layout{Slots: 1, SlotWidth: 1}, 0)
	assert.ErrorIs(t, err, ErrSlotWidth)
}
