// Package arith decodes one arithmetic expression per output from the genome.
package arith

import (
	"errors"
	"fmt"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/expr"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

// ErrSlots is returned when the layout does not have one slot per output.
var ErrSlots = errors.New("slot count does not match outputs")

// Quantities are the glucose, insulin and carbohydrate inputs expressions read.
var Quantities = []env.Quantity{
	env.Glucose,
	env.GlucoseAverage,
	env.GlucoseSlope,
	env.InsulinOnBoard,
	env.CarbsOnBoard,
}

// #region program
// Program holds one expression per output, indexed by env.Output.
type Program struct {
	Exprs []expr.Node
}

// Eval writes every output.
func (p Program) Eval(ctx *env.Context) {
	for i, e := range p.Exprs {
		ctx.SetOutput(env.Output(i), e.Eval(ctx))
	}
}

// Transcribe renders one line per output.
func (p Program) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	for i, e := range p.Exprs {
		out.Append(env.Output(i).String(), "=")
		e.Transcribe(ctx, out)
		out.End()
	}
}

// #endregion program

// #region decode
// Decode reads one expression per output slot. A slot that runs out of
// codons yields the literal 0 for its output.
func Decode(g codon.Genome, l codon.Layout, maxDepth int) (Program, codon.DecodeStats, error) {
	stats := codon.DecodeStats{Slots: l.Slots}
	outputs := env.Output(0).Cardinality()
	if l.Slots != outputs {
		return Program{}, stats, fmt.Errorf("have %d slots, need %d: %w", l.Slots, outputs, ErrSlots)
	}
	if err := g.Check(l); err != nil {
		return Program{}, stats, err
	}

	d := expr.NewDecoder(Quantities, maxDepth)
	exprs := make([]expr.Node, outputs)
	for i := range exprs {
		node, err := d.Decode(g.Slot(l, i))
		if err != nil {
			stats.Failed++
			node = expr.Number{}
		} else {
			stats.Produced++
		}
		exprs[i] = node
	}
	return Program{Exprs: exprs}, stats, nil
}

// #endregion decode
