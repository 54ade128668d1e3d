package logic

import (
	"errors"
	"fmt"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/expr"
)

// ErrSlotWidth is returned when the layout cannot hold a statement.
var ErrSlotWidth = errors.New("slot width below statement minimum")

// #region decode
// Decode builds a statement list from the rule region of g. A slot whose
// statement does not fit in its codons is dropped on its own.
func Decode(g codon.Genome, l codon.Layout, maxDepth int) (Program, codon.DecodeStats, error) {
	stats := codon.DecodeStats{Slots: l.Slots}
	if l.SlotWidth < MinSlotWidth {
		return Program{}, stats, fmt.Errorf("slot width %d < %d: %w", l.SlotWidth, MinSlotWidth, ErrSlotWidth)
	}
	if err := g.Check(l); err != nil {
		return Program{}, stats, err
	}

	d := decoder{exprs: expr.NewDecoder(Quantities, maxDepth)}
	var stmts []Statement
	for i := 0; i < l.Slots; i++ {
		stmt, err := d.statement(g.Slot(l, i))
		switch {
		case err != nil:
			stats.Failed++
		case stmt == nil:
			stats.NoOps++
		default:
			stmts = append(stmts, stmt)
		}
	}
	stats.Produced = len(stmts)
	return Program{Statements: stmts}, stats, nil
}

// #endregion decode

// #region decoder
type decoder struct {
	exprs *expr.Decoder
}

// statement returns nil for a no-op slot.
func (d decoder) statement(cur *codon.Cursor) (Statement, error) {
	c, err := cur.Next()
	if err != nil {
		return nil, err
	}
	switch codon.ClassifyAndRescale[opcode](&c) {
	case opAssign:
		reg := env.Registers[codon.Classify(c, len(env.Registers))]
		value, err := d.exprs.Decode(cur)
		if err != nil {
			return nil, fmt.Errorf("assign %s: %w", reg, err)
		}
		return Assign{Register: reg, Value: value}, nil
	case opEmit:
		out := codon.ClassifyEnum[env.Output](c)
		when, err := d.boolean(cur, 0)
		if err != nil {
			return nil, fmt.Errorf("emit %s guard: %w", out, err)
		}
		value, err := d.exprs.Decode(cur)
		if err != nil {
			return nil, fmt.Errorf("emit %s value: %w", out, err)
		}
		return Emit{Output: out, Value: value, When: when}, nil
	}
	return nil, nil
}

func (d decoder) boolean(cur *codon.Cursor, depth int) (Bool, error) {
	c, err := cur.Next()
	if err != nil {
		return nil, err
	}
	prod := boolCompare
	if depth < d.exprs.MaxDepth {
		prod = codon.ClassifyAndRescale[boolProduction](&c)
	}

	switch prod {
	case boolAnd, boolOr:
		lhs, err := d.boolean(cur, depth+1)
		if err != nil {
			return nil, err
		}
		rhs, err := d.boolean(cur, depth+1)
		if err != nil {
			return nil, err
		}
		if prod == boolAnd {
			return And{Lhs: lhs, Rhs: rhs}, nil
		}
		return Or{Lhs: lhs, Rhs: rhs}, nil
	case boolNot:
		operand, err := d.boolean(cur, depth+1)
		if err != nil {
			return nil, err
		}
		return Not{Operand: operand}, nil
	}

	op := codon.ClassifyEnum[env.Comparison](c)
	lhs, err := d.exprs.DecodeAt(cur, depth+1)
	if err != nil {
		return nil, fmt.Errorf("compare lhs: %w", err)
	}
	rhs, err := d.exprs.DecodeAt(cur, depth+1)
	if err != nil {
		return nil, fmt.Errorf("compare rhs: %w", err)
	}
	return Compare{Lhs: lhs, Op: op, Rhs: rhs}, nil
}

// #endregion decoder
