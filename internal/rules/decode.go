package rules

import (
	"fmt"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
)

// #region decode
// Decode builds a program from the rule region of g. Each slot is decoded on
// its own; a slot that runs out of codons is counted as failed and produces no
// rule. Genome length and slot width problems fail the whole decode.
func Decode(g codon.Genome, l codon.Layout) (Program, codon.DecodeStats, error) {
	stats := codon.DecodeStats{Slots: l.Slots}
	if l.SlotWidth < MinSlotWidth {
		return Program{}, stats, fmt.Errorf("slot width %d < %d: %w", l.SlotWidth, MinSlotWidth, ErrSlotWidth)
	}
	if err := g.Check(l); err != nil {
		return Program{}, stats, err
	}

	var rules []Rule
	for i := 0; i < l.Slots; i++ {
		rule, ok, err := decodeSlot(g.Slot(l, i), l.Constants)
		switch {
		case err != nil:
			stats.Failed++
		case !ok:
			stats.NoOps++
		default:
			rules = append(rules, rule)
		}
	}
	stats.Produced = len(rules)
	return Program{Rules: rules}, stats, nil
}

// decodeSlot returns ok=false for a no-op slot.
func decodeSlot(cur *codon.Cursor, constants int) (Rule, bool, error) {
	c, err := cur.Next()
	if err != nil {
		return Rule{}, false, err
	}
	op := codon.ClassifyEnum[opcode](c)
	if op == opNoOp {
		return Rule{}, false, nil
	}

	action, err := decodeAction(cur)
	if err != nil {
		return Rule{}, false, err
	}

	var count int
	switch op {
	case opSingle:
		count = 1
	case opDouble:
		count = 2
	}
	var conds ConditionSet
	for k := 0; k < count; k++ {
		cond, err := decodeConditional(cur, constants)
		if err != nil {
			return Rule{}, false, fmt.Errorf("conditional %d: %w", k, err)
		}
		conds = append(conds, cond)
	}
	return Rule{Conditions: conds, Action: action}, true, nil
}

// decodeAction picks the output and scales the rest of the codon onto the
// output's range.
func decodeAction(cur *codon.Cursor) (Action, error) {
	c, err := cur.Next()
	if err != nil {
		return Action{}, fmt.Errorf("action: %w", err)
	}
	out := codon.ClassifyAndRescale[env.Output](&c)
	return Action{Output: out, Value: c * OutputCeiling(out)}, nil
}

// decodeConditional reads lhs and comparison from one codon and the operand
// from the next. Without a constant region every operand is a quantity.
func decodeConditional(cur *codon.Cursor, constants int) (Conditional, error) {
	a, err := cur.Next()
	if err != nil {
		return Conditional{}, err
	}
	b, err := cur.Next()
	if err != nil {
		return Conditional{}, err
	}

	lhs := ConditionQuantities[codon.Take(&a, len(ConditionQuantities))]
	cmp := codon.ClassifyEnum[env.Comparison](a)

	kind := codon.ClassifyAndRescale[OperandKind](&b)
	if kind == OperandConstant && constants == 0 {
		kind = OperandQuantity
	}
	var rhs Operand
	if kind == OperandConstant {
		rhs = ConstantOperand(codon.Classify(b, constants))
	} else {
		rhs = QuantityOperand(ConditionQuantities[codon.Classify(b, len(ConditionQuantities))])
	}
	return Conditional{Lhs: lhs, Op: cmp, Rhs: rhs}, nil
}

// #endregion decode
