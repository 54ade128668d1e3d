package rules

import (
	"errors"

	"github.com/SmartCGMS/core-sub001/internal/env"
)

// MinSlotWidth is the number of codons a double-conditional rule needs:
// opcode, action, and two codons per conditional.
const MinSlotWidth = 6

// ErrSlotWidth is returned when the layout cannot hold a full rule.
var ErrSlotWidth = errors.New("slot width below rule minimum")

// #region opcode
type opcode int

const (
	opNoOp opcode = iota
	opUnconditional
	opSingle
	opDouble
)

func (opcode) Cardinality() int { return 4 }

// #endregion opcode

// #region operand
// OperandKind tags the right-hand side of a conditional.
type OperandKind int

const (
	OperandConstant OperandKind = iota
	OperandQuantity
)

// Cardinality returns the number of operand kinds.
func (OperandKind) Cardinality() int { return 2 }

// Operand is either a constant index or a quantity, never both.
type Operand struct {
	Kind     OperandKind
	Quantity env.Quantity
	Constant int
}

// ConstantOperand returns an operand reading constant i.
func ConstantOperand(i int) Operand {
	return Operand{Kind: OperandConstant, Constant: i}
}

// QuantityOperand returns an operand reading quantity q.
func QuantityOperand(q env.Quantity) Operand {
	return Operand{Kind: OperandQuantity, Quantity: q}
}

// #endregion operand

// #region nodes
// Conditional compares a quantity against a quantity or a constant.
type Conditional struct {
	Lhs env.Quantity
	Op  env.Comparison
	Rhs Operand
}

// ConditionSet holds one or two conditionals joined by AND.
type ConditionSet []Conditional

// Action sets an output to a target value.
type Action struct {
	Output env.Output
	Value  float64
}

// Rule fires its action when every condition holds. A rule without
// conditions always fires.
type Rule struct {
	Conditions ConditionSet
	Action     Action
}

// Program is the ordered rule sequence decoded from a genome.
type Program struct {
	Rules []Rule
}

// #endregion nodes

// #region grammar-tables
// ConditionQuantities are the quantities a conditional may compare.
var ConditionQuantities = []env.Quantity{
	env.Glucose,
	env.GlucoseAverage,
	env.GlucoseSlope,
	env.InsulinOnBoard,
	env.CarbsOnBoard,
}

// OutputCeiling is the largest target value an action can decode to.
func OutputCeiling(o env.Output) float64 {
	switch o {
	case env.Bolus:
		return 10.0 // U
	}
	return 5.0 // U/h
}

// #endregion grammar-tables
