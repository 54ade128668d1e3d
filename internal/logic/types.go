package logic

import (
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/expr"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

// MinSlotWidth fits the shortest statement: an opcode and a one-codon
// expression.
const MinSlotWidth = 2

// Quantities are readable by logic expressions, registers included.
var Quantities = env.Quantities()

// #region opcodes
type opcode int

const (
	opNoOp opcode = iota
	opAssign
	opEmit
)

func (opcode) Cardinality() int { return 3 }

type boolProduction int

const (
	boolCompare boolProduction = iota
	boolAnd
	boolOr
	boolNot
)

func (boolProduction) Cardinality() int { return 4 }

// #endregion opcodes

// #region bool-nodes
// Bool is one of Compare, And, Or or Not.
type Bool interface {
	Holds(ctx *env.Context) bool
	Transcribe(ctx *env.Context, out *transcript.Transcript)
	boolNode()
}

// Compare tests two expressions.
type Compare struct {
	Lhs expr.Node
	Op  env.Comparison
	Rhs expr.Node
}

// And holds when both operands hold.
type And struct {
	Lhs, Rhs Bool
}

// Or holds when either operand holds.
type Or struct {
	Lhs, Rhs Bool
}

// Not negates its operand.
type Not struct {
	Operand Bool
}

func (Compare) boolNode() {}
func (And) boolNode()     {}
func (Or) boolNode()      {}
func (Not) boolNode()     {}

// #endregion bool-nodes

// #region statements
// Statement is one of Assign or Emit.
type Statement interface {
	Exec(ctx *env.Context)
	Transcribe(ctx *env.Context, out *transcript.Transcript)
	statement()
}

// Assign stores an expression in a register.
type Assign struct {
	Register env.Quantity
	Value    expr.Node
}

// Emit writes an output when its guard holds.
type Emit struct {
	Output env.Output
	Value  expr.Node
	When   Bool
}

func (Assign) statement() {}
func (Emit) statement()   {}

// Program is the statement list decoded from a genome.
type Program struct {
	Statements []Statement
}

// #endregion statements
