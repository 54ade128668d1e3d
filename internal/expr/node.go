package expr

import (
	"math"

	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

// #region node
// Node is one of Number, QuantityRef, Operator, Quotient or Function.
// The set is closed: node is unexported so no other package can add kinds.
type Node interface {
	Eval(ctx *env.Context) float64
	Transcribe(ctx *env.Context, out *transcript.Transcript)
	node()
}

// Number is a literal decoded from the genome.
type Number struct {
	Value float64
}

// QuantityRef reads a quantity from the context.
type QuantityRef struct {
	Quantity env.Quantity
}

// Operator applies +, - or * to its operands.
type Operator struct {
	Op       ArithOp
	Lhs, Rhs Node
}

// Quotient is lhs / sqrt(1 + rhs^2), a division that cannot blow up.
type Quotient struct {
	Lhs, Rhs Node
}

// Function applies a unary transform.
type Function struct {
	Fn      Func
	Operand Node
}

func (Number) node()      {}
func (QuantityRef) node() {}
func (Operator) node()    {}
func (Quotient) node()    {}
func (Function) node()    {}

// #endregion node

// #region eval
func (n Number) Eval(*env.Context) float64 { return n.Value }

func (n QuantityRef) Eval(ctx *env.Context) float64 { return ctx.Quantity(n.Quantity) }

func (n Operator) Eval(ctx *env.Context) float64 {
	l, r := n.Lhs.Eval(ctx), n.Rhs.Eval(ctx)
	switch n.Op {
	case Sub:
		return saturate(l - r)
	case Mul:
		return saturate(l * r)
	}
	return saturate(l + r)
}

func (n Quotient) Eval(ctx *env.Context) float64 {
	l, r := n.Lhs.Eval(ctx), n.Rhs.Eval(ctx)
	return saturate(l / math.Sqrt(1+r*r))
}

func (n Function) Eval(ctx *env.Context) float64 {
	x := n.Operand.Eval(ctx)
	switch n.Fn {
	case Log:
		return saturate(math.Log1p(math.Abs(x)))
	case Sin:
		return saturate(math.Sin(x))
	case Tanh:
		return saturate(math.Tanh(x))
	case Exp:
		return saturate(math.Exp(x))
	}
	return saturate(math.Sqrt(math.Abs(x)))
}

// saturate keeps intermediate results finite: overflow pins to the largest
// float and NaN (sin of a pinned value, Inf-Inf) collapses to zero.
func saturate(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// #endregion eval

// #region transcribe
func (n Number) Transcribe(_ *env.Context, out *transcript.Transcript) {
	out.Number(n.Value)
}

func (n QuantityRef) Transcribe(_ *env.Context, out *transcript.Transcript) {
	out.Append(n.Quantity.String())
}

func (n Operator) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append("(")
	n.Lhs.Transcribe(ctx, out)
	out.Append(n.Op.String())
	n.Rhs.Transcribe(ctx, out)
	out.Append(")")
}

func (n Quotient) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append("quot", "(")
	n.Lhs.Transcribe(ctx, out)
	out.Append(",")
	n.Rhs.Transcribe(ctx, out)
	out.Append(")")
}

func (n Function) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append(n.Fn.String(), "(")
	n.Operand.Transcribe(ctx, out)
	out.Append(")")
}

// #endregion transcribe

// #region shape
// Depth returns the height of the tree rooted at n; a leaf has depth 1.
func Depth(n Node) int {
	switch n := n.(type) {
	case Operator:
		return 1 + max(Depth(n.Lhs), Depth(n.Rhs))
	case Quotient:
		return 1 + max(Depth(n.Lhs), Depth(n.Rhs))
	case Function:
		return 1 + Depth(n.Operand)
	}
	return 1
}

// Size counts the nodes in the tree rooted at n.
func Size(n Node) int {
	switch n := n.(type) {
	case Operator:
		return 1 + Size(n.Lhs) + Size(n.Rhs)
	case Quotient:
		return 1 + Size(n.Lhs) + Size(n.Rhs)
	case Function:
		return 1 + Size(n.Operand)
	}
	return 1
}

// #endregion shape
