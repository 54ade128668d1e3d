package rules

import (
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

// #region eval
// Value resolves the operand against the context.
func (o Operand) Value(ctx *env.Context) float64 {
	if o.Kind == OperandQuantity {
		return ctx.Quantity(o.Quantity)
	}
	return ctx.Constant(o.Constant)
}

// Holds reports whether the conditional is true in ctx.
func (c Conditional) Holds(ctx *env.Context) bool {
	return c.Op.Holds(ctx.Quantity(c.Lhs), c.Rhs.Value(ctx))
}

// Holds reports whether every conditional is true. An empty set holds.
func (cs ConditionSet) Holds(ctx *env.Context) bool {
	for _, c := range cs {
		if !c.Holds(ctx) {
			return false
		}
	}
	return true
}

// Eval applies the program: for each output the first rule whose conditions
// hold sets it, and later rules for that output are skipped.
func (p Program) Eval(ctx *env.Context) {
	set := make([]bool, env.Output(0).Cardinality())
	for _, r := range p.Rules {
		if set[r.Action.Output] {
			continue
		}
		if r.Conditions.Holds(ctx) {
			ctx.SetOutput(r.Action.Output, r.Action.Value)
			set[r.Action.Output] = true
		}
	}
}

// #endregion eval

// #region transcribe
func (o Operand) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	if o.Kind == OperandQuantity {
		out.Append(o.Quantity.String())
		return
	}
	out.Number(ctx.Constant(o.Constant))
}

func (c Conditional) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append(c.Lhs.String(), c.Op.String())
	c.Rhs.Transcribe(ctx, out)
}

func (r Rule) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	if len(r.Conditions) == 0 {
		out.Append("always")
	} else {
		out.Append("if")
		for i, c := range r.Conditions {
			if i > 0 {
				out.Append("and")
			}
			c.Transcribe(ctx, out)
		}
		out.Append("then")
	}
	out.Append(r.Action.Output.String(), "=")
	out.Number(r.Action.Value)
}

// Transcribe renders every rule, one per line.
func (p Program) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	for _, r := range p.Rules {
		r.Transcribe(ctx, out)
		out.End()
	}
}

// #endregion transcribe

// #region clone
// Clone returns a deep copy so callers can rewrite rules without aliasing.
func (p Program) Clone() Program {
	rules := make([]Rule, len(p.Rules))
	for i, r := range p.Rules {
		rules[i] = r.clone()
	}
	return Program{Rules: rules}
}

func (r Rule) clone() Rule {
	if r.Conditions != nil {
		r.Conditions = append(ConditionSet(nil), r.Conditions...)
	}
	return r
}

// #endregion clone
