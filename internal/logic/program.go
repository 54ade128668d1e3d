package logic

import (
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

// #region holds
func (c Compare) Holds(ctx *env.Context) bool {
	return c.Op.Holds(c.Lhs.Eval(ctx), c.Rhs.Eval(ctx))
}

func (a And) Holds(ctx *env.Context) bool { return a.Lhs.Holds(ctx) && a.Rhs.Holds(ctx) }

func (o Or) Holds(ctx *env.Context) bool { return o.Lhs.Holds(ctx) || o.Rhs.Holds(ctx) }

func (n Not) Holds(ctx *env.Context) bool { return !n.Operand.Holds(ctx) }

// #endregion holds

// #region exec
func (a Assign) Exec(ctx *env.Context) {
	ctx.SetQuantity(a.Register, a.Value.Eval(ctx))
}

func (e Emit) Exec(ctx *env.Context) {
	if e.When.Holds(ctx) {
		ctx.SetOutput(e.Output, e.Value.Eval(ctx))
	}
}

// Eval runs the statements in order. Registers persist between calls;
// a later emit overwrites an earlier one.
func (p Program) Eval(ctx *env.Context) {
	for _, s := range p.Statements {
		s.Exec(ctx)
	}
}

// #endregion exec

// #region transcribe
func (c Compare) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	c.Lhs.Transcribe(ctx, out)
	out.Append(c.Op.String())
	c.Rhs.Transcribe(ctx, out)
}

func (a And) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append("(")
	a.Lhs.Transcribe(ctx, out)
	out.Append("and")
	a.Rhs.Transcribe(ctx, out)
	out.Append(")")
}

func (o Or) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append("(")
	o.Lhs.Transcribe(ctx, out)
	out.Append("or")
	o.Rhs.Transcribe(ctx, out)
	out.Append(")")
}

func (n Not) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append("not", "(")
	n.Operand.Transcribe(ctx, out)
	out.Append(")")
}

func (a Assign) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append(a.Register.String(), ":=")
	a.Value.Transcribe(ctx, out)
}

func (e Emit) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	out.Append("emit", e.Output.String(), ":=")
	e.Value.Transcribe(ctx, out)
	out.Append("when")
	e.When.Transcribe(ctx, out)
}

// Transcribe renders one statement per line.
func (p Program) Transcribe(ctx *env.Context, out *transcript.Transcript) {
	for _, s := range p.Statements {
		s.Transcribe(ctx, out)
		out.End()
	}
}

// #endregion transcribe
