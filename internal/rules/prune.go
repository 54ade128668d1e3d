package rules

import (
	"math"

	"github.com/SmartCGMS/core-sub001/internal/env"
)

// #region types
// ConstantTable resolves constant indexes during pruning.
type ConstantTable interface {
	Constant(i int) float64
}

// Report counts what a Prune run changed.
type Report struct {
	Passes           int
	SelfConflicts    int // rules dropped for comparing a quantity with itself
	Collapsed        int // two-conditional rules reduced to one conditional
	Contradictions   int // rules dropped for an unsatisfiable AND
	CrossRuleDeleted int // rules made redundant by another rule
	RulesBefore      int
	RulesAfter       int
}

// Changes is the total number of rewrites.
func (r Report) Changes() int {
	return r.SelfConflicts + r.Collapsed + r.Contradictions + r.CrossRuleDeleted
}

// relation classifies two conditionals on the same quantity.
type relation int

const (
	unrelated relation = iota
	equivalent
	superceding
	opposing
)

// #endregion types

// #region prune
// Prune removes rules that can never take effect and simplifies conditions
// that say the same thing twice. It repeats until a pass changes nothing and
// returns a new program; p is left untouched. Every rewrite drops a rule or a
// conditional, so the loop terminates.
func Prune(p Program, constants ConstantTable) (Program, Report) {
	rules := p.Clone().Rules
	rep := Report{RulesBefore: len(rules)}

	for {
		rep.Passes++
		before := rep.Changes()

		var n int
		rules, n = dropSelfConflicts(rules)
		rep.SelfConflicts += n

		var collapsed, contradictions int
		rules, collapsed, contradictions = simplifyConjunctions(rules, constants)
		rep.Collapsed += collapsed
		rep.Contradictions += contradictions

		var deleted int
		rules, deleted = reduceAcrossRules(rules, constants)
		rep.CrossRuleDeleted += deleted

		if rep.Changes() == before {
			break
		}
	}

	rep.RulesAfter = len(rules)
	return Program{Rules: rules}, rep
}

// #endregion prune

// #region self-conflict
// selfConflicting reports a conditional that compares a quantity with itself.
// Comparisons are strict, so it never holds.
func selfConflicting(c Conditional) bool {
	return c.Rhs.Kind == OperandQuantity && c.Rhs.Quantity == c.Lhs
}

// dropSelfConflicts deletes every rule containing a self-conflicting
// conditional: under AND the rule can never fire.
func dropSelfConflicts(rules []Rule) ([]Rule, int) {
	out := rules[:0]
	dropped := 0
	for _, r := range rules {
		conflict := false
		for _, c := range r.Conditions {
			if selfConflicting(c) {
				conflict = true
				break
			}
		}
		if conflict {
			dropped++
			continue
		}
		out = append(out, r)
	}
	return out, dropped
}

// #endregion self-conflict

// #region conjunction
// relateAnd classifies a AND b for two constant conditionals on one quantity.
// For equivalent and superceding it also returns which of the two survives.
func relateAnd(a Conditional, va float64, b Conditional, vb float64) (relation, int) {
	if a.Op == b.Op {
		if va == vb {
			return equivalent, 0
		}
		// Under AND the tighter bound implies the looser one.
		tighterIsB := vb > va
		if a.Op == env.Less {
			tighterIsB = vb < va
		}
		if tighterIsB {
			return superceding, 1
		}
		return superceding, 0
	}
	lo, hi := va, vb
	if a.Op == env.Less {
		lo, hi = vb, va
	}
	if hi <= lo {
		return opposing, -1
	}
	return unrelated, -1
}

// simplifyConjunctions rewrites two-conditional rules whose conditionals both
// compare the same quantity with constants.
func simplifyConjunctions(rules []Rule, constants ConstantTable) ([]Rule, int, int) {
	out := rules[:0]
	collapsed, contradictions := 0, 0
	for _, r := range rules {
		if len(r.Conditions) != 2 {
			out = append(out, r)
			continue
		}
		a, b := r.Conditions[0], r.Conditions[1]
		if a.Lhs != b.Lhs || a.Rhs.Kind != OperandConstant || b.Rhs.Kind != OperandConstant {
			out = append(out, r)
			continue
		}
		rel, keep := relateAnd(a, constants.Constant(a.Rhs.Constant), b, constants.Constant(b.Rhs.Constant))
		switch rel {
		case equivalent, superceding:
			r.Conditions = ConditionSet{r.Conditions[keep]}
			collapsed++
		case opposing:
			contradictions++
			continue
		}
		out = append(out, r)
	}
	return out, collapsed, contradictions
}

// #endregion conjunction

// #region cross-rule
// interval is an open range of a single quantity; unbounded ends are infinite.
type interval struct {
	lo, hi float64
}

func (iv interval) contains(o interval) bool {
	return iv.lo <= o.lo && o.hi <= iv.hi
}

func (iv interval) overlaps(o interval) bool {
	return math.Max(iv.lo, o.lo) < math.Min(iv.hi, o.hi)
}

func (iv interval) empty() bool {
	return iv.lo >= iv.hi
}

// region returns the range of quantity q in which r's conditions hold, when
// every conditional compares the same quantity with a constant.
func region(r Rule, constants ConstantTable) (env.Quantity, interval, bool) {
	if len(r.Conditions) == 0 {
		return 0, interval{}, false
	}
	q := r.Conditions[0].Lhs
	iv := interval{lo: math.Inf(-1), hi: math.Inf(1)}
	for _, c := range r.Conditions {
		if c.Lhs != q || c.Rhs.Kind != OperandConstant {
			return 0, interval{}, false
		}
		v := constants.Constant(c.Rhs.Constant)
		if c.Op == env.Greater {
			iv.lo = math.Max(iv.lo, v)
		} else {
			iv.hi = math.Min(iv.hi, v)
		}
	}
	return q, iv, true
}

// relateOr classifies two rules for one output, which fire independently and
// so combine by OR. It returns which rule is redundant: 1 for the later rule,
// 0 for the earlier one, -1 for neither.
//
//   - equivalent: same region; the later rule never wins, so the earlier
//     rule's target is the one kept.
//   - superceding: one region inside the other. A later rule inside an earlier
//     one never wins. An earlier rule strictly inside a later one with the same
//     target is covered by it, provided nothing in between can claim its region.
//   - anything else (disjoint, partial overlap) is left alone.
func relateOr(ri, rj Rule, ivi, ivj interval, clearBetween func() bool) (relation, int) {
	switch {
	case ivi == ivj:
		return equivalent, 1
	case ivi.contains(ivj):
		return superceding, 1
	case ivj.contains(ivi) && ri.Action.Value == rj.Action.Value && clearBetween():
		return superceding, 0
	case !ivi.overlaps(ivj):
		return opposing, -1
	}
	return unrelated, -1
}

// reduceAcrossRules compares every pair of rules that target the same output
// with the same number of conditionals on one quantity, and deletes the rule
// the other makes redundant. Between rules of equal shape only whole rules can
// go without changing behaviour. Redundant rules are marked during the scan
// and removed afterwards, so the scan always sees the program it started with.
func reduceAcrossRules(rules []Rule, constants ConstantTable) ([]Rule, int) {
	redundantRule := make([]bool, len(rules))

	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			ri, rj := rules[i], rules[j]
			if ri.Action.Output != rj.Action.Output || len(ri.Conditions) != len(rj.Conditions) {
				continue
			}
			if redundantRule[i] || redundantRule[j] {
				continue
			}
			qi, ivi, ok := region(ri, constants)
			if !ok || ivi.empty() {
				continue
			}
			qj, ivj, ok := region(rj, constants)
			if !ok || ivj.empty() || qi != qj {
				continue
			}
			clearBetween := func() bool { return !claimedBetween(rules, i, j, qi, ivi, constants) }
			if _, redundant := relateOr(ri, rj, ivi, ivj, clearBetween); redundant >= 0 {
				if redundant == 1 {
					redundantRule[j] = true
				} else {
					redundantRule[i] = true
				}
			}
		}
	}

	out := make([]Rule, 0, len(rules))
	deleted := 0
	for i, r := range rules {
		if redundantRule[i] {
			deleted++
			continue
		}
		out = append(out, r)
	}
	return out, deleted
}

// claimedBetween reports whether a rule strictly between i and j targets the
// same output and may fire inside iv. Rules that are not simple intervals on
// q are assumed to.
func claimedBetween(rules []Rule, i, j int, q env.Quantity, iv interval, constants ConstantTable) bool {
	out := rules[i].Action.Output
	for k := i + 1; k < j; k++ {
		rk := rules[k]
		if rk.Action.Output != out {
			continue
		}
		qk, ivk, ok := region(rk, constants)
		if !ok || qk != q || ivk.overlaps(iv) {
			return true
		}
	}
	return false
}

// #endregion cross-rule
