package replay

import (
	"fmt"
	"math"
	"sort"

	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/model"
)

// #region types
// Step is one recorded set of quantities.
type Step struct {
	StepID     string
	Session    string
	Quantities map[env.Quantity]float64
}

// ReplayResult captures the outcome of running one step through the model
// and the gate.
type ReplayResult struct {
	StepID   string
	Action   string // "pass" | "limit" | "suspend"
	Reason   string
	Raw      map[env.Output]float64
	Decision gate.GateDecision
}

// Outputs returns the gated outputs keyed by name.
func (r ReplayResult) Outputs() map[string]float64 {
	out := make(map[string]float64, len(r.Decision.Outputs))
	for o, v := range r.Decision.Outputs {
		out[o.String()] = v
	}
	return out
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Passes     int
	Limits     int
	Suspends   int
	Vetoes     map[string]int
	// Delivered sums each gated output across the run.
	Delivered map[string]float64
}

// Mismatch is one difference between a replayed step and its expectation.
type Mismatch struct {
	StepID string
	Field  string
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("step %s: %s want %s, got %s", m.StepID, m.Field, m.Want, m.Got)
}

// #endregion types

// #region replay
// Replay runs every step through m and then g, in order. The model keeps its
// state between steps, so m should be freshly built. Sessions are ignored.
func Replay(m *model.Model, steps []Step, g *gate.Gate) []ReplayResult {
	results := make([]ReplayResult, 0, len(steps))
	for _, s := range steps {
		results = append(results, replayStep(m, s, g))
	}
	return results
}

// ReplaySessions runs each session through its own model from build, created
// at the session's first step. Results keep the order of steps, so sessions
// may interleave.
func ReplaySessions(build func() (*model.Model, error), steps []Step, g *gate.Gate) ([]ReplayResult, error) {
	models := make(map[string]*model.Model)
	results := make([]ReplayResult, 0, len(steps))
	for _, s := range steps {
		m, ok := models[s.Session]
		if !ok {
			var err error
			if m, err = build(); err != nil {
				return nil, fmt.Errorf("session %q: %w", s.Session, err)
			}
			models[s.Session] = m
		}
		results = append(results, replayStep(m, s, g))
	}
	return results, nil
}

func replayStep(m *model.Model, s Step, g *gate.Gate) ReplayResult {
	raw := m.Step(s.Quantities)
	decision := g.Evaluate(s.Quantities, raw)
	return ReplayResult{
		StepID:   s.StepID,
		Action:   string(decision.Action),
		Reason:   decision.Reason,
		Raw:      raw,
		Decision: decision,
	}
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(results),
		Vetoes:     make(map[string]int),
		Delivered:  make(map[string]float64),
	}
	for _, r := range results {
		switch gate.Action(r.Action) {
		case gate.ActionPass:
			s.Passes++
		case gate.ActionLimit:
			s.Limits++
		case gate.ActionSuspend:
			s.Suspends++
		}
		for _, v := range r.Decision.VetoTypes() {
			s.Vetoes[v]++
		}
		for name, v := range r.Outputs() {
			s.Delivered[name] += v
		}
	}
	return s
}

// #endregion replay

// #region compare
// Compare checks results against expected, step by step. Outputs match when
// they differ by at most tolerance; outputs missing from an expectation are
// not checked.
func Compare(results []ReplayResult, expected []FixtureExpectedResult, tolerance float64) []Mismatch {
	var out []Mismatch
	if len(results) != len(expected) {
		out = append(out, Mismatch{
			Field: "step count",
			Want:  fmt.Sprint(len(expected)),
			Got:   fmt.Sprint(len(results)),
		})
	}
	for i := 0; i < min(len(results), len(expected)); i++ {
		got, want := results[i], expected[i]
		id := want.StepID
		if id == "" {
			id = fmt.Sprint(i)
		}
		if want.StepID != "" && got.StepID != want.StepID {
			out = append(out, Mismatch{StepID: id, Field: "step_id", Want: want.StepID, Got: got.StepID})
		}
		if want.Action != "" && got.Action != want.Action {
			out = append(out, Mismatch{StepID: id, Field: "action", Want: want.Action, Got: got.Action})
		}
		gotOutputs := got.Outputs()
		names := make([]string, 0, len(want.Outputs))
		for name := range want.Outputs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			w := want.Outputs[name]
			g, ok := gotOutputs[name]
			if !ok || math.Abs(g-w) > tolerance {
				out = append(out, Mismatch{
					StepID: id,
					Field:  name,
					Want:   fmt.Sprintf("%.4f", w),
					Got:    fmt.Sprintf("%.4f", g),
				})
			}
		}
	}
	return out
}

// #endregion compare
