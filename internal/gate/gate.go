package gate

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/SmartCGMS/core-sub001/internal/env"
)

// #region gate
// Gate checks model outputs against safety limits before delivery.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Config returns the thresholds in force.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Evaluate checks hard vetoes first, then applies the output caps.
// quantities are the values the model was stepped with; a step without a
// glucose value skips the glucose checks. outputs is not modified.
func (g *Gate) Evaluate(quantities map[env.Quantity]float64, outputs map[env.Output]float64) GateDecision {
	var vetoes []VetoSignal

	// --- Hard veto pass ---
	if glucose, ok := quantities[env.Glucose]; ok {
		switch {
		case math.IsNaN(glucose) || math.IsInf(glucose, 0):
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoNonFinite,
				Reason: fmt.Sprintf("glucose reading %v is not finite", glucose),
			})
		case glucose < g.config.SuspendBelow:
			vetoes = append(vetoes, VetoSignal{
				Type:   VetoLowGlucose,
				Reason: fmt.Sprintf("glucose %.2f below suspend threshold %.2f", glucose, g.config.SuspendBelow),
			})
		}
	}

	if len(vetoes) > 0 {
		suspended := make(map[env.Output]float64, len(outputs))
		for o := range outputs {
			suspended[o] = 0
		}
		return GateDecision{
			Action:      ActionSuspend,
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			Outputs:     suspended,
		}
	}

	// --- Soft limits ---
	limited := make(map[env.Output]float64, len(outputs))
	for o, v := range outputs {
		if !(v > 0) {
			v = 0
		}
		if limit, veto, ok := g.limitFor(o); ok && v > limit {
			vetoes = append(vetoes, VetoSignal{
				Type:   veto,
				Reason: fmt.Sprintf("%s %.2f capped at %.2f", o, v, limit),
			})
			v = limit
		}
		limited[o] = v
	}

	if len(vetoes) > 0 {
		// map iteration order must not leak into decisions
		slices.SortFunc(vetoes, func(a, b VetoSignal) int { return cmp.Compare(a.Type, b.Type) })
		return GateDecision{
			Action:      ActionLimit,
			Reason:      fmt.Sprintf("limited: %s", vetoes[0].Reason),
			VetoSignals: vetoes,
			Outputs:     limited,
		}
	}
	return GateDecision{
		Action:  ActionPass,
		Reason:  "within limits",
		Outputs: limited,
	}
}

// #endregion gate

// #region helpers
func (g *Gate) limitFor(o env.Output) (float64, VetoType, bool) {
	switch o {
	case env.BasalRate:
		return g.config.MaxBasal, VetoBasalCap, true
	case env.Bolus:
		return g.config.MaxBolus, VetoBolusCap, true
	}
	return 0, "", false
}

// #endregion helpers
