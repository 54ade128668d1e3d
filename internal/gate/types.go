package gate

import "github.com/SmartCGMS/core-sub001/internal/env"

// #region action
// Action is the gate's verdict on one step.
type Action string

const (
	ActionPass    Action = "pass"
	ActionLimit   Action = "limit"
	ActionSuspend Action = "suspend"
)

// #endregion action

// #region veto-type
// VetoType enumerates veto categories.
type VetoType string

const (
	VetoLowGlucose VetoType = "low_glucose"
	VetoNonFinite  VetoType = "non_finite_glucose"
	VetoBasalCap   VetoType = "basal_cap"
	VetoBolusCap   VetoType = "bolus_cap"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds the safety thresholds.
type GateConfig struct {
	SuspendBelow float64 `yaml:"suspend_below" json:"suspend_below" validate:"gte=0"` // mmol/L
	MaxBasal     float64 `yaml:"max_basal" json:"max_basal" validate:"gt=0"`         // U/h
	MaxBolus     float64 `yaml:"max_bolus" json:"max_bolus" validate:"gt=0"`         // U
}

// DefaultGateConfig suspends below the hypoglycaemia threshold and caps
// outputs at the top of each action range.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		SuspendBelow: 3.9,
		MaxBasal:     5.0,
		MaxBolus:     10.0,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      Action
	Reason      string
	Vetoed      bool         // a hard veto suspended insulin
	VetoSignals []VetoSignal // hard vetoes and applied limits
	Outputs     map[env.Output]float64
}

// VetoTypes lists the veto types as strings, in order.
func (d GateDecision) VetoTypes() []string {
	out := make([]string, len(d.VetoSignals))
	for i, v := range d.VetoSignals {
		out[i] = string(v.Type)
	}
	return out
}

// #endregion gate-decision
