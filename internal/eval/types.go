package eval

// #region eval-config
// EvalConfig holds the acceptance thresholds for a candidate model.
type EvalConfig struct {
	ProbeLow  float64 `yaml:"probe_low" json:"probe_low" validate:"gte=0"`              // mmol/L, first probe
	ProbeHigh float64 `yaml:"probe_high" json:"probe_high" validate:"gtfield=ProbeLow"` // mmol/L, turning point
	ProbeStep float64 `yaml:"probe_step" json:"probe_step" validate:"gt=0"`             // mmol/L between probes
	HypoBelow float64 `yaml:"hypo_below" json:"hypo_below" validate:"gte=0"`            // reject any insulin below this
	MaxBasal  float64 `yaml:"max_basal" json:"max_basal" validate:"gt=0"`               // warn above this, U/h
	MaxBolus  float64 `yaml:"max_bolus" json:"max_bolus" validate:"gt=0"`               // warn above this, U
}

// DefaultEvalConfig sweeps 2..22 mmol/L and back in 1 mmol/L steps.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		ProbeLow:  2.0,
		ProbeHigh: 22.0,
		ProbeStep: 1.0,
		HypoBelow: 3.9,
		MaxBasal:  5.0,
		MaxBolus:  10.0,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of candidate validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
	Probes  int
}

// #endregion eval-result
