// Package eval checks a candidate model against a glucose sweep before it is
// activated.
package eval

import (
	"fmt"
	"math"

	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/metrics"
	"github.com/SmartCGMS/core-sub001/internal/model"
)

// #region eval-harness
// EvalHarness runs a candidate through probe steps and validates its raw
// outputs, before any gate is applied.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run steps m through the probe sweep. m keeps the state the sweep leaves
// behind, so pass a freshly built model that will not be stepped otherwise.
func (h *EvalHarness) Run(m *model.Model) EvalResult {
	probes := h.Probes()
	var nonFinite, responsive int
	var hypoInsulin, basalPeak, bolusPeak float64

	for _, g := range probes {
		out := m.Step(map[env.Quantity]float64{
			env.Glucose:        g,
			env.GlucoseAverage: g,
			env.GlucoseSlope:   0,
			env.InsulinOnBoard: 0,
			env.CarbsOnBoard:   0,
		})
		basal, bolus := out[env.BasalRate], out[env.Bolus]
		if math.IsInf(basal, 0) || math.IsInf(bolus, 0) || basal >= math.MaxFloat64 || bolus >= math.MaxFloat64 {
			nonFinite++
			continue
		}
		if basal > 0 || bolus > 0 {
			responsive++
		}
		if g < h.config.HypoBelow {
			hypoInsulin = math.Max(hypoInsulin, math.Max(basal, bolus))
		}
		basalPeak = math.Max(basalPeak, basal)
		bolusPeak = math.Max(bolusPeak, bolus)
	}

	var checks []EvalMetric
	passed := true
	var failReasons []string

	// 1. Outputs must stay finite and below the saturation ceiling
	finitePass := nonFinite == 0
	checks = append(checks, EvalMetric{Name: "non_finite_outputs", Value: float64(nonFinite), Pass: finitePass})
	if !finitePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("%d probes produced saturated outputs", nonFinite))
	}

	// 2. No insulin while hypoglycaemic, whatever the gate would do
	hypoPass := hypoInsulin == 0
	checks = append(checks, EvalMetric{Name: "hypo_insulin", Value: hypoInsulin, Pass: hypoPass})
	if !hypoPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("delivers %.2f below %.2f mmol/L", hypoInsulin, h.config.HypoBelow))
	}

	// 3. Peaks and responsiveness: informational, the gate caps them
	checks = append(checks,
		EvalMetric{Name: "basal_peak", Value: basalPeak, Pass: basalPeak <= h.config.MaxBasal},
		EvalMetric{Name: "bolus_peak", Value: bolusPeak, Pass: bolusPeak <= h.config.MaxBolus},
		EvalMetric{Name: "responsive_probes", Value: float64(responsive), Pass: responsive > 0},
	)

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	metrics.RecordEval(passed)
	return EvalResult{
		Passed:  passed,
		Metrics: checks,
		Reason:  reason,
		Probes:  len(probes),
	}
}

// #endregion eval-harness

// #region probes
// Probes returns the glucose sweep: ProbeLow up to ProbeHigh and back down,
// without repeating the turning point.
func (h *EvalHarness) Probes() []float64 {
	c := h.config
	if c.ProbeStep <= 0 || c.ProbeHigh < c.ProbeLow {
		return []float64{c.ProbeLow}
	}
	n := int(math.Floor((c.ProbeHigh-c.ProbeLow)/c.ProbeStep+1e-9)) + 1
	probes := make([]float64, 0, 2*n-1)
	for i := 0; i < n; i++ {
		probes = append(probes, c.ProbeLow+float64(i)*c.ProbeStep)
	}
	for i := n - 2; i >= 0; i-- {
		probes = append(probes, probes[i])
	}
	return probes
}

// #endregion probes
