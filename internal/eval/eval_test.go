package eval

import (
	"testing"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/model"
)

// basalOnly decodes to "if glucose > 8 then basal_rate = 2.5".
var basalOnly = []float64{
	0.6, 0.25, 0.15, 0.25, 0, 0,
	0.1, 0, 0, 0, 0, 0,
	0.8, 0.2,
}

// alwaysBolus adds "always bolus = 5" after the basal rule.
var alwaysBolus = []float64{
	0.6, 0.25, 0.15, 0.25, 0, 0,
	0.3, 0.75, 0, 0, 0, 0,
	0.8, 0.2,
}

func build(t *testing.T, genome []float64) *model.Model {
	t.Helper()
	cfg := model.DefaultConfig(codon.Layout{Slots: 2, SlotWidth: 6, Constants: 2})
	cfg.ConstantScale = 10
	m, err := model.New(model.KindRules, genome, cfg)
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return m
}

func metric(t *testing.T, r EvalResult, name string) EvalMetric {
	t.Helper()
	for _, m := range r.Metrics {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("metric %s missing", name)
	return EvalMetric{}
}

func TestEvalPassesBasalOnlyModel(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(build(t, basalOnly))

	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if result.Probes != 41 {
		t.Errorf("expected 41 probes, got %d", result.Probes)
	}
	if got := metric(t, result, "basal_peak").Value; got != 2.5 {
		t.Errorf("expected basal peak 2.5, got %v", got)
	}
	// glucose 9..22 up and 22..9 down
	if got := metric(t, result, "responsive_probes").Value; got != 27 {
		t.Errorf("expected 27 responsive probes, got %v", got)
	}
}

func TestEvalFailsOnHypoInsulin(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(build(t, alwaysBolus))

	if result.Passed {
		t.Fatal("expected fail for a model that always boluses")
	}
	m := metric(t, result, "hypo_insulin")
	if m.Pass || m.Value != 5 {
		t.Errorf("expected failing hypo_insulin of 5, got %+v", m)
	}
}

func TestEvalPeaksAreInformational(t *testing.T) {
	config := DefaultEvalConfig()
	config.MaxBasal = 1.0
	h := NewEvalHarness(config)

	result := h.Run(build(t, basalOnly))

	if !result.Passed {
		t.Fatalf("expected pass despite basal peak, got fail: %s", result.Reason)
	}
	if metric(t, result, "basal_peak").Pass {
		t.Error("expected basal_peak to be flagged")
	}
}

func TestProbesSweepUpAndDown(t *testing.T) {
	h := NewEvalHarness(EvalConfig{ProbeLow: 2, ProbeHigh: 4, ProbeStep: 1})
	got := h.Probes()
	want := []float64{2, 3, 4, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestProbesDegenerateConfig(t *testing.T) {
	h := NewEvalHarness(EvalConfig{ProbeLow: 5, ProbeHigh: 4, ProbeStep: 1})
	if got := h.Probes(); len(got) != 1 || got[0] != 5 {
		t.Fatalf("expected single probe at 5, got %v", got)
	}
}
