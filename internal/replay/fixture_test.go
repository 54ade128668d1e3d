package replay

import (
	"path/filepath"
	"testing"

	"github.com/SmartCGMS/core-sub001/internal/gate"
)

// #region fixture-tests

// TestFixture_RulesSession loads the rules_session fixture, replays it and
// compares every step against the expected action and outputs.
func TestFixture_RulesSession(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "rules_session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	m, err := f.Model.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	steps, err := f.ToSteps()
	if err != nil {
		t.Fatalf("ToSteps: %v", err)
	}

	results := Replay(m, steps, gate.NewGate(f.Gate))
	for _, mm := range Compare(results, f.ExpectedResults, 1e-9) {
		t.Errorf("%s", mm)
	}
}

func TestFixture_RoundTrip(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "rules_session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "copy.json")
	if err := WriteFixture(path, f); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	g, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture copy: %v", err)
	}
	if g.Description != f.Description || len(g.Steps) != len(f.Steps) || len(g.Model.Genome) != len(f.Model.Genome) {
		t.Fatalf("round trip changed fixture: %+v", g)
	}
}

func TestFixture_UnknownQuantity(t *testing.T) {
	f := &Fixture{Steps: []FixtureStep{{StepID: "bad", Quantities: map[string]float64{"ketones": 1}}}}
	if _, err := f.ToSteps(); err == nil {
		t.Fatal("expected error for unknown quantity")
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

// #endregion fixture-tests
