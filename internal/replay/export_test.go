package replay

import (
	"path/filepath"
	"testing"

	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/logging"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

// TestFromStore_AuditedSessionReplaysClean audits a few steps the way the
// controller does, exports them and replays the export.
func TestFromStore_AuditedSessionReplaysClean(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	m := rulesModel(t)
	genome := []float64{0.6, 0.25, 0.15, 0.25, 0, 0, 0.3, 0.75, 0, 0, 0, 0, 0.8, 0.2}
	v, err := s.SaveModel(store.NewVersion(m, genome, ""), true)
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	g := gate.NewGate(gate.DefaultGateConfig())
	session := glucoseSteps(12, 3, 6)
	for i, r := range Replay(m, session, g) {
		if _, err := logging.LogStep(s.DB(), logging.StepEntry{
			VersionID:  v.VersionID,
			Quantities: map[string]float64{"glucose": session[i].Quantities[env.Glucose]},
			Outputs:    r.Outputs(),
			GateAction: r.Action,
			Reason:     r.Reason,
		}); err != nil {
			t.Fatalf("LogStep: %v", err)
		}
	}

	steps, err := s.ListSteps(v.VersionID, 0)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	f, err := FromStore(v, steps, gate.DefaultGateConfig())
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if len(f.Steps) != 3 || f.ExpectedResults[1].Action != "suspend" {
		t.Fatalf("unexpected fixture: %+v", f)
	}

	_, mismatches, err := f.Run(1e-9)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, mm := range mismatches {
		t.Errorf("%s", mm)
	}
}

// TestFromStore_SessionsReplayOnFreshModels audits two sessions, each on its
// own model. The second session starts without a glucose reading, so carrying
// the first session's model over would fire the basal rule.
func TestFromStore_SessionsReplayOnFreshModels(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	genome := []float64{0.6, 0.25, 0.15, 0.25, 0, 0, 0.3, 0.75, 0, 0, 0, 0, 0.8, 0.2}
	v, err := s.SaveModel(store.NewVersion(rulesModel(t), genome, ""), true)
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	g := gate.NewGate(gate.DefaultGateConfig())
	sessions := []struct {
		id    string
		input map[string]float64
	}{
		{"run-1", map[string]float64{"glucose": 12}},
		{"run-2", map[string]float64{}},
	}
	for _, sess := range sessions {
		q, err := ParseQuantities(sess.input)
		if err != nil {
			t.Fatalf("ParseQuantities: %v", err)
		}
		r := Replay(rulesModel(t), []Step{{Quantities: q}}, g)[0]
		if _, err := logging.LogStep(s.DB(), logging.StepEntry{
			VersionID:  v.VersionID,
			SessionID:  sess.id,
			Quantities: sess.input,
			Outputs:    r.Outputs(),
			GateAction: r.Action,
			Reason:     r.Reason,
		}); err != nil {
			t.Fatalf("LogStep: %v", err)
		}
	}

	steps, err := s.ListSteps(v.VersionID, 0)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	f, err := FromStore(v, steps, gate.DefaultGateConfig())
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if f.Steps[0].Session != "run-1" || f.Steps[1].Session != "run-2" {
		t.Fatalf("sessions not exported: %+v", f.Steps)
	}
	if got := f.ExpectedResults[1].Outputs["basal_rate"]; got != 0 {
		t.Fatalf("expected second session basal 0, got %v", got)
	}

	_, mismatches, err := f.Run(1e-9)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, mm := range mismatches {
		t.Errorf("%s", mm)
	}

	// one continuous model carries glucose 12 into the second session
	for i := range f.Steps {
		f.Steps[i].Session = ""
	}
	_, mismatches, err = f.Run(1e-9)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].Field != "basal_rate" {
		t.Fatalf("expected one basal_rate mismatch, got %v", mismatches)
	}
}

// TestFixture_RunDetectsDrift flips one expected action.
func TestFixture_RunDetectsDrift(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "rules_session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	f.ExpectedResults[0].Action = "limit"
	_, mismatches, err := f.Run(1e-9)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].Field != "action" {
		t.Fatalf("expected one action mismatch, got %v", mismatches)
	}
}
