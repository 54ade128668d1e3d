package store

import (
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/logging"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleVersion() ModelVersion {
	return ModelVersion{
		Kind:          "rules",
		Layout:        codon.Layout{Slots: 2, SlotWidth: 6, Constants: 2},
		ConstantScale: 20,
		MaxDepth:      6,
		Prune:         true,
		Genome:        []float64{0.6, 0.25, 0.15, 0.25, 0, 0, 0.3, 0.75, 0, 0, 0, 0, 0.8, 0.2},
		Transcript:    "if glucose > 16.00 then basal_rate = 2.50\nalways bolus = 5.00",
		RuleCount:     2,
	}
}

func TestSaveAndGetActive(t *testing.T) {
	s := tempDB(t)

	saved, err := s.SaveModel(sampleVersion(), true)
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	if saved.VersionID == "" {
		t.Fatal("expected non-empty version ID")
	}

	cur, err := s.GetActive()
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if diff := cmp.Diff(saved, cur); diff != "" {
		t.Fatalf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestGenomeRoundTripIsBitExact(t *testing.T) {
	original := []float64{0, 1, math.Nextafter(1, 0), 1e-300, 0.1 + 0.2}
	decoded := decodeGenome(encodeGenome(original))
	if len(decoded) != len(original) {
		t.Fatalf("length %d != %d", len(decoded), len(original))
	}
	for i := range original {
		if math.Float64bits(original[i]) != math.Float64bits(decoded[i]) {
			t.Fatalf("mismatch at %d: %v != %v", i, original[i], decoded[i])
		}
	}
}

func TestActivateSwitchesVersion(t *testing.T) {
	s := tempDB(t)

	v1, err := s.SaveModel(sampleVersion(), true)
	if err != nil {
		t.Fatalf("save v1: %v", err)
	}
	next := sampleVersion()
	next.ParentID = v1.VersionID
	next.Kind = "logic"
	v2, err := s.SaveModel(next, false)
	if err != nil {
		t.Fatalf("save v2: %v", err)
	}

	cur, _ := s.GetActive()
	if cur.VersionID != v1.VersionID {
		t.Fatalf("saving without activate moved the pointer to %s", cur.VersionID)
	}

	if err := s.Activate(v2.VersionID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	cur, err = s.GetActive()
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if cur.VersionID != v2.VersionID || cur.ParentID != v1.VersionID {
		t.Fatalf("unexpected active version %+v", cur)
	}
}

func TestActivateNonExistent(t *testing.T) {
	s := tempDB(t)
	err := s.Activate("no-such-version")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetActiveEmpty(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetActive()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetVersion("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListVersionsNewestFirst(t *testing.T) {
	s := tempDB(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := sampleVersion()
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		saved, err := s.SaveModel(rec, false)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, saved.VersionID)
	}

	list, err := s.ListVersions(2)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(list))
	}
	if list[0].VersionID != ids[2] || list[1].VersionID != ids[1] {
		t.Fatalf("unexpected order: %s, %s", list[0].VersionID, list[1].VersionID)
	}
}

func TestListStepsReadsAuditTrail(t *testing.T) {
	s := tempDB(t)
	v, err := s.SaveModel(sampleVersion(), true)
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	for i, action := range []string{"pass", "suspend"} {
		_, err := logging.LogStep(s.DB(), logging.StepEntry{
			VersionID:  v.VersionID,
			Quantities: map[string]float64{"glucose": 5 + float64(i)},
			Outputs:    map[string]float64{"basal_rate": 1},
			GateAction: action,
			CreatedAt:  base.Add(time.Duration(i) * 5 * time.Minute),
		})
		if err != nil {
			t.Fatalf("LogStep: %v", err)
		}
	}

	steps, err := s.ListSteps(v.VersionID, 0)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].GateAction != "pass" || steps[1].GateAction != "suspend" {
		t.Fatalf("unexpected order: %s, %s", steps[0].GateAction, steps[1].GateAction)
	}
	if steps[0].QuantitiesJSON != `{"glucose":5}` {
		t.Fatalf("unexpected quantities %s", steps[0].QuantitiesJSON)
	}
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestOperationsOnClosedDB(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.Close()

	if _, err := s.SaveModel(sampleVersion(), true); err == nil {
		t.Error("expected SaveModel error on closed DB")
	}
	if _, err := s.GetActive(); err == nil {
		t.Error("expected GetActive error on closed DB")
	}
	if _, err := s.ListVersions(10); err == nil {
		t.Error("expected ListVersions error on closed DB")
	}
}

func TestMigrateInMemory(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	s := NewStoreWithDB(db)
	if _, err := s.SaveModel(sampleVersion(), true); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
}

func TestListStepsKeepsSessions(t *testing.T) {
	s := tempDB(t)
	v, err := s.SaveModel(sampleVersion(), true)
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	for _, session := range []string{"run-1", ""} {
		if _, err := logging.LogStep(s.DB(), logging.StepEntry{
			VersionID:  v.VersionID,
			SessionID:  session,
			GateAction: "pass",
		}); err != nil {
			t.Fatalf("LogStep: %v", err)
		}
	}

	steps, err := s.ListSteps(v.VersionID, 0)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 2 || steps[0].SessionID != "run-1" || steps[1].SessionID != "" {
		t.Fatalf("unexpected sessions %+v", steps)
	}
}

func TestMigrateAddsSessionColumn(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	// step_log as written before session ids existed
	_, err = db.Exec(`CREATE TABLE step_log (
		id              TEXT PRIMARY KEY,
		version_id      TEXT NOT NULL,
		quantities_json TEXT NOT NULL,
		outputs_json    TEXT NOT NULL,
		gate_action     TEXT NOT NULL,
		reason          TEXT,
		created_at      TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create old table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO step_log VALUES ('old', 'v1', '{}', '{}', 'pass', NULL, '2026-01-01T00:00:00.000000000Z')`); err != nil {
		t.Fatalf("insert old row: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := Migrate(db); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	steps, err := NewStoreWithDB(db).ListSteps("v1", 0)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 1 || steps[0].SessionID != "" {
		t.Fatalf("unexpected steps %+v", steps)
	}
}
