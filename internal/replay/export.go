package replay

import (
	"fmt"

	"github.com/SmartCGMS/core-sub001/internal/config"
	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/model"
	"github.com/SmartCGMS/core-sub001/internal/store"
)

// #region from-store
// FromStore turns a stored version and its audited steps into a fixture. The
// audited gate actions and outputs become the expected results, so replaying
// the fixture checks that the model still behaves as it did when it ran.
func FromStore(v store.ModelVersion, steps []store.StepRecord, g gate.GateConfig) (*Fixture, error) {
	prune := v.Prune
	sessions := make(map[string]bool)
	for _, st := range steps {
		sessions[st.SessionID] = true
	}
	f := &Fixture{
		Description: fmt.Sprintf("version %s, %d audited steps in %d sessions", v.VersionID, len(steps), len(sessions)),
		Model: config.ModelFile{
			Kind:          v.Kind,
			Layout:        v.Layout,
			ConstantScale: v.ConstantScale,
			MaxDepth:      v.MaxDepth,
			Prune:         &prune,
			Genome:        append([]float64(nil), v.Genome...),
		},
		Gate:            g,
		Steps:           make([]FixtureStep, 0, len(steps)),
		ExpectedResults: make([]FixtureExpectedResult, 0, len(steps)),
	}
	for _, st := range steps {
		q, err := st.Quantities()
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", st.ID, err)
		}
		o, err := st.Outputs()
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", st.ID, err)
		}
		f.Steps = append(f.Steps, FixtureStep{StepID: st.ID, Session: st.SessionID, Quantities: q})
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			StepID:  st.ID,
			Action:  st.GateAction,
			Outputs: o,
		})
	}
	return f, nil
}

// #endregion from-store

// #region run-fixture
// Run replays every step, building the fixture's model afresh for each
// session, and compares the results with the expectations.
func (f *Fixture) Run(tolerance float64) ([]ReplayResult, []Mismatch, error) {
	steps, err := f.ToSteps()
	if err != nil {
		return nil, nil, err
	}
	build := func() (*model.Model, error) {
		m, err := f.Model.Build()
		if err != nil {
			return nil, fmt.Errorf("build model: %w", err)
		}
		return m, nil
	}
	results, err := ReplaySessions(build, steps, gate.NewGate(f.Gate))
	if err != nil {
		return nil, nil, err
	}
	return results, Compare(results, f.ExpectedResults, tolerance), nil
}

// #endregion run-fixture
