package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/SmartCGMS/core-sub001/internal/config"
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/gate"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a model, the
// gate it runs behind, the quantities of every step and what each step is
// expected to produce.
type Fixture struct {
	Description     string                  `json:"description"`
	Model           config.ModelFile        `json:"model"`
	Gate            gate.GateConfig         `json:"gate"`
	Steps           []FixtureStep           `json:"steps"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureStep is one step's quantities keyed by name. Steps of the same
// session run through one model; each new session gets a fresh one.
type FixtureStep struct {
	StepID     string             `json:"step_id"`
	Session    string             `json:"session,omitempty"`
	Quantities map[string]float64 `json:"quantities"`
}

// FixtureExpectedResult captures the expected gate action and gated outputs
// for a step.
type FixtureExpectedResult struct {
	StepID  string             `json:"step_id"`
	Action  string             `json:"action"`
	Outputs map[string]float64 `json:"outputs"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture stores f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToStep converts a FixtureStep to a domain Step.
func (fs *FixtureStep) ToStep() (Step, error) {
	quantities, err := ParseQuantities(fs.Quantities)
	if err != nil {
		return Step{}, fmt.Errorf("step %s: %w", fs.StepID, err)
	}
	return Step{StepID: fs.StepID, Session: fs.Session, Quantities: quantities}, nil
}

// ToSteps converts every fixture step.
func (f *Fixture) ToSteps() ([]Step, error) {
	steps := make([]Step, len(f.Steps))
	for i := range f.Steps {
		s, err := f.Steps[i].ToStep()
		if err != nil {
			return nil, err
		}
		steps[i] = s
	}
	return steps, nil
}

// ParseQuantities resolves quantity names.
func ParseQuantities(in map[string]float64) (map[env.Quantity]float64, error) {
	out := make(map[env.Quantity]float64, len(in))
	for name, v := range in {
		q, err := env.ParseQuantity(name)
		if err != nil {
			return nil, err
		}
		out[q] = v
	}
	return out, nil
}

// #endregion fixture-loader
