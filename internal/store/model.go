package store

import (
	"encoding/json"
	"fmt"

	"github.com/SmartCGMS/core-sub001/internal/model"
)

// #region model-bridge
// NewVersion describes m, decoded from genome, as a record ready for SaveModel.
func NewVersion(m *model.Model, genome []float64, parentID string) ModelVersion {
	cfg := m.Config()
	return ModelVersion{
		ParentID:      parentID,
		Kind:          string(m.Kind()),
		Layout:        cfg.Layout,
		ConstantScale: cfg.ConstantScale,
		MaxDepth:      cfg.MaxDepth,
		Prune:         cfg.Prune,
		Genome:        append([]float64(nil), genome...),
		Transcript:    m.Transcript().Format(),
		RuleCount:     m.RuleCount(),
	}
}

// ModelConfig returns the decode settings the version was saved with.
func (v ModelVersion) ModelConfig() model.Config {
	return model.Config{
		Layout:        v.Layout,
		ConstantScale: v.ConstantScale,
		MaxDepth:      v.MaxDepth,
		Prune:         v.Prune,
	}
}

// Build decodes the stored genome into a fresh model.
func (v ModelVersion) Build(opts ...model.Option) (*model.Model, error) {
	kind, err := model.ParseKind(v.Kind)
	if err != nil {
		return nil, err
	}
	return model.New(kind, v.Genome, v.ModelConfig(), opts...)
}

// #endregion model-bridge

// #region step-decode
// Quantities decodes the audited quantities, keyed by name.
func (r StepRecord) Quantities() (map[string]float64, error) {
	return decodeValues(r.QuantitiesJSON)
}

// Outputs decodes the audited gated outputs, keyed by name.
func (r StepRecord) Outputs() (map[string]float64, error) {
	return decodeValues(r.OutputsJSON)
}

func decodeValues(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode step values: %w", err)
	}
	return out, nil
}

// #endregion step-decode
