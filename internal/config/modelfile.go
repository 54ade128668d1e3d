package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/model"
)

// ModelFile is a genome together with the settings it was evolved under.
// JSON files parse too, since JSON is valid YAML.
type ModelFile struct {
	Kind          string       `yaml:"kind" json:"kind" validate:"oneof=rules logic arith"`
	Layout        codon.Layout `yaml:"layout" json:"layout"`
	ConstantScale float64      `yaml:"constant_scale" json:"constant_scale" validate:"gte=0"`
	MaxDepth      int          `yaml:"max_depth" json:"max_depth" validate:"gte=0"`
	Prune         *bool        `yaml:"prune,omitempty" json:"prune,omitempty"`
	Genome        []float64    `yaml:"genome" json:"genome" validate:"required,min=1,dive,gte=0,lte=1"`
}

// LoadModelFile reads and validates a model definition.
func LoadModelFile(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}
	var mf ModelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}
	if err := validate.Struct(&mf); err != nil {
		return nil, fmt.Errorf("invalid model file %s: %w", path, err)
	}
	return &mf, nil
}

// ModelConfig converts the file into decode settings. Prune defaults to on.
func (mf *ModelFile) ModelConfig() model.Config {
	cfg := model.DefaultConfig(mf.Layout)
	cfg.ConstantScale = mf.ConstantScale
	cfg.MaxDepth = mf.MaxDepth
	if mf.Prune != nil {
		cfg.Prune = *mf.Prune
	}
	return cfg
}

// Build decodes the file into a model.
func (mf *ModelFile) Build(opts ...model.Option) (*model.Model, error) {
	kind, err := model.ParseKind(mf.Kind)
	if err != nil {
		return nil, err
	}
	return model.New(kind, mf.Genome, mf.ModelConfig(), opts...)
}
