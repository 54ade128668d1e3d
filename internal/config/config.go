// Package config loads controller settings and model definition files.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/eval"
	"github.com/SmartCGMS/core-sub001/internal/gate"
	"github.com/SmartCGMS/core-sub001/internal/model"
	"github.com/SmartCGMS/core-sub001/internal/signals"
)

// #region types
// Config is the controller process configuration.
type Config struct {
	DBPath      string `yaml:"db_path" validate:"required"`
	GRPCAddr    string `yaml:"grpc_addr" validate:"required"`
	MetricsAddr string `yaml:"metrics_addr"` // empty disables /metrics
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogJSON     bool   `yaml:"log_json"`

	Model   ModelConfig        `yaml:"model"`
	Gate    gate.GateConfig    `yaml:"gate"`
	Signals signals.FeedConfig `yaml:"signals"`
	Eval    eval.EvalConfig    `yaml:"eval"`
}

// ModelConfig selects the grammar and decode settings for new models.
type ModelConfig struct {
	Kind         string `yaml:"kind" validate:"oneof=rules logic arith"`
	model.Config `yaml:",inline"`
}

// #endregion types

// #region defaults
// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	mc := model.DefaultConfig(codon.Layout{Slots: 16, SlotWidth: 6, Constants: 8})
	mc.ConstantScale = 20 // constants span 0..20 mmol/L
	return &Config{
		DBPath:      "glucoctl.db",
		GRPCAddr:    "localhost:50061",
		MetricsAddr: "localhost:9464",
		LogLevel:    "info",
		Model:       ModelConfig{Kind: string(model.KindRules), Config: mc},
		Gate:        gate.DefaultGateConfig(),
		Signals:     signals.DefaultFeedConfig(),
		Eval:        eval.DefaultEvalConfig(),
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GLUCOCTL_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("GLUCOCTL_ADDR"); v != "" {
		c.GRPCAddr = v
	}
	if v, ok := os.LookupEnv("GLUCOCTL_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v := os.Getenv("GLUCOCTL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// #endregion load

// #region validate
var validate = validator.New()

// Validate checks every tagged field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion validate
