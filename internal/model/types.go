package model

import (
	"errors"
	"fmt"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/expr"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

// #region errors
var (
	// ErrUnknownKind is returned for a grammar name that is not registered.
	ErrUnknownKind = errors.New("unknown model kind")
	// ErrLayout is returned when a layout does not suit its grammar.
	ErrLayout = errors.New("invalid layout")
)

// #endregion errors

// #region kind
// Kind names the grammar a genome is decoded with.
type Kind string

const (
	KindRules Kind = "rules"
	KindLogic Kind = "logic"
	KindArith Kind = "arith"
)

// Kinds lists every grammar.
func Kinds() []Kind {
	return []Kind{KindRules, KindLogic, KindArith}
}

// ParseKind resolves a grammar by name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
}

// #endregion kind

// #region config
// Config controls how a genome is decoded.
type Config struct {
	Layout        codon.Layout `yaml:"layout" json:"layout"`
	ConstantScale float64      `yaml:"constant_scale" json:"constant_scale" validate:"gte=0"`
	MaxDepth      int          `yaml:"max_depth" json:"max_depth" validate:"gte=0"`
	Prune         bool         `yaml:"prune" json:"prune"`
}

// DefaultConfig returns a config that keeps constants verbatim, uses the
// default expression depth and prunes rule programs.
func DefaultConfig(l codon.Layout) Config {
	return Config{
		Layout:        l,
		ConstantScale: 1,
		MaxDepth:      expr.DefaultMaxDepth,
		Prune:         true,
	}
}

// #endregion config

// #region program
// Program is what every grammar decodes into.
type Program interface {
	Eval(ctx *env.Context)
	Transcribe(ctx *env.Context, out *transcript.Transcript)
}

// #endregion program
