// Package model turns a genome into a runnable controller.
package model

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SmartCGMS/core-sub001/internal/arith"
	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
	"github.com/SmartCGMS/core-sub001/internal/logic"
	"github.com/SmartCGMS/core-sub001/internal/metrics"
	"github.com/SmartCGMS/core-sub001/internal/rules"
	"github.com/SmartCGMS/core-sub001/internal/transcript"
)

// #region options
type options struct {
	logger *zap.Logger
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger used for decode summaries.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// #endregion options

// #region model
// Model is a decoded program bound to its own evaluation context. It is not
// safe for concurrent use.
type Model struct {
	kind    Kind
	config  Config
	ctx     *env.Context
	program Program
	stats   codon.DecodeStats
	report  *rules.Report
}

// New decodes genome with the grammar for kind. The constant region is loaded
// into a fresh context first, so every grammar sees the same constants.
func New(kind Kind, genome []float64, cfg Config, opts ...Option) (m *Model, err error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	defer func() { metrics.RecordDecode(string(kind), err) }()

	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if cfg.Layout.Slots < 1 || cfg.Layout.SlotWidth < 1 || cfg.Layout.Constants < 0 {
		return nil, fmt.Errorf("slots=%d slot_width=%d constants=%d: %w",
			cfg.Layout.Slots, cfg.Layout.SlotWidth, cfg.Layout.Constants, ErrLayout)
	}
	g, err := codon.NewGenome(genome)
	if err != nil {
		return nil, fmt.Errorf("new genome: %w", err)
	}
	constants, err := g.Constants(cfg.Layout)
	if err != nil {
		return nil, fmt.Errorf("load constants: %w", err)
	}
	scale := cfg.ConstantScale
	if scale == 0 {
		scale = 1
	}

	m = &Model{kind: kind, config: cfg, ctx: env.NewContext(constants, scale)}
	if err := m.decode(g); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	metrics.RecordSlots(string(kind), m.stats.Produced, m.stats.NoOps, m.stats.Failed)
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.Int("slots", m.stats.Slots),
		zap.Int("produced", m.stats.Produced),
		zap.Int("noops", m.stats.NoOps),
		zap.Int("failed", m.stats.Failed),
	}
	if m.report != nil {
		fields = append(fields,
			zap.Int("prune_passes", m.report.Passes),
			zap.Int("rules_after_prune", m.report.RulesAfter))
	}
	o.logger.Debug("model decoded", fields...)
	return m, nil
}

func (m *Model) decode(g codon.Genome) error {
	switch m.kind {
	case KindRules:
		p, stats, err := rules.Decode(g, m.config.Layout)
		if err != nil {
			return layoutError(err)
		}
		m.stats = stats
		if m.config.Prune {
			pruned, rep := rules.Prune(p, m.ctx)
			recordPrune(rep)
			p, m.report = pruned, &rep
		}
		m.program = p
	case KindLogic:
		p, stats, err := logic.Decode(g, m.config.Layout, m.config.MaxDepth)
		if err != nil {
			return layoutError(err)
		}
		m.program, m.stats = p, stats
	case KindArith:
		p, stats, err := arith.Decode(g, m.config.Layout, m.config.MaxDepth)
		if err != nil {
			return layoutError(err)
		}
		m.program, m.stats = p, stats
	}
	return nil
}

// layoutError tags grammar-level layout rejections with ErrLayout.
func layoutError(err error) error {
	for _, target := range []error{rules.ErrSlotWidth, logic.ErrSlotWidth, arith.ErrSlots} {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrLayout, err)
		}
	}
	return err
}

func recordPrune(rep rules.Report) {
	metrics.RecordPrune("self_conflict", rep.SelfConflicts)
	metrics.RecordPrune("collapsed", rep.Collapsed)
	metrics.RecordPrune("contradiction", rep.Contradictions)
	metrics.RecordPrune("cross_rule_deleted", rep.CrossRuleDeleted)
}

// #endregion model

// #region step
// Step pushes the given quantities, evaluates the program and returns every
// output. Quantities not in the map keep their previous value; outputs start
// from zero on every step.
func (m *Model) Step(quantities map[env.Quantity]float64) map[env.Output]float64 {
	start := time.Now()
	for q, v := range quantities {
		m.ctx.SetQuantity(q, v)
	}
	m.ctx.ResetOutputs()
	m.program.Eval(m.ctx)
	metrics.ObserveStep(string(m.kind), time.Since(start).Seconds())
	return m.ctx.OutputMap()
}

// #endregion step

// #region accessors
// Transcript renders the decoded program with constants resolved.
func (m *Model) Transcript() transcript.Transcript {
	var t transcript.Transcript
	m.program.Transcribe(m.ctx, &t)
	return t
}

func (m *Model) Kind() Kind { return m.kind }

func (m *Model) Layout() codon.Layout { return m.config.Layout }

// Config returns the settings the model was built with.
func (m *Model) Config() Config { return m.config }

// DecodeStats reports how the slots decoded.
func (m *Model) DecodeStats() codon.DecodeStats { return m.stats }

// RuleCount is the number of rules, statements or expressions in the
// program after pruning.
func (m *Model) RuleCount() int {
	switch p := m.program.(type) {
	case rules.Program:
		return len(p.Rules)
	case logic.Program:
		return len(p.Statements)
	case arith.Program:
		return len(p.Exprs)
	}
	return 0
}

// PruneReport is nil unless the grammar was pruned.
func (m *Model) PruneReport() *rules.Report { return m.report }

// #endregion accessors
