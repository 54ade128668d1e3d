package codon

import "errors"

// #region errors
var (
	// ErrGenomeTooShort is returned when a genome cannot cover its layout.
	ErrGenomeTooShort = errors.New("genome too short for layout")
	// ErrCodonOutOfRange is returned for codons outside [0,1] or NaN.
	ErrCodonOutOfRange = errors.New("codon out of range")
	// ErrExhausted is returned when a decode reads past the end of its slot.
	ErrExhausted = errors.New("codon stream exhausted")
)

// #endregion errors

// #region layout
// Layout describes how a genome is partitioned: Slots fixed-width rule slots
// followed by a constant region.
type Layout struct {
	Slots     int `yaml:"slots" json:"slots" validate:"gte=1"`
	SlotWidth int `yaml:"slot_width" json:"slot_width" validate:"gte=1"`
	Constants int `yaml:"constants" json:"constants" validate:"gte=0"`
}

// GenomeLength is the minimum genome length this layout needs.
func (l Layout) GenomeLength() int {
	return l.Slots*l.SlotWidth + l.Constants
}

// RuleRegion is the number of codons taken by the rule slots.
func (l Layout) RuleRegion() int {
	return l.Slots * l.SlotWidth
}

// #endregion layout

// #region decode-stats
// DecodeStats summarises one slot-by-slot decode run.
type DecodeStats struct {
	Slots    int
	NoOps    int
	Failed   int // slots that ran out of codons
	Produced int // rules, statements or expressions built
}

// #endregion decode-stats

// #region enum
// Enum is a closed enumeration that knows its own size. The zero value must
// report the cardinality, so implementations use value receivers.
type Enum interface {
	~int
	Cardinality() int
}

// #endregion enum
