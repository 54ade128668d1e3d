package codon

import (
	"fmt"
	"math"
)

// #region genome
// Genome is the real-valued vector produced by the optimizer.
type Genome struct {
	codons []float64
}

// NewGenome copies values into a genome after checking every codon is in [0,1].
func NewGenome(values []float64) (Genome, error) {
	codons := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return Genome{}, fmt.Errorf("codon %d = %v: %w", i, v, ErrCodonOutOfRange)
		}
		codons[i] = v
	}
	return Genome{codons: codons}, nil
}

// Len returns the number of codons.
func (g Genome) Len() int {
	return len(g.codons)
}

// At returns codon i.
func (g Genome) At(i int) float64 {
	return g.codons[i]
}

// Values returns a copy of the codons.
func (g Genome) Values() []float64 {
	out := make([]float64, len(g.codons))
	copy(out, g.codons)
	return out
}

// Check fails when the genome is shorter than the layout requires.
func (g Genome) Check(l Layout) error {
	if need := l.GenomeLength(); len(g.codons) < need {
		return fmt.Errorf("have %d codons, need %d: %w", len(g.codons), need, ErrGenomeTooShort)
	}
	return nil
}

// Constants returns a copy of the constant region.
func (g Genome) Constants(l Layout) ([]float64, error) {
	if err := g.Check(l); err != nil {
		return nil, err
	}
	start := l.RuleRegion()
	out := make([]float64, l.Constants)
	copy(out, g.codons[start:start+l.Constants])
	return out, nil
}

// Slot returns a cursor bounded to rule slot i.
func (g Genome) Slot(l Layout, i int) *Cursor {
	start := i * l.SlotWidth
	return &Cursor{codons: g.codons, pos: start, end: start + l.SlotWidth}
}

// #endregion genome

// #region cursor
// Cursor walks the codons of one slot. Reading past the slot end fails
// instead of spilling into the neighbouring slot.
type Cursor struct {
	codons []float64
	pos    int
	end    int
}

// NewCursor returns a cursor over all of values. Mostly useful in tests.
func NewCursor(values []float64) *Cursor {
	return &Cursor{codons: values, end: len(values)}
}

// Next consumes one codon.
func (c *Cursor) Next() (float64, error) {
	if c.pos >= c.end || c.pos >= len(c.codons) {
		return 0, ErrExhausted
	}
	v := c.codons[c.pos]
	c.pos++
	return v, nil
}

// Pos is the absolute genome index of the next codon.
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining reports how many codons are left in the slot.
func (c *Cursor) Remaining() int {
	if c.pos >= c.end {
		return 0
	}
	return c.end - c.pos
}

// #endregion cursor
