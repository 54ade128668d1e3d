package expr

import (
	"errors"
	"fmt"

	"github.com/SmartCGMS/core-sub001/internal/codon"
	"github.com/SmartCGMS/core-sub001/internal/env"
)

// #region decoder
// Decoder builds expression trees over a fixed set of quantities.
type Decoder struct {
	Quantities []env.Quantity
	MaxDepth   int
}

// NewDecoder returns a decoder; maxDepth <= 0 selects DefaultMaxDepth.
func NewDecoder(quantities []env.Quantity, maxDepth int) *Decoder {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Decoder{Quantities: quantities, MaxDepth: maxDepth}
}

// Decode reads one expression from cur starting at the root.
func (d *Decoder) Decode(cur *codon.Cursor) (Node, error) {
	if len(d.Quantities) == 0 {
		return nil, errors.New("expr: decoder has no quantities")
	}
	return d.decode(cur, 0)
}

// DecodeAt reads one expression at the given depth. Grammars that embed
// expressions below their own nodes use it to share the depth budget.
func (d *Decoder) DecodeAt(cur *codon.Cursor, depth int) (Node, error) {
	return d.decode(cur, depth)
}

func (d *Decoder) decode(cur *codon.Cursor, depth int) (Node, error) {
	c, err := cur.Next()
	if err != nil {
		return nil, err
	}

	var prod production
	if depth >= d.MaxDepth {
		switch codon.ClassifyAndRescale[terminal](&c) {
		case termNumber:
			prod = prodNumber
		default:
			prod = prodQuantity
		}
	} else {
		prod = codon.ClassifyAndRescale[production](&c)
	}

	switch prod {
	case prodQuantity:
		return QuantityRef{Quantity: d.Quantities[codon.Classify(c, len(d.Quantities))]}, nil
	case prodNumber:
		return decodeNumber(cur, c)
	case prodQuotient:
		lhs, rhs, err := d.decodePair(cur, depth+1)
		if err != nil {
			return nil, err
		}
		return Quotient{Lhs: lhs, Rhs: rhs}, nil
	case prodOperator:
		op := codon.ClassifyEnum[ArithOp](c)
		lhs, rhs, err := d.decodePair(cur, depth+1)
		if err != nil {
			return nil, err
		}
		return Operator{Op: op, Lhs: lhs, Rhs: rhs}, nil
	case prodFunction:
		fn := codon.ClassifyEnum[Func](c)
		operand, err := d.decode(cur, depth+1)
		if err != nil {
			return nil, fmt.Errorf("decode %s operand: %w", fn, err)
		}
		return Function{Fn: fn, Operand: operand}, nil
	}
	return nil, fmt.Errorf("expr: unhandled production %d", prod)
}

func (d *Decoder) decodePair(cur *codon.Cursor, depth int) (Node, Node, error) {
	lhs, err := d.decode(cur, depth)
	if err != nil {
		return nil, nil, fmt.Errorf("decode lhs: %w", err)
	}
	rhs, err := d.decode(cur, depth)
	if err != nil {
		return nil, nil, fmt.Errorf("decode rhs: %w", err)
	}
	return lhs, rhs, nil
}

// #endregion decoder

// #region number
// decodeNumber reads Digits or Digits '.' Digits. rest is the remainder of the
// production codon and selects the form; each digit group takes one codon.
func decodeNumber(cur *codon.Cursor, rest float64) (Node, error) {
	form := codon.ClassifyEnum[numberForm](rest)
	c, err := cur.Next()
	if err != nil {
		return nil, fmt.Errorf("decode number digits: %w", err)
	}
	value := float64(codon.Classify(c, 100))
	if form == formDecimal {
		c, err = cur.Next()
		if err != nil {
			return nil, fmt.Errorf("decode number fraction: %w", err)
		}
		value += float64(codon.Classify(c, 100)) / 100
	}
	return Number{Value: value}, nil
}

// #endregion number
