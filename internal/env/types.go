package env

import "fmt"

// #region quantity
// Quantity identifies an input the grammars can read.
type Quantity int

const (
	Glucose        Quantity = iota // interstitial glucose, mmol/L
	GlucoseAverage                 // five-minute moving average, mmol/L
	GlucoseSlope                   // mmol/L per minute
	InsulinOnBoard                 // U
	CarbsOnBoard                   // g
	Register1
	Register2
	Register3
	Register4

	numQuantities int = iota
)

var quantityNames = [numQuantities]string{
	"glucose", "glucose_avg5", "glucose_slope", "iob", "cob", "r1", "r2", "r3", "r4",
}

// Cardinality returns the number of quantities.
func (Quantity) Cardinality() int { return numQuantities }

func (q Quantity) String() string {
	if q < 0 || int(q) >= numQuantities {
		return fmt.Sprintf("quantity(%d)", int(q))
	}
	return quantityNames[q]
}

// ParseQuantity resolves a quantity by name.
func ParseQuantity(name string) (Quantity, error) {
	for i, n := range quantityNames {
		if n == name {
			return Quantity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown quantity %q", name)
}

// Quantities lists every quantity in declaration order.
func Quantities() []Quantity {
	out := make([]Quantity, numQuantities)
	for i := range out {
		out[i] = Quantity(i)
	}
	return out
}

// Registers are the intermediate quantities written by the logic grammar.
var Registers = []Quantity{Register1, Register2, Register3, Register4}

// #endregion quantity

// #region output
// Output identifies a value a program emits.
type Output int

const (
	BasalRate Output = iota // U/h
	Bolus                   // U

	numOutputs int = iota
)

var outputNames = [numOutputs]string{"basal_rate", "bolus"}

// Cardinality returns the number of outputs.
func (Output) Cardinality() int { return numOutputs }

func (o Output) String() string {
	if o < 0 || int(o) >= numOutputs {
		return fmt.Sprintf("output(%d)", int(o))
	}
	return outputNames[o]
}

// ParseOutput resolves an output by name.
func ParseOutput(name string) (Output, error) {
	for i, n := range outputNames {
		if n == name {
			return Output(i), nil
		}
	}
	return 0, fmt.Errorf("unknown output %q", name)
}

// Outputs lists every output in declaration order.
func Outputs() []Output {
	out := make([]Output, numOutputs)
	for i := range out {
		out[i] = Output(i)
	}
	return out
}

// #endregion output

// #region comparison
// Comparison is the operator of a conditional.
type Comparison int

const (
	Less Comparison = iota
	Greater
)

// Cardinality returns the number of comparison operators.
func (Comparison) Cardinality() int { return 2 }

// Holds applies the comparison.
func (c Comparison) Holds(lhs, rhs float64) bool {
	if c == Greater {
		return lhs > rhs
	}
	return lhs < rhs
}

func (c Comparison) String() string {
	if c == Greater {
		return ">"
	}
	return "<"
}

// #endregion comparison
