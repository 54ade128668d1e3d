package env

import "fmt"

// #region context
// Context is the value store every node evaluates against: quantities pushed
// by the host, outputs written by programs, and genome-derived constants.
// It is not safe for concurrent use.
type Context struct {
	quantities [numQuantities]float64
	outputs    [numOutputs]float64
	constants  []float64
}

// NewContext builds a context whose constants are the given values multiplied
// by scale. A scale of 1 keeps the genome values verbatim.
func NewContext(constants []float64, scale float64) *Context {
	c := &Context{constants: make([]float64, len(constants))}
	for i, v := range constants {
		c.constants[i] = v * scale
	}
	return c
}

// #endregion context

// #region quantities
// SetQuantity stores the latest value of q.
func (c *Context) SetQuantity(q Quantity, v float64) {
	c.quantities[checkQuantity(q)] = v
}

// Quantity returns the last value stored for q.
func (c *Context) Quantity(q Quantity) float64 {
	return c.quantities[checkQuantity(q)]
}

// #endregion quantities

// #region outputs
// SetOutput stores v clamped to be non-negative. NaN is stored as 0.
func (c *Context) SetOutput(o Output, v float64) {
	if !(v > 0) {
		v = 0
	}
	c.outputs[checkOutput(o)] = v
}

// Output returns the value last written for o.
func (c *Context) Output(o Output) float64 {
	return c.outputs[checkOutput(o)]
}

// ResetOutputs zeroes every output.
func (c *Context) ResetOutputs() {
	c.outputs = [numOutputs]float64{}
}

// OutputMap returns a snapshot of all outputs keyed by output.
func (c *Context) OutputMap() map[Output]float64 {
	out := make(map[Output]float64, numOutputs)
	for i, v := range c.outputs {
		out[Output(i)] = v
	}
	return out
}

// #endregion outputs

// #region constants
// Constant returns constant i. Indexes are fixed at decode time, so an
// out-of-range index is a bug and panics.
func (c *Context) Constant(i int) float64 {
	if i < 0 || i >= len(c.constants) {
		panic(fmt.Sprintf("env: constant index %d out of range [0,%d)", i, len(c.constants)))
	}
	return c.constants[i]
}

// ConstantCount returns the size of the constant region.
func (c *Context) ConstantCount() int {
	return len(c.constants)
}

// #endregion constants

// #region helpers
func checkQuantity(q Quantity) Quantity {
	if q < 0 || int(q) >= numQuantities {
		panic(fmt.Sprintf("env: unknown quantity %d", int(q)))
	}
	return q
}

func checkOutput(o Output) Output {
	if o < 0 || int(o) >= numOutputs {
		panic(fmt.Sprintf("env: unknown output %d", int(o)))
	}
	return o
}

// #endregion helpers
