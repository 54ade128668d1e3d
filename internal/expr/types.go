package expr

// DefaultMaxDepth is the recursion ceiling after which only terminals decode.
const DefaultMaxDepth = 6

// #region arith-op
// ArithOp is a binary arithmetic operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
)

// Cardinality returns the number of operators.
func (ArithOp) Cardinality() int { return 3 }

func (o ArithOp) String() string {
	switch o {
	case Sub:
		return "-"
	case Mul:
		return "*"
	}
	return "+"
}

// #endregion arith-op

// #region func
// Func is a unary transform. Every member is total over the reals.
type Func int

const (
	Sqrt Func = iota // sqrt(|x|)
	Log              // ln(1+|x|)
	Sin
	Tanh
	Exp
)

// Cardinality returns the number of functions.
func (Func) Cardinality() int { return 5 }

func (f Func) String() string {
	switch f {
	case Log:
		return "log"
	case Sin:
		return "sin"
	case Tanh:
		return "tanh"
	case Exp:
		return "exp"
	}
	return "sqrt"
}

// #endregion func

// #region productions
type production int

const (
	prodQuantity production = iota
	prodNumber
	prodQuotient
	prodOperator
	prodFunction
)

func (production) Cardinality() int { return 5 }

// terminal is the production set once the depth ceiling is reached.
type terminal int

const (
	termQuantity terminal = iota
	termNumber
)

func (terminal) Cardinality() int { return 2 }

// numberForm picks between an integer and a two-part decimal literal.
type numberForm int

const (
	formInteger numberForm = iota
	formDecimal
)

func (numberForm) Cardinality() int { return 2 }

// #endregion productions
