package simd

// LogicOp enumerates the bitwise pseudo-operations.
type LogicOp uint8

const (
	LogicAnd LogicOp = iota
	LogicOr
	LogicXor
	LogicAndNot // dst = a &^ b
	LogicNot    // unary, second source ignored
)

func (op LogicOp) String() string {
	switch op {
	case LogicAnd:
		return "and"
	case LogicOr:
		return "or"
	case LogicXor:
		return "xor"
	case LogicAndNot:
		return "andnot"
	case LogicNot:
		return "not"
	}
	return "logic?"
}

// ArithOp enumerates the arithmetic pseudo-operations.
type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv // float elements only
	ArithMin
	ArithMax
	ArithRecip // float reciprocal approximation, unary
	ArithRSqrt // float reciprocal square root approximation, unary
)

func (op ArithOp) String() string {
	switch op {
	case ArithAdd:
		return "add"
	case ArithSub:
		return "sub"
	case ArithMul:
		return "mul"
	case ArithDiv:
		return "div"
	case ArithMin:
		return "min"
	case ArithMax:
		return "max"
	case ArithRecip:
		return "recip"
	case ArithRSqrt:
		return "rsqrt"
	}
	return "arith?"
}

// ShiftOp enumerates the immediate shift pseudo-operations.
type ShiftOp uint8

const (
	ShiftLeft ShiftOp = iota
	ShiftRightLogical
	ShiftRightArith
)

func (op ShiftOp) String() string {
	switch op {
	case ShiftLeft:
		return "shl"
	case ShiftRightLogical:
		return "shr"
	case ShiftRightArith:
		return "sar"
	}
	return "shift?"
}

// Cmp enumerates the compare relations. Every compare produces an all-ones
// or all-zeros mask per lane. NE is defined as EQ followed by a bitwise
// complement so that all relations share identical mask semantics; LT and LE
// are GT and GE with swapped sources.
type Cmp uint8

const (
	CmpEQ Cmp = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

func (c Cmp) String() string {
	switch c {
	case CmpEQ:
		return "eq"
	case CmpNE:
		return "ne"
	case CmpLT:
		return "lt"
	case CmpLE:
		return "le"
	case CmpGT:
		return "gt"
	case CmpGE:
		return "ge"
	}
	return "cmp?"
}

// RoundMode selects the rounding of a float-to-int conversion.
type RoundMode uint8

const (
	RoundNearest RoundMode = iota // to nearest, ties to even
	RoundDown                     // toward minus infinity
	RoundUp                       // toward plus infinity
	RoundZero                     // truncate
	RoundDynamic                  // whatever the FP control register says
)

func (m RoundMode) String() string {
	switch m {
	case RoundNearest:
		return "nearest"
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	case RoundZero:
		return "zero"
	case RoundDynamic:
		return "dynamic"
	}
	return "round?"
}

// MaskRef names the two reference conditions of the mask-test operation.
type MaskRef uint8

const (
	MaskNone MaskRef = iota // no lane set
	MaskFull                // all lanes set
)

func (r MaskRef) String() string {
	if r == MaskFull {
		return "full"
	}
	return "none"
}

// ApproxLevel gates how reciprocal/rsqrt (and fused multiply-add) lower:
// a raw hardware estimate, an estimate plus Newton-Raphson refinement, or an
// exact IEEE sequence.
type ApproxLevel uint8

const (
	ApproxFast ApproxLevel = iota
	ApproxRefined
	ApproxFull
)

func (l ApproxLevel) String() string {
	switch l {
	case ApproxFast:
		return "fast"
	case ApproxRefined:
		return "refined"
	case ApproxFull:
		return "full"
	}
	return "approx?"
}

// Config carries the build-time knobs consumed by a target: the default
// element width and vector shape the front end assumes, the approximation
// accuracy level, and whether fused multiply-add must stay fused.
type Config struct {
	Elem     Elem
	Shape    Shape
	Approx   ApproxLevel
	ExactFMA bool // false splits fma into mul+add (two roundings)
}

// DefaultConfig is double-precision single-128 with exact arithmetic.
func DefaultConfig() Config {
	return Config{Elem: F64, Shape: Vec128, Approx: ApproxFull, ExactFMA: true}
}
