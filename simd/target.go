package simd

// Target is the lowering capability one architecture backend provides: one
// entry point per pseudo-op family. Every method appends zero or more
// instruction words to p, or returns an error without emitting anything
// useful when the combination is unsupported, an immediate is out of range,
// or an aliasing rule is violated. Lowering never fails at run time of the
// generated code.
//
// Exactly one Target implementation is linked in per build; selection
// happens at build configuration time, not by the layer itself.
type Target interface {
	// Name returns the target identifier, e.g. "arm64".
	Name() string

	// Move copies src to dst. Register-to-register, load (memory source) and
	// store (memory destination) forms are all accepted; memory-to-memory is
	// not.
	Move(p *Program, e Elem, s Shape, dst, src Operand) error

	// Zero clears dst.
	Zero(p *Program, e Elem, s Shape, dst Operand) error

	// Logic lowers dst = a op b (unary ops ignore b).
	Logic(p *Program, op LogicOp, e Elem, s Shape, dst, a, b Operand) error

	// Arith lowers dst = a op b (unary ops ignore b). Operations without a
	// native opcode at the given element width go through the target's
	// emulation shim.
	Arith(p *Program, op ArithOp, e Elem, s Shape, dst, a, b Operand) error

	// FusedMulAdd lowers acc = acc + a*b with a single rounding. The
	// accumulator must be a register distinct from both multiplicands.
	FusedMulAdd(p *Program, e Elem, s Shape, acc, a, b Operand) error

	// FusedMulSub lowers acc = acc - a*b, same contract as FusedMulAdd.
	FusedMulSub(p *Program, e Elem, s Shape, acc, a, b Operand) error

	// Compare lowers dst = (a rel b) as an all-ones/all-zeros lane mask.
	Compare(p *Program, rel Cmp, e Elem, s Shape, dst, a, b Operand) error

	// ConvertToInt converts float lanes to integer lanes of the same width.
	// to.Kind selects signedness. Results for inputs outside the destination
	// range are target-defined, not saturating.
	ConvertToInt(p *Program, to Elem, s Shape, dst, src Operand, mode RoundMode) error

	// ConvertToFloat converts integer lanes (from.Kind selects signedness)
	// to float lanes of the same width.
	ConvertToFloat(p *Program, from Elem, s Shape, dst, src Operand) error

	// Shift lowers dst = src op count for an immediate count. A zero count
	// is the identity transform in either direction.
	Shift(p *Program, op ShiftOp, e Elem, s Shape, dst, src Operand, count uint8) error

	// MaskJump reduces the compare mask in mask to a scalar summary,
	// compares it against ref, and branches to the label when it matches.
	MaskJump(p *Program, e Elem, s Shape, mask Operand, ref MaskRef, to Label) error
}
