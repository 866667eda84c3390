package arm64

import (
	"fmt"

	"github.com/vectorforge/lanegen/simd"
)

// Assembler lowers simd pseudo-instructions to AArch64 NEON words. It is
// stateless per call apart from the scratch arena, which backs emulated
// operations and must be borrowed exclusively for each emulation sequence.
// A nil arena is legal as long as no emulated operation is requested.
//
// NaN behavior of compare/min/max follows the hardware and is not
// normalized; callers must not build control flow on NaN-sensitive masks if
// they want identical behavior across targets.
type Assembler struct {
	cfg   simd.Config
	arena *ScratchArena
}

var _ simd.Target = (*Assembler)(nil)

// New returns an assembler for the given configuration. arena may be nil if
// emulated operations (64-bit lane multiply, min, max) are never lowered.
func New(cfg simd.Config, arena *ScratchArena) *Assembler {
	return &Assembler{cfg: cfg, arena: arena}
}

// Name implements simd.Target.
func (a *Assembler) Name() string { return "arm64" }

func halves(s simd.Shape) int {
	if s == simd.Vec256 {
		return 2
	}
	return 1
}

// intSize returns the element size field (bits 23..22) for the integer
// three-same class.
func intSize(bits uint8) (uint32, error) {
	switch bits {
	case 16:
		return 1 << 22, nil
	case 32:
		return 2 << 22, nil
	case 64:
		return 3 << 22, nil
	}
	return 0, fmt.Errorf("arm64: unsupported element width %d", bits)
}

// fpWiden adapts a single-precision template to the requested float width.
// Half precision has its own encoding classes and is handled by callers
// before reaching here.
func fpWiden(template uint32, bits uint8) uint32 {
	if bits == 64 {
		return template | A64_SZ_BIT
	}
	return template
}

func (a *Assembler) emitRRR(p *simd.Program, template uint32, rd, rn, rm vreg) {
	w := newWord(template)
	w.rd(rd).rn(rn).rm(rm)
	p.Emit(w.done())
}

func (a *Assembler) emitRR(p *simd.Program, template uint32, rd, rn vreg) {
	w := newWord(template)
	w.rd(rd).rn(rn)
	p.Emit(w.done())
}

// memCount rejects operand combinations with more than one memory source:
// the two-step expansion owns a single scratch vector register.
func memCount(ops ...simd.Operand) int {
	n := 0
	for _, o := range ops {
		if o.Kind == simd.KindMem {
			n++
		}
	}
	return n
}

// srcReg resolves a source operand to a physical register for one half,
// loading memory operands into the scratch vector register first.
func (a *Assembler) srcReg(p *simd.Program, src simd.Operand, s simd.Shape, secondary bool) (vreg, error) {
	switch src.Kind {
	case simd.KindReg:
		return vecRegHalf(src.Reg, s, secondary)
	case simd.KindMem:
		m, err := halfMem(src.Mem, secondary)
		if err != nil {
			return 0, err
		}
		if err := a.emitVecLoad(p, scratchVec, m); err != nil {
			return 0, err
		}
		return scratchVec, nil
	}
	return 0, fmt.Errorf("arm64: immediate %s not valid as a vector source", src)
}

// dstReg resolves the register an operation computes into. Memory
// destinations compute into the alternate scratch register; commit stores
// the result and must run after the computation of this half.
func (a *Assembler) dstReg(p *simd.Program, dst simd.Operand, s simd.Shape, secondary bool) (rd vreg, commit func() error, err error) {
	switch dst.Kind {
	case simd.KindReg:
		rd, err = vecRegHalf(dst.Reg, s, secondary)
		return rd, func() error { return nil }, err
	case simd.KindMem:
		m, err := halfMem(dst.Mem, secondary)
		if err != nil {
			return 0, nil, err
		}
		return scratchVecAlt, func() error { return a.emitVecStore(p, scratchVecAlt, m) }, nil
	}
	return 0, nil, fmt.Errorf("arm64: operand %s not valid as a destination", dst)
}

// Move implements simd.Target. The element type does not influence the
// encoding: moves always transfer full vector halves.
func (a *Assembler) Move(p *simd.Program, e simd.Elem, s simd.Shape, dst, src simd.Operand) error {
	if dst.Kind == simd.KindMem && src.Kind == simd.KindMem {
		return fmt.Errorf("arm64: memory-to-memory move not supported")
	}
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		switch {
		case dst.Kind == simd.KindReg && src.Kind == simd.KindReg:
			rd, err := vecRegHalf(dst.Reg, s, secondary)
			if err != nil {
				return err
			}
			rn, err := vecRegHalf(src.Reg, s, secondary)
			if err != nil {
				return err
			}
			a.emitRRR(p, A64_V_ORR, rd, rn, rn)
		case dst.Kind == simd.KindReg && src.Kind == simd.KindMem:
			rd, err := vecRegHalf(dst.Reg, s, secondary)
			if err != nil {
				return err
			}
			m, err := halfMem(src.Mem, secondary)
			if err != nil {
				return err
			}
			if err := a.emitVecLoad(p, rd, m); err != nil {
				return err
			}
		case dst.Kind == simd.KindMem && src.Kind == simd.KindReg:
			rn, err := vecRegHalf(src.Reg, s, secondary)
			if err != nil {
				return err
			}
			m, err := halfMem(dst.Mem, secondary)
			if err != nil {
				return err
			}
			if err := a.emitVecStore(p, rn, m); err != nil {
				return err
			}
		default:
			return fmt.Errorf("arm64: unsupported move %s <- %s", dst, src)
		}
	}
	return nil
}

// Zero implements simd.Target.
func (a *Assembler) Zero(p *simd.Program, e simd.Elem, s simd.Shape, dst simd.Operand) error {
	for h := 0; h < halves(s); h++ {
		rd, commit, err := a.dstReg(p, dst, s, h == 1)
		if err != nil {
			return err
		}
		w := newWord(A64_V_MOVI0)
		w.rd(rd)
		p.Emit(w.done())
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}

// Logic implements simd.Target. Bitwise ops are lane-width independent.
func (a *Assembler) Logic(p *simd.Program, op simd.LogicOp, e simd.Elem, s simd.Shape, dst, x, y simd.Operand) error {
	var template uint32
	unary := false
	switch op {
	case simd.LogicAnd:
		template = A64_V_AND
	case simd.LogicOr:
		template = A64_V_ORR
	case simd.LogicXor:
		template = A64_V_EOR
	case simd.LogicAndNot:
		template = A64_V_BIC
	case simd.LogicNot:
		template, unary = A64_V_NOT, true
	default:
		return fmt.Errorf("arm64: unknown logic op %s", op)
	}
	if memCount(x, y) > 1 {
		return fmt.Errorf("arm64: at most one memory source per operation")
	}
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rx, err := a.srcReg(p, x, s, secondary)
		if err != nil {
			return err
		}
		rd, commit, err := a.dstReg(p, dst, s, secondary)
		if err != nil {
			return err
		}
		if unary {
			a.emitRR(p, template, rd, rx)
		} else {
			ry, err := a.srcReg(p, y, s, secondary)
			if err != nil {
				return err
			}
			a.emitRRR(p, template, rd, rx, ry)
		}
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}

// floatBinTemplate returns the three-same template for a float arithmetic
// op at the given width.
func floatBinTemplate(op simd.ArithOp, bits uint8) (uint32, error) {
	if bits == 16 {
		switch op {
		case simd.ArithAdd:
			return A64_V_FADD_H, nil
		case simd.ArithSub:
			return A64_V_FSUB_H, nil
		case simd.ArithMul:
			return A64_V_FMUL_H, nil
		case simd.ArithDiv:
			return A64_V_FDIV_H, nil
		case simd.ArithMin:
			return A64_V_FMIN_H, nil
		case simd.ArithMax:
			return A64_V_FMAX_H, nil
		}
		return 0, fmt.Errorf("arm64: %s not a binary float op", op)
	}
	var t uint32
	switch op {
	case simd.ArithAdd:
		t = A64_V_FADD
	case simd.ArithSub:
		t = A64_V_FSUB
	case simd.ArithMul:
		t = A64_V_FMUL
	case simd.ArithDiv:
		t = A64_V_FDIV
	case simd.ArithMin:
		t = A64_V_FMIN
	case simd.ArithMax:
		t = A64_V_FMAX
	default:
		return 0, fmt.Errorf("arm64: %s not a binary float op", op)
	}
	return fpWiden(t, bits), nil
}

// intBinTemplate returns the three-same template for an integer arithmetic
// op, or native=false when the width has no direct opcode and the operation
// must go through the emulation shim.
func intBinTemplate(op simd.ArithOp, e simd.Elem) (template uint32, native bool, err error) {
	size, err := intSize(e.Bits)
	if err != nil {
		return 0, false, err
	}
	switch op {
	case simd.ArithAdd:
		return A64_V_ADD | size, true, nil
	case simd.ArithSub:
		return A64_V_SUB | size, true, nil
	case simd.ArithMul:
		if e.Bits == 64 {
			return 0, false, nil
		}
		return A64_V_MUL | size, true, nil
	case simd.ArithMin:
		if e.Bits == 64 {
			return 0, false, nil
		}
		if e.Kind == simd.Uint {
			return A64_V_UMIN | size, true, nil
		}
		return A64_V_SMIN | size, true, nil
	case simd.ArithMax:
		if e.Bits == 64 {
			return 0, false, nil
		}
		if e.Kind == simd.Uint {
			return A64_V_UMAX | size, true, nil
		}
		return A64_V_SMAX | size, true, nil
	}
	return 0, false, fmt.Errorf("arm64: %s not supported on %s lanes", op, e)
}

// Arith implements simd.Target.
func (a *Assembler) Arith(p *simd.Program, op simd.ArithOp, e simd.Elem, s simd.Shape, dst, x, y simd.Operand) error {
	if op == simd.ArithRecip || op == simd.ArithRSqrt {
		return a.arithApprox(p, op, e, s, dst, x)
	}
	if memCount(x, y) > 1 {
		return fmt.Errorf("arm64: at most one memory source per operation")
	}
	if e.Kind == simd.Float {
		template, err := floatBinTemplate(op, e.Bits)
		if err != nil {
			return err
		}
		return a.binOp(p, template, s, dst, x, y)
	}
	if op == simd.ArithDiv {
		return fmt.Errorf("arm64: no packed integer divide on %s lanes", e)
	}
	template, native, err := intBinTemplate(op, e)
	if err != nil {
		return err
	}
	if native {
		return a.binOp(p, template, s, dst, x, y)
	}
	return a.emulate64(p, op, e, s, dst, x, y)
}

// binOp emits one three-same word per half after operand resolution.
func (a *Assembler) binOp(p *simd.Program, template uint32, s simd.Shape, dst, x, y simd.Operand) error {
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rx, err := a.srcReg(p, x, s, secondary)
		if err != nil {
			return err
		}
		ry, err := a.srcReg(p, y, s, secondary)
		if err != nil {
			return err
		}
		rd, commit, err := a.dstReg(p, dst, s, secondary)
		if err != nil {
			return err
		}
		a.emitRRR(p, template, rd, rx, ry)
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}

// arithApprox lowers the reciprocal and reciprocal-sqrt approximations at
// the configured accuracy level. The destination must be a register and, at
// any level above Fast, distinct from the source: the Newton-Raphson steps
// re-read the original input.
func (a *Assembler) arithApprox(p *simd.Program, op simd.ArithOp, e simd.Elem, s simd.Shape, dst, src simd.Operand) error {
	if e.Kind != simd.Float {
		return fmt.Errorf("arm64: %s requires float lanes, got %s", op, e)
	}
	if dst.Kind != simd.KindReg {
		return fmt.Errorf("arm64: %s requires a register destination", op)
	}
	level := a.cfg.Approx
	if e.Bits == 16 && level == simd.ApproxFull {
		// No half-precision FMOV-immediate constant path; the refined
		// estimate is the best this target offers at 16-bit lanes.
		level = simd.ApproxRefined
	}
	recip := op == simd.ArithRecip
	estimate := tmplEstimate(recip, e.Bits)
	step := tmplStep(recip, e.Bits)
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rs, err := a.srcReg(p, src, s, secondary)
		if err != nil {
			return err
		}
		rd, err := vecRegHalf(dst.Reg, s, secondary)
		if err != nil {
			return err
		}
		if level != simd.ApproxFast && rd == rs {
			return fmt.Errorf("arm64: %s at level %s requires destination distinct from source", op, level)
		}
		switch level {
		case simd.ApproxFast:
			a.emitRR(p, estimate, rd, rs)
		case simd.ApproxRefined:
			a.emitRR(p, estimate, rd, rs)
			if recip {
				for i := 0; i < 2; i++ {
					// v31 = 2 - src*est; est *= v31
					a.emitRRR(p, step, scratchVecAlt, rs, rd)
					a.emitRRR(p, mulTemplate(e.Bits), rd, rd, scratchVecAlt)
				}
			} else {
				for i := 0; i < 2; i++ {
					// v31 = (3 - src*est*est)/2; est *= v31
					a.emitRRR(p, mulTemplate(e.Bits), scratchVecAlt, rd, rd)
					a.emitRRR(p, step, scratchVecAlt, rs, scratchVecAlt)
					a.emitRRR(p, mulTemplate(e.Bits), rd, rd, scratchVecAlt)
				}
			}
		case simd.ApproxFull:
			if recip {
				// dst = 1.0 / src
				a.emitFmovOne(p, rd, e.Bits)
				a.emitRRR(p, fpWiden(A64_V_FDIV, e.Bits), rd, rd, rs)
			} else {
				// dst = 1.0 / sqrt(src)
				a.emitRR(p, fpWiden(A64_V_FSQRT, e.Bits), scratchVecAlt, rs)
				a.emitFmovOne(p, rd, e.Bits)
				a.emitRRR(p, fpWiden(A64_V_FDIV, e.Bits), rd, rd, scratchVecAlt)
			}
		}
	}
	return nil
}

func tmplEstimate(recip bool, bits uint8) uint32 {
	if bits == 16 {
		if recip {
			return A64_V_FRECPE_H
		}
		return A64_V_FRSQRTE_H
	}
	if recip {
		return fpWiden(A64_V_FRECPE, bits)
	}
	return fpWiden(A64_V_FRSQRTE, bits)
}

func tmplStep(recip bool, bits uint8) uint32 {
	if bits == 16 {
		if recip {
			return A64_V_FRECPS_H
		}
		return A64_V_FRSQRTS_H
	}
	if recip {
		return fpWiden(A64_V_FRECPS, bits)
	}
	return fpWiden(A64_V_FRSQRTS, bits)
}

func mulTemplate(bits uint8) uint32 {
	if bits == 16 {
		return A64_V_FMUL_H
	}
	return fpWiden(A64_V_FMUL, bits)
}

// emitFmovOne loads the constant 1.0 into every lane.
func (a *Assembler) emitFmovOne(p *simd.Program, rd vreg, bits uint8) {
	template := uint32(A64_V_FONE)
	if bits == 64 {
		template |= 1 << 29
	}
	w := newWord(template)
	w.rd(rd)
	p.Emit(w.done())
}

// FusedMulAdd implements simd.Target: acc = acc + x*y with one rounding.
// The hardware form is destructive on the accumulator, so the accumulator
// must be a register and distinct from both multiplicands.
func (a *Assembler) FusedMulAdd(p *simd.Program, e simd.Elem, s simd.Shape, acc, x, y simd.Operand) error {
	return a.fused(p, e, s, acc, x, y, false)
}

// FusedMulSub implements simd.Target: acc = acc - x*y.
func (a *Assembler) FusedMulSub(p *simd.Program, e simd.Elem, s simd.Shape, acc, x, y simd.Operand) error {
	return a.fused(p, e, s, acc, x, y, true)
}

func (a *Assembler) fused(p *simd.Program, e simd.Elem, s simd.Shape, acc, x, y simd.Operand, sub bool) error {
	if e.Kind != simd.Float {
		return fmt.Errorf("arm64: fused multiply-add requires float lanes, got %s", e)
	}
	if acc.Kind != simd.KindReg {
		return fmt.Errorf("arm64: fused multiply-add accumulator must be a register")
	}
	if memCount(x, y) > 1 {
		return fmt.Errorf("arm64: at most one memory source per operation")
	}
	var fmla, addT uint32
	if e.Bits == 16 {
		fmla, addT = A64_V_FMLA_H, A64_V_FADD_H
		if sub {
			fmla, addT = A64_V_FMLS_H, A64_V_FSUB_H
		}
	} else {
		fmla, addT = fpWiden(A64_V_FMLA, e.Bits), fpWiden(A64_V_FADD, e.Bits)
		if sub {
			fmla, addT = fpWiden(A64_V_FMLS, e.Bits), fpWiden(A64_V_FSUB, e.Bits)
		}
	}
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rx, err := a.srcReg(p, x, s, secondary)
		if err != nil {
			return err
		}
		ry, err := a.srcReg(p, y, s, secondary)
		if err != nil {
			return err
		}
		rd, err := vecRegHalf(acc.Reg, s, secondary)
		if err != nil {
			return err
		}
		if rd == rx || rd == ry {
			return fmt.Errorf("arm64: fused multiply accumulator %s aliases a multiplicand", acc)
		}
		if a.cfg.ExactFMA {
			a.emitRRR(p, fmla, rd, rx, ry)
		} else {
			// Split form: two roundings, but no destructive accumulator.
			a.emitRRR(p, mulTemplate(e.Bits), scratchVecAlt, rx, ry)
			a.emitRRR(p, addT, rd, rd, scratchVecAlt)
		}
	}
	return nil
}

// Compare implements simd.Target. Every relation produces an all-ones or
// all-zeros mask per lane. NE is EQ plus a bitwise complement, and LT/LE
// are GT/GE with swapped sources, so all six relations share one mask
// semantics. NaN lanes compare unequal on this target; that behavior is
// hardware-defined, not normalized here.
func (a *Assembler) Compare(p *simd.Program, rel simd.Cmp, e simd.Elem, s simd.Shape, dst, x, y simd.Operand) error {
	if memCount(x, y) > 1 {
		return fmt.Errorf("arm64: at most one memory source per operation")
	}
	swap := false
	complement := false
	base := rel
	switch rel {
	case simd.CmpNE:
		base, complement = simd.CmpEQ, true
	case simd.CmpLT:
		base, swap = simd.CmpGT, true
	case simd.CmpLE:
		base, swap = simd.CmpGE, true
	}
	template, err := cmpTemplate(base, e)
	if err != nil {
		return err
	}
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rx, err := a.srcReg(p, x, s, secondary)
		if err != nil {
			return err
		}
		ry, err := a.srcReg(p, y, s, secondary)
		if err != nil {
			return err
		}
		if swap {
			rx, ry = ry, rx
		}
		rd, commit, err := a.dstReg(p, dst, s, secondary)
		if err != nil {
			return err
		}
		a.emitRRR(p, template, rd, rx, ry)
		if complement {
			a.emitRR(p, A64_V_NOT, rd, rd)
		}
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}

func cmpTemplate(rel simd.Cmp, e simd.Elem) (uint32, error) {
	if e.Kind == simd.Float {
		if e.Bits == 16 {
			switch rel {
			case simd.CmpEQ:
				return A64_V_FCMEQ_H, nil
			case simd.CmpGE:
				return A64_V_FCMGE_H, nil
			case simd.CmpGT:
				return A64_V_FCMGT_H, nil
			}
			return 0, fmt.Errorf("arm64: no compare template for %s", rel)
		}
		switch rel {
		case simd.CmpEQ:
			return fpWiden(A64_V_FCMEQ, e.Bits), nil
		case simd.CmpGE:
			return fpWiden(A64_V_FCMGE, e.Bits), nil
		case simd.CmpGT:
			return fpWiden(A64_V_FCMGT, e.Bits), nil
		}
		return 0, fmt.Errorf("arm64: no compare template for %s", rel)
	}
	size, err := intSize(e.Bits)
	if err != nil {
		return 0, err
	}
	unsigned := e.Kind == simd.Uint
	switch rel {
	case simd.CmpEQ:
		return A64_V_CMEQ | size, nil
	case simd.CmpGT:
		if unsigned {
			return A64_V_CMHI | size, nil
		}
		return A64_V_CMGT | size, nil
	case simd.CmpGE:
		if unsigned {
			return A64_V_CMHS | size, nil
		}
		return A64_V_CMGE | size, nil
	}
	return 0, fmt.Errorf("arm64: no compare template for %s", rel)
}

// ConvertToInt implements simd.Target. The source holds float lanes of the
// same width as the integer destination type. Results for inputs outside
// the destination's representable range are whatever the hardware produces
// (not saturating in any portable sense) and must not be relied upon.
func (a *Assembler) ConvertToInt(p *simd.Program, to simd.Elem, s simd.Shape, dst, src simd.Operand, mode simd.RoundMode) error {
	if to.Kind == simd.Float {
		return fmt.Errorf("arm64: convert-to-int target must be an integer element, got %s", to)
	}
	dynamic := mode == simd.RoundDynamic
	var template uint32
	if to.Bits == 16 {
		switch mode {
		case simd.RoundNearest:
			template = A64_V_FCVTNS_H
		case simd.RoundDown:
			template = A64_V_FCVTMS_H
		case simd.RoundUp:
			template = A64_V_FCVTPS_H
		case simd.RoundZero, simd.RoundDynamic:
			template = A64_V_FCVTZS_H
		default:
			return fmt.Errorf("arm64: unknown rounding mode %s", mode)
		}
	} else {
		switch mode {
		case simd.RoundNearest:
			template = fpWiden(A64_V_FCVTNS, to.Bits)
		case simd.RoundDown:
			template = fpWiden(A64_V_FCVTMS, to.Bits)
		case simd.RoundUp:
			template = fpWiden(A64_V_FCVTPS, to.Bits)
		case simd.RoundZero, simd.RoundDynamic:
			template = fpWiden(A64_V_FCVTZS, to.Bits)
		default:
			return fmt.Errorf("arm64: unknown rounding mode %s", mode)
		}
	}
	if to.Kind == simd.Uint {
		template |= A64_U_BIT
	}
	frinti := uint32(A64_V_FRINTI_H)
	if to.Bits != 16 {
		frinti = fpWiden(A64_V_FRINTI, to.Bits)
	}
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rs, err := a.srcReg(p, src, s, secondary)
		if err != nil {
			return err
		}
		rd, commit, err := a.dstReg(p, dst, s, secondary)
		if err != nil {
			return err
		}
		if dynamic {
			// Round per the FP control register first, then truncate: the
			// truncation is exact on an already-rounded value.
			a.emitRR(p, frinti, scratchVecAlt, rs)
			rs = scratchVecAlt
		}
		a.emitRR(p, template, rd, rs)
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}

// ConvertToFloat implements simd.Target. from selects the signedness of the
// integer source lanes; the float destination has the same lane width.
func (a *Assembler) ConvertToFloat(p *simd.Program, from simd.Elem, s simd.Shape, dst, src simd.Operand) error {
	var template uint32
	switch {
	case from.Kind == simd.Int && from.Bits == 16:
		template = A64_V_SCVTF_H
	case from.Kind == simd.Uint && from.Bits == 16:
		template = A64_V_UCVTF_H
	case from.Kind == simd.Int:
		template = fpWiden(A64_V_SCVTF, from.Bits)
	case from.Kind == simd.Uint:
		template = fpWiden(A64_V_UCVTF, from.Bits)
	default:
		return fmt.Errorf("arm64: convert-to-float source must be an integer element, got %s", from)
	}
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rs, err := a.srcReg(p, src, s, secondary)
		if err != nil {
			return err
		}
		rd, commit, err := a.dstReg(p, dst, s, secondary)
		if err != nil {
			return err
		}
		a.emitRR(p, template, rd, rs)
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}

// Shift implements simd.Target. Counts are immediates; a zero count lowers
// to a plain register move in either direction, since the right-shift
// encodings start at one.
func (a *Assembler) Shift(p *simd.Program, op simd.ShiftOp, e simd.Elem, s simd.Shape, dst, src simd.Operand, count uint8) error {
	if e.Kind == simd.Float {
		return fmt.Errorf("arm64: no float lane shifts")
	}
	if op == simd.ShiftRightArith && e.Kind != simd.Int {
		return fmt.Errorf("arm64: arithmetic shift requires signed lanes, got %s", e)
	}
	if count == 0 {
		return a.Move(p, e, s, dst, src)
	}
	var template, enc uint32
	switch op {
	case simd.ShiftLeft:
		if count >= e.Bits {
			return fmt.Errorf("arm64: left shift by %d exceeds %d-bit lanes", count, e.Bits)
		}
		template = A64_V_SHL
		enc = uint32(e.Bits) + uint32(count)
	case simd.ShiftRightLogical, simd.ShiftRightArith:
		if count > e.Bits {
			return fmt.Errorf("arm64: right shift by %d exceeds %d-bit lanes", count, e.Bits)
		}
		template = A64_V_USHR
		if op == simd.ShiftRightArith {
			template = A64_V_SSHR
		}
		enc = 2*uint32(e.Bits) - uint32(count)
	default:
		return fmt.Errorf("arm64: unknown shift op %s", op)
	}
	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rs, err := a.srcReg(p, src, s, secondary)
		if err != nil {
			return err
		}
		rd, commit, err := a.dstReg(p, dst, s, secondary)
		if err != nil {
			return err
		}
		w := newWord(template)
		w.field(16, 7, enc)
		w.rd(rd).rn(rs)
		p.Emit(w.done())
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}
