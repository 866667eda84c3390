package arm64

import (
	"fmt"

	"github.com/vectorforge/lanegen/simd"
)

// MaskJump implements simd.Target. The mask operand must hold a compare
// result, so every lane is all-zeros or all-ones; the reduction below is
// only correct under that invariant. The branch is taken when the mask is
// entirely clear (MaskNone) or entirely set (MaskFull). X9 is clobbered.
func (a *Assembler) MaskJump(p *simd.Program, e simd.Elem, s simd.Shape, mask simd.Operand, ref simd.MaskRef, to simd.Label) error {
	if ref != simd.MaskNone && ref != simd.MaskFull {
		return fmt.Errorf("arm64: unknown mask reference %s", ref)
	}
	rv, err := a.maskInput(p, mask, s, ref)
	if err != nil {
		return err
	}
	switch e.Bits {
	case 64:
		return a.maskJump64(p, rv, ref, to)
	case 32:
		return a.maskJumpNarrow(p, rv, ref, to, A64_V_UMAXV_S, A64_V_SMAXV_S, A64_UMOV_W_S0, A64_UMOV_W_S0)
	case 16:
		return a.maskJumpNarrow(p, rv, ref, to, A64_V_UMAXV_H, A64_V_SMAXV_H, A64_UMOV_W_H0, A64_SMOV_W_H0)
	}
	return fmt.Errorf("arm64: no mask reduction for %d-bit lanes", e.Bits)
}

// maskInput resolves the mask to a single 128-bit register. A paired mask
// is first folded into the scratch register: OR when testing for
// all-clear (a set bit in either half defeats it), AND when testing for
// all-set (a clear bit in either half defeats it).
func (a *Assembler) maskInput(p *simd.Program, mask simd.Operand, s simd.Shape, ref simd.MaskRef) (vreg, error) {
	if s != simd.Vec256 {
		return a.srcReg(p, mask, s, false)
	}
	comb := uint32(A64_V_ORR)
	if ref == simd.MaskFull {
		comb = A64_V_AND
	}
	switch mask.Kind {
	case simd.KindReg:
		r0, err := vecRegHalf(mask.Reg, s, false)
		if err != nil {
			return 0, err
		}
		r1, err := vecRegHalf(mask.Reg, s, true)
		if err != nil {
			return 0, err
		}
		a.emitRRR(p, comb, scratchVec, r0, r1)
		return scratchVec, nil
	case simd.KindMem:
		m0, err := halfMem(mask.Mem, false)
		if err != nil {
			return 0, err
		}
		m1, err := halfMem(mask.Mem, true)
		if err != nil {
			return 0, err
		}
		if err := a.emitVecLoad(p, scratchVec, m0); err != nil {
			return 0, err
		}
		if err := a.emitVecLoad(p, scratchVecAlt, m1); err != nil {
			return 0, err
		}
		a.emitRRR(p, comb, scratchVec, scratchVec, scratchVecAlt)
		return scratchVec, nil
	}
	return 0, fmt.Errorf("arm64: operand %s not valid as a mask", mask)
}

// maskJump64 reduces a .2D mask by pairwise-adding its two lanes into a
// scalar. Lanes are 0 or -1, so the sum is 0 (none set) or -2 (both set).
func (a *Assembler) maskJump64(p *simd.Program, rv vreg, ref simd.MaskRef, to simd.Label) error {
	w := newWord(A64_ADDP_D)
	w.rd(scratchVec).rn(rv)
	p.Emit(w.done())
	w = newWord(A64_FMOV_X_D)
	w.field(5, 5, uint32(scratchVec))
	w.xd(scratchLaneA)
	p.Emit(w.done())
	if ref == simd.MaskNone {
		w = newWord(A64_CBZ_X)
		w.xd(scratchLaneA)
		p.EmitBranch19(w.done(), to)
		return nil
	}
	w = newWord(A64_CMN_X_IMM)
	w.field(10, 12, 2)
	w.xn(scratchLaneA)
	p.Emit(w.done())
	w = newWord(A64_BCOND)
	w.field(0, 4, CondEQ)
	p.EmitBranch19(w.done(), to)
	return nil
}

// maskJumpNarrow reduces a .8H or .4S mask with an across-lanes maximum.
// For the all-clear test the unsigned maximum is zero exactly when every
// lane is zero. For the all-set test the signed maximum is -1 exactly when
// every lane is all-ones, since a mask lane is only ever 0 or -1.
func (a *Assembler) maskJumpNarrow(p *simd.Program, rv vreg, ref simd.MaskRef, to simd.Label, umaxv, smaxv, umov, smov uint32) error {
	if ref == simd.MaskNone {
		w := newWord(umaxv)
		w.rd(scratchVec).rn(rv)
		p.Emit(w.done())
		w = newWord(umov)
		w.field(5, 5, uint32(scratchVec))
		w.field(0, 5, uint32(scratchLaneA))
		p.Emit(w.done())
		w = newWord(A64_CBZ_W)
		w.xd(scratchLaneA)
		p.EmitBranch19(w.done(), to)
		return nil
	}
	w := newWord(smaxv)
	w.rd(scratchVec).rn(rv)
	p.Emit(w.done())
	w = newWord(smov)
	w.field(5, 5, uint32(scratchVec))
	w.field(0, 5, uint32(scratchLaneA))
	p.Emit(w.done())
	w = newWord(A64_CMN_W_IMM)
	w.field(10, 12, 1)
	w.xn(scratchLaneA)
	p.Emit(w.done())
	w = newWord(A64_BCOND)
	w.field(0, 4, CondEQ)
	p.EmitBranch19(w.done(), to)
	return nil
}
