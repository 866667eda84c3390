package arm64

import (
	"fmt"

	"github.com/vectorforge/lanegen/log"
	"github.com/vectorforge/lanegen/simd"
)

// ScratchArena is a caller-provided memory region backing the emulation
// shim for packed operations with no native 64-bit lane opcode (multiply,
// min, max). It holds two 16-byte vector slots addressed off a base
// register the caller guarantees to be stable and 16-byte aligned for the
// lifetime of the generated code.
type ScratchArena struct {
	base simd.BaseReg
	offA int32
	offB int32
	busy bool
}

// NewScratchArena validates the slot layout. Both offsets must be
// non-negative multiples of 16 so every access inside an emulation sequence
// fits the scaled immediate addressing form, and the slots must not overlap.
func NewScratchArena(base simd.BaseReg, offA, offB int32) (*ScratchArena, error) {
	if _, err := baseReg(base); err != nil {
		return nil, err
	}
	for _, off := range []int32{offA, offB} {
		if off < 0 || off%16 != 0 {
			return nil, fmt.Errorf("arm64: arena offset %d must be a non-negative multiple of 16", off)
		}
		if off > 4080 {
			return nil, fmt.Errorf("arm64: arena offset %d exceeds the immediate addressing range", off)
		}
	}
	d := offA - offB
	if d > -16 && d < 16 {
		return nil, fmt.Errorf("arm64: arena slots at %d and %d overlap", offA, offB)
	}
	return &ScratchArena{base: base, offA: offA, offB: offB}, nil
}

// acquire takes the exclusive borrow for one emulation sequence. Nested
// borrows would interleave two sequences over the same slots.
func (sa *ScratchArena) acquire() (func(), error) {
	if sa.busy {
		return nil, fmt.Errorf("arm64: scratch arena already borrowed")
	}
	sa.busy = true
	return func() { sa.busy = false }, nil
}

// cselCond returns the condition under which the left operand is kept.
func cselCond(op simd.ArithOp, e simd.Elem) (uint32, error) {
	unsigned := e.Kind == simd.Uint
	switch op {
	case simd.ArithMin:
		if unsigned {
			return CondLO, nil
		}
		return CondLT, nil
	case simd.ArithMax:
		if unsigned {
			return CondHI, nil
		}
		return CondGT, nil
	}
	return 0, fmt.Errorf("arm64: %s has no select condition", op)
}

// emulate64 lowers a 64-bit lane multiply, min or max through the scratch
// arena: spill both operands, rewrite slot A lane by lane with scalar
// instructions, reload slot A as the result. The sequence clobbers X9 and
// X10 and owns the arena until it completes.
func (a *Assembler) emulate64(p *simd.Program, op simd.ArithOp, e simd.Elem, s simd.Shape, dst, x, y simd.Operand) error {
	if a.arena == nil {
		return fmt.Errorf("arm64: %s on 64-bit lanes needs a scratch arena", op)
	}
	release, err := a.arena.acquire()
	if err != nil {
		return err
	}
	defer release()
	log.Trace(log.EmulateMonitoring, "emulating 64-bit lane op", "op", op.String(), "elem", e.String(), "shape", s.String())

	mul := op == simd.ArithMul
	var cond uint32
	if !mul {
		cond, err = cselCond(op, e)
		if err != nil {
			return err
		}
	}
	rbase, err := baseReg(a.arena.base)
	if err != nil {
		return err
	}
	slotA := simd.MemRef{Base: a.arena.base, Disp: a.arena.offA}
	slotB := simd.MemRef{Base: a.arena.base, Disp: a.arena.offB}

	for h := 0; h < halves(s); h++ {
		secondary := h == 1
		rx, err := a.srcReg(p, x, s, secondary)
		if err != nil {
			return err
		}
		if err := a.emitVecStore(p, rx, slotA); err != nil {
			return err
		}
		ry, err := a.srcReg(p, y, s, secondary)
		if err != nil {
			return err
		}
		if err := a.emitVecStore(p, ry, slotB); err != nil {
			return err
		}
		for lane := int32(0); lane < 2; lane++ {
			emitScalarLoad(p, scratchLaneA, rbase, a.arena.offA+8*lane)
			emitScalarLoad(p, scratchLaneB, rbase, a.arena.offB+8*lane)
			if mul {
				w := newWord(A64_MUL_X)
				w.xd(scratchLaneA).xn(scratchLaneA).xm(scratchLaneB)
				p.Emit(w.done())
			} else {
				w := newWord(A64_CMP_X)
				w.xn(scratchLaneA).xm(scratchLaneB)
				p.Emit(w.done())
				w = newWord(A64_CSEL_X)
				w.field(12, 4, cond)
				w.xd(scratchLaneA).xn(scratchLaneA).xm(scratchLaneB)
				p.Emit(w.done())
			}
			emitScalarStore(p, scratchLaneA, rbase, a.arena.offA+8*lane)
		}
		rd, commit, err := a.dstReg(p, dst, s, secondary)
		if err != nil {
			return err
		}
		if err := a.emitVecLoad(p, rd, slotA); err != nil {
			return err
		}
		if err := commit(); err != nil {
			return err
		}
	}
	return nil
}
