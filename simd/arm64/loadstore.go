package arm64

import (
	"fmt"

	"github.com/vectorforge/lanegen/simd"
)

// emitVecLoad loads a full 128-bit register from memory, emitting any
// address pre-computation first.
func (a *Assembler) emitVecLoad(p *simd.Program, rt vreg, m simd.MemRef) error {
	return a.emitVecMem(p, rt, m, true)
}

// emitVecStore stores a full 128-bit register to memory.
func (a *Assembler) emitVecStore(p *simd.Program, rt vreg, m simd.MemRef) error {
	return a.emitVecMem(p, rt, m, false)
}

func (a *Assembler) emitVecMem(p *simd.Program, rt vreg, m simd.MemRef, load bool) error {
	mode, err := a.resolveAddress(p, m, 16)
	if err != nil {
		return err
	}
	switch mode.class {
	case DispImm12:
		template := uint32(A64_STR_Q_IMM)
		if load {
			template = A64_LDR_Q_IMM
		}
		w := newWord(template)
		w.field(10, 12, uint32(mode.imm/16))
		w.field(5, 5, uint32(mode.rn))
		w.rd(rt)
		p.Emit(w.done())
	case DispUnscaled9:
		template := uint32(A64_STUR_Q)
		if load {
			template = A64_LDUR_Q
		}
		w := newWord(template)
		w.field(12, 9, uint32(mode.imm)&0x1ff)
		w.field(5, 5, uint32(mode.rn))
		w.rd(rt)
		p.Emit(w.done())
	case DispComputed:
		template := uint32(A64_STR_Q_REG)
		if load {
			template = A64_LDR_Q_REG
		}
		w := newWord(template)
		w.field(16, 5, uint32(mode.rm))
		w.field(5, 5, uint32(mode.rn))
		w.rd(rt)
		p.Emit(w.done())
	default:
		panic("BUG: unhandled displacement class")
	}
	return nil
}

// emitScalarLoad and emitScalarStore move one 64-bit lane between an X
// register and the scratch arena. Arena offsets are validated at arena
// construction, so only the scaled immediate form is needed here.
func emitScalarLoad(p *simd.Program, rt xreg, rn xreg, off int32) {
	w := newWord(A64_LDR_X_IMM)
	w.field(10, 12, uint32(off/8))
	w.field(5, 5, uint32(rn))
	w.xd(rt)
	p.Emit(w.done())
}

func emitScalarStore(p *simd.Program, rt xreg, rn xreg, off int32) {
	w := newWord(A64_STR_X_IMM)
	w.field(10, 12, uint32(off/8))
	w.field(5, 5, uint32(rn))
	w.xd(rt)
	p.Emit(w.done())
}

// halfMem offsets a memory reference to address the secondary 128-bit half
// of a paired-256 operand.
func halfMem(m simd.MemRef, secondary bool) (simd.MemRef, error) {
	if !secondary {
		return m, nil
	}
	if m.Disp > 0 && m.Disp+16 < m.Disp {
		return m, fmt.Errorf("arm64: displacement %d overflows addressing the secondary half", m.Disp)
	}
	m.Disp += 16
	return m, nil
}
