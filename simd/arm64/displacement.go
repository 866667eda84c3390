package arm64

import (
	"github.com/vectorforge/lanegen/log"
	"github.com/vectorforge/lanegen/simd"
)

// DispClass classifies how a memory operand's displacement is encoded.
type DispClass uint8

const (
	// DispImm12: non-negative, aligned to the access size, and small enough
	// for the scaled unsigned 12-bit immediate form. The preferred class.
	DispImm12 DispClass = iota
	// DispUnscaled9: fits the signed 9-bit unscaled (LDUR/STUR) form.
	DispUnscaled9
	// DispComputed: the offset is materialized into the scratch address
	// register and the register-offset form is used.
	DispComputed
)

func (c DispClass) String() string {
	switch c {
	case DispImm12:
		return "imm12"
	case DispUnscaled9:
		return "unscaled9"
	case DispComputed:
		return "computed"
	}
	return "disp?"
}

// ClassifyDisp returns the encoding class for a displacement against an
// access of the given size in bytes. Classification must match the
// hardware's addressing-mode limits exactly; a wrong class is a wrong
// address at run time.
func ClassifyDisp(disp int32, accessBytes int) DispClass {
	if disp >= 0 && int(disp)%accessBytes == 0 && int(disp)/accessBytes < 4096 {
		return DispImm12
	}
	if disp >= -256 && disp <= 255 {
		return DispUnscaled9
	}
	return DispComputed
}

// amode is a resolved addressing mode, ready to be folded into a load/store
// template. For DispComputed, rm is the scratch register holding the
// materialized offset.
type amode struct {
	class DispClass
	rn    xreg
	imm   int32
	rm    xreg
}

// resolveAddress classifies the displacement and, for the computed class,
// emits the offset materialization into the scratch address register.
// Any emitted pre-computation words precede the instruction that consumes
// the mode.
func (a *Assembler) resolveAddress(p *simd.Program, m simd.MemRef, accessBytes int) (amode, error) {
	rn, err := baseReg(m.Base)
	if err != nil {
		return amode{}, err
	}
	class := ClassifyDisp(m.Disp, accessBytes)
	if class == DispComputed {
		log.Trace(log.EncodeMonitoring, "materializing displacement", "base", m.Base.String(), "disp", m.Disp)
		emitMovConst64(p, scratchAddr, int64(m.Disp))
		return amode{class: class, rn: rn, rm: scratchAddr}, nil
	}
	return amode{class: class, rn: rn, imm: m.Disp}, nil
}

// emitMovConst64 materializes a constant into an X register with a
// MOVZ/MOVN plus as many MOVKs as the constant needs.
func emitMovConst64(p *simd.Program, rd xreg, v int64) {
	u := uint64(v)
	// Choose the base op by which filler (all-zeros or all-ones halfwords)
	// covers more of the constant.
	zeros, ones := 0, 0
	for hw := 0; hw < 4; hw++ {
		switch (u >> (16 * hw)) & 0xffff {
		case 0x0000:
			zeros++
		case 0xffff:
			ones++
		}
	}
	invert := ones > zeros
	fill := uint64(0)
	if invert {
		fill = 0xffff
	}
	first := true
	for hw := 0; hw < 4; hw++ {
		chunk := (u >> (16 * hw)) & 0xffff
		if chunk == fill {
			continue
		}
		if first {
			template := uint32(A64_MOVZ_X)
			imm := chunk
			if invert {
				template = A64_MOVN_X
				imm = ^chunk & 0xffff
			}
			w := newWord(template)
			w.field(21, 2, uint32(hw))
			w.field(5, 16, uint32(imm))
			w.xd(rd)
			p.Emit(w.done())
			first = false
			continue
		}
		w := newWord(A64_MOVK_X)
		w.field(21, 2, uint32(hw))
		w.field(5, 16, uint32(chunk))
		w.xd(rd)
		p.Emit(w.done())
	}
	if first {
		// Constant is entirely filler: 0 or -1.
		w := newWord(A64_MOVZ_X)
		if invert {
			w = newWord(A64_MOVN_X)
		}
		w.field(21, 2, 0)
		w.field(5, 16, 0)
		w.xd(rd)
		p.Emit(w.done())
	}
}
