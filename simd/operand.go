package simd

import "fmt"

// VecReg is a logical vector register index. The physical encoding, the
// supported index range and the pairing rule in Vec256 mode are decided by
// the target (see simd/arm64 registers).
type VecReg uint8

func (r VecReg) String() string { return fmt.Sprintf("v%d", uint8(r)) }

// BaseReg is a logical general-purpose register index, used as the base of a
// memory reference or as a scratch scalar inside emulation sequences.
type BaseReg uint8

func (r BaseReg) String() string { return fmt.Sprintf("x%d", uint8(r)) }

// MemRef is a base-plus-displacement memory reference. The displacement is a
// byte offset; how it is encoded (or pre-computed) is the displacement
// resolver's business.
type MemRef struct {
	Base BaseReg
	Disp int32
}

func (m MemRef) String() string {
	if m.Disp == 0 {
		return fmt.Sprintf("[%s]", m.Base)
	}
	return fmt.Sprintf("[%s, #%d]", m.Base, m.Disp)
}

// OperandKind tags the Operand union.
type OperandKind uint8

const (
	KindReg OperandKind = iota
	KindMem
	KindImm
)

// Operand is one operand slot of a pseudo-instruction: a vector register, a
// memory reference, or an immediate. Immediates are only accepted where an
// operation takes one (shift counts); everywhere else they are rejected at
// lowering time.
type Operand struct {
	Kind OperandKind
	Reg  VecReg
	Mem  MemRef
	Imm  int64
}

// Reg builds a register operand.
func Reg(r VecReg) Operand { return Operand{Kind: KindReg, Reg: r} }

// Mem builds a memory operand.
func Mem(base BaseReg, disp int32) Operand {
	return Operand{Kind: KindMem, Mem: MemRef{Base: base, Disp: disp}}
}

// Imm builds an immediate operand.
func Imm(v int64) Operand { return Operand{Kind: KindImm, Imm: v} }

func (o Operand) String() string {
	switch o.Kind {
	case KindReg:
		return o.Reg.String()
	case KindMem:
		return o.Mem.String()
	case KindImm:
		return fmt.Sprintf("#%d", o.Imm)
	}
	return fmt.Sprintf("operand(%d)", o.Kind)
}
