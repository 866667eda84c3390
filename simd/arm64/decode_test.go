package arm64

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/arm64/arm64asm"

	"github.com/vectorforge/lanegen/simd"
)

// decodeAll cross-checks every emitted word against the reference decoder
// and returns the mnemonics. Half-precision arithmetic is excluded from
// these tests: the reference decoder predates the FP16 extension.
func decodeAll(t *testing.T, words []uint32) []string {
	t.Helper()
	var out []string
	for i, w := range words {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], w)
		inst, err := arm64asm.Decode(buf[:])
		require.NoError(t, err, "word %d: %#08x", i, w)
		out = append(out, inst.Op.String())
	}
	return out
}

func mnemonic(t *testing.T, f func(a *Assembler, p *simd.Program) error) []string {
	t.Helper()
	return decodeAll(t, lower(t, simd.DefaultConfig(), f))
}

func TestDecodeArith(t *testing.T) {
	ops := mnemonic(t, func(a *Assembler, p *simd.Program) error {
		if err := a.Arith(p, simd.ArithAdd, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		if err := a.Arith(p, simd.ArithSub, simd.F32, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		if err := a.Arith(p, simd.ArithMul, simd.I32, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		if err := a.Arith(p, simd.ArithMin, simd.U16, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		return a.Arith(p, simd.ArithDiv, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
	})
	require.Equal(t, []string{"FADD", "FSUB", "MUL", "UMIN", "FDIV"}, ops)
}

func TestDecodeCompare(t *testing.T) {
	ops := mnemonic(t, func(a *Assembler, p *simd.Program) error {
		if err := a.Compare(p, simd.CmpEQ, simd.I64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		if err := a.Compare(p, simd.CmpGT, simd.U32, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		return a.Compare(p, simd.CmpGE, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
	})
	require.Equal(t, []string{"CMEQ", "CMHI", "FCMGE"}, ops)
}

func TestDecodeConverts(t *testing.T) {
	ops := mnemonic(t, func(a *Assembler, p *simd.Program) error {
		if err := a.ConvertToInt(p, simd.I64, simd.Vec128, simd.Reg(1), simd.Reg(0), simd.RoundNearest); err != nil {
			return err
		}
		if err := a.ConvertToInt(p, simd.U32, simd.Vec128, simd.Reg(1), simd.Reg(0), simd.RoundZero); err != nil {
			return err
		}
		if err := a.ConvertToInt(p, simd.I32, simd.Vec128, simd.Reg(1), simd.Reg(0), simd.RoundDynamic); err != nil {
			return err
		}
		return a.ConvertToFloat(p, simd.I64, simd.Vec128, simd.Reg(1), simd.Reg(0))
	})
	require.Equal(t, []string{"FCVTNS", "FCVTZU", "FRINTI", "FCVTZS", "SCVTF"}, ops)
}

func TestDecodeShifts(t *testing.T) {
	ops := mnemonic(t, func(a *Assembler, p *simd.Program) error {
		if err := a.Shift(p, simd.ShiftLeft, simd.I64, simd.Vec128, simd.Reg(1), simd.Reg(0), 3); err != nil {
			return err
		}
		if err := a.Shift(p, simd.ShiftRightLogical, simd.U32, simd.Vec128, simd.Reg(1), simd.Reg(0), 7); err != nil {
			return err
		}
		return a.Shift(p, simd.ShiftRightArith, simd.I16, simd.Vec128, simd.Reg(1), simd.Reg(0), 2)
	})
	require.Equal(t, []string{"SHL", "USHR", "SSHR"}, ops)
}

func TestDecodeMemoryForms(t *testing.T) {
	ops := mnemonic(t, func(a *Assembler, p *simd.Program) error {
		if err := a.Move(p, simd.F64, simd.Vec128, simd.Reg(3), simd.Mem(0, 32)); err != nil {
			return err
		}
		if err := a.Move(p, simd.F64, simd.Vec128, simd.Reg(3), simd.Mem(0, -16)); err != nil {
			return err
		}
		// Large displacement forces offset materialization plus the
		// register-offset form.
		return a.Move(p, simd.F64, simd.Vec128, simd.Reg(3), simd.Mem(0, 1<<20))
	})
	require.Len(t, ops, 4)
	require.Equal(t, "LDR", ops[0])
	require.Equal(t, "LDUR", ops[1])
	// The wide-immediate move may decode as its MOV alias.
	require.Contains(t, []string{"MOVZ", "MOV"}, ops[2])
	require.Equal(t, "LDR", ops[3])
}

func TestDecodeEmulatedSequence(t *testing.T) {
	ops := mnemonic(t, func(a *Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithMax, simd.U64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
	})
	require.Len(t, ops, 13)
	for _, i := range []int{0, 1, 6, 11} {
		require.Equal(t, "STR", ops[i])
	}
	for _, i := range []int{2, 3, 7, 8, 12} {
		require.Equal(t, "LDR", ops[i])
	}
	for _, i := range []int{4, 9} {
		// SUBS with the zero register destination is the CMP alias.
		require.Contains(t, []string{"CMP", "SUBS"}, ops[i])
	}
	for _, i := range []int{5, 10} {
		require.Equal(t, "CSEL", ops[i])
	}
}

func TestDecodeFusedAndApprox(t *testing.T) {
	cfg := simd.DefaultConfig()
	cfg.Approx = simd.ApproxRefined
	arena, err := NewScratchArena(2, 0, 16)
	require.NoError(t, err)
	a := New(cfg, arena)
	p := simd.NewProgram()
	require.NoError(t, a.FusedMulAdd(p, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)))
	require.NoError(t, a.FusedMulSub(p, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)))
	require.NoError(t, a.Arith(p, simd.ArithRecip, simd.F64, simd.Vec128, simd.Reg(1), simd.Reg(0), simd.Operand{}))
	words, err := p.Words()
	require.NoError(t, err)
	ops := decodeAll(t, words)
	require.Equal(t, []string{
		"FMLA", "FMLS",
		"FRECPE", "FRECPS", "FMUL", "FRECPS", "FMUL",
	}, ops)
}

func TestDecodeMaskJump(t *testing.T) {
	a := New(simd.DefaultConfig(), nil)
	p := simd.NewProgram()
	to := p.NewLabel()
	require.NoError(t, a.MaskJump(p, simd.F64, simd.Vec128, simd.Reg(0), simd.MaskFull, to))
	require.NoError(t, a.MaskJump(p, simd.U16, simd.Vec128, simd.Reg(0), simd.MaskNone, to))
	require.NoError(t, p.Bind(to))
	words, err := p.Words()
	require.NoError(t, err)
	ops := decodeAll(t, words)
	require.Len(t, ops, 7)
	require.Equal(t, "ADDP", ops[0])
	require.Equal(t, "FMOV", ops[1])
	require.Contains(t, []string{"CMN", "ADDS"}, ops[2])
	require.Contains(t, []string{"B.EQ", "B"}, ops[3])
	require.Equal(t, "UMAXV", ops[4])
	require.Equal(t, "UMOV", ops[5])
	require.Equal(t, "CBZ", ops[6])
}

func TestDecodeEveryIntWidth(t *testing.T) {
	for _, e := range []simd.Elem{simd.I16, simd.I32, simd.I64, simd.U16, simd.U32, simd.U64} {
		words := lower(t, simd.DefaultConfig(), func(a *Assembler, p *simd.Program) error {
			if err := a.Arith(p, simd.ArithAdd, e, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
				return err
			}
			return a.Arith(p, simd.ArithSub, e, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
		})
		ops := decodeAll(t, words)
		require.Equal(t, []string{"ADD", "SUB"}, ops, "%s", e)
	}
}
