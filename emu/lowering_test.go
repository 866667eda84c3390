package emu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorforge/lanegen/simd"
	"github.com/vectorforge/lanegen/simd/arm64"
)

const arenaBase = 256 // byte offset of the scratch arena inside test memory

func build(t *testing.T, cfg simd.Config, f func(a *arm64.Assembler, p *simd.Program) error) *Machine {
	t.Helper()
	arena, err := arm64.NewScratchArena(2, 0, 16)
	require.NoError(t, err)
	a := arm64.New(cfg, arena)
	p := simd.NewProgram()
	require.NoError(t, f(a, p))
	words, err := p.Words()
	require.NoError(t, err)
	m := New(words, 4096)
	m.X[2] = arenaBase
	return m
}

func run(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.Run(10000))
}

func TestAddF64EndToEnd(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithAdd, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
	})
	m.SetF64Lanes(0, 1.0, 2.0)
	m.SetF64Lanes(1, 3.0, 4.0)
	run(t, m)
	lo, hi := m.F64Lanes(2)
	require.Equal(t, 4.0, lo)
	require.Equal(t, 6.0, hi)
}

func TestMemorySourceLoadsBeforeUse(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithAdd, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Mem(0, 64))
	})
	m.X[0] = 0
	binary.LittleEndian.PutUint64(m.Mem[64:], math.Float64bits(10.0))
	binary.LittleEndian.PutUint64(m.Mem[72:], math.Float64bits(20.0))
	m.SetF64Lanes(0, 1.0, 2.0)
	run(t, m)
	lo, hi := m.F64Lanes(2)
	require.Equal(t, 11.0, lo)
	require.Equal(t, 22.0, hi)
}

func TestMemoryDestinationStoresResult(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithMul, simd.F64, simd.Vec128, simd.Mem(0, 128), simd.Reg(0), simd.Reg(1))
	})
	m.SetF64Lanes(0, 3.0, 5.0)
	m.SetF64Lanes(1, 7.0, 9.0)
	run(t, m)
	require.Equal(t, 21.0, math.Float64frombits(binary.LittleEndian.Uint64(m.Mem[128:])))
	require.Equal(t, 45.0, math.Float64frombits(binary.LittleEndian.Uint64(m.Mem[136:])))
}

func TestMemoryToMemoryAdd(t *testing.T) {
	// One lowering with both memory operands: the addend is loaded into the
	// scratch register, the sum computed into the store scratch, then stored.
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithAdd, simd.F64, simd.Vec128, simd.Mem(0, 128), simd.Reg(0), simd.Mem(0, 64))
	})
	m.X[0] = 0
	m.SetF64Lanes(0, 1.0, 2.0)
	binary.LittleEndian.PutUint64(m.Mem[64:], math.Float64bits(3.0))
	binary.LittleEndian.PutUint64(m.Mem[72:], math.Float64bits(4.0))
	run(t, m)
	require.Equal(t, 4.0, math.Float64frombits(binary.LittleEndian.Uint64(m.Mem[128:])))
	require.Equal(t, 6.0, math.Float64frombits(binary.LittleEndian.Uint64(m.Mem[136:])))
}

func TestNegativeDisplacementLoad(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		return a.Move(p, simd.F64, simd.Vec128, simd.Reg(1), simd.Mem(0, -16))
	})
	m.X[0] = 512
	binary.LittleEndian.PutUint64(m.Mem[496:], math.Float64bits(42.0))
	run(t, m)
	lo, _ := m.F64Lanes(1)
	require.Equal(t, 42.0, lo)
}

func TestComputedDisplacementLoad(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		// 1000 is neither 16-aligned-scaled nor within the unscaled range.
		return a.Move(p, simd.F64, simd.Vec128, simd.Reg(1), simd.Mem(0, 1000))
	})
	m.X[0] = 0
	binary.LittleEndian.PutUint64(m.Mem[1000:], math.Float64bits(7.0))
	run(t, m)
	lo, _ := m.F64Lanes(1)
	require.Equal(t, 7.0, lo)
}

func TestPairedAddCoversBothHalves(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithAdd, simd.F64, simd.Vec256, simd.Reg(2), simd.Reg(0), simd.Reg(1))
	})
	// Logical v0 = (v0, v1), v1 = (v2, v3), v2 = (v4, v5).
	m.SetF64Lanes(0, 1, 2)
	m.SetF64Lanes(1, 3, 4)
	m.SetF64Lanes(2, 10, 20)
	m.SetF64Lanes(3, 30, 40)
	run(t, m)
	lo, hi := m.F64Lanes(4)
	require.Equal(t, 11.0, lo)
	require.Equal(t, 22.0, hi)
	lo, hi = m.F64Lanes(5)
	require.Equal(t, 33.0, lo)
	require.Equal(t, 44.0, hi)
}

func TestEmulatedMul64MatchesScalar(t *testing.T) {
	cases := [][2][2]uint64{
		{{0, 1}, {5, 7}},
		{{1 << 63, 3}, {2, ^uint64(0)}},
		{{0x7FFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF}, {0xDEADBEEFCAFEBABE, 2}},
	}
	for _, c := range cases {
		m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
			return a.Arith(p, simd.ArithMul, simd.I64, simd.Vec128, simd.Reg(4), simd.Reg(0), simd.Reg(1))
		})
		m.V[0] = c[0]
		m.V[1] = c[1]
		run(t, m)
		require.Equal(t, c[0][0]*c[1][0], m.V[4][0])
		require.Equal(t, c[0][1]*c[1][1], m.V[4][1])
	}
}

func TestEmulatedMinMax64(t *testing.T) {
	x := [2]uint64{uint64(1 << 63), 100}         // signed: very negative, 100
	y := [2]uint64{5, ^uint64(0)}                // signed: 5, -1
	check := func(op simd.ArithOp, e simd.Elem, want [2]uint64) {
		m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
			return a.Arith(p, op, e, simd.Vec128, simd.Reg(4), simd.Reg(0), simd.Reg(1))
		})
		m.V[0] = x
		m.V[1] = y
		run(t, m)
		require.Equal(t, want, m.V[4], "%s %s", op, e)
	}
	check(simd.ArithMin, simd.I64, [2]uint64{1 << 63, ^uint64(0)})
	check(simd.ArithMax, simd.I64, [2]uint64{5, 100})
	check(simd.ArithMin, simd.U64, [2]uint64{5, 100})
	check(simd.ArithMax, simd.U64, [2]uint64{1 << 63, ^uint64(0)})
}

func TestNativeMul32(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithMul, simd.U32, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
	})
	m.V[0] = [2]uint64{3 | 5<<32, 7 | 0xFFFFFFFF<<32}
	m.V[1] = [2]uint64{10 | 10<<32, 10 | 2<<32}
	run(t, m)
	require.Equal(t, [2]uint64{30 | 50<<32, 70 | 0xFFFFFFFE<<32}, m.V[2])
}

func TestConvertRoundTrip(t *testing.T) {
	roundTrip := func(x, y float64) (*Machine, float64, float64) {
		m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
			if err := a.ConvertToInt(p, simd.I64, simd.Vec128, simd.Reg(1), simd.Reg(0), simd.RoundNearest); err != nil {
				return err
			}
			return a.ConvertToFloat(p, simd.I64, simd.Vec128, simd.Reg(2), simd.Reg(1))
		})
		m.SetF64Lanes(0, x, y)
		run(t, m)
		lo, hi := m.F64Lanes(2)
		return m, lo, hi
	}

	m, lo, hi := roundTrip(1.5, -1.5) // ties round to even
	require.Equal(t, uint64(2), m.V[1][0])
	require.Equal(t, uint64(0xFFFFFFFFFFFFFFFE), m.V[1][1]) // -2
	require.Equal(t, 2.0, lo)
	require.Equal(t, -2.0, hi)

	m, lo, hi = roundTrip(0.0, 1e15)
	require.Equal(t, uint64(0), m.V[1][0])
	require.Equal(t, uint64(1e15), m.V[1][1])
	require.Equal(t, 0.0, lo)
	require.Equal(t, 1e15, hi)
}

func TestConvertRoundModes(t *testing.T) {
	conv := func(mode simd.RoundMode, x float64) int64 {
		m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
			return a.ConvertToInt(p, simd.I64, simd.Vec128, simd.Reg(1), simd.Reg(0), mode)
		})
		m.SetF64Lanes(0, x, 0)
		run(t, m)
		return int64(m.V[1][0])
	}
	require.Equal(t, int64(2), conv(simd.RoundNearest, 1.5))
	require.Equal(t, int64(1), conv(simd.RoundDown, 1.7))
	require.Equal(t, int64(-2), conv(simd.RoundDown, -1.3))
	require.Equal(t, int64(2), conv(simd.RoundUp, 1.3))
	require.Equal(t, int64(1), conv(simd.RoundZero, 1.9))
	require.Equal(t, int64(-1), conv(simd.RoundZero, -1.9))
	require.Equal(t, int64(2), conv(simd.RoundDynamic, 1.5))
	require.Equal(t, int64(1e15), conv(simd.RoundNearest, 1e15))
}

func TestShiftBehavior(t *testing.T) {
	shift := func(op simd.ShiftOp, e simd.Elem, count uint8, in [2]uint64) [2]uint64 {
		m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
			return a.Shift(p, op, e, simd.Vec128, simd.Reg(1), simd.Reg(0), count)
		})
		m.V[0] = in
		run(t, m)
		return m.V[1]
	}
	in := [2]uint64{0x8000000000000001, 0x00000000000000F0}
	require.Equal(t, [2]uint64{0x8, 0x780}, shift(simd.ShiftLeft, simd.U64, 3, in))
	require.Equal(t, [2]uint64{0x0800000000000000, 0xF}, shift(simd.ShiftRightLogical, simd.U64, 4, in))
	require.Equal(t, [2]uint64{0xF800000000000000, 0xF}, shift(simd.ShiftRightArith, simd.I64, 4, in))
	require.Equal(t, in, shift(simd.ShiftLeft, simd.U64, 0, in))
	require.Equal(t, in, shift(simd.ShiftRightArith, simd.I64, 0, in))
	require.Equal(t, [2]uint64{0, 0}, shift(simd.ShiftRightLogical, simd.U64, 64, in))
}

func TestCompareProducesMasks(t *testing.T) {
	cmp := func(rel simd.Cmp, e simd.Elem, x, y [2]uint64) [2]uint64 {
		m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
			return a.Compare(p, rel, e, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
		})
		m.V[0] = x
		m.V[1] = y
		run(t, m)
		return m.V[2]
	}
	ones := ^uint64(0)
	x := [2]uint64{5, 9}
	y := [2]uint64{5, 3}
	require.Equal(t, [2]uint64{ones, 0}, cmp(simd.CmpEQ, simd.I64, x, y))
	require.Equal(t, [2]uint64{0, ones}, cmp(simd.CmpNE, simd.I64, x, y))
	require.Equal(t, [2]uint64{0, ones}, cmp(simd.CmpGT, simd.I64, x, y))
	require.Equal(t, [2]uint64{ones, 0}, cmp(simd.CmpLE, simd.I64, x, y))
	// Signed vs unsigned ordering around the sign bit.
	neg := [2]uint64{1 << 63, 1 << 63}
	pos := [2]uint64{1, 1}
	require.Equal(t, [2]uint64{0, 0}, cmp(simd.CmpGT, simd.I64, neg, pos))
	require.Equal(t, [2]uint64{ones, ones}, cmp(simd.CmpGT, simd.U64, neg, pos))
	// Float NE through the complement path.
	fx := [2]uint64{math.Float64bits(1.0), math.Float64bits(2.0)}
	fy := [2]uint64{math.Float64bits(1.0), math.Float64bits(3.0)}
	require.Equal(t, [2]uint64{0, ones}, cmp(simd.CmpNE, simd.F64, fx, fy))
}

// maskProgram lowers: compare, conditionally skip a sentinel move, halt.
// X1 ends up 1 when the branch was NOT taken.
func maskProgram(t *testing.T, e simd.Elem, s simd.Shape, ref simd.MaskRef, x, y [][2]uint64) bool {
	t.Helper()
	arena, err := arm64.NewScratchArena(2, 0, 16)
	require.NoError(t, err)
	a := arm64.New(simd.DefaultConfig(), arena)
	p := simd.NewProgram()
	skip := p.NewLabel()
	require.NoError(t, a.Compare(p, simd.CmpEQ, e, s, simd.Reg(4), simd.Reg(0), simd.Reg(1)))
	require.NoError(t, a.MaskJump(p, e, s, simd.Reg(4), ref, skip))
	p.Emit(0xD2800000 | 1<<5 | 1) // MOVZ x1, #1: the sentinel the jump skips
	require.NoError(t, p.Bind(skip))
	words, err := p.Words()
	require.NoError(t, err)
	m := New(words, 4096)
	// Logical v0 occupies physical v0 (and v1 when paired); logical v1
	// starts at physical v1, or v2 when paired.
	for i, v := range x {
		m.V[i] = v
	}
	yBase := 1
	if s == simd.Vec256 {
		yBase = 2
	}
	for i, v := range y {
		m.V[yBase+i] = v
	}
	require.NoError(t, m.Run(10000))
	return m.X[1] == 0 // branch taken iff sentinel skipped
}

func TestMaskJumpBehavior64(t *testing.T) {
	eq := [2]uint64{7, 7}
	half := [2]uint64{7, 8}
	neq := [2]uint64{1, 2}
	base := [2]uint64{7, 7}

	// MaskNone: taken only when no lane matches.
	require.True(t, maskProgram(t, simd.I64, simd.Vec128, simd.MaskNone, [][2]uint64{neq}, [][2]uint64{base}))
	require.False(t, maskProgram(t, simd.I64, simd.Vec128, simd.MaskNone, [][2]uint64{half}, [][2]uint64{base}))
	require.False(t, maskProgram(t, simd.I64, simd.Vec128, simd.MaskNone, [][2]uint64{eq}, [][2]uint64{base}))

	// MaskFull: taken only when every lane matches.
	require.True(t, maskProgram(t, simd.I64, simd.Vec128, simd.MaskFull, [][2]uint64{eq}, [][2]uint64{base}))
	require.False(t, maskProgram(t, simd.I64, simd.Vec128, simd.MaskFull, [][2]uint64{half}, [][2]uint64{base}))
	require.False(t, maskProgram(t, simd.I64, simd.Vec128, simd.MaskFull, [][2]uint64{neq}, [][2]uint64{base}))
}

func TestMaskJumpBehavior16(t *testing.T) {
	eq := [2]uint64{0x0007000700070007, 0x0007000700070007}
	mixed := [2]uint64{0x0007000700070008, 0x0007000700070007}
	neq := [2]uint64{0x0001000100010001, 0x0001000100010001}
	base := [2]uint64{0x0007000700070007, 0x0007000700070007}

	require.True(t, maskProgram(t, simd.I16, simd.Vec128, simd.MaskNone, [][2]uint64{neq}, [][2]uint64{base}))
	require.False(t, maskProgram(t, simd.I16, simd.Vec128, simd.MaskNone, [][2]uint64{mixed}, [][2]uint64{base}))
	require.True(t, maskProgram(t, simd.I16, simd.Vec128, simd.MaskFull, [][2]uint64{eq}, [][2]uint64{base}))
	require.False(t, maskProgram(t, simd.I16, simd.Vec128, simd.MaskFull, [][2]uint64{mixed}, [][2]uint64{base}))
}

func TestMaskJumpBehaviorPaired(t *testing.T) {
	eq := [2]uint64{7, 7}
	neq := [2]uint64{1, 2}
	base := [2]uint64{7, 7}

	// Full only when both halves match everywhere.
	require.True(t, maskProgram(t, simd.I64, simd.Vec256, simd.MaskFull, [][2]uint64{eq, eq}, [][2]uint64{base, base}))
	require.False(t, maskProgram(t, simd.I64, simd.Vec256, simd.MaskFull, [][2]uint64{eq, neq}, [][2]uint64{base, base}))
	// None only when neither half matches anywhere.
	require.True(t, maskProgram(t, simd.I64, simd.Vec256, simd.MaskNone, [][2]uint64{neq, neq}, [][2]uint64{base, base}))
	require.False(t, maskProgram(t, simd.I64, simd.Vec256, simd.MaskNone, [][2]uint64{eq, neq}, [][2]uint64{base, base}))
}

func TestFusedMulAddBehavior(t *testing.T) {
	for _, exact := range []bool{true, false} {
		cfg := simd.DefaultConfig()
		cfg.ExactFMA = exact
		m := build(t, cfg, func(a *arm64.Assembler, p *simd.Program) error {
			return a.FusedMulAdd(p, simd.F64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1))
		})
		m.SetF64Lanes(0, 3.0, -2.0)
		m.SetF64Lanes(1, 4.0, 5.0)
		m.SetF64Lanes(2, 1.0, 1.0)
		run(t, m)
		lo, hi := m.F64Lanes(2)
		require.Equal(t, 13.0, lo, "exact=%v", exact)
		require.Equal(t, -9.0, hi, "exact=%v", exact)
	}
}

func TestRecipLevels(t *testing.T) {
	for _, level := range []simd.ApproxLevel{simd.ApproxFast, simd.ApproxRefined, simd.ApproxFull} {
		cfg := simd.DefaultConfig()
		cfg.Approx = level
		m := build(t, cfg, func(a *arm64.Assembler, p *simd.Program) error {
			return a.Arith(p, simd.ArithRecip, simd.F64, simd.Vec128, simd.Reg(1), simd.Reg(0), simd.Operand{})
		})
		m.SetF64Lanes(0, 4.0, 0.5)
		run(t, m)
		lo, hi := m.F64Lanes(1)
		require.InDelta(t, 0.25, lo, 1e-9, "%s", level)
		require.InDelta(t, 2.0, hi, 1e-9, "%s", level)
	}
}

func TestRSqrtFull(t *testing.T) {
	cfg := simd.DefaultConfig()
	cfg.Approx = simd.ApproxFull
	m := build(t, cfg, func(a *arm64.Assembler, p *simd.Program) error {
		return a.Arith(p, simd.ArithRSqrt, simd.F64, simd.Vec128, simd.Reg(1), simd.Reg(0), simd.Operand{})
	})
	m.SetF64Lanes(0, 4.0, 16.0)
	run(t, m)
	lo, hi := m.F64Lanes(1)
	require.Equal(t, 0.5, lo)
	require.Equal(t, 0.25, hi)
}

func TestLogicBehavior(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		if err := a.Logic(p, simd.LogicAnd, simd.U64, simd.Vec128, simd.Reg(2), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		if err := a.Logic(p, simd.LogicXor, simd.U64, simd.Vec128, simd.Reg(3), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		if err := a.Logic(p, simd.LogicAndNot, simd.U64, simd.Vec128, simd.Reg(4), simd.Reg(0), simd.Reg(1)); err != nil {
			return err
		}
		return a.Logic(p, simd.LogicNot, simd.U64, simd.Vec128, simd.Reg(5), simd.Reg(0), simd.Operand{})
	})
	m.V[0] = [2]uint64{0xFF00FF00FF00FF00, 0x0123456789ABCDEF}
	m.V[1] = [2]uint64{0x0F0F0F0F0F0F0F0F, 0xFFFFFFFF00000000}
	run(t, m)
	require.Equal(t, [2]uint64{0x0F000F000F000F00, 0x0123456700000000}, m.V[2])
	require.Equal(t, [2]uint64{0xF00FF00FF00FF00F, 0xFEDCBA9889ABCDEF}, m.V[3])
	require.Equal(t, [2]uint64{0xF000F000F000F000, 0x0000000089ABCDEF}, m.V[4])
	require.Equal(t, [2]uint64{0x00FF00FF00FF00FF, 0xFEDCBA9876543210}, m.V[5])
}

func TestZeroAndMove(t *testing.T) {
	m := build(t, simd.DefaultConfig(), func(a *arm64.Assembler, p *simd.Program) error {
		if err := a.Zero(p, simd.F64, simd.Vec128, simd.Reg(3)); err != nil {
			return err
		}
		return a.Move(p, simd.F64, simd.Vec128, simd.Reg(4), simd.Reg(0))
	})
	m.V[3] = [2]uint64{1, 2}
	m.V[0] = [2]uint64{0xAAAA, 0xBBBB}
	run(t, m)
	require.Equal(t, [2]uint64{0, 0}, m.V[3])
	require.Equal(t, [2]uint64{0xAAAA, 0xBBBB}, m.V[4])
}
