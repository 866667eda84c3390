// Package emu interprets the AArch64 subset emitted by the arm64 lowering
// backend. It exists so generated code can be executed and checked on any
// build host; it models exactly the instructions the backend produces and
// rejects everything else.
package emu

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Machine is one interpreter instance: scalar and vector register files, a
// flat little-endian memory, the NZCV flags and a program counter in words.
type Machine struct {
	X   [32]uint64    // X31 reads as zero, writes are discarded
	V   [32][2]uint64 // 128-bit vector registers, low lane first
	Mem []byte
	PC  int

	flagN bool
	flagZ bool
	flagC bool
	flagV bool

	code []uint32
}

// New builds a machine over the given code with a zeroed memory of memSize
// bytes.
func New(code []uint32, memSize int) *Machine {
	return &Machine{code: code, Mem: make([]byte, memSize)}
}

// Run steps until the program counter falls off the end of the code, or
// until maxSteps instructions have retired.
func (m *Machine) Run(maxSteps int) error {
	for steps := 0; m.PC != len(m.code); steps++ {
		if steps >= maxSteps {
			return fmt.Errorf("emu: no halt after %d steps", maxSteps)
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) getX(r uint32) uint64 {
	if r == 31 {
		return 0
	}
	return m.X[r]
}

func (m *Machine) setX(r uint32, v uint64) {
	if r != 31 {
		m.X[r] = v
	}
}

// SetF64Lanes stores float64 values into consecutive 64-bit lanes of a
// vector register.
func (m *Machine) SetF64Lanes(r int, lo, hi float64) {
	m.V[r][0] = math.Float64bits(lo)
	m.V[r][1] = math.Float64bits(hi)
}

// F64Lanes reads both 64-bit lanes of a vector register as float64.
func (m *Machine) F64Lanes(r int) (lo, hi float64) {
	return math.Float64frombits(m.V[r][0]), math.Float64frombits(m.V[r][1])
}

func rd(w uint32) uint32 { return w & 0x1f }
func rn(w uint32) uint32 { return (w >> 5) & 0x1f }
func rm(w uint32) uint32 { return (w >> 16) & 0x1f }

func (m *Machine) load(addr uint64, n int) ([]byte, error) {
	if addr > uint64(len(m.Mem)) || addr+uint64(n) > uint64(len(m.Mem)) {
		return nil, fmt.Errorf("emu: access of %d bytes at %#x outside %d-byte memory", n, addr, len(m.Mem))
	}
	return m.Mem[addr : addr+uint64(n)], nil
}

func (m *Machine) cond(c uint32) bool {
	switch c {
	case 0x0: // EQ
		return m.flagZ
	case 0x1: // NE
		return !m.flagZ
	case 0x2: // HS
		return m.flagC
	case 0x3: // LO
		return !m.flagC
	case 0x8: // HI
		return m.flagC && !m.flagZ
	case 0x9: // LS
		return !(m.flagC && !m.flagZ)
	case 0xA: // GE
		return m.flagN == m.flagV
	case 0xB: // LT
		return m.flagN != m.flagV
	case 0xC: // GT
		return !m.flagZ && m.flagN == m.flagV
	case 0xD: // LE
		return !(!m.flagZ && m.flagN == m.flagV)
	}
	return false
}

func (m *Machine) addFlags64(a, b uint64) uint64 {
	r := a + b
	m.flagN = int64(r) < 0
	m.flagZ = r == 0
	m.flagC = r < a
	m.flagV = (int64(a) >= 0) == (int64(b) >= 0) && (int64(r) >= 0) != (int64(a) >= 0)
	return r
}

func (m *Machine) subFlags64(a, b uint64) uint64 {
	r := a - b
	m.flagN = int64(r) < 0
	m.flagZ = r == 0
	m.flagC = a >= b
	m.flagV = (int64(a) >= 0) != (int64(b) >= 0) && (int64(r) >= 0) != (int64(a) >= 0)
	return r
}

func (m *Machine) addFlags32(a, b uint32) uint32 {
	r := a + b
	m.flagN = int32(r) < 0
	m.flagZ = r == 0
	m.flagC = r < a
	m.flagV = (int32(a) >= 0) == (int32(b) >= 0) && (int32(r) >= 0) != (int32(a) >= 0)
	return r
}

func signExtend19(v uint32) int {
	return int(int32(v<<13) >> 13)
}

func signExtend26(v uint32) int {
	return int(int32(v<<6) >> 6)
}

// Step decodes and executes one instruction word.
func (m *Machine) Step() error {
	if m.PC < 0 || m.PC >= len(m.code) {
		return fmt.Errorf("emu: pc %d outside code of %d words", m.PC, len(m.code))
	}
	w := m.code[m.PC]
	next := m.PC + 1

	switch {
	// ---- vector loads/stores -------------------------------------------
	case w&0xFFC00000 == 0x3DC00000 || w&0xFFC00000 == 0x3D800000: // LDR/STR Q, scaled imm12
		addr := m.getX(rn(w)) + uint64((w>>10)&0xfff)*16
		if err := m.vecMem(w&0x00400000 != 0, rd(w), addr); err != nil {
			return err
		}
	case w&0xFFE00C00 == 0x3CC00000 || w&0xFFE00C00 == 0x3C800000: // LDUR/STUR Q
		imm9 := int64(int32(((w>>12)&0x1ff)<<23) >> 23)
		addr := m.getX(rn(w)) + uint64(imm9)
		if err := m.vecMem(w&0x00400000 != 0, rd(w), addr); err != nil {
			return err
		}
	case w&0xFFE0FC00 == 0x3CE06800 || w&0xFFE0FC00 == 0x3CA06800: // LDR/STR Q, register offset
		addr := m.getX(rn(w)) + m.getX(rm(w))
		if err := m.vecMem(w&0x00400000 != 0, rd(w), addr); err != nil {
			return err
		}

	// ---- scalar loads/stores -------------------------------------------
	case w&0xFFC00000 == 0xF9400000: // LDR Xt, scaled imm12
		b, err := m.load(m.getX(rn(w))+uint64((w>>10)&0xfff)*8, 8)
		if err != nil {
			return err
		}
		m.setX(rd(w), binary.LittleEndian.Uint64(b))
	case w&0xFFC00000 == 0xF9000000: // STR Xt, scaled imm12
		b, err := m.load(m.getX(rn(w))+uint64((w>>10)&0xfff)*8, 8)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(b, m.getX(rd(w)))

	// ---- wide moves -----------------------------------------------------
	case w&0xFF800000 == 0xD2800000: // MOVZ Xd
		m.setX(rd(w), uint64((w>>5)&0xffff)<<(16*((w>>21)&3)))
	case w&0xFF800000 == 0x92800000: // MOVN Xd
		m.setX(rd(w), ^(uint64((w>>5)&0xffff) << (16 * ((w >> 21) & 3))))
	case w&0xFF800000 == 0xF2800000: // MOVK Xd
		sh := 16 * ((w >> 21) & 3)
		m.setX(rd(w), m.getX(rd(w))&^(uint64(0xffff)<<sh)|uint64((w>>5)&0xffff)<<sh)

	// ---- scalar arithmetic ---------------------------------------------
	case w&0xFFE0FC00 == 0x9B007C00: // MUL Xd (MADD, Ra=XZR)
		m.setX(rd(w), m.getX(rn(w))*m.getX(rm(w)))
	case w&0xFFE0FC00 == 0xEB000000: // SUBS Xd (CMP when Rd=XZR)
		m.setX(rd(w), m.subFlags64(m.getX(rn(w)), m.getX(rm(w))))
	case w&0xFFE00C00 == 0x9A800000: // CSEL Xd
		if m.cond((w >> 12) & 0xf) {
			m.setX(rd(w), m.getX(rn(w)))
		} else {
			m.setX(rd(w), m.getX(rm(w)))
		}
	case w&0xFFC00000 == 0xB1000000: // ADDS Xd, imm12 (CMN when Rd=XZR)
		m.setX(rd(w), m.addFlags64(m.getX(rn(w)), uint64((w>>10)&0xfff)))
	case w&0xFFC00000 == 0x31000000: // ADDS Wd, imm12
		m.setX(rd(w), uint64(m.addFlags32(uint32(m.getX(rn(w))), (w>>10)&0xfff)))

	// ---- branches -------------------------------------------------------
	case w&0xFF000010 == 0x54000000: // B.cond
		if m.cond(w & 0xf) {
			next = m.PC + signExtend19((w>>5)&0x7ffff)
		}
	case w&0xFC000000 == 0x14000000: // B
		next = m.PC + signExtend26(w&0x3ffffff)
	case w&0xFF000000 == 0xB4000000: // CBZ Xt
		if m.getX(rd(w)) == 0 {
			next = m.PC + signExtend19((w>>5)&0x7ffff)
		}
	case w&0xFF000000 == 0x34000000: // CBZ Wt
		if uint32(m.getX(rd(w))) == 0 {
			next = m.PC + signExtend19((w>>5)&0x7ffff)
		}

	default:
		if err := m.stepVector(w); err != nil {
			return err
		}
	}
	m.PC = next
	return nil
}

func (m *Machine) vecMem(isLoad bool, rt uint32, addr uint64) error {
	b, err := m.load(addr, 16)
	if err != nil {
		return err
	}
	if isLoad {
		m.V[rt][0] = binary.LittleEndian.Uint64(b)
		m.V[rt][1] = binary.LittleEndian.Uint64(b[8:])
	} else {
		binary.LittleEndian.PutUint64(b, m.V[rt][0])
		binary.LittleEndian.PutUint64(b[8:], m.V[rt][1])
	}
	return nil
}
