package emu

import (
	"fmt"
	"math"
)

func laneMask(width uint) uint64 { return ^uint64(0) >> (64 - width) }

func getLane(v [2]uint64, width uint, i int) uint64 {
	per := int(64 / width)
	return (v[i/per] >> (uint(i%per) * width)) & laneMask(width)
}

func setLane(v *[2]uint64, width uint, i int, x uint64) {
	per := int(64 / width)
	off := uint(i%per) * width
	v[i/per] = v[i/per]&^(laneMask(width)<<off) | (x&laneMask(width))<<off
}

func sext(v uint64, width uint) int64 {
	return int64(v<<(64-width)) >> (64 - width)
}

// stepVector handles every vector-unit instruction the backend emits.
// Half-precision arithmetic is deliberately absent: the interpreter checks
// behavior, and behavioral tests run at 32- and 64-bit lane widths.
func (m *Machine) stepVector(w uint32) error {
	d, n := rd(w), rn(w)

	// Reductions, lane moves and other fixed-template forms.
	switch w & 0xFFFFFC00 {
	case 0x5EF1B800: // ADDP Dd, Vn.2D
		m.V[d][0] = m.V[n][0] + m.V[n][1]
		m.V[d][1] = 0
		return nil
	case 0x6E70A800: // UMAXV Hd, Vn.8H
		m.maxAcross(d, n, 16, false)
		return nil
	case 0x4E70A800: // SMAXV Hd, Vn.8H
		m.maxAcross(d, n, 16, true)
		return nil
	case 0x6EB0A800: // UMAXV Sd, Vn.4S
		m.maxAcross(d, n, 32, false)
		return nil
	case 0x4EB0A800: // SMAXV Sd, Vn.4S
		m.maxAcross(d, n, 32, true)
		return nil
	case 0x9E660000: // FMOV Xd, Dn
		m.setX(d, m.V[n][0])
		return nil
	case 0x0E023C00: // UMOV Wd, Vn.H[0]
		m.setX(d, m.V[n][0]&0xffff)
		return nil
	case 0x0E022C00: // SMOV Wd, Vn.H[0]
		m.setX(d, uint64(uint32(int32(int16(m.V[n][0]&0xffff)))))
		return nil
	case 0x0E043C00: // UMOV Wd, Vn.S[0]
		m.setX(d, m.V[n][0]&0xffffffff)
		return nil
	case 0x6E205800: // NOT Vd.16B, Vn.16B
		m.V[d][0] = ^m.V[n][0]
		m.V[d][1] = ^m.V[n][1]
		return nil
	}

	switch w & 0xFFFFFFE0 {
	case 0x6F00E400: // MOVI Vd.2D, #0
		m.V[d] = [2]uint64{}
		return nil
	case 0x4F03F600: // FMOV Vd.4S, #1.0
		m.V[d][0] = 0x3F8000003F800000
		m.V[d][1] = 0x3F8000003F800000
		return nil
	case 0x6F03F600: // FMOV Vd.2D, #1.0
		m.V[d][0] = 0x3FF0000000000000
		m.V[d][1] = 0x3FF0000000000000
		return nil
	}

	// Bitwise three-same: lane-width independent.
	if bw, ok := map[uint32]func(a, b uint64) uint64{
		0x4E201C00: func(a, b uint64) uint64 { return a & b },
		0x4E601C00: func(a, b uint64) uint64 { return a &^ b },
		0x4EA01C00: func(a, b uint64) uint64 { return a | b },
		0x4EE01C00: func(a, b uint64) uint64 { return a | ^b },
		0x6E201C00: func(a, b uint64) uint64 { return a ^ b },
	}[w&0xFFE0FC00]; ok {
		mm := rm(w)
		m.V[d][0] = bw(m.V[n][0], m.V[mm][0])
		m.V[d][1] = bw(m.V[n][1], m.V[mm][1])
		return nil
	}

	// Immediate shifts.
	switch w & 0xFF80FC00 {
	case 0x4F005400, 0x6F000400, 0x4F000400:
		return m.shiftImm(w)
	}

	// Float three-same and accumulating forms (bit 23 significant, bit 22
	// selects single or double precision).
	switch w & 0xFFA0FC00 {
	case 0x4E20D400: // FADD
		m.fpBin(w, func(a, b float64) float64 { return a + b })
		return nil
	case 0x4EA0D400: // FSUB
		m.fpBin(w, func(a, b float64) float64 { return a - b })
		return nil
	case 0x6E20DC00: // FMUL
		m.fpBin(w, func(a, b float64) float64 { return a * b })
		return nil
	case 0x6E20FC00: // FDIV
		m.fpBin(w, func(a, b float64) float64 { return a / b })
		return nil
	case 0x4E20F400: // FMAX
		m.fpBin(w, math.Max)
		return nil
	case 0x4EA0F400: // FMIN
		m.fpBin(w, math.Min)
		return nil
	case 0x4E20FC00: // FRECPS: 2 - a*b
		m.fpBin(w, func(a, b float64) float64 { return 2 - a*b })
		return nil
	case 0x4EA0FC00: // FRSQRTS: (3 - a*b)/2
		m.fpBin(w, func(a, b float64) float64 { return (3 - a*b) / 2 })
		return nil
	case 0x4E20CC00: // FMLA
		m.fpAcc(w, false)
		return nil
	case 0x4EA0CC00: // FMLS
		m.fpAcc(w, true)
		return nil
	case 0x4E20E400: // FCMEQ
		m.fpCmp(w, func(a, b float64) bool { return a == b })
		return nil
	case 0x6E20E400: // FCMGE
		m.fpCmp(w, func(a, b float64) bool { return a >= b })
		return nil
	case 0x6EA0E400: // FCMGT
		m.fpCmp(w, func(a, b float64) bool { return a > b })
		return nil
	}

	// Float two-register forms (converts, roundings, estimates).
	switch w & 0xFFBFFC00 {
	case 0x4E21A800: // FCVTNS
		m.fpToInt(w, math.RoundToEven, false)
		return nil
	case 0x6E21A800: // FCVTNU
		m.fpToInt(w, math.RoundToEven, true)
		return nil
	case 0x4E21B800: // FCVTMS
		m.fpToInt(w, math.Floor, false)
		return nil
	case 0x6E21B800: // FCVTMU
		m.fpToInt(w, math.Floor, true)
		return nil
	case 0x4EA1A800: // FCVTPS
		m.fpToInt(w, math.Ceil, false)
		return nil
	case 0x6EA1A800: // FCVTPU
		m.fpToInt(w, math.Ceil, true)
		return nil
	case 0x4EA1B800: // FCVTZS
		m.fpToInt(w, math.Trunc, false)
		return nil
	case 0x6EA1B800: // FCVTZU
		m.fpToInt(w, math.Trunc, true)
		return nil
	case 0x4E21D800: // SCVTF
		m.intToFp(w, true)
		return nil
	case 0x6E21D800: // UCVTF
		m.intToFp(w, false)
		return nil
	case 0x6EA19800: // FRINTI: the model's FP control register is round-to-nearest
		m.fpUn(w, math.RoundToEven)
		return nil
	case 0x4EA1D800: // FRECPE, modeled as an exact reciprocal
		m.fpUn(w, func(x float64) float64 { return 1 / x })
		return nil
	case 0x6EA1D800: // FRSQRTE, modeled as an exact reciprocal square root
		m.fpUn(w, func(x float64) float64 { return 1 / math.Sqrt(x) })
		return nil
	case 0x6EA1F800: // FSQRT
		m.fpUn(w, math.Sqrt)
		return nil
	}

	// Integer three-same (lane size at bits 23..22).
	width := uint(8) << ((w >> 22) & 3)
	switch w & 0xFF20FC00 {
	case 0x4E208400: // ADD
		m.intBin(w, width, func(a, b uint64) uint64 { return a + b })
		return nil
	case 0x6E208400: // SUB
		m.intBin(w, width, func(a, b uint64) uint64 { return a - b })
		return nil
	case 0x4E209C00: // MUL
		m.intBin(w, width, func(a, b uint64) uint64 { return a * b })
		return nil
	case 0x4E206400: // SMAX
		m.intBin(w, width, func(a, b uint64) uint64 {
			if sext(a, width) >= sext(b, width) {
				return a
			}
			return b
		})
		return nil
	case 0x4E206C00: // SMIN
		m.intBin(w, width, func(a, b uint64) uint64 {
			if sext(a, width) <= sext(b, width) {
				return a
			}
			return b
		})
		return nil
	case 0x6E206400: // UMAX
		m.intBin(w, width, func(a, b uint64) uint64 {
			if a >= b {
				return a
			}
			return b
		})
		return nil
	case 0x6E206C00: // UMIN
		m.intBin(w, width, func(a, b uint64) uint64 {
			if a <= b {
				return a
			}
			return b
		})
		return nil
	case 0x6E208C00: // CMEQ
		m.intCmp(w, width, func(a, b uint64) bool { return a == b })
		return nil
	case 0x4E203400: // CMGT
		m.intCmp(w, width, func(a, b uint64) bool { return sext(a, width) > sext(b, width) })
		return nil
	case 0x4E203C00: // CMGE
		m.intCmp(w, width, func(a, b uint64) bool { return sext(a, width) >= sext(b, width) })
		return nil
	case 0x6E203400: // CMHI
		m.intCmp(w, width, func(a, b uint64) bool { return a > b })
		return nil
	case 0x6E203C00: // CMHS
		m.intCmp(w, width, func(a, b uint64) bool { return a >= b })
		return nil
	}

	return fmt.Errorf("emu: unhandled instruction %#08x", w)
}

func (m *Machine) maxAcross(d, n uint32, width uint, signed bool) {
	lanes := int(128 / width)
	best := getLane(m.V[n], width, 0)
	for i := 1; i < lanes; i++ {
		v := getLane(m.V[n], width, i)
		if signed {
			if sext(v, width) > sext(best, width) {
				best = v
			}
		} else if v > best {
			best = v
		}
	}
	m.V[d] = [2]uint64{}
	setLane(&m.V[d], width, 0, best)
}

func (m *Machine) intBin(w uint32, width uint, f func(a, b uint64) uint64) {
	d, n, mm := rd(w), rn(w), rm(w)
	var out [2]uint64
	for i := 0; i < int(128/width); i++ {
		setLane(&out, width, i, f(getLane(m.V[n], width, i), getLane(m.V[mm], width, i)))
	}
	m.V[d] = out
}

func (m *Machine) intCmp(w uint32, width uint, f func(a, b uint64) bool) {
	d, n, mm := rd(w), rn(w), rm(w)
	var out [2]uint64
	for i := 0; i < int(128/width); i++ {
		if f(getLane(m.V[n], width, i), getLane(m.V[mm], width, i)) {
			setLane(&out, width, i, laneMask(width))
		}
	}
	m.V[d] = out
}

func fpWidth(w uint32) uint {
	if w&(1<<22) != 0 {
		return 64
	}
	return 32
}

func fpFromBits(bits uint64, width uint) float64 {
	if width == 64 {
		return math.Float64frombits(bits)
	}
	return float64(math.Float32frombits(uint32(bits)))
}

func fpToBits(x float64, width uint) uint64 {
	if width == 64 {
		return math.Float64bits(x)
	}
	return uint64(math.Float32bits(float32(x)))
}

func (m *Machine) fpBin(w uint32, f func(a, b float64) float64) {
	width := fpWidth(w)
	d, n, mm := rd(w), rn(w), rm(w)
	var out [2]uint64
	for i := 0; i < int(128/width); i++ {
		a := fpFromBits(getLane(m.V[n], width, i), width)
		b := fpFromBits(getLane(m.V[mm], width, i), width)
		setLane(&out, width, i, fpToBits(f(a, b), width))
	}
	m.V[d] = out
}

func (m *Machine) fpAcc(w uint32, sub bool) {
	width := fpWidth(w)
	d, n, mm := rd(w), rn(w), rm(w)
	for i := 0; i < int(128/width); i++ {
		a := fpFromBits(getLane(m.V[n], width, i), width)
		b := fpFromBits(getLane(m.V[mm], width, i), width)
		acc := fpFromBits(getLane(m.V[d], width, i), width)
		if sub {
			a = -a
		}
		setLane(&m.V[d], width, i, fpToBits(math.FMA(a, b, acc), width))
	}
}

func (m *Machine) fpCmp(w uint32, f func(a, b float64) bool) {
	width := fpWidth(w)
	d, n, mm := rd(w), rn(w), rm(w)
	var out [2]uint64
	for i := 0; i < int(128/width); i++ {
		a := fpFromBits(getLane(m.V[n], width, i), width)
		b := fpFromBits(getLane(m.V[mm], width, i), width)
		if f(a, b) {
			setLane(&out, width, i, laneMask(width))
		}
	}
	m.V[d] = out
}

func (m *Machine) fpUn(w uint32, f func(float64) float64) {
	width := fpWidth(w)
	d, n := rd(w), rn(w)
	var out [2]uint64
	for i := 0; i < int(128/width); i++ {
		setLane(&out, width, i, fpToBits(f(fpFromBits(getLane(m.V[n], width, i), width)), width))
	}
	m.V[d] = out
}

// fpToInt converts with saturation and NaN-to-zero, matching the hardware.
func (m *Machine) fpToInt(w uint32, round func(float64) float64, unsigned bool) {
	width := fpWidth(w)
	d, n := rd(w), rn(w)
	var out [2]uint64
	for i := 0; i < int(128/width); i++ {
		x := round(fpFromBits(getLane(m.V[n], width, i), width))
		setLane(&out, width, i, saturate(x, width, unsigned))
	}
	m.V[d] = out
}

func saturate(x float64, width uint, unsigned bool) uint64 {
	if math.IsNaN(x) {
		return 0
	}
	if unsigned {
		max := math.Ldexp(1, int(width)) // 2^width
		if x <= 0 {
			return 0
		}
		if x >= max {
			return laneMask(width)
		}
		return uint64(x) & laneMask(width)
	}
	max := math.Ldexp(1, int(width)-1) // 2^(width-1)
	if x <= -max {
		return uint64(1) << (width - 1) & laneMask(width)
	}
	if x >= max {
		return laneMask(width) >> 1
	}
	return uint64(int64(x)) & laneMask(width)
}

func (m *Machine) intToFp(w uint32, signed bool) {
	width := fpWidth(w)
	d, n := rd(w), rn(w)
	var out [2]uint64
	for i := 0; i < int(128/width); i++ {
		v := getLane(m.V[n], width, i)
		var x float64
		if signed {
			x = float64(sext(v, width))
		} else {
			x = float64(v)
		}
		setLane(&out, width, i, fpToBits(x, width))
	}
	m.V[d] = out
}

func (m *Machine) shiftImm(w uint32) error {
	immhb := (w >> 16) & 0x7f
	var width uint
	switch {
	case immhb&0x40 != 0:
		width = 64
	case immhb&0x20 != 0:
		width = 32
	case immhb&0x10 != 0:
		width = 16
	case immhb&0x08 != 0:
		width = 8
	default:
		return fmt.Errorf("emu: malformed shift immediate in %#08x", w)
	}
	d, n := rd(w), rn(w)
	var out [2]uint64
	switch w & 0xFF80FC00 {
	case 0x4F005400: // SHL
		sh := uint(immhb) - width
		for i := 0; i < int(128/width); i++ {
			setLane(&out, width, i, getLane(m.V[n], width, i)<<sh)
		}
	case 0x6F000400: // USHR
		sh := 2*width - uint(immhb)
		for i := 0; i < int(128/width); i++ {
			setLane(&out, width, i, getLane(m.V[n], width, i)>>sh)
		}
	case 0x4F000400: // SSHR
		sh := 2*width - uint(immhb)
		for i := 0; i < int(128/width); i++ {
			setLane(&out, width, i, uint64(sext(getLane(m.V[n], width, i), width)>>sh))
		}
	default:
		return fmt.Errorf("emu: unhandled shift %#08x", w)
	}
	m.V[d] = out
	return nil
}
