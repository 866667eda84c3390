package arm64

import (
	"fmt"

	"github.com/vectorforge/lanegen/simd"
)

// vreg and xreg are physical register numbers as they appear in the Rd/Rn/Rm
// fields of an instruction word.
type (
	vreg uint32
	xreg uint32
)

// Fixed scratch assignments. V30/V31 back the two-step expansion of memory
// operands and internal temporaries; X16 holds pre-computed addresses
// (the procedure-call scratch register, never a caller value); X9/X10 are
// the lane scalars of the emulation shim. XZR is the zero register.
const (
	scratchVec    vreg = 30
	scratchVecAlt vreg = 31
	scratchAddr   xreg = 16
	scratchLaneA  xreg = 9
	scratchLaneB  xreg = 10
	xzr           xreg = 31
)

// reservedBase reports whether a physical base register may not be named by
// callers: the emulation lane scalars, IP0/IP1 and the platform register.
func reservedBase(n uint8) bool {
	switch n {
	case 9, 10, 16, 17, 18:
		return true
	}
	return false
}

// vecReg maps a logical vector register to its primary physical encoding.
// In Vec256 mode logical register i occupies the physical pair (2i, 2i+1),
// so the logical space shrinks to 0..14; in Vec128 mode it is 0..29.
// V30/V31 are never addressable by callers.
func vecReg(r simd.VecReg, s simd.Shape) (vreg, error) {
	if s == simd.Vec256 {
		if r > 14 {
			return 0, fmt.Errorf("arm64: vector register %s out of range for %s (v0..v14)", r, s)
		}
		return vreg(2 * r), nil
	}
	if r > 29 {
		return 0, fmt.Errorf("arm64: vector register %s out of range for %s (v0..v29)", r, s)
	}
	return vreg(r), nil
}

// vecRegHalf resolves one half of a logical vector register. The secondary
// half only exists in Vec256 mode and must be requested explicitly.
func vecRegHalf(r simd.VecReg, s simd.Shape, secondary bool) (vreg, error) {
	primary, err := vecReg(r, s)
	if err != nil {
		return 0, err
	}
	if !secondary {
		return primary, nil
	}
	if s != simd.Vec256 {
		return 0, fmt.Errorf("arm64: register %s has no secondary half in %s mode", r, s)
	}
	return primary + 1, nil
}

// scratchHalf returns the scratch vector register serving the given half.
// Both halves share the same scratch pair: the sequence for one half
// completes before the next half starts.
func scratchHalf(alt bool) vreg {
	if alt {
		return scratchVecAlt
	}
	return scratchVec
}

// baseReg maps a logical base register to its physical encoding.
func baseReg(r simd.BaseReg) (xreg, error) {
	if r > 28 {
		return 0, fmt.Errorf("arm64: base register %s out of range (x0..x28)", r)
	}
	if reservedBase(uint8(r)) {
		return 0, fmt.Errorf("arm64: base register %s is reserved as lowering scratch", r)
	}
	return xreg(r), nil
}
