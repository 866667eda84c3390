// Package simd defines the architecture-neutral pseudo-instruction surface
// lowered by the per-target backends (see simd/arm64). A caller builds
// operands out of logical registers, memory references and immediates,
// invokes one lowering entry point per pseudo-op family on a Target, and
// collects the resulting 32-bit instruction words from a Program.
package simd

import "fmt"

// ElemKind classifies the interpretation of a lane.
type ElemKind uint8

const (
	Float ElemKind = iota // IEEE-754 floating point lanes
	Int                   // two's-complement signed integer lanes
	Uint                  // unsigned integer lanes
)

// Elem describes the element (lane) type of every operand of an operation.
// Mixed-width operations are rejected by the caller, not re-validated here.
type Elem struct {
	Kind ElemKind
	Bits uint8 // 16, 32 or 64
}

var (
	F16 = Elem{Float, 16}
	F32 = Elem{Float, 32}
	F64 = Elem{Float, 64}
	I16 = Elem{Int, 16}
	I32 = Elem{Int, 32}
	I64 = Elem{Int, 64}
	U16 = Elem{Uint, 16}
	U32 = Elem{Uint, 32}
	U64 = Elem{Uint, 64}
)

// LaneBytes returns the size of one lane in bytes.
func (e Elem) LaneBytes() int { return int(e.Bits) / 8 }

func (e Elem) String() string {
	switch e.Kind {
	case Float:
		return fmt.Sprintf("f%d", e.Bits)
	case Int:
		return fmt.Sprintf("i%d", e.Bits)
	case Uint:
		return fmt.Sprintf("u%d", e.Bits)
	}
	return fmt.Sprintf("elem(%d,%d)", e.Kind, e.Bits)
}

// Shape selects the vector width of an operation.
type Shape uint8

const (
	// Vec128 is a single 128-bit vector register.
	Vec128 Shape = iota
	// Vec256 is the register-pair 2x128 layout: one logical vector register
	// maps to a primary and a secondary 128-bit physical half.
	Vec256
)

// Bytes returns the total vector width in bytes.
func (s Shape) Bytes() int {
	if s == Vec256 {
		return 32
	}
	return 16
}

// Lanes returns the number of lanes of e in a vector of shape s.
func (s Shape) Lanes(e Elem) int { return s.Bytes() / e.LaneBytes() }

func (s Shape) String() string {
	if s == Vec256 {
		return "v256"
	}
	return "v128"
}
