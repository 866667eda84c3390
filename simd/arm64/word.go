package arm64

import "fmt"

// word accumulates named bit-fields over a fixed opcode template. A field
// that overflows its width, overlaps a previously placed field, or collides
// with a nonzero template bit is a bug in the synthesizer, not a caller
// error, and fails construction immediately.
type word struct {
	bits   uint32
	placed uint32
}

func newWord(template uint32) word {
	return word{bits: template}
}

// field places v into the width-bit field starting at bit lo.
func (w *word) field(lo, width uint, v uint32) {
	if width < 32 && v >= 1<<width {
		panic(fmt.Sprintf("BUG: value %#x overflows %d-bit field at bit %d", v, width, lo))
	}
	mask := uint32(1<<width-1) << lo
	if w.placed&mask != 0 {
		panic(fmt.Sprintf("BUG: overlapping field at bit %d width %d", lo, width))
	}
	if w.bits&mask != 0 {
		panic(fmt.Sprintf("BUG: field at bit %d width %d collides with template bits %#08x", lo, width, w.bits))
	}
	w.placed |= mask
	w.bits |= v << lo
}

// Operand field positions shared by nearly all AArch64 data-processing and
// load/store classes.

func (w *word) rd(r vreg) *word { w.field(0, 5, uint32(r)); return w }
func (w *word) rn(r vreg) *word { w.field(5, 5, uint32(r)); return w }
func (w *word) rm(r vreg) *word { w.field(16, 5, uint32(r)); return w }

func (w *word) xd(r xreg) *word { w.field(0, 5, uint32(r)); return w }
func (w *word) xn(r xreg) *word { w.field(5, 5, uint32(r)); return w }
func (w *word) xm(r xreg) *word { w.field(16, 5, uint32(r)); return w }

func (w *word) done() uint32 { return w.bits }
