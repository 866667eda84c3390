package simd

import (
	"encoding/binary"
	"fmt"
)

// Label identifies a branch target inside one Program. Labels are created
// with NewLabel, referenced by mask-test lowering, and bound to the current
// emission position with Bind. Unbound referenced labels fail Finalize.
type Label int

type fixupKind uint8

const (
	fixupBranch19 fixupKind = iota // conditional branch, imm19 at bits 23..5
	fixupBranch26                  // unconditional branch, imm26 at bits 25..0
)

type fixup struct {
	word  int // index of the word to patch
	label Label
	kind  fixupKind
}

// Program is the emission sink: an ordered sequence of 32-bit instruction
// words plus pending branch fixups. It is the layer's only output; the
// caller hands Bytes to whatever places code in executable memory.
type Program struct {
	words  []uint32
	labels []int // word index the label is bound to, -1 while unbound
	fixups []fixup
}

func NewProgram() *Program {
	return &Program{}
}

// Emit appends one instruction word.
func (p *Program) Emit(w uint32) { p.words = append(p.words, w) }

// Len returns the number of words emitted so far.
func (p *Program) Len() int { return len(p.words) }

// NewLabel creates an unbound label.
func (p *Program) NewLabel() Label {
	p.labels = append(p.labels, -1)
	return Label(len(p.labels) - 1)
}

// Bind attaches l to the next emitted word.
func (p *Program) Bind(l Label) error {
	if int(l) < 0 || int(l) >= len(p.labels) {
		return fmt.Errorf("bind: unknown label %d", l)
	}
	if p.labels[l] >= 0 {
		return fmt.Errorf("bind: label %d already bound", l)
	}
	p.labels[l] = len(p.words)
	return nil
}

// EmitBranch19 emits a conditional-branch word whose imm19 field will be
// patched to reach l at Finalize time.
func (p *Program) EmitBranch19(template uint32, l Label) {
	p.fixups = append(p.fixups, fixup{word: len(p.words), label: l, kind: fixupBranch19})
	p.words = append(p.words, template)
}

// EmitBranch26 emits an unconditional-branch word patched at Finalize time.
func (p *Program) EmitBranch26(template uint32, l Label) {
	p.fixups = append(p.fixups, fixup{word: len(p.words), label: l, kind: fixupBranch26})
	p.words = append(p.words, template)
}

// Finalize resolves all branch fixups. Words and Bytes call it implicitly.
func (p *Program) Finalize() error {
	for _, f := range p.fixups {
		target := p.labels[f.label]
		if target < 0 {
			return fmt.Errorf("finalize: label %d referenced at word %d but never bound", f.label, f.word)
		}
		delta := target - f.word // in instructions
		switch f.kind {
		case fixupBranch19:
			if delta < -(1<<18) || delta >= 1<<18 {
				return fmt.Errorf("finalize: conditional branch at word %d out of imm19 range (%d words)", f.word, delta)
			}
			p.words[f.word] |= (uint32(delta) & 0x7ffff) << 5
		case fixupBranch26:
			if delta < -(1<<25) || delta >= 1<<25 {
				return fmt.Errorf("finalize: branch at word %d out of imm26 range (%d words)", f.word, delta)
			}
			p.words[f.word] |= uint32(delta) & 0x3ffffff
		}
	}
	p.fixups = p.fixups[:0]
	return nil
}

// Words finalizes the program and returns the instruction words.
func (p *Program) Words() ([]uint32, error) {
	if err := p.Finalize(); err != nil {
		return nil, err
	}
	return p.words, nil
}

// Bytes finalizes the program and returns it in memory order
// (little-endian words, as fetched by the target).
func (p *Program) Bytes() ([]byte, error) {
	words, err := p.Words()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf, nil
}
