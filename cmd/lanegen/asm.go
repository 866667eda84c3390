package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vectorforge/lanegen/simd"
)

// Statement maps one source line to the instruction words it produced.
type Statement struct {
	Source string
	Line   int
	First  int // index of the first emitted word
	Count  int
}

// Assemble lowers a textual pseudo-program into p. One statement per line;
// '//' starts a comment; 'name:' binds a label. Each mnemonic may carry an
// element suffix overriding the configured default, e.g. add.i64 or
// cmplt.u32. Operands are vN registers, [xN], [xN+disp] or [xN-disp]
// memory references, and #imm shift counts.
func Assemble(src string, cfg simd.Config, tgt simd.Target, p *simd.Program) ([]Statement, error) {
	labels := map[string]simd.Label{}
	labelOf := func(name string) simd.Label {
		l, ok := labels[name]
		if !ok {
			l = p.NewLabel()
			labels[name] = l
		}
		return l
	}

	var stmts []Statement
	for num, raw := range strings.Split(src, "\n") {
		text := raw
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if name, ok := strings.CutSuffix(text, ":"); ok {
			if err := p.Bind(labelOf(strings.TrimSpace(name))); err != nil {
				return nil, fmt.Errorf("line %d: %w", num+1, err)
			}
			continue
		}
		first := p.Len()
		if err := lowerLine(text, cfg, tgt, p, labelOf); err != nil {
			return nil, fmt.Errorf("line %d: %w", num+1, err)
		}
		stmts = append(stmts, Statement{Source: text, Line: num + 1, First: first, Count: p.Len() - first})
	}
	return stmts, nil
}

func lowerLine(text string, cfg simd.Config, tgt simd.Target, p *simd.Program, labelOf func(string) simd.Label) error {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
	mnemonic, parts := fields[0], fields[1:]
	base, e, err := splitMnemonic(mnemonic, cfg.Elem)
	if err != nil {
		return err
	}
	ops := make([]simd.Operand, 0, 3)
	var count uint8
	var hasCount bool
	var label string
	for _, part := range parts {
		switch {
		case strings.HasPrefix(part, "#"):
			n, err := strconv.ParseUint(part[1:], 0, 8)
			if err != nil {
				return fmt.Errorf("bad immediate %q: %w", part, err)
			}
			count, hasCount = uint8(n), true
		case strings.HasPrefix(part, "v") || strings.HasPrefix(part, "["):
			o, err := parseOperand(part)
			if err != nil {
				return err
			}
			ops = append(ops, o)
		default:
			label = part
		}
	}
	s := cfg.Shape

	need := func(n int) error {
		if len(ops) != n {
			return fmt.Errorf("%s takes %d operands, got %d", base, n, len(ops))
		}
		return nil
	}

	switch base {
	case "mov":
		if err := need(2); err != nil {
			return err
		}
		return tgt.Move(p, e, s, ops[0], ops[1])
	case "zero":
		if err := need(1); err != nil {
			return err
		}
		return tgt.Zero(p, e, s, ops[0])
	case "and", "or", "xor", "andnot":
		if err := need(3); err != nil {
			return err
		}
		return tgt.Logic(p, logicOps[base], e, s, ops[0], ops[1], ops[2])
	case "not":
		if err := need(2); err != nil {
			return err
		}
		return tgt.Logic(p, simd.LogicNot, e, s, ops[0], ops[1], simd.Operand{})
	case "add", "sub", "mul", "div", "min", "max":
		if err := need(3); err != nil {
			return err
		}
		return tgt.Arith(p, arithOps[base], e, s, ops[0], ops[1], ops[2])
	case "recip", "rsqrt":
		if err := need(2); err != nil {
			return err
		}
		return tgt.Arith(p, arithOps[base], e, s, ops[0], ops[1], simd.Operand{})
	case "fma":
		if err := need(3); err != nil {
			return err
		}
		return tgt.FusedMulAdd(p, e, s, ops[0], ops[1], ops[2])
	case "fms":
		if err := need(3); err != nil {
			return err
		}
		return tgt.FusedMulSub(p, e, s, ops[0], ops[1], ops[2])
	case "cmpeq", "cmpne", "cmplt", "cmple", "cmpgt", "cmpge":
		if err := need(3); err != nil {
			return err
		}
		return tgt.Compare(p, cmpOps[base], e, s, ops[0], ops[1], ops[2])
	case "cvtfloat":
		if err := need(2); err != nil {
			return err
		}
		return tgt.ConvertToFloat(p, e, s, ops[0], ops[1])
	case "shl", "shr", "sar":
		if err := need(2); err != nil {
			return err
		}
		if !hasCount {
			return fmt.Errorf("%s needs a #count immediate", base)
		}
		return tgt.Shift(p, shiftOps[base], e, s, ops[0], ops[1], count)
	case "jmpnone", "jmpfull":
		if err := need(1); err != nil {
			return err
		}
		if label == "" {
			return fmt.Errorf("%s needs a target label", base)
		}
		ref := simd.MaskNone
		if base == "jmpfull" {
			ref = simd.MaskFull
		}
		return tgt.MaskJump(p, e, s, ops[0], ref, labelOf(label))
	}
	if mode, ok := cvtModes[base]; ok {
		if err := need(2); err != nil {
			return err
		}
		return tgt.ConvertToInt(p, e, s, ops[0], ops[1], mode)
	}
	return fmt.Errorf("unknown mnemonic %q", base)
}

var logicOps = map[string]simd.LogicOp{
	"and": simd.LogicAnd, "or": simd.LogicOr, "xor": simd.LogicXor, "andnot": simd.LogicAndNot,
}

var arithOps = map[string]simd.ArithOp{
	"add": simd.ArithAdd, "sub": simd.ArithSub, "mul": simd.ArithMul, "div": simd.ArithDiv,
	"min": simd.ArithMin, "max": simd.ArithMax, "recip": simd.ArithRecip, "rsqrt": simd.ArithRSqrt,
}

var cmpOps = map[string]simd.Cmp{
	"cmpeq": simd.CmpEQ, "cmpne": simd.CmpNE, "cmplt": simd.CmpLT,
	"cmple": simd.CmpLE, "cmpgt": simd.CmpGT, "cmpge": simd.CmpGE,
}

var shiftOps = map[string]simd.ShiftOp{
	"shl": simd.ShiftLeft, "shr": simd.ShiftRightLogical, "sar": simd.ShiftRightArith,
}

var cvtModes = map[string]simd.RoundMode{
	"cvtint":         simd.RoundNearest,
	"cvtint.nearest": simd.RoundNearest,
	"cvtint.down":    simd.RoundDown,
	"cvtint.up":      simd.RoundUp,
	"cvtint.zero":    simd.RoundZero,
	"cvtint.dyn":     simd.RoundDynamic,
}

var elemNames = map[string]simd.Elem{
	"f16": simd.F16, "f32": simd.F32, "f64": simd.F64,
	"i16": simd.I16, "i32": simd.I32, "i64": simd.I64,
	"u16": simd.U16, "u32": simd.U32, "u64": simd.U64,
}

// splitMnemonic separates an optional trailing element suffix from the op
// name. Rounding-mode suffixes of cvtint stay part of the base name.
func splitMnemonic(mnemonic string, def simd.Elem) (string, simd.Elem, error) {
	i := strings.LastIndexByte(mnemonic, '.')
	if i < 0 {
		return mnemonic, def, nil
	}
	suffix := mnemonic[i+1:]
	if e, ok := elemNames[suffix]; ok {
		return mnemonic[:i], e, nil
	}
	if _, ok := cvtModes[mnemonic]; ok {
		return mnemonic, def, nil
	}
	return "", simd.Elem{}, fmt.Errorf("unknown element suffix %q in %q", suffix, mnemonic)
}

func parseOperand(tok string) (simd.Operand, error) {
	if strings.HasPrefix(tok, "v") {
		n, err := strconv.ParseUint(tok[1:], 10, 8)
		if err != nil {
			return simd.Operand{}, fmt.Errorf("bad register %q: %w", tok, err)
		}
		return simd.Reg(simd.VecReg(n)), nil
	}
	if strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]") {
		inner := tok[1 : len(tok)-1]
		sep := strings.IndexAny(inner, "+-")
		basePart, disp := inner, int64(0)
		if sep > 0 {
			basePart = inner[:sep]
			v, err := strconv.ParseInt(inner[sep:], 10, 32)
			if err != nil {
				return simd.Operand{}, fmt.Errorf("bad displacement in %q: %w", tok, err)
			}
			disp = v
		}
		if !strings.HasPrefix(basePart, "x") {
			return simd.Operand{}, fmt.Errorf("bad base register in %q", tok)
		}
		n, err := strconv.ParseUint(basePart[1:], 10, 8)
		if err != nil {
			return simd.Operand{}, fmt.Errorf("bad base register %q: %w", tok, err)
		}
		return simd.Mem(simd.BaseReg(n), int32(disp)), nil
	}
	return simd.Operand{}, fmt.Errorf("unparseable operand %q", tok)
}
