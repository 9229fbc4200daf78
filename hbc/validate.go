package hbc

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/wippyai/hbctool/errors"
)

// Validate checks the module for structural consistency that does not depend
// on a target version: every index resolves, jumps and handlers land on
// instruction boundaries and operand values fit their types. All problems
// are reported together.
func (m *Module) Validate() error {
	return multierr.Combine(m.problems(errors.PhaseValidate)...)
}

func (m *Module) problems(phase errors.Phase) []error {
	v := &validator{m: m, phase: phase}
	v.module()
	return v.errs
}

type validator struct {
	m     *Module
	phase errors.Phase
	errs  []error
}

func (v *validator) unresolved(path []string, format string, args ...any) {
	v.errs = append(v.errs, errors.Unresolved(v.phase, path, fmt.Sprintf(format, args...)))
}

func (v *validator) invalid(path []string, format string, args ...any) {
	v.errs = append(v.errs, errors.New(v.phase, errors.KindInvalidInput).
		Path(path...).
		Detail(format, args...).
		Build())
}

func (v *validator) module() {
	m := v.m
	nfuncs := uint64(len(m.Functions))
	if (nfuncs == 0 && m.GlobalCodeIndex != 0) || (nfuncs > 0 && uint64(m.GlobalCodeIndex) >= nfuncs) {
		v.unresolved([]string{"global_code"}, "function %d does not exist (%d functions)", m.GlobalCodeIndex, nfuncs)
	}

	seen := make(map[string]int, len(m.Strings))
	for i, s := range m.Strings {
		if j, dup := seen[s]; dup {
			v.invalid([]string{fmt.Sprintf("string[%d]", i)}, "duplicate of string %d", j)
			continue
		}
		seen[s] = i
	}

	v.literals("array", m.Literals.Array)
	v.literals("keys", m.Literals.Keys)
	v.literals("values", m.Literals.Values)

	for i := range m.Functions {
		v.function(i, &m.Functions[i])
	}
}

func (v *validator) literals(pool string, lits []Literal) {
	for i, lit := range lits {
		path := []string{"literals", fmt.Sprintf("%s[%d]", pool, i)}
		switch lit.Kind {
		case LiteralNull, LiteralTrue, LiteralFalse, LiteralNumber, LiteralInt:
		case LiteralString:
			if int(lit.String) >= len(v.m.Strings) {
				v.unresolved(path, "string %d does not exist (%d strings)", lit.String, len(v.m.Strings))
			}
		case LiteralBigInt:
			if n := len(lit.BigInt); n == 0 || n > maxBigIntBytes {
				v.invalid(path, "bigint literal of %d bytes", n)
			}
		default:
			v.invalid(path, "unknown literal kind %d", lit.Kind)
		}
	}
}

func (v *validator) function(idx int, f *Function) {
	fpath := fmt.Sprintf("function[%d]", idx)
	if int(f.Name) >= len(v.m.Strings) {
		v.unresolved([]string{fpath, "name"}, "string %d does not exist (%d strings)", f.Name, len(v.m.Strings))
	}

	offsets := f.Offsets()
	size := offsets[len(offsets)-1]
	boundary := make(map[int64]bool, len(offsets))
	for _, off := range offsets {
		boundary[int64(off)] = true
	}

	for i, in := range f.Instructions {
		ipath := []string{fpath, fmt.Sprintf("instruction[%d]", i)}
		if !in.Op.Valid() {
			v.invalid(ipath, "unknown opcode %d", uint16(in.Op))
			continue
		}
		for j, o := range in.Operands {
			opath := append(ipath[:2:2], fmt.Sprintf("operand[%d]", j))
			v.operand(opath, o, int64(offsets[i]), boundary)
		}
	}

	for i, h := range f.Handlers {
		hpath := []string{fpath, fmt.Sprintf("handler[%d]", i)}
		if h.Start > h.End || h.End > size {
			v.invalid(hpath, "range [%d, %d) outside body of %d bytes", h.Start, h.End, size)
		}
		for _, addr := range []uint32{h.Start, h.End, h.Target} {
			if !boundary[int64(addr)] {
				v.unresolved(hpath, "address %d is not an instruction boundary", addr)
			}
		}
		if h.Target >= size {
			v.unresolved(hpath, "target %d is past the last instruction", h.Target)
		}
	}

	var prev uint32
	for i, loc := range f.Locations {
		lpath := []string{fpath, fmt.Sprintf("location[%d]", i)}
		if loc.Address >= size || !boundary[int64(loc.Address)] {
			v.unresolved(lpath, "address %d does not start an instruction", loc.Address)
		}
		if loc.Address < prev {
			v.invalid(lpath, "address %d precedes previous location %d", loc.Address, prev)
		}
		prev = loc.Address
	}
}

func (v *validator) operand(path []string, o Operand, at int64, boundary map[int64]bool) {
	if o.Type.Width() == 0 {
		v.invalid(path, "unknown operand type %d", uint8(o.Type))
		return
	}
	if o.Type == OperandDouble {
		return
	}
	if !o.Type.Fits(o.Value) {
		v.invalid(path, "value %d does not fit %s", o.Value, o.Type)
		return
	}
	var limit int
	switch o.Type.Class() {
	case ClassJump:
		if !boundary[at+o.Value] {
			v.unresolved(path, "jump to %d is not an instruction boundary", at+o.Value)
		}
		return
	case ClassString:
		limit = len(v.m.Strings)
	case ClassFunction:
		limit = len(v.m.Functions)
	case ClassArray:
		limit = len(v.m.Literals.Array)
	case ClassKey:
		limit = len(v.m.Literals.Keys)
	case ClassValue:
		limit = len(v.m.Literals.Values)
	default:
		return
	}
	if o.Value >= int64(limit) {
		v.unresolved(path, "%s %d does not exist (%d entries)", o.Type.Class(), o.Value, limit)
	}
}
