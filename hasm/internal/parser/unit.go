package parser

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm/internal/token"
	"github.com/wippyai/hbctool/hbc"
)

// Unit collects the declarations of every file that makes up one module.
// Declarations may arrive in any order; Module resolves them once all files
// are parsed and the bytecode version is known.
type Unit struct {
	version scalarDecl
	options scalarDecl
	entry   scalarDecl
	hash    bytesDecl

	strings   map[int]stringDecl
	arrays    map[int]literalDecl
	keys      map[int]literalDecl
	values    map[int]literalDecl
	functions map[int]*funcDecl
}

// NewUnit returns an empty unit.
func NewUnit() *Unit {
	return &Unit{
		strings:   make(map[int]stringDecl),
		arrays:    make(map[int]literalDecl),
		keys:      make(map[int]literalDecl),
		values:    make(map[int]literalDecl),
		functions: make(map[int]*funcDecl),
	}
}

type scalarDecl struct {
	value uint64
	pos   errors.Position
	set   bool
}

type bytesDecl struct {
	value []byte
	pos   errors.Position
	set   bool
}

type stringDecl struct {
	value string
	pos   errors.Position
}

type literalDecl struct {
	lit    hbc.Literal
	pos    errors.Position
	strPos errors.Position
}

type funcDecl struct {
	name    uint32
	namePos errors.Position
	params  uint32
	frame   uint32
	flags   uint32
	items   []item
	pos     errors.Position
}

type itemKind uint8

const (
	itemLabel itemKind = iota + 1
	itemLoc
	itemInstr
	itemHandler
)

type item struct {
	kind     itemKind
	name     string
	operands []operand
	line     uint32
	column   uint32
	pos      errors.Position
}

type operand struct {
	text string
	typ  token.Type
	pos  errors.Position
}

func (u *Unit) setScalar(d *scalarDecl, v uint64, pos errors.Position, what string) error {
	if d.set {
		return errors.Syntax(pos, fmt.Sprintf("duplicate %s, previous at %s", what, d.pos))
	}
	*d = scalarDecl{value: v, pos: pos, set: true}
	return nil
}

// dense returns the number of entries in a declaration map whose keys must
// be exactly 0..n-1.
func dense[T any](decls map[int]T, prefix byte, posOf func(T) errors.Position) (int, error) {
	n := len(decls)
	if n == 0 {
		return 0, nil
	}
	keys := make([]int, 0, n)
	for k := range decls {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for i, k := range keys {
		if k != i {
			return 0, errors.New(errors.PhaseParse, errors.KindUnresolvedReference).
				Path(fmt.Sprintf("%c%d", prefix, i)).
				At(posOf(decls[k]).File, posOf(decls[k]).Line, posOf(decls[k]).Column).
				Detail("%c%d is not declared but %c%d is", prefix, i, prefix, k).
				Build()
		}
	}
	return n, nil
}

func unresolved(pos errors.Position, format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindUnresolvedReference).
		At(pos.File, pos.Line, pos.Column).
		Detail(format, args...).
		Build()
}

func syntax(pos errors.Position, format string, args ...any) error {
	return errors.Syntax(pos, fmt.Sprintf(format, args...))
}

// Module resolves the unit into a module.
func (u *Unit) Module() (*hbc.Module, error) {
	if !u.version.set {
		return nil, errors.Syntax(errors.Position{}, "missing .version directive")
	}
	layout, ok := hbc.LookupLayout(uint32(u.version.value))
	if !ok {
		return nil, errors.New(errors.PhaseParse, errors.KindUnsupportedVersion).
			At(u.version.pos.File, u.version.pos.Line, u.version.pos.Column).
			Value(u.version.value).
			Detail("bytecode version %d is not supported (known: %v)", u.version.value, hbc.SupportedVersions()).
			Build()
	}

	m := &hbc.Module{
		Version:         layout.Version,
		Options:         uint8(u.options.value),
		GlobalCodeIndex: uint32(u.entry.value),
	}
	if u.hash.set {
		m.Hash = u.hash.value
	}

	nstrings, err := dense(u.strings, 's', func(d stringDecl) errors.Position { return d.pos })
	if err != nil {
		return nil, err
	}
	if nstrings > 0 {
		m.Strings = make([]string, nstrings)
		for i, d := range u.strings {
			m.Strings[i] = d.value
		}
	}

	r := &resolver{layout: layout, nstrings: nstrings}
	if m.Literals.Array, err = r.literals(u.arrays, 'a'); err != nil {
		return nil, err
	}
	if m.Literals.Keys, err = r.literals(u.keys, 'k'); err != nil {
		return nil, err
	}
	if m.Literals.Values, err = r.literals(u.values, 'v'); err != nil {
		return nil, err
	}
	r.narrays, r.nkeys, r.nvalues = len(m.Literals.Array), len(m.Literals.Keys), len(m.Literals.Values)

	nfuncs, err := dense(u.functions, 'f', func(d *funcDecl) errors.Position { return d.pos })
	if err != nil {
		return nil, err
	}
	r.nfuncs = nfuncs
	if u.entry.set && int(u.entry.value) >= nfuncs {
		return nil, unresolved(u.entry.pos, "entry function f%d is not declared", u.entry.value)
	}
	if nfuncs > 0 {
		m.Functions = make([]hbc.Function, nfuncs)
	}
	for i := 0; i < nfuncs; i++ {
		f, err := r.function(u.functions[i])
		if err != nil {
			return nil, err
		}
		m.Functions[i] = f
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

type resolver struct {
	layout   *hbc.Layout
	nstrings int
	narrays  int
	nkeys    int
	nvalues  int
	nfuncs   int
}

func (r *resolver) literals(decls map[int]literalDecl, prefix byte) ([]hbc.Literal, error) {
	n, err := dense(decls, prefix, func(d literalDecl) errors.Position { return d.pos })
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]hbc.Literal, n)
	for i := 0; i < n; i++ {
		d := decls[i]
		if d.lit.Kind == hbc.LiteralString && int(d.lit.String) >= r.nstrings {
			return nil, unresolved(d.strPos, "string s%d is not declared", d.lit.String)
		}
		out[i] = d.lit
	}
	return out, nil
}

type label struct {
	offset int64
	pos    errors.Position
}

func (r *resolver) function(d *funcDecl) (hbc.Function, error) {
	f := hbc.Function{
		Name:       d.name,
		ParamCount: d.params,
		FrameSize:  d.frame,
		Flags:      uint8(d.flags),
	}
	if int(d.name) >= r.nstrings {
		return f, unresolved(d.namePos, "name string s%d is not declared", d.name)
	}

	// First pass: place instructions and labels.
	table := r.layout.Opcodes()
	type placed struct {
		it     *item
		op     hbc.Opcode
		shape  []hbc.OperandType
		offset int64
	}
	var (
		insts   []placed
		labels  = make(map[string]label)
		pending []hbc.Location
		pendPos errors.Position
		offset  int64
	)
	for i := range d.items {
		it := &d.items[i]
		switch it.kind {
		case itemLabel:
			if prev, dup := labels[it.name]; dup {
				return f, syntax(it.pos, "label %s redefined, previous at %s", it.name, prev.pos)
			}
			labels[it.name] = label{offset: offset, pos: it.pos}
		case itemLoc:
			if len(pending) == 0 {
				pendPos = it.pos
			}
			pending = append(pending, hbc.Location{Address: uint32(offset), Line: it.line, Column: it.column})
		case itemInstr:
			op, ok := hbc.OpcodeByName(it.name)
			if !ok {
				return f, syntax(it.pos, "unknown instruction %s", it.name)
			}
			shape, ok := table.Shape(op)
			if !ok {
				return f, errors.New(errors.PhaseParse, errors.KindUnsupportedVersion).
					At(it.pos.File, it.pos.Line, it.pos.Column).
					Value(r.layout.Version).
					Detail("%s is not available in bytecode version %d", op, r.layout.Version).
					Build()
			}
			if len(it.operands) != len(shape) {
				return f, syntax(it.pos, "%s takes %d operands, got %d", op, len(shape), len(it.operands))
			}
			insts = append(insts, placed{it: it, op: op, shape: shape, offset: offset})
			f.Locations = append(f.Locations, pending...)
			pending = pending[:0]
			size := int64(1)
			for _, t := range shape {
				size += int64(t.Width())
			}
			offset += size
			if offset > math.MaxUint32 {
				return f, syntax(it.pos, "function body exceeds 4 GiB")
			}
		}
	}
	if len(pending) > 0 {
		return f, syntax(pendPos, ".loc is not followed by an instruction")
	}

	// Second pass: operands and handlers.
	if len(insts) > 0 {
		f.Instructions = make([]hbc.Instruction, len(insts))
	}
	for i, pl := range insts {
		in := hbc.Instruction{Op: pl.op}
		if len(pl.shape) > 0 {
			in.Operands = make([]hbc.Operand, len(pl.shape))
		}
		for j, t := range pl.shape {
			o, err := r.operand(t, pl.it.operands[j], pl.offset, labels)
			if err != nil {
				return f, err
			}
			in.Operands[j] = o
		}
		f.Instructions[i] = in
	}

	for i := range d.items {
		it := &d.items[i]
		if it.kind != itemHandler {
			continue
		}
		var addrs [3]uint32
		for j, o := range it.operands {
			l, ok := labels[o.text]
			if !ok {
				return f, unresolved(o.pos, "label %s is not defined", o.text)
			}
			addrs[j] = uint32(l.offset)
		}
		f.Handlers = append(f.Handlers, hbc.Handler{Start: addrs[0], End: addrs[1], Target: addrs[2]})
	}
	return f, nil
}

func (r *resolver) operand(t hbc.OperandType, o operand, at int64, labels map[string]label) (hbc.Operand, error) {
	out := hbc.Operand{Type: t}
	var (
		prefix byte
		limit  int
		what   string
	)
	switch t.Class() {
	case hbc.ClassRegister:
		n, ok := parseRef(o.text, 'r')
		if !ok {
			return out, syntax(o.pos, "expected register, got %q", o.text)
		}
		out.Value = int64(n)
		return out, fits(out, o)
	case hbc.ClassUnsigned, hbc.ClassSigned:
		if o.typ != token.Number {
			return out, syntax(o.pos, "expected integer, got %q", o.text)
		}
		v, err := strconv.ParseInt(o.text, 10, 64)
		if err != nil {
			return out, syntax(o.pos, "invalid integer %q", o.text)
		}
		out.Value = v
		return out, fits(out, o)
	case hbc.ClassDouble:
		f, ok := parseFloat(o.text)
		if !ok {
			return out, syntax(o.pos, "invalid number %q", o.text)
		}
		out.Float = f
		return out, nil
	case hbc.ClassJump:
		if o.typ == token.Number {
			v, err := strconv.ParseInt(o.text, 10, 64)
			if err != nil {
				return out, syntax(o.pos, "invalid jump distance %q", o.text)
			}
			out.Value = v
			return out, fits(out, o)
		}
		l, ok := labels[o.text]
		if !ok {
			return out, unresolved(o.pos, "label %s is not defined", o.text)
		}
		out.Value = l.offset - at
		return out, fits(out, o)
	case hbc.ClassString:
		prefix, limit, what = 's', r.nstrings, "string"
	case hbc.ClassFunction:
		prefix, limit, what = 'f', r.nfuncs, "function"
	case hbc.ClassArray:
		prefix, limit, what = 'a', r.narrays, "array literal"
	case hbc.ClassKey:
		prefix, limit, what = 'k', r.nkeys, "key literal"
	case hbc.ClassValue:
		prefix, limit, what = 'v', r.nvalues, "value literal"
	default:
		return out, syntax(o.pos, "operand type %s cannot be written", t)
	}
	n, ok := parseRef(o.text, prefix)
	if !ok {
		return out, syntax(o.pos, "expected %s reference %c<N>, got %q", what, prefix, o.text)
	}
	if n >= limit {
		return out, unresolved(o.pos, "%s %c%d is not declared", what, prefix, n)
	}
	out.Value = int64(n)
	return out, fits(out, o)
}

func fits(v hbc.Operand, o operand) error {
	if !v.Type.Fits(v.Value) {
		return syntax(o.pos, "%s does not fit %s", o.text, v.Type)
	}
	return nil
}

// parseFloat accepts Go float syntax plus nan.0x<bits> for NaN payloads.
func parseFloat(s string) (float64, bool) {
	if rest, ok := strings.CutPrefix(s, "nan.0x"); ok {
		bits, err := strconv.ParseUint(rest, 16, 64)
		if err != nil || !math.IsNaN(math.Float64frombits(bits)) {
			return 0, false
		}
		return math.Float64frombits(bits), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
