package hbc

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc/internal/binary"
)

// Encode serializes m in the layout of the given bytecode version. The
// content hash is always recomputed; m.Hash is ignored.
func Encode(m *Module, version uint32) ([]byte, error) {
	l, ok := LookupLayout(version)
	if !ok {
		return nil, errors.UnsupportedVersion(nil, version,
			fmt.Sprintf("unknown bytecode version %d (supported: %v)", version, SupportedVersions()))
	}
	if m == nil {
		return nil, errors.InvalidInput(errors.PhaseEncode, "nil module")
	}
	if errs := m.problems(errors.PhaseEncode); len(errs) > 0 {
		return nil, multierr.Combine(errs...)
	}
	if errs := representable(m, l); len(errs) > 0 {
		return nil, multierr.Combine(errs...)
	}

	e := &encoder{m: m, layout: l, w: binary.NewWriter(estimateSize(m, l))}
	out := e.encode()

	Logger().Debug("encoded module",
		zap.Uint32("version", version),
		zap.Int("bytes", len(out)),
		zap.Int("functions", len(m.Functions)))
	return out, nil
}

// representable reports every construct of m the target layout cannot store.
func representable(m *Module, l *Layout) []error {
	var errs []error
	fail := func(path []string, format string, args ...any) {
		errs = append(errs, errors.UnsupportedVersion(path, l.Version, fmt.Sprintf(format, args...)))
	}

	if !l.Features.ObjectPools && (len(m.Literals.Keys) > 0 || len(m.Literals.Values) > 0) {
		fail([]string{"literals"}, "version %d has no object literal pools", l.Version)
	}
	for _, pool := range [][]Literal{m.Literals.Array, m.Literals.Keys, m.Literals.Values} {
		for i, lit := range pool {
			if lit.Kind == LiteralBigInt && !l.Features.BigInt {
				fail([]string{"literals", fmt.Sprintf("entry[%d]", i)}, "version %d has no bigint literals", l.Version)
			}
		}
	}

	var storage uint64
	for i, s := range m.Strings {
		if uint64(len(s)) > l.Limits.MaxStringLength {
			fail([]string{fmt.Sprintf("string[%d]", i)}, "length %d exceeds %d", len(s), l.Limits.MaxStringLength)
		}
		storage += uint64(len(s))
	}
	if storage > l.Limits.MaxStringStorage {
		fail([]string{"strings"}, "storage of %d bytes exceeds %d", storage, l.Limits.MaxStringStorage)
	}

	table := l.Opcodes()
	for i := range m.Functions {
		f := &m.Functions[i]
		fpath := fmt.Sprintf("function[%d]", i)
		if uint64(f.ParamCount) > l.Limits.MaxParams {
			fail([]string{fpath, "params"}, "%d parameters exceed %d", f.ParamCount, l.Limits.MaxParams)
		}
		if uint64(f.FrameSize) > l.Limits.MaxFrame {
			fail([]string{fpath, "frame"}, "frame size %d exceeds %d", f.FrameSize, l.Limits.MaxFrame)
		}
		if len(f.Handlers) > 0 && !l.Features.ExceptionHandlers {
			fail([]string{fpath, "handlers"}, "version %d has no exception handlers", l.Version)
		} else if uint64(len(f.Handlers)) > l.Limits.MaxHandlers && l.Features.ExceptionHandlers {
			fail([]string{fpath, "handlers"}, "%d handlers exceed %d", len(f.Handlers), l.Limits.MaxHandlers)
		}
		if len(f.Locations) > 0 && !l.Features.DebugInfo {
			fail([]string{fpath, "locations"}, "version %d has no debug info", l.Version)
		}
		for j, in := range f.Instructions {
			ipath := []string{fpath, fmt.Sprintf("instruction[%d]", j)}
			shape, ok := table.Shape(in.Op)
			if !ok {
				fail(ipath, "opcode %s is not available in version %d", in.Op, l.Version)
				continue
			}
			if !sameShape(shape, in.Operands) {
				fail(ipath, "%s takes %s in version %d", in.Op, shapeString(shape), l.Version)
			}
		}
	}
	return errs
}

func sameShape(shape []OperandType, operands []Operand) bool {
	if len(shape) != len(operands) {
		return false
	}
	for i, t := range shape {
		if operands[i].Type != t {
			return false
		}
	}
	return true
}

func shapeString(shape []OperandType) string {
	if len(shape) == 0 {
		return "no operands"
	}
	s := "("
	for i, t := range shape {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + ")"
}

func estimateSize(m *Module, l *Layout) int {
	n := l.HeaderSize + len(m.Functions)*l.FunctionEntrySize + len(m.Strings)*l.StringEntrySize
	for _, s := range m.Strings {
		n += len(s)
	}
	for i := range m.Functions {
		n += int(m.Functions[i].CodeSize()) + 4 + len(m.Functions[i].Handlers)*12 + len(m.Functions[i].Locations)*12
	}
	return n + 64
}

type encoder struct {
	m      *Module
	layout *Layout
	w      *binary.Writer

	funcTable  int
	bodyOffset []uint32
	sizes      [3]uint32 // array, key, value pool sizes
	debugInfo  uint32
}

func (e *encoder) encode() []byte {
	e.w.Zero(e.layout.HeaderSize)
	e.bodyOffset = make([]uint32, len(e.m.Functions))

	for _, s := range e.layout.Sections {
		if s == SectionDebugInfo && !e.hasLocations() {
			continue
		}
		e.w.Align(4)
		switch s {
		case SectionFunctions:
			e.functionTable()
		case SectionStringTable:
			e.stringTable()
		case SectionStringStorage:
			for _, str := range e.m.Strings {
				e.w.WriteBytes([]byte(str))
			}
		case SectionArrayPool:
			e.sizes[0] = e.pool(e.m.Literals.Array)
		case SectionKeyPool:
			e.sizes[1] = e.pool(e.m.Literals.Keys)
		case SectionValuePool:
			e.sizes[2] = e.pool(e.m.Literals.Values)
		case SectionBodies:
			e.bodies()
		case SectionDebugInfo:
			e.debug()
		}
	}

	// function offsets are only known once bodies are placed
	for i, off := range e.bodyOffset {
		e.w.PutU32At(e.funcTable+i*e.layout.FunctionEntrySize, off)
	}
	e.header()
	return e.w.Bytes()
}

func (e *encoder) hasLocations() bool {
	for i := range e.m.Functions {
		if len(e.m.Functions[i].Locations) > 0 {
			return true
		}
	}
	return false
}

func (e *encoder) functionTable() {
	e.funcTable = e.w.Len()
	modern := e.layout.Family == FamilyModern
	for i := range e.m.Functions {
		f := &e.m.Functions[i]
		e.w.WriteU32(0)
		e.w.WriteU32(f.CodeSize())
		e.w.WriteU32(f.Name)
		if modern {
			e.w.WriteU16(uint16(f.ParamCount))
			e.w.WriteU16(uint16(f.FrameSize))
			e.w.WriteU16(uint16(len(f.Handlers)))
		} else {
			e.w.Byte(byte(f.ParamCount))
			e.w.Byte(byte(f.FrameSize))
		}
		e.w.Byte(f.Flags)
		e.w.Byte(0)
	}
}

func (e *encoder) stringTable() {
	var off uint32
	for _, s := range e.m.Strings {
		n := uint32(len(s))
		if e.layout.Family == FamilyClassic {
			e.w.WriteU32(off | n<<24)
		} else {
			e.w.WriteU32(off)
			e.w.WriteU32(n)
		}
		off += n
	}
}

func (e *encoder) pool(lits []Literal) uint32 {
	start := e.w.Len()
	writeLiterals(e.w, lits)
	return uint32(e.w.Len() - start)
}

func (e *encoder) bodies() {
	table := e.layout.Opcodes()
	for i := range e.m.Functions {
		f := &e.m.Functions[i]
		e.w.Align(4)
		e.bodyOffset[i] = uint32(e.w.Len())
		for _, in := range f.Instructions {
			code, _ := table.Encode(in.Op)
			writeInstruction(e.w, code, in)
		}
		if len(f.Handlers) > 0 {
			e.w.Align(4)
			for _, h := range f.Handlers {
				e.w.WriteU32(h.Start)
				e.w.WriteU32(h.End)
				e.w.WriteU32(h.Target)
			}
		}
	}
}

func (e *encoder) debug() {
	e.debugInfo = uint32(e.w.Len())
	var records uint32
	for i := range e.m.Functions {
		if len(e.m.Functions[i].Locations) > 0 {
			records++
		}
	}
	e.w.WriteU32(records)
	for i := range e.m.Functions {
		locs := e.m.Functions[i].Locations
		if len(locs) == 0 {
			continue
		}
		e.w.WriteU32(uint32(i))
		e.w.WriteU32(uint32(len(locs)))
		for _, loc := range locs {
			e.w.WriteU32(loc.Address)
			e.w.WriteU32(loc.Line)
			e.w.WriteU32(loc.Column)
		}
	}
}

func (e *encoder) header() {
	l, m, w := e.layout, e.m, e.w
	magic := l.Family.Magic()
	w.PutBytesAt(0, magic[:])
	w.PutU32At(offVersion, l.Version)

	var storage uint32
	for _, s := range m.Strings {
		storage += uint32(len(s))
	}
	fields := []uint32{
		uint32(w.Len()), m.GlobalCodeIndex, uint32(len(m.Functions)),
		uint32(len(m.Strings)), storage,
		uint32(len(m.Literals.Array)), e.sizes[0],
	}
	if l.Family == FamilyModern {
		fields = append(fields,
			uint32(len(m.Literals.Keys)), e.sizes[1],
			uint32(len(m.Literals.Values)), e.sizes[2])
	}
	fields = append(fields, e.debugInfo)

	pos := offHash + l.HashSize
	for _, v := range fields {
		w.PutU32At(pos, v)
		pos += 4
	}
	w.PutBytesAt(optionsOffset(l.Family), []byte{m.Options})

	buf := w.Bytes()
	w.PutBytesAt(offHash, ContentHash(l.Family, buf[l.HeaderSize:]))
}
