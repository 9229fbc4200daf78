package hbc

import (
	stderrors "errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc/internal/binary"
)

// DecodeOptions controls optional decoder checks.
type DecodeOptions struct {
	// IgnoreHash accepts files whose stored content hash does not match.
	// Such a module keeps the stored hash, but Encode writes the recomputed
	// one, so the output differs from the input in the hash field.
	IgnoreHash bool
}

// Decode parses a complete bytecode file into a Module. The input must be
// in canonical layout with a matching content hash: every stored offset and
// the hash equal the ones Encode would produce, so that Encode(Decode(data))
// reproduces data.
func Decode(data []byte) (*Module, error) {
	return DecodeWithOptions(data, DecodeOptions{})
}

// DecodeWithOptions is Decode with optional checks enabled.
func DecodeWithOptions(data []byte, opts DecodeOptions) (*Module, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	l, _ := LookupLayout(h.Version)

	d := &decoder{layout: l, header: h}
	if err := d.checkHeader(data); err != nil {
		return nil, err
	}
	d.r = binary.NewReader(data[:h.FileLength])
	if err := d.r.Seek(l.HeaderSize); err != nil {
		return nil, d.short([]string{"header"}, err)
	}
	m, err := d.decode()
	if err != nil {
		return nil, err
	}
	if errs := m.problems(errors.PhaseDecode); len(errs) > 0 {
		return nil, errs[0]
	}
	if !opts.IgnoreHash && !VerifyHash(h, data) {
		return nil, errors.New(errors.PhaseDecode, errors.KindHashMismatch).
			Offset(offHash).
			Value(h.Hash).
			Detail("stored %s content hash does not match", h.Family).
			Build()
	}

	Logger().Debug("decoded module",
		zap.Uint32("version", m.Version),
		zap.Int("functions", len(m.Functions)),
		zap.Int("strings", len(m.Strings)))
	return m, nil
}

type funcEntry struct {
	pos      int
	offset   uint32
	size     uint32
	name     uint32
	params   uint32
	frame    uint32
	handlers uint32
	flags    uint8
}

type decoder struct {
	r      *binary.Reader
	layout *Layout
	header *Header

	funcs   []funcEntry
	strings [][2]uint32 // offset, length
	m       Module
}

func (d *decoder) checkHeader(data []byte) error {
	h, l := d.header, d.layout
	if int(h.FileLength) < l.HeaderSize {
		return errors.CorruptLayout([]string{"header", "file_length"}, offVersion+4+l.HashSize,
			fmt.Sprintf("file length %d is shorter than the %d byte header", h.FileLength, l.HeaderSize))
	}
	if uint64(len(data)) < uint64(h.FileLength) {
		return errors.Truncated(errors.PhaseDecode, []string{"file"}, len(data), int(h.FileLength), len(data))
	}
	if len(data) > int(h.FileLength) {
		return errors.CorruptLayout([]string{"file"}, int(h.FileLength),
			fmt.Sprintf("%d trailing bytes after declared file length", len(data)-int(h.FileLength)))
	}
	for i := optionsOffset(l.Family) + 1; i < l.HeaderSize; i++ {
		if data[i] != 0 {
			return errors.CorruptLayout([]string{"header", "reserved"}, i, "reserved header byte is not zero")
		}
	}
	if !l.Features.DebugInfo && h.DebugInfoOffset != 0 {
		return errors.CorruptLayout([]string{"header", "debug_info_offset"}, 0,
			fmt.Sprintf("version %d has no debug info", l.Version))
	}
	return nil
}

func (d *decoder) short(path []string, err error) error {
	var short *binary.ShortError
	if stderrors.As(err, &short) {
		return errors.Truncated(errors.PhaseDecode, path, short.Offset, short.Need, short.Have)
	}
	return errors.Wrap(errors.PhaseDecode, errors.KindTruncatedData, err, "read "+pathString(path))
}

func (d *decoder) align(s Section) error {
	start := d.r.Position()
	zero, err := d.r.SkipPadding(4)
	if err != nil {
		return d.short([]string{s.String(), "padding"}, err)
	}
	if !zero {
		return errors.CorruptLayout([]string{s.String(), "padding"}, start, "padding bytes are not zero")
	}
	return nil
}

// reserve checks that n entries of size bytes are present before allocating.
func (d *decoder) reserve(s Section, n uint32, size int) error {
	if need := uint64(n) * uint64(size); need > uint64(d.r.Remaining()) {
		return errors.Truncated(errors.PhaseDecode, []string{s.String()}, d.r.Position(), int(min(need, 1<<31)), d.r.Remaining())
	}
	return nil
}

func (d *decoder) decode() (*Module, error) {
	h := d.header
	d.m = Module{
		Version:         h.Version,
		Hash:            h.Hash,
		Options:         h.Options,
		GlobalCodeIndex: h.GlobalCodeIndex,
	}

	for _, s := range d.layout.Sections {
		if s == SectionDebugInfo && h.DebugInfoOffset == 0 {
			continue
		}
		if err := d.align(s); err != nil {
			return nil, err
		}
		var err error
		switch s {
		case SectionFunctions:
			err = d.functionTable()
		case SectionStringTable:
			err = d.stringTable()
		case SectionStringStorage:
			err = d.stringStorage()
		case SectionArrayPool:
			d.m.Literals.Array, err = d.pool(s, h.ArrayCount, h.ArraySize)
		case SectionKeyPool:
			d.m.Literals.Keys, err = d.pool(s, h.KeyCount, h.KeySize)
		case SectionValuePool:
			d.m.Literals.Values, err = d.pool(s, h.ValueCount, h.ValueSize)
		case SectionBodies:
			err = d.bodies()
		case SectionDebugInfo:
			err = d.debugInfo()
		}
		if err != nil {
			return nil, err
		}
	}

	if d.r.Remaining() != 0 {
		return nil, errors.CorruptLayout([]string{"file"}, d.r.Position(),
			fmt.Sprintf("%d unreferenced bytes before end of file", d.r.Remaining()))
	}
	m := d.m
	return &m, nil
}

func (d *decoder) functionTable() error {
	count := d.header.FunctionCount
	if err := d.reserve(SectionFunctions, count, d.layout.FunctionEntrySize); err != nil {
		return err
	}
	d.funcs = make([]funcEntry, count)
	modern := d.layout.Family == FamilyModern
	for i := range d.funcs {
		e := &d.funcs[i]
		e.pos = d.r.Position()
		e.offset, _ = d.r.ReadU32()
		e.size, _ = d.r.ReadU32()
		e.name, _ = d.r.ReadU32()
		if modern {
			p, _ := d.r.ReadU16()
			f, _ := d.r.ReadU16()
			hc, _ := d.r.ReadU16()
			e.params, e.frame, e.handlers = uint32(p), uint32(f), uint32(hc)
		} else {
			p, _ := d.r.ReadByte()
			f, _ := d.r.ReadByte()
			e.params, e.frame = uint32(p), uint32(f)
		}
		e.flags, _ = d.r.ReadByte()
		if reserved, _ := d.r.ReadByte(); reserved != 0 {
			return errors.CorruptLayout([]string{fmt.Sprintf("function[%d]", i), "reserved"},
				d.r.Position()-1, "reserved byte is not zero")
		}
	}
	return nil
}

func (d *decoder) stringTable() error {
	count := d.header.StringCount
	if err := d.reserve(SectionStringTable, count, d.layout.StringEntrySize); err != nil {
		return err
	}
	d.strings = make([][2]uint32, count)
	var next uint64
	for i := range d.strings {
		pos := d.r.Position()
		var off, n uint32
		if d.layout.Family == FamilyClassic {
			packed, _ := d.r.ReadU32()
			off, n = packed&0xFFFFFF, packed>>24
		} else {
			off, _ = d.r.ReadU32()
			n, _ = d.r.ReadU32()
		}
		if uint64(off) != next {
			return errors.CorruptLayout([]string{fmt.Sprintf("string[%d]", i)}, pos,
				fmt.Sprintf("offset %d, expected %d", off, next))
		}
		next += uint64(n)
		if next > uint64(d.header.StringStorageSize) {
			return errors.CorruptLayout([]string{fmt.Sprintf("string[%d]", i)}, pos,
				fmt.Sprintf("string ends at %d, storage is %d", next, d.header.StringStorageSize))
		}
		d.strings[i] = [2]uint32{off, n}
	}
	if next != uint64(d.header.StringStorageSize) {
		return errors.CorruptLayout([]string{SectionStringTable.String()}, d.r.Position(),
			fmt.Sprintf("strings cover %d bytes, storage is %d", next, d.header.StringStorageSize))
	}
	return nil
}

func (d *decoder) stringStorage() error {
	base := d.r.Position()
	storage, err := d.r.ReadBytes(int(d.header.StringStorageSize))
	if err != nil {
		return d.short([]string{SectionStringStorage.String()}, err)
	}
	d.m.Strings = make([]string, len(d.strings))
	seen := make(map[string]int, len(d.strings))
	for i, e := range d.strings {
		end := uint64(e[0]) + uint64(e[1])
		if end > uint64(len(storage)) {
			return errors.CorruptLayout([]string{fmt.Sprintf("string[%d]", i)}, base+int(e[0]),
				fmt.Sprintf("string ends at %d, storage is %d", end, len(storage)))
		}
		s := string(storage[e[0]:end])
		if j, dup := seen[s]; dup {
			return errors.CorruptLayout([]string{fmt.Sprintf("string[%d]", i)}, base+int(e[0]),
				fmt.Sprintf("duplicate of string %d", j))
		}
		seen[s] = i
		d.m.Strings[i] = s
	}
	return nil
}

func (d *decoder) pool(s Section, count, size uint32) ([]Literal, error) {
	base := d.r.Position()
	region, err := d.r.ReadBytes(int(size))
	if err != nil {
		return nil, d.short([]string{s.String()}, err)
	}
	lits, err := readLiterals(region, count, base, d.layout.Features.BigInt, s.String())
	if err != nil {
		return nil, err
	}
	if len(lits) == 0 {
		return nil, nil
	}
	return lits, nil
}

func (d *decoder) bodies() error {
	d.m.Functions = make([]Function, len(d.funcs))
	for i, e := range d.funcs {
		path := []string{fmt.Sprintf("function[%d]", i)}
		if i > 0 {
			if err := d.align(SectionBodies); err != nil {
				return err
			}
		}
		if d.r.Position() != int(e.offset) {
			return errors.CorruptLayout(withPath(path, "offset"), e.pos,
				fmt.Sprintf("body offset %d, expected %d", e.offset, d.r.Position()))
		}
		code, err := d.r.ReadBytes(int(e.size))
		if err != nil {
			return d.short(withPath(path, "body"), err)
		}
		insts, err := decodeInstructions(code, d.layout, int(e.offset), path)
		if err != nil {
			return err
		}
		f := Function{
			Name:         e.name,
			ParamCount:   e.params,
			FrameSize:    e.frame,
			Flags:        e.flags,
			Instructions: insts,
		}
		if e.handlers > 0 {
			if err := d.align(SectionBodies); err != nil {
				return err
			}
			if err := d.reserve(SectionBodies, e.handlers, 12); err != nil {
				return err
			}
			f.Handlers = make([]Handler, e.handlers)
			for j := range f.Handlers {
				hd := &f.Handlers[j]
				hd.Start, _ = d.r.ReadU32()
				hd.End, _ = d.r.ReadU32()
				hd.Target, _ = d.r.ReadU32()
			}
		}
		d.m.Functions[i] = f
	}
	return nil
}

func (d *decoder) debugInfo() error {
	if d.r.Position() != int(d.header.DebugInfoOffset) {
		return errors.CorruptLayout([]string{"header", "debug_info_offset"}, d.r.Position(),
			fmt.Sprintf("debug info at %d, expected %d", d.header.DebugInfoOffset, d.r.Position()))
	}
	count, err := d.r.ReadU32()
	if err != nil {
		return d.short([]string{SectionDebugInfo.String()}, err)
	}
	if count == 0 {
		return errors.CorruptLayout([]string{SectionDebugInfo.String()}, d.r.Position()-4, "empty debug info is stored")
	}
	last := -1
	for i := uint32(0); i < count; i++ {
		path := []string{SectionDebugInfo.String(), fmt.Sprintf("record[%d]", i)}
		pos := d.r.Position()
		if err := d.reserve(SectionDebugInfo, 2, 4); err != nil {
			return err
		}
		fn, _ := d.r.ReadU32()
		n, _ := d.r.ReadU32()
		if int64(fn) <= int64(last) {
			return errors.CorruptLayout(path, pos, fmt.Sprintf("function %d out of order", fn))
		}
		if int(fn) >= len(d.m.Functions) {
			return errors.Unresolved(errors.PhaseDecode, path, fmt.Sprintf("function %d does not exist", fn))
		}
		if n == 0 {
			return errors.CorruptLayout(path, pos, "record without locations")
		}
		if err := d.reserve(SectionDebugInfo, n, 12); err != nil {
			return err
		}
		locs := make([]Location, n)
		for j := range locs {
			locs[j].Address, _ = d.r.ReadU32()
			locs[j].Line, _ = d.r.ReadU32()
			locs[j].Column, _ = d.r.ReadU32()
		}
		d.m.Functions[fn].Locations = locs
		last = int(fn)
	}
	return nil
}

func pathString(path []string) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += "."
		}
		s += p
	}
	return s
}
