package hbc

import (
	"fmt"
	"slices"
	"sort"
)

// Family groups bytecode versions that share a magic and header shape.
type Family uint8

const (
	FamilyClassic Family = iota + 1
	FamilyModern
)

// Magic numbers, stored as the first eight bytes of a file.
var (
	MagicClassic = [8]byte{0xFF, 0x48, 0x42, 0x43, 0x0D, 0x0A, 0x1A, 0x0A}
	MagicModern  = [8]byte{0xC6, 0x1F, 0xBC, 0x03, 0xC1, 0x03, 0x19, 0x1F}
)

func (f Family) String() string {
	switch f {
	case FamilyClassic:
		return "classic"
	case FamilyModern:
		return "modern"
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

// Magic returns the family's file signature.
func (f Family) Magic() [8]byte {
	if f == FamilyClassic {
		return MagicClassic
	}
	return MagicModern
}

func familyOf(magic []byte) (Family, bool) {
	switch {
	case len(magic) < 8:
		return 0, false
	case [8]byte(magic[:8]) == MagicClassic:
		return FamilyClassic, true
	case [8]byte(magic[:8]) == MagicModern:
		return FamilyModern, true
	}
	return 0, false
}

// Section identifies one region of a bytecode file.
type Section uint8

const (
	SectionFunctions Section = iota + 1
	SectionStringTable
	SectionStringStorage
	SectionArrayPool
	SectionKeyPool
	SectionValuePool
	SectionBodies
	SectionDebugInfo
)

var sectionNames = [...]string{
	SectionFunctions:     "functions",
	SectionStringTable:   "string_table",
	SectionStringStorage: "string_storage",
	SectionArrayPool:     "array_pool",
	SectionKeyPool:       "key_pool",
	SectionValuePool:     "value_pool",
	SectionBodies:        "bodies",
	SectionDebugInfo:     "debug_info",
}

func (s Section) String() string {
	if int(s) < len(sectionNames) && sectionNames[s] != "" {
		return sectionNames[s]
	}
	return fmt.Sprintf("Section(%d)", uint8(s))
}

// Features lists the optional constructs a version can represent.
type Features struct {
	DebugInfo         bool
	ExceptionHandlers bool
	ObjectPools       bool
	BigInt            bool
}

// Limits bounds the values a version's fixed-width fields can hold.
type Limits struct {
	MaxParams        uint64
	MaxFrame         uint64
	MaxHandlers      uint64
	MaxStringLength  uint64
	MaxStringStorage uint64
}

// Layout describes the physical format of one bytecode version.
type Layout struct {
	Version           uint32
	Family            Family
	HeaderSize        int
	HashSize          int
	FunctionEntrySize int
	StringEntrySize   int
	Sections          []Section
	Features          Features
	Limits            Limits

	opcodes *OpcodeTable
}

// Opcodes returns the version's instruction table.
func (l *Layout) Opcodes() *OpcodeTable {
	return l.opcodes
}

// Has reports whether the layout stores section s.
func (l *Layout) Has(s Section) bool {
	return slices.Contains(l.Sections, s)
}

var classicSections = []Section{
	SectionFunctions,
	SectionStringTable,
	SectionStringStorage,
	SectionArrayPool,
	SectionBodies,
	SectionDebugInfo,
}

var modernSections = []Section{
	SectionStringTable,
	SectionStringStorage,
	SectionFunctions,
	SectionArrayPool,
	SectionKeyPool,
	SectionValuePool,
	SectionBodies,
	SectionDebugInfo,
}

func classicLayout(version uint32, features Features, opcodes *OpcodeTable) *Layout {
	return &Layout{
		Version:           version,
		Family:            FamilyClassic,
		HeaderSize:        64,
		HashSize:          16,
		FunctionEntrySize: 16,
		StringEntrySize:   4,
		Sections:          classicSections,
		Features:          features,
		Limits: Limits{
			MaxParams:        0xFF,
			MaxFrame:         0xFF,
			MaxStringLength:  0xFF,
			MaxStringStorage: 1<<24 - 1,
		},
		opcodes: opcodes,
	}
}

func modernLayout(version uint32, features Features, opcodes *OpcodeTable) *Layout {
	return &Layout{
		Version:           version,
		Family:            FamilyModern,
		HeaderSize:        128,
		HashSize:          20,
		FunctionEntrySize: 20,
		StringEntrySize:   8,
		Sections:          modernSections,
		Features:          features,
		Limits: Limits{
			MaxParams:        0xFFFF,
			MaxFrame:         0xFFFF,
			MaxHandlers:      0xFFFF,
			MaxStringLength:  0xFFFFFFFF,
			MaxStringStorage: 0xFFFFFFFF,
		},
		opcodes: opcodes,
	}
}

var layouts = map[uint32]*Layout{
	59: classicLayout(59, Features{}, opcodesV59()),
	62: classicLayout(62, Features{DebugInfo: true}, opcodesV62()),
	74: modernLayout(74, Features{DebugInfo: true, ExceptionHandlers: true, ObjectPools: true}, opcodesV74()),
	76: modernLayout(76, Features{DebugInfo: true, ExceptionHandlers: true, ObjectPools: true}, opcodesV76()),
	84: modernLayout(84, Features{DebugInfo: true, ExceptionHandlers: true, ObjectPools: true, BigInt: true}, opcodesV84()),
}

// LookupLayout returns the layout for a bytecode version.
func LookupLayout(version uint32) (*Layout, bool) {
	l, ok := layouts[version]
	return l, ok
}

// SupportedVersions returns every supported bytecode version in ascending order.
func SupportedVersions() []uint32 {
	out := make([]uint32, 0, len(layouts))
	for v := range layouts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func familyVersions(f Family) []uint32 {
	var out []uint32
	for _, v := range SupportedVersions() {
		if layouts[v].Family == f {
			out = append(out, v)
		}
	}
	return out
}
