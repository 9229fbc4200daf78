package hbc

import (
	"fmt"
	"math"
)

// Module is the decoded form of a bytecode file.
type Module struct {
	// Version is the bytecode version the module was read from or targets.
	Version uint32
	// Hash is the content hash as read. Encode recomputes it.
	Hash    []byte
	Options uint8

	GlobalCodeIndex uint32
	Functions       []Function
	Strings         []string
	Literals        LiteralPools
}

// Function is one entry of the function table together with its body.
type Function struct {
	Name         uint32 // string table index
	ParamCount   uint32
	FrameSize    uint32
	Flags        uint8
	Instructions []Instruction
	Handlers     []Handler
	Locations    []Location
}

// Handler is an exception handler range. All fields are byte offsets
// into the function body.
type Handler struct {
	Start  uint32
	End    uint32
	Target uint32
}

// Location maps an instruction address to a source position.
type Location struct {
	Address uint32
	Line    uint32
	Column  uint32
}

// Instruction is a decoded opcode with its operands. Operand types are
// carried so that a module can be checked against any version's table.
type Instruction struct {
	Op       Opcode
	Operands []Operand
}

// Operand is one instruction argument. Jump operands hold the signed byte
// distance from the start of the jumping instruction.
type Operand struct {
	Type  OperandType
	Value int64
	Float float64
}

// Reg returns a register operand of the given width.
func Reg(t OperandType, n uint32) Operand {
	return Operand{Type: t, Value: int64(n)}
}

// Imm returns an integer operand.
func Imm(t OperandType, v int64) Operand {
	return Operand{Type: t, Value: v}
}

// Float returns a Double operand.
func Float(f float64) Operand {
	return Operand{Type: OperandDouble, Float: f}
}

func (o Operand) String() string {
	switch o.Type.Class() {
	case ClassRegister:
		return fmt.Sprintf("r%d", o.Value)
	case ClassDouble:
		return formatFloat(o.Float)
	case ClassString:
		return fmt.Sprintf("s%d", o.Value)
	case ClassFunction:
		return fmt.Sprintf("f%d", o.Value)
	case ClassArray:
		return fmt.Sprintf("a%d", o.Value)
	case ClassKey:
		return fmt.Sprintf("k%d", o.Value)
	case ClassValue:
		return fmt.Sprintf("v%d", o.Value)
	}
	return fmt.Sprintf("%d", o.Value)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return fmt.Sprintf("nan.0x%x", math.Float64bits(f))
	}
	return fmt.Sprintf("%v", f)
}

// Size returns the encoded size of the instruction in bytes.
func (in Instruction) Size() int {
	n := 1
	for _, o := range in.Operands {
		n += o.Type.Width()
	}
	return n
}

func (in Instruction) String() string {
	s := in.Op.String()
	for i, o := range in.Operands {
		if i == 0 {
			s += " "
		} else {
			s += ", "
		}
		s += o.String()
	}
	return s
}

// Offsets returns the byte offset of every instruction followed by the
// total body size.
func (f *Function) Offsets() []uint32 {
	out := make([]uint32, len(f.Instructions)+1)
	var pos uint32
	for i, in := range f.Instructions {
		out[i] = pos
		pos += uint32(in.Size())
	}
	out[len(f.Instructions)] = pos
	return out
}

// CodeSize returns the encoded size of the function's instructions.
func (f *Function) CodeSize() uint32 {
	var n uint32
	for _, in := range f.Instructions {
		n += uint32(in.Size())
	}
	return n
}

// LiteralKind is the tag of a literal pool entry.
type LiteralKind uint8

const (
	LiteralNull LiteralKind = iota
	LiteralTrue
	LiteralFalse
	LiteralNumber
	LiteralInt
	LiteralString
	LiteralBigInt
)

var literalKindNames = [...]string{
	LiteralNull:   "null",
	LiteralTrue:   "true",
	LiteralFalse:  "false",
	LiteralNumber: "number",
	LiteralInt:    "int",
	LiteralString: "string",
	LiteralBigInt: "bigint",
}

func (k LiteralKind) String() string {
	if int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return fmt.Sprintf("LiteralKind(%d)", uint8(k))
}

// LiteralKindByName looks up a literal kind by its textual name.
func LiteralKindByName(name string) (LiteralKind, bool) {
	for k, n := range literalKindNames {
		if n == name {
			return LiteralKind(k), true
		}
	}
	return 0, false
}

// Literal is one tagged entry of a literal pool.
type Literal struct {
	Kind   LiteralKind
	Number float64
	Int    int32
	String uint32 // string table index
	BigInt []byte // two's complement, little-endian
}

// LiteralPools holds the serialized literal buffers referenced by
// array and object construction instructions.
type LiteralPools struct {
	Array  []Literal
	Keys   []Literal
	Values []Literal
}

// Header is a read-only view of a file's fixed prologue.
type Header struct {
	Family            Family
	Version           uint32
	Hash              []byte
	FileLength        uint32
	GlobalCodeIndex   uint32
	FunctionCount     uint32
	StringCount       uint32
	StringStorageSize uint32
	ArrayCount        uint32
	ArraySize         uint32
	KeyCount          uint32
	KeySize           uint32
	ValueCount        uint32
	ValueSize         uint32
	DebugInfoOffset   uint32
	Options           uint8
}
