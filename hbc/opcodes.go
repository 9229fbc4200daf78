package hbc

import (
	"fmt"
	"slices"
)

// OpcodeTable maps one version's instruction bytes to opcodes and shapes.
type OpcodeTable struct {
	byByte  [256]Opcode
	toByte  [opcodeCount]int16
	shapes  [opcodeCount][]OperandType
	ordered []Opcode
}

func newOpcodeTable(order []Opcode, overrides map[Opcode][]OperandType) *OpcodeTable {
	if len(order) > 256 {
		panic(fmt.Sprintf("hbc: opcode table has %d entries", len(order)))
	}
	t := &OpcodeTable{ordered: order}
	for i := range t.toByte {
		t.toByte[i] = -1
	}
	for i, op := range order {
		if t.toByte[op] >= 0 {
			panic(fmt.Sprintf("hbc: opcode %s listed twice", op))
		}
		t.byByte[i] = op
		t.toByte[op] = int16(i)
		shape := opcodeDefs[op].Operands
		if o, ok := overrides[op]; ok {
			shape = o
		}
		t.shapes[op] = shape
	}
	return t
}

// Lookup decodes an instruction byte.
func (t *OpcodeTable) Lookup(b byte) (Opcode, []OperandType, bool) {
	op := t.byByte[b]
	if int(b) >= len(t.ordered) || op == OpInvalid {
		return OpInvalid, nil, false
	}
	return op, t.shapes[op], true
}

// Encode returns the instruction byte for op.
func (t *OpcodeTable) Encode(op Opcode) (byte, bool) {
	if !op.Valid() || t.toByte[op] < 0 {
		return 0, false
	}
	return byte(t.toByte[op]), true
}

// Shape returns the operand types op takes in this table.
func (t *OpcodeTable) Shape(op Opcode) ([]OperandType, bool) {
	if !op.Valid() || t.toByte[op] < 0 {
		return nil, false
	}
	return t.shapes[op], true
}

// Has reports whether op exists in this table.
func (t *OpcodeTable) Has(op Opcode) bool {
	_, ok := t.Encode(op)
	return ok
}

// Opcodes returns the opcodes in byte order.
func (t *OpcodeTable) Opcodes() []Opcode {
	return slices.Clone(t.ordered)
}

// Len returns the number of opcodes in the table.
func (t *OpcodeTable) Len() int {
	return len(t.ordered)
}

var classicOrder = []Opcode{
	OpUnreachable,
	OpMov, OpMovLong,
	OpNegate, OpNot, OpTypeOf,
	OpAdd, OpSub, OpMul, OpDiv, OpMod,
	OpEq, OpStrictEq, OpNeq, OpStrictNeq,
	OpLess, OpLessEq, OpGreater, OpGreaterEq,
	OpToNumber,
	OpLoadParam, OpLoadParamLong,
	OpLoadConstUndefined, OpLoadConstNull, OpLoadConstTrue, OpLoadConstFalse,
	OpLoadConstZero, OpLoadConstUInt8, OpLoadConstInt, OpLoadConstDouble,
	OpLoadConstString, OpLoadConstStringLongIndex,
	OpLoadThisNS, OpGetGlobalObject, OpGetArgumentsLength,
	OpGetById, OpPutById, OpGetByVal, OpPutByVal,
	OpNewObject, OpNewArray, OpNewArrayWithBuffer,
	OpCreateEnvironment, OpCreateClosure, OpCreateClosureLongIndex,
	OpCall, OpCallLong, OpConstruct,
	OpRet, OpThrow,
	OpJmp, OpJmpLong,
	OpJmpTrue, OpJmpTrueLong,
	OpJmpFalse, OpJmpFalseLong,
	OpJmpUndefined, OpJmpUndefinedLong,
	OpJLess, OpJLessLong,
	OpJStrictEqual, OpJStrictEqualLong,
	OpDebugger,
}

// Property access carries no inline cache slot in the classic family.
var classicShapes = map[Opcode][]OperandType{
	OpGetById: ops(r8, r8, s16),
	OpPutById: ops(r8, r8, s16),
}

var modernOrder = []Opcode{
	OpUnreachable,
	OpNewObjectWithBuffer, OpNewObject, OpNewArrayWithBuffer, OpNewArray,
	OpMov, OpMovLong,
	OpNegate, OpNot, OpTypeOf,
	OpEq, OpStrictEq, OpNeq, OpStrictNeq,
	OpLess, OpLessEq, OpGreater, OpGreaterEq,
	OpAdd, OpMul, OpDiv, OpSub, OpMod,
	OpToNumber,
	OpGetGlobalObject, OpGetArgumentsLength, OpCreateEnvironment,
	OpGetById, OpPutById, OpGetByVal, OpPutByVal,
	OpLoadParam, OpLoadParamLong,
	OpLoadConstUInt8, OpLoadConstInt, OpLoadConstDouble,
	OpLoadConstString, OpLoadConstStringLongIndex,
	OpLoadConstUndefined, OpLoadConstNull, OpLoadConstTrue, OpLoadConstFalse, OpLoadConstZero,
	OpLoadThisNS,
	OpCall, OpCall1, OpCallLong, OpConstruct,
	OpRet, OpCatch, OpThrow,
	OpDebugger, OpProfilePoint,
	OpCreateClosure, OpCreateClosureLongIndex,
	OpJmp, OpJmpLong,
	OpJmpTrue, OpJmpTrueLong,
	OpJmpFalse, OpJmpFalseLong,
	OpJmpUndefined, OpJmpUndefinedLong,
	OpJLess, OpJLessLong,
	OpJStrictEqual, OpJStrictEqualLong,
}

// insertAfter returns a copy of order with ins placed after anchor.
func insertAfter(order []Opcode, anchor Opcode, ins ...Opcode) []Opcode {
	i := slices.Index(order, anchor)
	if i < 0 {
		panic(fmt.Sprintf("hbc: anchor %s not in table", anchor))
	}
	out := make([]Opcode, 0, len(order)+len(ins))
	out = append(out, order[:i+1]...)
	out = append(out, ins...)
	return append(out, order[i+1:]...)
}

func opcodesV59() *OpcodeTable {
	return newOpcodeTable(slices.Clone(classicOrder), classicShapes)
}

func opcodesV62() *OpcodeTable {
	order := append(slices.Clone(classicOrder), OpCall1)
	return newOpcodeTable(order, classicShapes)
}

func opcodesV74() *OpcodeTable {
	return newOpcodeTable(slices.Clone(modernOrder), nil)
}

func orderV76() []Opcode {
	order := insertAfter(modernOrder, OpAdd, OpAddN)
	order = insertAfter(order, OpMul, OpMulN)
	order = insertAfter(order, OpSub, OpSubN)
	return insertAfter(order, OpDebugger, OpAsyncBreakCheck)
}

func opcodesV76() *OpcodeTable {
	return newOpcodeTable(orderV76(), nil)
}

func opcodesV84() *OpcodeTable {
	order := insertAfter(orderV76(), OpToNumber, OpToNumeric)
	order = insertAfter(order, OpLoadConstDouble, OpLoadConstBigInt)
	return newOpcodeTable(order, nil)
}
