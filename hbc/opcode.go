package hbc

import "fmt"

// OperandType is the physical encoding of one instruction operand.
type OperandType uint8

const (
	OperandReg8 OperandType = iota + 1
	OperandReg32
	OperandUInt8
	OperandUInt16
	OperandUInt32
	OperandImm32
	OperandDouble
	OperandAddr8
	OperandAddr32
	OperandStringID16
	OperandStringID32
	OperandFunctionID16
	OperandFunctionID32
	OperandArrayID16
	OperandKeyID16
	OperandValueID16
)

var operandTypeNames = [...]string{
	OperandReg8:         "Reg8",
	OperandReg32:        "Reg32",
	OperandUInt8:        "UInt8",
	OperandUInt16:       "UInt16",
	OperandUInt32:       "UInt32",
	OperandImm32:        "Imm32",
	OperandDouble:       "Double",
	OperandAddr8:        "Addr8",
	OperandAddr32:       "Addr32",
	OperandStringID16:   "StringID16",
	OperandStringID32:   "StringID32",
	OperandFunctionID16: "FunctionID16",
	OperandFunctionID32: "FunctionID32",
	OperandArrayID16:    "ArrayID16",
	OperandKeyID16:      "KeyID16",
	OperandValueID16:    "ValueID16",
}

func (t OperandType) String() string {
	if int(t) < len(operandTypeNames) && operandTypeNames[t] != "" {
		return operandTypeNames[t]
	}
	return fmt.Sprintf("OperandType(%d)", uint8(t))
}

// Width returns the encoded size of the operand in bytes.
func (t OperandType) Width() int {
	switch t {
	case OperandReg8, OperandUInt8, OperandAddr8:
		return 1
	case OperandUInt16, OperandStringID16, OperandFunctionID16,
		OperandArrayID16, OperandKeyID16, OperandValueID16:
		return 2
	case OperandReg32, OperandUInt32, OperandImm32, OperandAddr32,
		OperandStringID32, OperandFunctionID32:
		return 4
	case OperandDouble:
		return 8
	}
	return 0
}

// OperandClass groups operand types by what they refer to.
type OperandClass uint8

const (
	ClassRegister OperandClass = iota + 1
	ClassUnsigned
	ClassSigned
	ClassDouble
	ClassJump
	ClassString
	ClassFunction
	ClassArray
	ClassKey
	ClassValue
)

var operandClassNames = [...]string{
	ClassRegister: "register",
	ClassUnsigned: "unsigned",
	ClassSigned:   "signed",
	ClassDouble:   "double",
	ClassJump:     "jump",
	ClassString:   "string",
	ClassFunction: "function",
	ClassArray:    "array literal",
	ClassKey:      "key literal",
	ClassValue:    "value literal",
}

func (c OperandClass) String() string {
	if int(c) < len(operandClassNames) && operandClassNames[c] != "" {
		return operandClassNames[c]
	}
	return fmt.Sprintf("OperandClass(%d)", uint8(c))
}

// Class returns the referential class of the operand type.
func (t OperandType) Class() OperandClass {
	switch t {
	case OperandReg8, OperandReg32:
		return ClassRegister
	case OperandUInt8, OperandUInt16, OperandUInt32:
		return ClassUnsigned
	case OperandImm32:
		return ClassSigned
	case OperandDouble:
		return ClassDouble
	case OperandAddr8, OperandAddr32:
		return ClassJump
	case OperandStringID16, OperandStringID32:
		return ClassString
	case OperandFunctionID16, OperandFunctionID32:
		return ClassFunction
	case OperandArrayID16:
		return ClassArray
	case OperandKeyID16:
		return ClassKey
	case OperandValueID16:
		return ClassValue
	}
	return 0
}

// Signed reports whether the operand is encoded as two's complement.
func (t OperandType) Signed() bool {
	return t == OperandImm32 || t == OperandAddr8 || t == OperandAddr32
}

// MaxUnsigned returns the largest value an unsigned operand can hold.
func (t OperandType) MaxUnsigned() uint64 {
	return 1<<(8*uint(t.Width())) - 1
}

// Fits reports whether v is representable in the operand's width.
func (t OperandType) Fits(v int64) bool {
	switch {
	case t == OperandDouble:
		return true
	case t.Signed():
		bits := uint(8 * t.Width())
		lo, hi := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1
		return v >= lo && v <= hi
	default:
		return v >= 0 && uint64(v) <= t.MaxUnsigned()
	}
}

// Opcode identifies an instruction by mnemonic. Opcode values are stable
// across bytecode versions; the byte encoding is looked up per version.
type Opcode uint16

const (
	OpInvalid Opcode = iota
	OpUnreachable
	OpMov
	OpMovLong
	OpNegate
	OpNot
	OpTypeOf
	OpAdd
	OpAddN
	OpSub
	OpSubN
	OpMul
	OpMulN
	OpDiv
	OpMod
	OpEq
	OpStrictEq
	OpNeq
	OpStrictNeq
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpToNumber
	OpToNumeric
	OpLoadParam
	OpLoadParamLong
	OpLoadConstUndefined
	OpLoadConstNull
	OpLoadConstTrue
	OpLoadConstFalse
	OpLoadConstZero
	OpLoadConstUInt8
	OpLoadConstInt
	OpLoadConstDouble
	OpLoadConstString
	OpLoadConstStringLongIndex
	OpLoadConstBigInt
	OpLoadThisNS
	OpGetGlobalObject
	OpGetArgumentsLength
	OpGetById
	OpPutById
	OpGetByVal
	OpPutByVal
	OpNewObject
	OpNewArray
	OpNewArrayWithBuffer
	OpNewObjectWithBuffer
	OpCreateEnvironment
	OpCreateClosure
	OpCreateClosureLongIndex
	OpCall
	OpCall1
	OpCallLong
	OpConstruct
	OpRet
	OpThrow
	OpCatch
	OpJmp
	OpJmpLong
	OpJmpTrue
	OpJmpTrueLong
	OpJmpFalse
	OpJmpFalseLong
	OpJmpUndefined
	OpJmpUndefinedLong
	OpJLess
	OpJLessLong
	OpJStrictEqual
	OpJStrictEqualLong
	OpDebugger
	OpAsyncBreakCheck
	OpProfilePoint

	opcodeCount
)

// OpcodeDef describes one opcode: its mnemonic and default operand shape.
type OpcodeDef struct {
	Name     string
	Operands []OperandType
}

const (
	r8   = OperandReg8
	r32  = OperandReg32
	u8   = OperandUInt8
	u16  = OperandUInt16
	u32  = OperandUInt32
	i32  = OperandImm32
	f64  = OperandDouble
	a8   = OperandAddr8
	a32  = OperandAddr32
	s16  = OperandStringID16
	s32  = OperandStringID32
	fn16 = OperandFunctionID16
	fn32 = OperandFunctionID32
	arr  = OperandArrayID16
	key  = OperandKeyID16
	val  = OperandValueID16
)

var opcodeDefs = [opcodeCount]OpcodeDef{
	OpUnreachable:              {"Unreachable", nil},
	OpMov:                      {"Mov", ops(r8, r8)},
	OpMovLong:                  {"MovLong", ops(r32, r32)},
	OpNegate:                   {"Negate", ops(r8, r8)},
	OpNot:                      {"Not", ops(r8, r8)},
	OpTypeOf:                   {"TypeOf", ops(r8, r8)},
	OpAdd:                      {"Add", ops(r8, r8, r8)},
	OpAddN:                     {"AddN", ops(r8, r8, r8)},
	OpSub:                      {"Sub", ops(r8, r8, r8)},
	OpSubN:                     {"SubN", ops(r8, r8, r8)},
	OpMul:                      {"Mul", ops(r8, r8, r8)},
	OpMulN:                     {"MulN", ops(r8, r8, r8)},
	OpDiv:                      {"Div", ops(r8, r8, r8)},
	OpMod:                      {"Mod", ops(r8, r8, r8)},
	OpEq:                       {"Eq", ops(r8, r8, r8)},
	OpStrictEq:                 {"StrictEq", ops(r8, r8, r8)},
	OpNeq:                      {"Neq", ops(r8, r8, r8)},
	OpStrictNeq:                {"StrictNeq", ops(r8, r8, r8)},
	OpLess:                     {"Less", ops(r8, r8, r8)},
	OpLessEq:                   {"LessEq", ops(r8, r8, r8)},
	OpGreater:                  {"Greater", ops(r8, r8, r8)},
	OpGreaterEq:                {"GreaterEq", ops(r8, r8, r8)},
	OpToNumber:                 {"ToNumber", ops(r8, r8)},
	OpToNumeric:                {"ToNumeric", ops(r8, r8)},
	OpLoadParam:                {"LoadParam", ops(r8, u8)},
	OpLoadParamLong:            {"LoadParamLong", ops(r8, u32)},
	OpLoadConstUndefined:       {"LoadConstUndefined", ops(r8)},
	OpLoadConstNull:            {"LoadConstNull", ops(r8)},
	OpLoadConstTrue:            {"LoadConstTrue", ops(r8)},
	OpLoadConstFalse:           {"LoadConstFalse", ops(r8)},
	OpLoadConstZero:            {"LoadConstZero", ops(r8)},
	OpLoadConstUInt8:           {"LoadConstUInt8", ops(r8, u8)},
	OpLoadConstInt:             {"LoadConstInt", ops(r8, i32)},
	OpLoadConstDouble:          {"LoadConstDouble", ops(r8, f64)},
	OpLoadConstString:          {"LoadConstString", ops(r8, s16)},
	OpLoadConstStringLongIndex: {"LoadConstStringLongIndex", ops(r8, s32)},
	OpLoadConstBigInt:          {"LoadConstBigInt", ops(r8, arr)},
	OpLoadThisNS:               {"LoadThisNS", ops(r8)},
	OpGetGlobalObject:          {"GetGlobalObject", ops(r8)},
	OpGetArgumentsLength:       {"GetArgumentsLength", ops(r8, r8)},
	OpGetById:                  {"GetById", ops(r8, r8, u8, s16)},
	OpPutById:                  {"PutById", ops(r8, r8, u8, s16)},
	OpGetByVal:                 {"GetByVal", ops(r8, r8, r8)},
	OpPutByVal:                 {"PutByVal", ops(r8, r8, r8)},
	OpNewObject:                {"NewObject", ops(r8)},
	OpNewArray:                 {"NewArray", ops(r8, u16)},
	OpNewArrayWithBuffer:       {"NewArrayWithBuffer", ops(r8, u16, u16, arr)},
	OpNewObjectWithBuffer:      {"NewObjectWithBuffer", ops(r8, u16, u16, key, val)},
	OpCreateEnvironment:        {"CreateEnvironment", ops(r8)},
	OpCreateClosure:            {"CreateClosure", ops(r8, r8, fn16)},
	OpCreateClosureLongIndex:   {"CreateClosureLongIndex", ops(r8, r8, fn32)},
	OpCall:                     {"Call", ops(r8, r8, u8)},
	OpCall1:                    {"Call1", ops(r8, r8, r8)},
	OpCallLong:                 {"CallLong", ops(r8, r8, u32)},
	OpConstruct:                {"Construct", ops(r8, r8, u8)},
	OpRet:                      {"Ret", ops(r8)},
	OpThrow:                    {"Throw", ops(r8)},
	OpCatch:                    {"Catch", ops(r8)},
	OpJmp:                      {"Jmp", ops(a8)},
	OpJmpLong:                  {"JmpLong", ops(a32)},
	OpJmpTrue:                  {"JmpTrue", ops(a8, r8)},
	OpJmpTrueLong:              {"JmpTrueLong", ops(a32, r8)},
	OpJmpFalse:                 {"JmpFalse", ops(a8, r8)},
	OpJmpFalseLong:             {"JmpFalseLong", ops(a32, r8)},
	OpJmpUndefined:             {"JmpUndefined", ops(a8, r8)},
	OpJmpUndefinedLong:         {"JmpUndefinedLong", ops(a32, r8)},
	OpJLess:                    {"JLess", ops(a8, r8, r8)},
	OpJLessLong:                {"JLessLong", ops(a32, r8, r8)},
	OpJStrictEqual:             {"JStrictEqual", ops(a8, r8, r8)},
	OpJStrictEqualLong:         {"JStrictEqualLong", ops(a32, r8, r8)},
	OpDebugger:                 {"Debugger", nil},
	OpAsyncBreakCheck:          {"AsyncBreakCheck", nil},
	OpProfilePoint:             {"ProfilePoint", ops(u16)},
}

func ops(t ...OperandType) []OperandType { return t }

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, opcodeCount)
	for op := OpInvalid + 1; op < opcodeCount; op++ {
		m[opcodeDefs[op].Name] = op
	}
	return m
}()

func (op Opcode) String() string {
	if op > OpInvalid && op < opcodeCount {
		return opcodeDefs[op].Name
	}
	return fmt.Sprintf("Opcode(%d)", uint16(op))
}

// Valid reports whether op names a known instruction.
func (op Opcode) Valid() bool {
	return op > OpInvalid && op < opcodeCount
}

// OpcodeByName looks up an opcode by its mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}
