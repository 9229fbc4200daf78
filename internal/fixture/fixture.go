// Package fixture builds small modules that exercise every construct a
// bytecode version supports. It is shared by tests across packages.
package fixture

import (
	"github.com/wippyai/hbctool/hbc"
)

// Minimal returns a module with one function that returns its first
// register.
func Minimal(version uint32) *hbc.Module {
	return &hbc.Module{
		Version: version,
		Strings: []string{"global"},
		Functions: []hbc.Function{{
			Name:       0,
			ParamCount: 1,
			FrameSize:  1,
			Instructions: []hbc.Instruction{
				{Op: hbc.OpRet, Operands: []hbc.Operand{reg(0)}},
			},
		}},
	}
}

// Bare returns a module whose only function holds a single instruction
// without operands. The string table holds just the function name.
func Bare(version uint32) *hbc.Module {
	return &hbc.Module{
		Version: version,
		Strings: []string{"global"},
		Functions: []hbc.Function{{
			Instructions: []hbc.Instruction{{Op: hbc.OpUnreachable}},
		}},
	}
}

// Sample returns a two-function module using every feature of version:
// literals, jumps in both directions, closures and, where supported, debug
// locations, exception handlers, object pools and bigint literals.
func Sample(version uint32) *hbc.Module {
	l, ok := hbc.LookupLayout(version)
	if !ok {
		return nil
	}
	f := l.Features
	table := l.Opcodes()

	m := &hbc.Module{
		Version: version,
		Options: 1,
		Strings: []string{"global", "print", "hello, world", "inner"},
		Literals: hbc.LiteralPools{
			Array: []hbc.Literal{
				{Kind: hbc.LiteralInt, Int: -7},
				{Kind: hbc.LiteralString, String: 2},
				{Kind: hbc.LiteralNumber, Number: 2.5},
				{Kind: hbc.LiteralNull},
			},
		},
	}

	getByID := []hbc.Operand{reg(2), reg(1), str(1)}
	if shape, _ := table.Shape(hbc.OpGetById); len(shape) == 4 {
		getByID = []hbc.Operand{reg(2), reg(1), hbc.Imm(hbc.OperandUInt8, 1), str(1)}
	}

	entry := []hbc.Instruction{
		{Op: hbc.OpLoadConstString, Operands: []hbc.Operand{reg(0), str(2)}},
		{Op: hbc.OpGetGlobalObject, Operands: []hbc.Operand{reg(1)}},
		{Op: hbc.OpGetById, Operands: getByID},
		{Op: hbc.OpLoadConstUndefined, Operands: []hbc.Operand{reg(3)}},
		{Op: hbc.OpCall, Operands: []hbc.Operand{reg(0), reg(2), hbc.Imm(hbc.OperandUInt8, 2)}},
		{Op: hbc.OpNewArrayWithBuffer, Operands: []hbc.Operand{
			reg(4), hbc.Imm(hbc.OperandUInt16, 4), hbc.Imm(hbc.OperandUInt16, 4), hbc.Imm(hbc.OperandArrayID16, 0),
		}},
		{Op: hbc.OpCreateClosure, Operands: []hbc.Operand{reg(5), reg(1), hbc.Imm(hbc.OperandFunctionID16, 1)}},
	}
	if table.Has(hbc.OpCall1) {
		entry = append(entry, hbc.Instruction{Op: hbc.OpCall1, Operands: []hbc.Operand{reg(0), reg(2), reg(3)}})
	}
	if f.ObjectPools {
		m.Literals.Keys = []hbc.Literal{{Kind: hbc.LiteralString, String: 1}}
		m.Literals.Values = []hbc.Literal{{Kind: hbc.LiteralTrue}}
		entry = append(entry, hbc.Instruction{Op: hbc.OpNewObjectWithBuffer, Operands: []hbc.Operand{
			reg(6), hbc.Imm(hbc.OperandUInt16, 1), hbc.Imm(hbc.OperandUInt16, 1),
			hbc.Imm(hbc.OperandKeyID16, 0), hbc.Imm(hbc.OperandValueID16, 0),
		}})
	}
	if table.Has(hbc.OpAddN) {
		entry = append(entry, hbc.Instruction{Op: hbc.OpAddN, Operands: []hbc.Operand{reg(1), reg(1), reg(1)}})
	}
	if f.BigInt {
		m.Literals.Array = append(m.Literals.Array, hbc.Literal{Kind: hbc.LiteralBigInt, BigInt: []byte{0x01, 0x02, 0xff}})
		entry = append(entry, hbc.Instruction{Op: hbc.OpLoadConstBigInt, Operands: []hbc.Operand{
			reg(7), hbc.Imm(hbc.OperandArrayID16, 4),
		}})
	}
	// JmpTrue skips the 10 byte LoadConstDouble and lands on Ret.
	entry = append(entry,
		hbc.Instruction{Op: hbc.OpJmpTrue, Operands: []hbc.Operand{hbc.Imm(hbc.OperandAddr8, 13), reg(0)}},
		hbc.Instruction{Op: hbc.OpLoadConstDouble, Operands: []hbc.Operand{reg(1), hbc.Float(1.5)}},
		hbc.Instruction{Op: hbc.OpRet, Operands: []hbc.Operand{reg(0)}},
	)

	inner := []hbc.Instruction{
		{Op: hbc.OpLoadConstZero, Operands: []hbc.Operand{reg(0)}},
		{Op: hbc.OpRet, Operands: []hbc.Operand{reg(0)}},
	}
	var handlers []hbc.Handler
	if f.ExceptionHandlers {
		inner = append(inner,
			hbc.Instruction{Op: hbc.OpCatch, Operands: []hbc.Operand{reg(1)}},
			hbc.Instruction{Op: hbc.OpRet, Operands: []hbc.Operand{reg(1)}},
		)
		handlers = []hbc.Handler{{Start: 0, End: 2, Target: 4}}
	}
	// Both jumps land on the Ret just before them.
	inner = append(inner,
		hbc.Instruction{Op: hbc.OpJmp, Operands: []hbc.Operand{hbc.Imm(hbc.OperandAddr8, -2)}},
		hbc.Instruction{Op: hbc.OpJmpLong, Operands: []hbc.Operand{hbc.Imm(hbc.OperandAddr32, -4)}},
	)

	m.Functions = []hbc.Function{
		{Name: 0, ParamCount: 1, FrameSize: 8, Instructions: entry},
		{Name: 3, ParamCount: 1, FrameSize: 2, Flags: 2, Instructions: inner, Handlers: handlers},
	}
	if f.DebugInfo {
		m.Functions[0].Locations = []hbc.Location{
			{Address: 0, Line: 1, Column: 1},
			{Address: 4, Line: 2, Column: 5},
		}
	}
	return m
}

func reg(n uint32) hbc.Operand {
	return hbc.Reg(hbc.OperandReg8, n)
}

func str(n int64) hbc.Operand {
	return hbc.Imm(hbc.OperandStringID16, n)
}
