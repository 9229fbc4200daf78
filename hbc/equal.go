package hbc

import (
	"bytes"
	"math"
	"slices"
)

// Equal reports whether two modules are structurally identical. Doubles
// compare by bit pattern and nil slices equal empty ones.
func (m *Module) Equal(o *Module) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Version != o.Version || m.Options != o.Options || m.GlobalCodeIndex != o.GlobalCodeIndex {
		return false
	}
	if !bytes.Equal(m.Hash, o.Hash) || !slices.Equal(m.Strings, o.Strings) {
		return false
	}
	if !literalsEqual(m.Literals.Array, o.Literals.Array) ||
		!literalsEqual(m.Literals.Keys, o.Literals.Keys) ||
		!literalsEqual(m.Literals.Values, o.Literals.Values) {
		return false
	}
	return slices.EqualFunc(m.Functions, o.Functions, func(a, b Function) bool {
		return a.Equal(&b)
	})
}

// Equal reports whether two functions are structurally identical.
func (f *Function) Equal(o *Function) bool {
	if f.Name != o.Name || f.ParamCount != o.ParamCount || f.FrameSize != o.FrameSize || f.Flags != o.Flags {
		return false
	}
	if !slices.Equal(f.Handlers, o.Handlers) || !slices.Equal(f.Locations, o.Locations) {
		return false
	}
	return slices.EqualFunc(f.Instructions, o.Instructions, Instruction.Equal)
}

// Equal reports whether two instructions are identical.
func (in Instruction) Equal(o Instruction) bool {
	return in.Op == o.Op && slices.EqualFunc(in.Operands, o.Operands, Operand.Equal)
}

// Equal reports whether two operands have the same type and bit-identical value.
func (op Operand) Equal(o Operand) bool {
	return op.Type == o.Type && op.Value == o.Value &&
		math.Float64bits(op.Float) == math.Float64bits(o.Float)
}

func literalsEqual(a, b []Literal) bool {
	return slices.EqualFunc(a, b, func(x, y Literal) bool {
		return x.Kind == y.Kind && x.Int == y.Int && x.String == y.String &&
			math.Float64bits(x.Number) == math.Float64bits(y.Number) &&
			bytes.Equal(x.BigInt, y.BigInt)
	})
}
