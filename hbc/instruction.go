package hbc

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc/internal/binary"
)

// DecodeInstructions decodes a function body using the opcode table of the
// given version.
func DecodeInstructions(code []byte, version uint32) ([]Instruction, error) {
	l, ok := LookupLayout(version)
	if !ok {
		return nil, errors.New(errors.PhaseDecode, errors.KindUnsupportedFormat).
			Value(version).
			Detail("bytecode version %d is not supported", version).
			Build()
	}
	return decodeInstructions(code, l, 0, nil)
}

func decodeInstructions(code []byte, l *Layout, base int, path []string) ([]Instruction, error) {
	r := binary.NewReader(code)
	var out []Instruction
	for r.Remaining() > 0 {
		start := r.Position()
		b, _ := r.ReadByte()
		op, shape, ok := l.opcodes.Lookup(b)
		if !ok {
			return nil, errors.InvalidOpcode(withPath(path, fmt.Sprintf("instruction[%d]", len(out))), base+start, b, l.Version)
		}
		in := Instruction{Op: op}
		if len(shape) > 0 {
			in.Operands = make([]Operand, len(shape))
		}
		for i, t := range shape {
			o, err := readOperand(r, t)
			if err != nil {
				p := withPath(path, fmt.Sprintf("instruction[%d]", len(out)), op.String())
				var short *binary.ShortError
				if stderrors.As(err, &short) {
					return nil, errors.Truncated(errors.PhaseDecode, p, base+short.Offset, short.Need, short.Have)
				}
				return nil, errors.Wrap(errors.PhaseDecode, errors.KindTruncatedData, err, "read operand")
			}
			in.Operands[i] = o
		}
		out = append(out, in)
	}
	return out, nil
}

func readOperand(r *binary.Reader, t OperandType) (Operand, error) {
	o := Operand{Type: t}
	switch t.Width() {
	case 1:
		b, err := r.ReadByte()
		if err != nil {
			return o, err
		}
		if t.Signed() {
			o.Value = int64(int8(b))
		} else {
			o.Value = int64(b)
		}
	case 2:
		v, err := r.ReadU16()
		if err != nil {
			return o, err
		}
		o.Value = int64(v)
	case 4:
		v, err := r.ReadU32()
		if err != nil {
			return o, err
		}
		if t.Signed() {
			o.Value = int64(int32(v))
		} else {
			o.Value = int64(v)
		}
	case 8:
		f, err := r.ReadF64()
		if err != nil {
			return o, err
		}
		o.Float = f
	default:
		return o, fmt.Errorf("operand type %s has no encoding", t)
	}
	return o, nil
}

func writeInstruction(w *binary.Writer, code byte, in Instruction) {
	w.Byte(code)
	for _, o := range in.Operands {
		switch o.Type.Width() {
		case 1:
			w.Byte(byte(o.Value))
		case 2:
			w.WriteU16(uint16(o.Value))
		case 4:
			w.WriteU32(uint32(o.Value))
		case 8:
			w.WriteF64(o.Float)
		}
	}
}

func withPath(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	out = append(out, path...)
	return append(out, elems...)
}
