package hbc

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc/internal/binary"
)

// maxBigIntBytes is bounded by the u8 length prefix.
const maxBigIntBytes = 0xFF

// readLiterals decodes count tagged entries that must fill region exactly.
func readLiterals(region []byte, count uint32, base int, bigint bool, pool string) ([]Literal, error) {
	r := binary.NewReader(region)
	// every entry takes at least its tag byte
	if uint64(count) > uint64(len(region)) {
		return nil, errors.CorruptLayout([]string{pool}, base,
			fmt.Sprintf("%d entries cannot fit in %d bytes", count, len(region)))
	}
	out := make([]Literal, 0, count)
	for i := uint32(0); i < count; i++ {
		path := []string{pool, fmt.Sprintf("entry[%d]", i)}
		start := r.Position()
		lit, err := readLiteral(r, bigint)
		if err != nil {
			var short *binary.ShortError
			if stderrors.As(err, &short) {
				return nil, errors.CorruptLayout(path, base+start, "entry runs past the end of the pool")
			}
			return nil, errors.CorruptLayout(path, base+start, err.Error())
		}
		out = append(out, lit)
	}
	if r.Remaining() != 0 {
		return nil, errors.CorruptLayout([]string{pool}, base+r.Position(),
			fmt.Sprintf("%d unused bytes after %d entries", r.Remaining(), count))
	}
	return out, nil
}

func readLiteral(r *binary.Reader, bigint bool) (Literal, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Literal{}, err
	}
	lit := Literal{Kind: LiteralKind(tag)}
	switch lit.Kind {
	case LiteralNull, LiteralTrue, LiteralFalse:
	case LiteralNumber:
		lit.Number, err = r.ReadF64()
	case LiteralInt:
		var v uint32
		v, err = r.ReadU32()
		lit.Int = int32(v)
	case LiteralString:
		lit.String, err = r.ReadU32()
	case LiteralBigInt:
		if !bigint {
			return Literal{}, fmt.Errorf("bigint literal not allowed in this version")
		}
		var n byte
		if n, err = r.ReadByte(); err != nil {
			return Literal{}, err
		}
		if n == 0 {
			return Literal{}, fmt.Errorf("empty bigint literal")
		}
		var b []byte
		if b, err = r.ReadBytes(int(n)); err == nil {
			lit.BigInt = append([]byte(nil), b...)
		}
	default:
		return Literal{}, fmt.Errorf("unknown literal tag %d", tag)
	}
	return lit, err
}

func writeLiterals(w *binary.Writer, lits []Literal) {
	for _, lit := range lits {
		w.Byte(byte(lit.Kind))
		switch lit.Kind {
		case LiteralNumber:
			w.WriteF64(lit.Number)
		case LiteralInt:
			w.WriteU32(uint32(lit.Int))
		case LiteralString:
			w.WriteU32(lit.String)
		case LiteralBigInt:
			w.Byte(byte(len(lit.BigInt)))
			w.WriteBytes(lit.BigInt)
		}
	}
}

// literalSize returns the encoded size of a literal.
func literalSize(lit Literal) int {
	switch lit.Kind {
	case LiteralNumber:
		return 9
	case LiteralInt, LiteralString:
		return 5
	case LiteralBigInt:
		return 2 + len(lit.BigInt)
	}
	return 1
}
