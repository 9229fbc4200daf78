package binary

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ShortError is returned when a read runs past the end of the buffer.
type ShortError struct {
	Offset int // position of the failed read
	Need   int // bytes requested
	Have   int // bytes available from Offset
}

func (e *ShortError) Error() string {
	return fmt.Sprintf("short read at position %d: need %d bytes, %d available", e.Offset, e.Need, e.Have)
}

// Reader reads fixed-width little-endian values from a byte slice with
// position tracking. Reads never go past the end of the slice.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a new Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the total length of the underlying data.
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Seek moves to an absolute position. Seeking to the end is allowed.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return &ShortError{Offset: r.pos, Need: pos - r.pos, Have: r.Remaining()}
	}
	r.pos = pos
	return nil
}

// Require fails unless n more bytes are available.
func (r *Reader) Require(n int) error {
	if n < 0 || n > r.Remaining() {
		return &ShortError{Offset: r.pos, Need: n, Have: r.Remaining()}
	}
	return nil
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.Require(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes returns the next n bytes. The result aliases the buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.Require(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadU16 reads a little-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadF64 reads a little-endian IEEE 754 double.
func (r *Reader) ReadF64() (float64, error) {
	bits, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// SkipPadding advances to the next multiple of align and reports whether
// every skipped byte was zero.
func (r *Reader) SkipPadding(align int) (zero bool, err error) {
	n := Pad(r.pos, align)
	b, err := r.ReadBytes(n)
	if err != nil {
		return false, err
	}
	for _, c := range b {
		if c != 0 {
			return false, nil
		}
	}
	return true, nil
}

// Pad returns the number of bytes needed to align pos to align.
func Pad(pos, align int) int {
	if align <= 1 {
		return 0
	}
	return (align - pos%align) % align
}
