package binary

import (
	"encoding/binary"
	"math"
)

// Writer accumulates fixed-width little-endian values and supports
// patching previously written slots.
type Writer struct {
	buf []byte
}

// NewWriter creates a new Writer with the given capacity hint.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// Zero writes n zero bytes.
func (w *Writer) Zero(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Align pads with zero bytes up to the next multiple of align.
func (w *Writer) Align(align int) {
	w.Zero(Pad(len(w.buf), align))
}

// WriteU16 writes a little-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteU32 writes a little-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteU64 writes a little-endian uint64.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteF64 writes a little-endian IEEE 754 double.
func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// PutU32At overwrites 4 bytes at pos.
func (w *Writer) PutU32At(pos int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[pos:pos+4], v)
}

// PutU16At overwrites 2 bytes at pos.
func (w *Writer) PutU16At(pos int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[pos:pos+2], v)
}

// PutBytesAt overwrites len(b) bytes at pos.
func (w *Writer) PutBytesAt(pos int, b []byte) {
	copy(w.buf[pos:pos+len(b)], b)
}
