package hbc

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// ContentHash computes the family's hash over the bytes that follow the header.
func ContentHash(f Family, content []byte) []byte {
	if f == FamilyClassic {
		h := xxh3.Hash128(content)
		out := make([]byte, 16)
		binary.LittleEndian.PutUint64(out[0:8], h.Lo)
		binary.LittleEndian.PutUint64(out[8:16], h.Hi)
		return out
	}
	sum := sha1.Sum(content)
	return sum[:]
}

// VerifyHash reports whether the stored hash of a complete file matches its
// content.
func VerifyHash(h *Header, data []byte) bool {
	size := headerSize(h.Family)
	if int(h.FileLength) > len(data) || int(h.FileLength) < size {
		return false
	}
	return bytes.Equal(h.Hash, ContentHash(h.Family, data[size:h.FileLength]))
}
