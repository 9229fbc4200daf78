package hbc

import (
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc/internal/binary"
)

const magicSize = 8

// header field offsets shared by both families
const (
	offVersion = 8
	offHash    = 12
)

// DetectVersion identifies the bytecode version of data and returns it
// together with the stored content hash.
func DetectVersion(data []byte) (uint32, []byte, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return 0, nil, err
	}
	return h.Version, h.Hash, nil
}

// ParseHeader reads the fixed prologue of a bytecode file. It only inspects
// the first header-size bytes and never reads past them.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < magicSize {
		return nil, errors.MalformedHeader(fmt.Sprintf("need %d bytes for magic, have %d", magicSize, len(data)))
	}
	family, ok := familyOf(data)
	if !ok {
		return nil, errors.UnsupportedFormat("unrecognized magic "+hex.EncodeToString(data[:magicSize]), data[:magicSize:magicSize])
	}
	size := headerSize(family)
	if len(data) < size {
		return nil, errors.New(errors.PhaseDetect, errors.KindMalformedHeader).
			Offset(len(data)).
			Detail("%s header is %d bytes, have %d", family, size, len(data)).
			Build()
	}

	r := binary.NewReader(data[:size])
	if err := r.Seek(offVersion); err != nil {
		return nil, errors.MalformedHeader(err.Error())
	}
	h := &Header{Family: family}
	h.Version, _ = r.ReadU32()

	layout, ok := LookupLayout(h.Version)
	if !ok || layout.Family != family {
		return nil, errors.New(errors.PhaseDetect, errors.KindUnsupportedFormat).
			Offset(offVersion).
			Value(h.Version).
			Detail("%s bytecode version %d is not supported (known: %v)", family, h.Version, familyVersions(family)).
			Build()
	}

	hash, _ := r.ReadBytes(layout.HashSize)
	h.Hash = append([]byte(nil), hash...)

	// Both families store a run of u32 fields after the hash; modern adds
	// the object literal pools before the debug info offset.
	fields := []*uint32{
		&h.FileLength, &h.GlobalCodeIndex, &h.FunctionCount,
		&h.StringCount, &h.StringStorageSize,
		&h.ArrayCount, &h.ArraySize,
	}
	if family == FamilyModern {
		fields = append(fields, &h.KeyCount, &h.KeySize, &h.ValueCount, &h.ValueSize)
	}
	fields = append(fields, &h.DebugInfoOffset)
	for _, f := range fields {
		v, err := r.ReadU32()
		if err != nil {
			return nil, errors.MalformedHeader(err.Error())
		}
		*f = v
	}
	opt, err := r.ReadByte()
	if err != nil {
		return nil, errors.MalformedHeader(err.Error())
	}
	h.Options = opt

	Logger().Debug("parsed header",
		zap.Stringer("family", family),
		zap.Uint32("version", h.Version),
		zap.Uint32("file_length", h.FileLength))
	return h, nil
}

func headerSize(f Family) int {
	if f == FamilyClassic {
		return 64
	}
	return 128
}

// optionsOffset is where the options byte lives; the reserved tail follows it.
func optionsOffset(f Family) int {
	if f == FamilyClassic {
		return 60
	}
	return 80
}
