package hbc_test

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"testing"

	"go.uber.org/multierr"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc"
	"github.com/wippyai/hbctool/internal/fixture"
)

func encodeSample(t *testing.T, version uint32) []byte {
	t.Helper()
	data, err := hbc.Encode(fixture.Sample(version), version)
	if err != nil {
		t.Fatalf("Encode(v%d): %v", version, err)
	}
	return data
}

func requireKind(t *testing.T, err error, want errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	kind, ok := errors.KindOf(err)
	if !ok || kind != want {
		t.Fatalf("error kind = %q, want %q (err: %v)", kind, want, err)
	}
}

func TestRoundTripPerVersion(t *testing.T) {
	for _, v := range hbc.SupportedVersions() {
		t.Run(versionName(v), func(t *testing.T) {
			want := fixture.Sample(v)
			data := encodeSample(t, v)

			m, err := hbc.Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if m.Version != v {
				t.Errorf("Version = %d, want %d", m.Version, v)
			}
			want.Hash = m.Hash
			if !m.Equal(want) {
				t.Errorf("decoded module differs from the encoded one")
			}

			again, err := hbc.Encode(m, m.Version)
			if err != nil {
				t.Fatalf("re-encode: %v", err)
			}
			if !bytes.Equal(again, data) {
				t.Errorf("re-encoded bytes differ (len %d vs %d)", len(again), len(data))
			}
		})
	}
}

func TestDetectVersion(t *testing.T) {
	for _, v := range hbc.SupportedVersions() {
		t.Run(versionName(v), func(t *testing.T) {
			data := encodeSample(t, v)
			got, hash, err := hbc.DetectVersion(data)
			if err != nil {
				t.Fatalf("DetectVersion: %v", err)
			}
			if got != v {
				t.Errorf("version = %d, want %d", got, v)
			}
			l, _ := hbc.LookupLayout(v)
			if len(hash) != l.HashSize {
				t.Errorf("hash length = %d, want %d", len(hash), l.HashSize)
			}
			if !bytes.Equal(hash, hbc.ContentHash(l.Family, data[l.HeaderSize:])) {
				t.Error("stored hash does not match content")
			}
		})
	}
}

func TestDetectVersionErrors(t *testing.T) {
	modern := encodeSample(t, 84)
	unknown := bytes.Clone(modern)
	unknown[8] = 99

	tests := []struct {
		name string
		data []byte
		kind errors.Kind
	}{
		{"empty", nil, errors.KindMalformedHeader},
		{"short magic", []byte{0xC6, 0x1F, 0xBC}, errors.KindMalformedHeader},
		{"zero bytes", make([]byte, 100), errors.KindUnsupportedFormat},
		{"short header", modern[:40], errors.KindMalformedHeader},
		{"unknown version", unknown, errors.KindUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := hbc.DetectVersion(tt.data)
			requireKind(t, err, tt.kind)
		})
	}
}

func TestDecodeZeroBuffer(t *testing.T) {
	m, err := hbc.Decode(make([]byte, 100))
	if m != nil {
		t.Error("expected nil module")
	}
	if !stderrors.Is(err, errors.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want unsupported_format", err)
	}
}

func TestDecodeClassicMagicWithModernVersion(t *testing.T) {
	data := encodeSample(t, 59)
	data[8] = 84
	_, err := hbc.Decode(data)
	requireKind(t, err, errors.KindUnsupportedFormat)
}

func TestDecodeEveryPrefix(t *testing.T) {
	for _, v := range hbc.SupportedVersions() {
		t.Run(versionName(v), func(t *testing.T) {
			data := encodeSample(t, v)
			l, _ := hbc.LookupLayout(v)
			for n := 0; n < len(data); n++ {
				m, err := hbc.Decode(data[:n])
				if m != nil {
					t.Fatalf("prefix %d: got a module", n)
				}
				want := errors.KindTruncatedData
				if n < l.HeaderSize {
					want = errors.KindMalformedHeader
				}
				kind, _ := errors.KindOf(err)
				if kind != want {
					t.Fatalf("prefix %d: kind %q, want %q (%v)", n, kind, want, err)
				}
			}
		})
	}
}

func TestDecodeInvalidOpcode(t *testing.T) {
	data, err := hbc.Encode(fixture.Minimal(59), 59)
	if err != nil {
		t.Fatal(err)
	}
	// The only body is the last region of the file.
	data[len(data)-2] = 0xFF

	_, err = hbc.Decode(data)
	requireKind(t, err, errors.KindInvalidOpcode)

	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatal("expected *errors.Error")
	}
	if e.Offset != len(data)-2 {
		t.Errorf("Offset = %d, want %d", e.Offset, len(data)-2)
	}
}

func TestDecodeInstructions(t *testing.T) {
	l, _ := hbc.LookupLayout(76)
	ret, _ := l.Opcodes().Encode(hbc.OpRet)
	jmp, _ := l.Opcodes().Encode(hbc.OpJmp)

	insts, err := hbc.DecodeInstructions([]byte{jmp, 0xfe, ret, 3}, 76)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(insts) != 2 {
		t.Fatalf("got %d instructions, want 2", len(insts))
	}
	if insts[0].Op != hbc.OpJmp || insts[0].Operands[0].Value != -2 {
		t.Errorf("first = %v", insts[0])
	}
	if insts[1].String() != "Ret r3" {
		t.Errorf("second = %q", insts[1].String())
	}

	_, err = hbc.DecodeInstructions([]byte{ret}, 76)
	requireKind(t, err, errors.KindTruncatedData)

	_, err = hbc.DecodeInstructions([]byte{0xFF}, 76)
	requireKind(t, err, errors.KindInvalidOpcode)

	_, err = hbc.DecodeInstructions([]byte{ret, 0}, 12)
	requireKind(t, err, errors.KindUnsupportedFormat)
}

func TestDecodeCorruptLayout(t *testing.T) {
	data := encodeSample(t, 76)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"trailing byte", func(b []byte) []byte { return append(b, 0) }},
		{"reserved header byte", func(b []byte) []byte { b[100] = 1; return b }},
		{"string offset", func(b []byte) []byte { b[128] = 1; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hbc.Decode(tt.mutate(bytes.Clone(data)))
			if !stderrors.Is(err, errors.ErrCorruptLayout) {
				t.Fatalf("err = %v, want corrupt_layout", err)
			}
		})
	}
}

func TestDecodeStringLengthOverflow(t *testing.T) {
	m := fixture.Minimal(74)
	m.Strings = append(m.Strings, "x")
	data, err := hbc.Encode(m, 74)
	if err != nil {
		t.Fatal(err)
	}

	// Two modern string entries whose lengths wrap a 32-bit sum back to
	// the empty storage size.
	le := binary.LittleEndian
	le.PutUint32(data[128:], 0)
	le.PutUint32(data[132:], 0xFFFFFFFF)
	le.PutUint32(data[136:], 0xFFFFFFFF)
	le.PutUint32(data[140:], 1)
	le.PutUint32(data[48:], 0)

	var got *hbc.Module
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Decode panicked: %v", r)
			}
		}()
		got, err = hbc.Decode(data)
	}()
	if got != nil {
		t.Error("expected nil module")
	}
	requireKind(t, err, errors.KindCorruptLayout)
}

func TestDecodeHashMismatch(t *testing.T) {
	for _, v := range hbc.SupportedVersions() {
		t.Run(versionName(v), func(t *testing.T) {
			data := encodeSample(t, v)
			data[12] ^= 0xFF

			m, err := hbc.Decode(data)
			if m != nil {
				t.Error("expected nil module")
			}
			if !stderrors.Is(err, errors.ErrHashMismatch) {
				t.Fatalf("err = %v, want hash_mismatch", err)
			}

			m, err = hbc.DecodeWithOptions(data, hbc.DecodeOptions{IgnoreHash: true})
			if err != nil {
				t.Fatalf("DecodeWithOptions(IgnoreHash): %v", err)
			}
			out, err := hbc.Encode(m, v)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			// Only the stored hash differs from the recomputed one.
			data[12] ^= 0xFF
			if !bytes.Equal(out, data) {
				t.Error("re-encoded file differs beyond the hash field")
			}
		})
	}
}

func TestEncodeCrossVersion(t *testing.T) {
	tests := []struct {
		name   string
		from   uint32
		target uint32
	}{
		{"bigint to 76", 84, 76},
		{"handlers to 62", 74, 62},
		{"AddN to 74", 76, 74},
		{"Call1 to 59", 62, 59},
		{"locations to 59", 62, 59},
		{"unknown target", 59, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := hbc.Encode(fixture.Sample(tt.from), tt.target)
			if out != nil {
				t.Error("expected no output")
			}
			if !stderrors.Is(err, errors.ErrUnsupportedVersion) {
				t.Fatalf("err = %v, want unsupported_version", err)
			}
		})
	}
}

func TestEncodeAcrossFamilyCompatibleModule(t *testing.T) {
	// Minimal uses only instructions with identical shapes everywhere.
	for _, v := range hbc.SupportedVersions() {
		data, err := hbc.Encode(fixture.Minimal(59), v)
		if err != nil {
			t.Fatalf("Encode(v%d): %v", v, err)
		}
		got, _, err := hbc.DetectVersion(data)
		if err != nil || got != v {
			t.Errorf("DetectVersion = %d, %v; want %d", got, err, v)
		}
	}
}

func TestEncodeUnresolved(t *testing.T) {
	m := fixture.Minimal(59)
	m.Functions[0].Name = 5
	m.GlobalCodeIndex = 3

	_, err := hbc.Encode(m, 59)
	if !stderrors.Is(err, errors.ErrUnresolvedReference) {
		t.Fatalf("err = %v, want unresolved_reference", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("got %d problems, want 2", n)
	}
}

func TestValidate(t *testing.T) {
	m := fixture.Sample(74)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate sample: %v", err)
	}

	m.Strings = append(m.Strings, "print")
	m.Functions[0].Instructions[0].Operands[1].Value = 40
	m.Functions[1].Handlers[0].Target = 3
	m.Functions[1].Instructions[len(m.Functions[1].Instructions)-1].Operands[0].Value = -3

	err := m.Validate()
	errs := multierr.Errors(err)
	if len(errs) != 4 {
		t.Fatalf("got %d problems, want 4: %v", len(errs), err)
	}
	if !stderrors.Is(err, errors.ErrUnresolvedReference) {
		t.Error("expected an unresolved reference among problems")
	}
}

func TestEqual(t *testing.T) {
	a, b := fixture.Sample(84), fixture.Sample(84)
	if !a.Equal(b) {
		t.Fatal("identical samples compare unequal")
	}
	b.Functions[0].Instructions[len(b.Functions[0].Instructions)-2].Operands[1].Float = 1.25
	if a.Equal(b) {
		t.Error("differing doubles compare equal")
	}

	c := fixture.Minimal(59)
	d := fixture.Minimal(59)
	d.Functions[0].Handlers = []hbc.Handler{}
	if !c.Equal(d) {
		t.Error("nil and empty handler lists should be equal")
	}
}

func versionName(v uint32) string {
	return fmt.Sprintf("v%d", v)
}
