package testbed

import (
	"bytes"
	"testing"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
	"github.com/wippyai/hbctool/internal/fixture"
)

// FuzzDecode checks that arbitrary input either decodes into a module that
// re-encodes to the same bytes or fails with a classified error.
func FuzzDecode(f *testing.F) {
	for _, v := range hbc.SupportedVersions() {
		data, err := hbc.Encode(fixture.Sample(v), v)
		if err != nil {
			f.Fatal(err)
		}
		f.Add(data)
		f.Add(data[:len(data)/2])
		stale := bytes.Clone(data)
		stale[12] ^= 0xFF
		f.Add(stale)
	}
	f.Add(make([]byte, 100))

	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := hbc.Decode(data)
		if err != nil {
			if _, ok := errors.KindOf(err); !ok {
				t.Fatalf("unclassified error: %v", err)
			}
			return
		}
		out, err := hbc.Encode(m, m.Version)
		if err != nil {
			t.Fatalf("decoded module does not encode: %v", err)
		}
		if !bytes.Equal(out, data) {
			t.Fatal("decode/encode is not byte-identical")
		}
	})
}

// FuzzParse checks that any text the parser accepts renders back to text
// that parses to an equal module.
func FuzzParse(f *testing.F) {
	for _, v := range hbc.SupportedVersions() {
		var b bytes.Buffer
		if err := hasm.Render(fixture.Sample(v), &b); err != nil {
			f.Fatal(err)
		}
		f.Add(b.String())
	}
	f.Add(".version 59\n")

	f.Fuzz(func(t *testing.T, src string) {
		m, err := hasm.Parse(src)
		if err != nil {
			if _, ok := errors.KindOf(err); !ok {
				t.Fatalf("unclassified error: %v", err)
			}
			return
		}
		var b bytes.Buffer
		if err := hasm.Render(m, &b); err != nil {
			t.Fatalf("parsed module does not render: %v", err)
		}
		again, err := hasm.Parse(b.String())
		if err != nil {
			t.Fatalf("rendered text does not parse: %v", err)
		}
		if !again.Equal(m) {
			t.Fatal("render/parse changed the module")
		}
	})
}
