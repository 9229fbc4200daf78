package hbctool

import (
	"io"

	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
)

// Module is a decoded bytecode file.
type Module = hbc.Module

// Decode parses a complete bytecode file.
func Decode(data []byte) (*Module, error) {
	return hbc.Decode(data)
}

// Encode serializes m in the layout of version.
func Encode(m *Module, version uint32) ([]byte, error) {
	return hbc.Encode(m, version)
}

// Render writes the assembly text of m to w.
func Render(m *Module, w io.Writer) error {
	return hasm.Render(m, w)
}

// Parse parses assembly text produced by Render, possibly edited.
func Parse(src string) (*Module, error) {
	return hasm.Parse(src)
}

// DetectVersion reports the bytecode version and stored content hash
// declared by the header of data without decoding the rest of the file.
func DetectVersion(data []byte) (uint32, []byte, error) {
	return hbc.DetectVersion(data)
}

// SupportedVersions lists every version Decode and Encode understand.
func SupportedVersions() []uint32 {
	return hbc.SupportedVersions()
}
