// Package hbc decodes and encodes versioned Hermes-style bytecode files.
//
// A bytecode file is a fixed header followed by tables (functions, strings,
// literal pools), instruction bodies and optional debug info. The physical
// layout, opcode numbering and available features vary by version; each
// supported version is described by a Layout selected from the header.
//
// # Supported Versions
//
//	classic family (magic FF 48 42 43 0D 0A 1A 0A, 64 byte header, xxh3-128):
//	  59  base instruction set
//	  62  adds Call1 and debug info
//
//	modern family (magic C6 1F BC 03 C1 03 19 1F, 128 byte header, SHA-1):
//	  74  renumbered opcodes, exception handlers, object literal pools
//	  76  adds AddN, SubN, MulN and AsyncBreakCheck
//	  84  adds ToNumeric and bigint literals
//
// # Decoding
//
//	data, _ := os.ReadFile("index.android.bundle")
//	version, hash, err := hbc.DetectVersion(data)
//	m, err := hbc.Decode(data)
//
// Decode only accepts files in canonical layout, which makes encoding the
// decoded module reproduce the input exactly:
//
//	out, _ := hbc.Encode(m, m.Version)
//	bytes.Equal(out, data) // true
//
// # Encoding
//
// Encode validates the module and checks that every construct is
// representable in the target version. Anything that is not, such as an
// opcode missing from an older table or exception handlers in a classic
// file, is reported as an unsupported_version error.
//
// # Errors
//
// All errors are *errors.Error values from the hbctool errors package
// carrying a kind, a structure path and the byte offset where the problem
// was found.
package hbc
