// Package hbctool reads, writes and disassembles versioned Hermes-style
// bytecode files.
//
// A bytecode file is decoded into an [hbc.Module], rendered to a line-oriented
// assembly text, parsed back and encoded again. Decoding and re-encoding an
// unmodified file reproduces it byte for byte, and parsing rendered text
// yields a structurally equal module.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	hbctool/             Root package with the five codec operations
//	├── hbc/             Binary model, version layouts, decoder and encoder
//	├── hasm/            Assembly text renderer and parser
//	├── pipeline/        File-level disassemble/assemble jobs with progress logs
//	├── errors/          Structured error types carrying offsets and positions
//	└── cmd/hbctool/     Command line tool
//
// # Quick Start
//
// Disassemble a file, edit the text, and assemble it again:
//
//	m, err := hbctool.Decode(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var buf bytes.Buffer
//	if err := hbctool.Render(m, &buf); err != nil {
//	    log.Fatal(err)
//	}
//
//	edited, err := hbctool.Parse(buf.String())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := hbctool.Encode(edited, edited.Version)
//
// # Versions
//
// Two header families are understood. The classic family (versions 59 and
// 62) uses a 64 byte header and an xxh3-128 content hash; the modern family
// (versions 74, 76 and 84) uses a 128 byte header, a SHA-1 content hash,
// exception handler tables and object literal pools. Each version carries
// its own opcode numbering; see [hbc.LookupLayout].
//
// # Thread Safety
//
// Every operation is a pure function of its inputs. Modules are plain data
// and may be shared between goroutines as long as nobody mutates them.
package hbctool
