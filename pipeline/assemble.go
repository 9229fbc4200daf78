package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
)

// BundleName is the file Assemble writes into its output directory.
const BundleName = "index.android.bundle"

// Assemble parses the assembly at input, which is either a directory in
// the form RenderDir writes or a single .hasm file, and writes the encoded
// bytecode to outputDir/BundleName.
func Assemble(ctx context.Context, input, outputDir string, opts Options) *Result {
	j := newJournal("assemble", input, opts)
	j.printf("assembling %s", input)

	if err := ctx.Err(); err != nil {
		return j.fail(err)
	}
	m, err := loadAssembly(input)
	if err != nil {
		return j.fail(err)
	}
	j.printf("bytecode version: %d", m.Version)
	j.printf("content hash: %s", hashPreview(m.Hash))

	target := m.Version
	if opts.Version != 0 {
		target = opts.Version
	}
	if target != m.Version {
		j.printf("target version: %d", target)
	}

	if err := ctx.Err(); err != nil {
		return j.fail(err)
	}
	data, err := hbc.Encode(m, target)
	if err != nil {
		return j.fail(err)
	}

	if err := mkdir(outputDir); err != nil {
		return j.fail(err)
	}
	out := filepath.Join(outputDir, BundleName)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return j.fail(errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(out).
			Cause(err).
			Detail("write bundle").
			Build())
	}
	j.printf("file size: %s", size(len(data)))
	j.printf("output file: %s", out)

	return j.success(&Result{OutputFile: out, Version: target})
}

func loadAssembly(input string) (*hbc.Module, error) {
	fi, err := os.Stat(input)
	if os.IsNotExist(err) {
		return nil, errors.NotFound(errors.PhaseLoad, "assembly", input)
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "stat input")
	}
	if fi.IsDir() {
		return hasm.ParseFS(os.DirFS(input))
	}
	data, err := readFile(input)
	if err != nil {
		return nil, err
	}
	return hasm.ParseFiles(hasm.File{Name: filepath.Base(input), Source: string(data)})
}
