package pipeline

import (
	"context"
	"os"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
)

// minFileSize is the length of the magic number; anything shorter cannot
// be a bytecode file.
const minFileSize = 8

// Disassemble decodes the bytecode file at input and writes its directory
// form assembly to outputDir.
func Disassemble(ctx context.Context, input, outputDir string, opts Options) *Result {
	j := newJournal("disassemble", input, opts)
	j.printf("disassembling %s", input)

	if err := ctx.Err(); err != nil {
		return j.fail(err)
	}
	data, err := readFile(input)
	if err != nil {
		return j.fail(err)
	}
	if len(data) < minFileSize {
		return j.fail(errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(input).
			Detail("file is too small to be bytecode (%d bytes)", len(data)).
			Build())
	}

	m, err := hbc.DecodeWithOptions(data, hbc.DecodeOptions{IgnoreHash: opts.IgnoreHash})
	if err != nil {
		return j.fail(err)
	}
	j.printf("bytecode version: %d", m.Version)
	j.printf("file size: %s", size(len(data)))
	j.printf("content hash: %s", hashPreview(m.Hash))
	j.printf("functions: %d, strings: %d", len(m.Functions), len(m.Strings))

	if err := ctx.Err(); err != nil {
		return j.fail(err)
	}
	if err := prepareOutputDir(outputDir, opts.Force); err != nil {
		return j.fail(err)
	}
	if err := hasm.RenderDir(m, DirWriter{Root: outputDir}); err != nil {
		return j.fail(err)
	}
	j.printf("wrote assembly for %d functions", len(m.Functions))
	j.printf("output directory: %s", outputDir)

	return j.success(&Result{OutputDir: outputDir, Version: m.Version})
}

func readFile(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFound(errors.PhaseLoad, "file", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "stat input")
	}
	if fi.IsDir() {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(path).
			Detail("%s is a directory", path).
			Build()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Path(path).
			Cause(err).
			Detail("file is not readable").
			Build()
	}
	return data, nil
}
