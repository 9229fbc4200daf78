package pipeline_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm"
	"github.com/wippyai/hbctool/hbc"
	"github.com/wippyai/hbctool/internal/fixture"
	"github.com/wippyai/hbctool/pipeline"
)

func writeBundle(t *testing.T, dir string, m *hbc.Module) (string, []byte) {
	t.Helper()
	data, err := hbc.Encode(m, m.Version)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(dir, "input.bundle")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, data
}

func hasLine(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func TestDisassembleAssemble(t *testing.T) {
	ctx := context.Background()
	for _, v := range hbc.SupportedVersions() {
		t.Run(fmt.Sprintf("v%d", v), func(t *testing.T) {
			dir := t.TempDir()
			input, data := writeBundle(t, dir, fixture.Sample(v))
			asmDir := filepath.Join(dir, "asm")

			res := pipeline.Disassemble(ctx, input, asmDir, pipeline.Options{})
			if res.Status != pipeline.StatusSuccess {
				t.Fatalf("Disassemble: %v\n%s", res.Err, strings.Join(res.Log, "\n"))
			}
			if res.OutputDir != asmDir || res.Version != v {
				t.Errorf("result = %+v", res)
			}
			for _, want := range []string{
				fmt.Sprintf("bytecode version: %d", v),
				"file size: ",
				"content hash: ",
				"output directory: " + asmDir,
			} {
				if !hasLine(res.Log, want) {
					t.Errorf("log lacks %q: %q", want, res.Log)
				}
			}
			if _, err := os.Stat(filepath.Join(asmDir, filepath.FromSlash(hasm.FunctionFile(1)))); err != nil {
				t.Errorf("function file: %v", err)
			}

			outDir := filepath.Join(dir, "out")
			res = pipeline.Assemble(ctx, asmDir, outDir, pipeline.Options{})
			if res.Status != pipeline.StatusSuccess {
				t.Fatalf("Assemble: %v\n%s", res.Err, strings.Join(res.Log, "\n"))
			}
			if res.OutputFile != filepath.Join(outDir, pipeline.BundleName) {
				t.Errorf("OutputFile = %q", res.OutputFile)
			}
			got, err := os.ReadFile(res.OutputFile)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Error("reassembled bundle differs from the input")
			}
		})
	}
}

func TestDisassembleErrors(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.bundle")
	zeros := filepath.Join(dir, "zeros.bundle")
	if err := os.WriteFile(small, []byte{0xC6, 0x1F}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(zeros, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing", filepath.Join(dir, "nope.bundle"), &errors.Error{Kind: errors.KindNotFound}},
		{"directory", dir, &errors.Error{Kind: errors.KindInvalidInput}},
		{"too small", small, &errors.Error{Kind: errors.KindInvalidInput}},
		{"zeros", zeros, errors.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := pipeline.Disassemble(context.Background(), tt.input, filepath.Join(dir, "out-"+tt.name), pipeline.Options{})
			if res.Status != pipeline.StatusError {
				t.Fatalf("status = %s", res.Status)
			}
			if !stderrors.Is(res.Err, tt.want) {
				t.Errorf("err = %v, want %v", res.Err, tt.want)
			}
			if res.Error == "" || !hasLine(res.Log, "error: ") {
				t.Errorf("failure not logged: %q", res.Log)
			}
		})
	}
}

func TestDisassembleIgnoreHash(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input, data := writeBundle(t, dir, fixture.Sample(84))
	data[12] ^= 0xFF
	if err := os.WriteFile(input, data, 0o644); err != nil {
		t.Fatal(err)
	}

	res := pipeline.Disassemble(ctx, input, filepath.Join(dir, "strict"), pipeline.Options{})
	if res.Status != pipeline.StatusError || !stderrors.Is(res.Err, errors.ErrHashMismatch) {
		t.Fatalf("strict: status %s, err %v", res.Status, res.Err)
	}

	res = pipeline.Disassemble(ctx, input, filepath.Join(dir, "lenient"), pipeline.Options{IgnoreHash: true})
	if res.Status != pipeline.StatusSuccess {
		t.Fatalf("IgnoreHash: %v", res.Err)
	}
}

func TestDisassembleOutputDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input, _ := writeBundle(t, dir, fixture.Sample(76))
	out := filepath.Join(dir, "asm")

	if res := pipeline.Disassemble(ctx, input, out, pipeline.Options{}); res.Status != pipeline.StatusSuccess {
		t.Fatalf("first run: %v", res.Err)
	}
	res := pipeline.Disassemble(ctx, input, out, pipeline.Options{})
	if !stderrors.Is(res.Err, &errors.Error{Kind: errors.KindInvalidInput}) {
		t.Fatalf("second run without Force: err = %v", res.Err)
	}

	// A smaller module replaces the larger one without leaving stale functions.
	input, data := writeBundle(t, dir, fixture.Minimal(76))
	if res := pipeline.Disassemble(ctx, input, out, pipeline.Options{Force: true}); res.Status != pipeline.StatusSuccess {
		t.Fatalf("forced run: %v", res.Err)
	}
	if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(hasm.FunctionFile(1)))); !os.IsNotExist(err) {
		t.Errorf("stale function file survived: %v", err)
	}
	res = pipeline.Assemble(ctx, out, filepath.Join(dir, "bin"), pipeline.Options{})
	if res.Status != pipeline.StatusSuccess {
		t.Fatalf("Assemble: %v", res.Err)
	}
	got, _ := os.ReadFile(res.OutputFile)
	if !bytes.Equal(got, data) {
		t.Error("forced output does not reassemble to the new input")
	}
}

func TestAssembleSingleFileRetarget(t *testing.T) {
	dir := t.TempDir()
	var text bytes.Buffer
	if err := hasm.Render(fixture.Minimal(59), &text); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "module.hasm")
	if err := os.WriteFile(src, text.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	res := pipeline.Assemble(context.Background(), src, dir, pipeline.Options{Version: 62})
	if res.Status != pipeline.StatusSuccess {
		t.Fatalf("Assemble: %v", res.Err)
	}
	if !hasLine(res.Log, "target version: 62") {
		t.Errorf("log = %q", res.Log)
	}
	data, _ := os.ReadFile(res.OutputFile)
	if v, _, err := hbc.DetectVersion(data); err != nil || v != 62 {
		t.Errorf("DetectVersion = %d, %v", v, err)
	}

	res = pipeline.Assemble(context.Background(), src, dir, pipeline.Options{Version: 60})
	if !stderrors.Is(res.Err, errors.ErrUnsupportedVersion) {
		t.Errorf("unknown target: err = %v", res.Err)
	}
}

func TestAssembleSyntaxError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.hasm")
	if err := os.WriteFile(src, []byte(".version 59\n.bogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res := pipeline.Assemble(context.Background(), src, dir, pipeline.Options{})
	if !stderrors.Is(res.Err, errors.ErrSyntax) {
		t.Fatalf("err = %v", res.Err)
	}
	if !strings.Contains(res.Error, "bad.hasm:2:1") {
		t.Errorf("error lacks position: %s", res.Error)
	}
}

func TestProgress(t *testing.T) {
	dir := t.TempDir()
	input, _ := writeBundle(t, dir, fixture.Minimal(84))

	var seen []string
	res := pipeline.Disassemble(context.Background(), input, filepath.Join(dir, "asm"), pipeline.Options{
		Progress: func(line string) { seen = append(seen, line) },
	})
	if res.Status != pipeline.StatusSuccess {
		t.Fatal(res.Err)
	}
	if strings.Join(seen, "\n") != strings.Join(res.Log, "\n") {
		t.Errorf("progress %q != log %q", seen, res.Log)
	}
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	modern, _ := writeBundle(t, dir, fixture.Sample(76))

	info, err := pipeline.Info(modern)
	if err != nil {
		t.Fatal(err)
	}
	if info.Magic != "c61fbc03c103191f" || info.Guess != pipeline.GuessModern || info.Version != 76 {
		t.Errorf("info = %+v", info)
	}
	if len(info.HeaderHex) != 128 {
		t.Errorf("HeaderHex has %d digits", len(info.HeaderHex))
	}

	classic := filepath.Join(dir, "classic.bundle")
	data, _ := hbc.Encode(fixture.Minimal(59), 59)
	os.WriteFile(classic, data, 0o644)
	if info, err := pipeline.Info(classic); err != nil || info.Guess != pipeline.GuessClassic || info.Version != 59 {
		t.Errorf("classic info = %+v, %v", info, err)
	}

	short := filepath.Join(dir, "short.bundle")
	os.WriteFile(short, []byte{1, 2, 3}, 0o644)
	info, err = pipeline.Info(short)
	if err != nil {
		t.Fatal(err)
	}
	if info.Magic != pipeline.GuessUnknown || info.Guess != pipeline.GuessUnknown || info.Version != 0 || info.VersionError == "" {
		t.Errorf("short info = %+v", info)
	}

	if _, err := pipeline.Info(filepath.Join(dir, "missing")); !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	var jobs []pipeline.Job
	for _, v := range hbc.SupportedVersions() {
		data, err := hbc.Encode(fixture.Sample(v), v)
		if err != nil {
			t.Fatal(err)
		}
		in := filepath.Join(dir, fmt.Sprintf("v%d.bundle", v))
		os.WriteFile(in, data, 0o644)
		jobs = append(jobs, pipeline.Job{
			Kind:      pipeline.KindDisassemble,
			Input:     in,
			OutputDir: filepath.Join(dir, fmt.Sprintf("v%d", v)),
		})
	}
	jobs = append(jobs, pipeline.Job{Kind: pipeline.KindAssemble, Input: filepath.Join(dir, "missing")})

	results, err := pipeline.Batch(context.Background(), jobs, 2)
	if len(results) != len(jobs) {
		t.Fatalf("%d results for %d jobs", len(results), len(jobs))
	}
	for i, r := range results[:len(results)-1] {
		if r.Status != pipeline.StatusSuccess {
			t.Errorf("job %d: %v", i, r.Err)
		}
	}
	if results[len(results)-1].Status != pipeline.StatusError {
		t.Error("missing input succeeded")
	}
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("batch err = %v", err)
	}
}

func TestBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	input, _ := writeBundle(t, dir, fixture.Minimal(59))

	results, err := pipeline.Batch(ctx, []pipeline.Job{
		{Kind: pipeline.KindDisassemble, Input: input, OutputDir: filepath.Join(dir, "a")},
		{Kind: pipeline.KindDisassemble, Input: input, OutputDir: filepath.Join(dir, "b")},
	}, 0)
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, r := range results {
		if !stderrors.Is(r.Err, context.Canceled) {
			t.Errorf("err = %v", r.Err)
		}
	}
}
