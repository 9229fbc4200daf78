package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/hbctool/hbc"
	"github.com/wippyai/hbctool/internal/fixture"
	"github.com/wippyai/hbctool/pipeline"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersionsCommand(t *testing.T) {
	out, err := execute(t, "versions")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"VERSION", "59", "classic", "xxh3-128", "84", "modern", "sha1", "bigint"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "versions", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var rows []versionRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("json: %v\n%s", err, out)
	}
	if len(rows) != len(hbc.SupportedVersions()) || rows[0].Version != 59 {
		t.Errorf("rows = %+v", rows)
	}

	if _, err := execute(t, "versions", "--format", "yaml"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestDisasmAsmCommands(t *testing.T) {
	dir := t.TempDir()
	data, err := hbc.Encode(fixture.Sample(74), 74)
	if err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(dir, "app.bundle")
	if err := os.WriteFile(in, data, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "disasm", in)
	if err != nil {
		t.Fatalf("disasm: %v\n%s", err, out)
	}
	asmDir := filepath.Join(dir, "app_hasm")
	if !strings.Contains(out, "✓ output directory: "+asmDir) {
		t.Errorf("disasm output:\n%s", out)
	}

	out, err = execute(t, "asm", asmDir, "-o", filepath.Join(dir, "built"))
	if err != nil {
		t.Fatalf("asm: %v\n%s", err, out)
	}
	got, err := os.ReadFile(filepath.Join(dir, "built", pipeline.BundleName))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("asm did not reproduce the original bundle")
	}

	out, err = execute(t, "disasm", in)
	if err == nil {
		t.Fatal("second disasm into a non-empty directory succeeded")
	}
	if !strings.Contains(out, "✗ ") {
		t.Errorf("failure not marked:\n%s", out)
	}
}

func TestInfoCommand(t *testing.T) {
	dir := t.TempDir()
	data, _ := hbc.Encode(fixture.Minimal(62), 62)
	in := filepath.Join(dir, "app.bundle")
	os.WriteFile(in, data, 0o644)

	out, err := execute(t, "info", in)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"magic:    ff4842430d0a1a0a", "family:   " + pipeline.GuessClassic, "version:  62"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "info", "--format", "json", in)
	if err != nil {
		t.Fatal(err)
	}
	var info pipeline.FileInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("json: %v\n%s", err, out)
	}
	if info.Version != 62 || info.Size != int64(len(data)) {
		t.Errorf("info = %+v", info)
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name   string
		kind   pipeline.Kind
		inputs []string
		output string
		want   []string
	}{
		{"default disasm", pipeline.KindDisassemble, []string{"a/app.bundle"}, "", []string{filepath.Join("a", "app_hasm")}},
		{"default asm", pipeline.KindAssemble, []string{"a/app_hasm/"}, "", []string{filepath.Join("a", "app_hasm_bundle")}},
		{"single output", pipeline.KindDisassemble, []string{"app.bundle"}, "out", []string{"out"}},
		{"many outputs", pipeline.KindDisassemble, []string{"x.bundle", "y/z.bundle"}, "out", []string{
			filepath.Join("out", "x"), filepath.Join("out", "z"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := plan(tt.kind, tt.inputs, tt.output, pipeline.Options{})
			for i, j := range jobs {
				if j.OutputDir != tt.want[i] || j.Kind != tt.kind {
					t.Errorf("job %d = %+v, want output %s", i, j, tt.want[i])
				}
			}
		})
	}
}

func TestMark(t *testing.T) {
	if got := mark("a: ", "error: boom"); !strings.Contains(got, "✗ a: boom") {
		t.Errorf("mark = %q", got)
	}
	if got := mark("", "done"); !strings.HasSuffix(got, "done") || !strings.Contains(got, "✓") {
		t.Errorf("mark = %q", got)
	}
}

func TestBrowseNeedsTerminal(t *testing.T) {
	if isTerminalIO() {
		t.Skip("running in a terminal")
	}
	if _, err := execute(t, "browse", "missing.bundle"); err == nil {
		t.Error("browse started without a terminal")
	}
}
