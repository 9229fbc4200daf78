package hasm

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hbc"
)

// Directory form file names.
const (
	MetadataFile  = "metadata.hasm"
	StringsFile   = "strings.hasm"
	LiteralsFile  = "literals.hasm"
	FunctionsDir  = "functions"
	FileExtension = ".hasm"
)

// Render writes the textual assembly of m to w as a single file.
func Render(m *hbc.Module, w io.Writer) error {
	lines, err := Lines(m)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.PhaseRender, errors.KindInvalidInput, err, "write assembly")
	}
	return nil
}

// Lines renders m as a sequence of lines without trailing newlines. The
// output is deterministic: equal modules render to identical text.
func Lines(m *hbc.Module) ([]string, error) {
	r, err := newRenderer(m)
	if err != nil {
		return nil, err
	}
	var out []string
	out = append(out, r.metadata()...)
	if s := r.strings(); len(s) > 0 {
		out = append(out, "")
		out = append(out, s...)
	}
	if l := r.literals(); len(l) > 0 {
		out = append(out, "")
		out = append(out, l...)
	}
	for i := range m.Functions {
		out = append(out, "")
		out = append(out, r.function(i)...)
	}
	return out, nil
}

// DirWriter receives the files of the directory form.
type DirWriter interface {
	WriteFile(name string, data []byte) error
}

// RenderDir writes m in directory form: metadata, strings and literals in
// their own files and one file per function under functions/.
func RenderDir(m *hbc.Module, dw DirWriter) error {
	r, err := newRenderer(m)
	if err != nil {
		return err
	}
	files := []struct {
		name  string
		lines []string
	}{
		{MetadataFile, r.metadata()},
		{StringsFile, r.strings()},
		{LiteralsFile, r.literals()},
	}
	for _, f := range files {
		if err := writeLines(dw, f.name, f.lines); err != nil {
			return err
		}
	}
	for i := range m.Functions {
		if err := writeLines(dw, FunctionFile(i), r.function(i)); err != nil {
			return err
		}
	}
	Logger().Debug("rendered directory form",
		zap.Uint32("version", m.Version),
		zap.Int("files", len(files)+len(m.Functions)))
	return nil
}

// FunctionFile returns the directory-form path of function i.
func FunctionFile(i int) string {
	return fmt.Sprintf("%s/%06d%s", FunctionsDir, i, FileExtension)
}

func writeLines(dw DirWriter, name string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := dw.WriteFile(name, []byte(b.String())); err != nil {
		return errors.New(errors.PhaseRender, errors.KindInvalidInput).
			Path(name).
			Cause(err).
			Detail("write %s", name).
			Build()
	}
	return nil
}

type renderer struct {
	m *hbc.Module
}

func newRenderer(m *hbc.Module) (*renderer, error) {
	if m == nil {
		return nil, errors.InvalidInput(errors.PhaseRender, "nil module")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &renderer{m: m}, nil
}

func (r *renderer) metadata() []string {
	m := r.m
	out := []string{
		"; hbctool assembly",
		fmt.Sprintf(".hasm %d", GrammarVersion),
		fmt.Sprintf(".version %d", m.Version),
	}
	if len(m.Hash) > 0 {
		out = append(out, ".hash "+hex.EncodeToString(m.Hash))
	}
	out = append(out, fmt.Sprintf(".options %d", m.Options))
	if len(m.Functions) > 0 {
		out = append(out, fmt.Sprintf(".entry f%d", m.GlobalCodeIndex))
	}
	return out
}

func (r *renderer) strings() []string {
	out := make([]string, 0, len(r.m.Strings))
	for i, s := range r.m.Strings {
		out = append(out, fmt.Sprintf(".string s%d %s", i, strconv.Quote(s)))
	}
	return out
}

func (r *renderer) literals() []string {
	var out []string
	pools := []struct {
		directive string
		prefix    byte
		lits      []hbc.Literal
	}{
		{".array", 'a', r.m.Literals.Array},
		{".key", 'k', r.m.Literals.Keys},
		{".value", 'v', r.m.Literals.Values},
	}
	for _, p := range pools {
		for i, lit := range p.lits {
			line := fmt.Sprintf("%s %c%d %s", p.directive, p.prefix, i, r.literal(lit))
			if lit.Kind == hbc.LiteralString {
				line += "  ; " + r.quote(lit.String)
			}
			out = append(out, line)
		}
	}
	return out
}

func (r *renderer) literal(lit hbc.Literal) string {
	switch lit.Kind {
	case hbc.LiteralNumber:
		return "number " + formatFloat(lit.Number)
	case hbc.LiteralInt:
		return fmt.Sprintf("int %d", lit.Int)
	case hbc.LiteralString:
		return fmt.Sprintf("string s%d", lit.String)
	case hbc.LiteralBigInt:
		return "bigint 0x" + hex.EncodeToString(lit.BigInt)
	}
	return lit.Kind.String()
}

func (r *renderer) quote(idx uint32) string {
	if int(idx) < len(r.m.Strings) {
		return strconv.Quote(r.m.Strings[idx])
	}
	return "?"
}

func (r *renderer) function(idx int) []string {
	f := &r.m.Functions[idx]
	offsets := f.Offsets()

	// Every jump target and handler address gets a label, numbered in
	// ascending offset order.
	targets := make(map[int64]bool)
	for i, in := range f.Instructions {
		for _, o := range in.Operands {
			if o.Type.Class() == hbc.ClassJump {
				targets[int64(offsets[i])+o.Value] = true
			}
		}
	}
	for _, h := range f.Handlers {
		targets[int64(h.Start)] = true
		targets[int64(h.End)] = true
		targets[int64(h.Target)] = true
	}
	sorted := make([]int64, 0, len(targets))
	for off := range targets {
		sorted = append(sorted, off)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	labels := make(map[int64]string, len(sorted))
	for i, off := range sorted {
		labels[off] = fmt.Sprintf("L%d", i)
	}

	out := []string{fmt.Sprintf(".function f%d s%d params=%d frame=%d flags=%d  ; %s",
		idx, f.Name, f.ParamCount, f.FrameSize, f.Flags, r.quote(f.Name))}

	loc := 0
	for i, in := range f.Instructions {
		at := int64(offsets[i])
		if l, ok := labels[at]; ok {
			out = append(out, l+":")
		}
		for loc < len(f.Locations) && int64(f.Locations[loc].Address) == at {
			out = append(out, fmt.Sprintf("  .loc %d:%d", f.Locations[loc].Line, f.Locations[loc].Column))
			loc++
		}
		out = append(out, "  "+r.instruction(in, at, labels))
	}
	if l, ok := labels[int64(offsets[len(f.Instructions)])]; ok {
		out = append(out, l+":")
	}
	for _, h := range f.Handlers {
		out = append(out, fmt.Sprintf("  .handler %s %s %s",
			labels[int64(h.Start)], labels[int64(h.End)], labels[int64(h.Target)]))
	}
	return append(out, ".end")
}

func (r *renderer) instruction(in hbc.Instruction, at int64, labels map[int64]string) string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	var comments []string
	for i, o := range in.Operands {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		switch o.Type.Class() {
		case hbc.ClassJump:
			b.WriteString(labels[at+o.Value])
		case hbc.ClassDouble:
			b.WriteString(formatFloat(o.Float))
		case hbc.ClassString:
			b.WriteString(o.String())
			comments = append(comments, r.quote(uint32(o.Value)))
		default:
			b.WriteString(o.String())
		}
	}
	if len(comments) > 0 {
		b.WriteString("  ; ")
		b.WriteString(strings.Join(comments, ", "))
	}
	return b.String()
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return fmt.Sprintf("nan.0x%x", math.Float64bits(f))
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
