package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
		absent   []string
	}{
		{
			name: "full binary error",
			err: New(PhaseDecode, KindTruncatedData).
				Path("function[3]", "body").
				Offset(0x1c0).
				Detail("need %d bytes, %d available", 12, 4).
				Build(),
			contains: []string{"[decode]", "truncated_data", "function[3].body", "offset 0x1c0", "need 12 bytes"},
		},
		{
			name:     "minimal error",
			err:      &Error{Phase: PhaseEncode, Kind: KindUnsupportedVersion, Offset: -1},
			contains: []string{"[encode]", "unsupported_version"},
			absent:   []string{"offset"},
		},
		{
			name:     "text position",
			err:      Syntax(Position{File: "functions/000001.hasm", Line: 7, Column: 12}, "expected register"),
			contains: []string{"[parse]", "syntax_error", "functions/000001.hasm:7:12", "expected register"},
			absent:   []string{"offset"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidInput,
				Detail: "read input",
				Offset: -1,
				Cause:  errors.New("permission denied"),
			},
			contains: []string{"[load]", "invalid_input", "read input", "caused by", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(msg, s) {
					t.Errorf("error message %q should not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseLoad, KindInvalidInput, cause, "open")

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
}

func TestError_Is(t *testing.T) {
	err := Truncated(PhaseDecode, []string{"strings"}, 64, 8, 2)

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindTruncatedData}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindTruncatedData}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindCorruptLayout}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrTruncatedData) {
		t.Error("sentinel should match on kind alone")
	}
	if errors.Is(err, ErrInvalidOpcode) {
		t.Error("sentinel of another kind should not match")
	}

	wrapped := fmt.Errorf("load bundle: %w", err)
	if !errors.Is(wrapped, ErrTruncatedData) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("outer: %w", InvalidOpcode(nil, 12, 0xfe, 76)))
	if !ok || kind != KindInvalidOpcode {
		t.Errorf("KindOf = %q, %v; want %q, true", kind, ok, KindInvalidOpcode)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf should report false for plain errors")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	b := New(PhaseParse, KindUnresolvedReference).
		Path("function[0]", "instruction[2]").
		At("module.hasm", 3, 9).
		Value("L7").
		Cause(cause).
		Detail("undefined label %s", "L7")
	err := b.Build()

	if err.Phase != PhaseParse {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseParse)
	}
	if err.Kind != KindUnresolvedReference {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnresolvedReference)
	}
	if err.Pos.Line != 3 || err.Pos.Column != 9 || err.Pos.File != "module.hasm" {
		t.Errorf("Pos = %+v", err.Pos)
	}
	if err.Offset != -1 {
		t.Errorf("Offset = %d, want -1", err.Offset)
	}
	if err.Value != "L7" {
		t.Errorf("Value = %v", err.Value)
	}
	if err.Detail != "undefined label L7" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not preserved")
	}

	// Builders hand out independent errors.
	other := b.Detail("other").Build()
	if err.Detail == other.Detail {
		t.Error("Build should return a copy")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
	}{
		{"unsupported_format", UnsupportedFormat("unknown magic", nil), PhaseDetect, KindUnsupportedFormat},
		{"malformed_header", MalformedHeader("short"), PhaseDetect, KindMalformedHeader},
		{"truncated", Truncated(PhaseDecode, nil, 0, 1, 0), PhaseDecode, KindTruncatedData},
		{"invalid_opcode", InvalidOpcode(nil, 0, 0xff, 59), PhaseDecode, KindInvalidOpcode},
		{"corrupt", CorruptLayout(nil, 4, "padding"), PhaseDecode, KindCorruptLayout},
		{"unresolved", Unresolved(PhaseValidate, nil, "string 9"), PhaseValidate, KindUnresolvedReference},
		{"unsupported_version", UnsupportedVersion(nil, 59, "handlers"), PhaseEncode, KindUnsupportedVersion},
		{"syntax", Syntax(Position{Line: 1, Column: 1}, "x"), PhaseParse, KindSyntax},
		{"not_found", NotFound(PhaseLoad, "file", "a.bundle"), PhaseLoad, KindNotFound},
		{"invalid_input", InvalidInput(PhaseLoad, "empty"), PhaseLoad, KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
				t.Errorf("got %s/%s, want %s/%s", tt.err.Phase, tt.err.Kind, tt.phase, tt.kind)
			}
		})
	}
}
