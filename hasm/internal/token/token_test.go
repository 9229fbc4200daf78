package token

import "testing"

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		values []string
		types  []Type
	}{
		{
			name:   "directive",
			input:  ".version 84",
			values: []string{".version", "84", ""},
			types:  []Type{Directive, Number, Newline},
		},
		{
			name:   "instruction",
			input:  "  GetById r2, r1, 1, s1 ; print",
			values: []string{"GetById", "r2", ",", "r1", ",", "1", ",", "s1", ""},
			types:  []Type{Ident, Ident, Comma, Ident, Comma, Number, Comma, Ident, Newline},
		},
		{
			name:   "label and loc",
			input:  "L0:\n.loc 3:14",
			values: []string{"L0", ":", "", ".loc", "3", ":", "14", ""},
			types:  []Type{Ident, Colon, Newline, Directive, Number, Colon, Number, Newline},
		},
		{
			name:   "key value",
			input:  "params=2",
			values: []string{"params", "=", "2", ""},
			types:  []Type{Ident, Equals, Number, Newline},
		},
		{
			name:   "floats",
			input:  "-1.5e-10 +Inf nan.0x7ff8000000000001",
			values: []string{"-1.5e-10", "+Inf", "nan.0x7ff8000000000001", ""},
			types:  []Type{Number, Number, Ident, Newline},
		},
		{
			name:   "string with escapes",
			input:  `.string s0 "a \"b\" ; c"`,
			values: []string{".string", "s0", `"a \"b\" ; c"`, ""},
			types:  []Type{Directive, Ident, String, Newline},
		},
		{
			name:   "unterminated string",
			input:  `"abc`,
			values: []string{`"abc`, ""},
			types:  []Type{Invalid, Newline},
		},
		{
			name:   "stray character",
			input:  "Mov r0 # r1",
			values: []string{"Mov", "r0", "#", "r1", ""},
			types:  []Type{Ident, Ident, Invalid, Ident, Newline},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.values) {
				t.Fatalf("got %d tokens %v, want %d", len(got), got, len(tt.values))
			}
			for i, tok := range got {
				if tok.Value != tt.values[i] || tok.Type != tt.types[i] {
					t.Errorf("token %d = %s %q, want %s %q", i, tok.Type, tok.Value, tt.types[i], tt.values[i])
				}
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	toks := Tokenize("; header\n  Ret r0\n")
	// Newline(1), Ret, r0, Newline(2)
	if len(toks) != 4 {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	ret := toks[1]
	if ret.Line != 2 || ret.Column != 3 {
		t.Errorf("Ret at %d:%d, want 2:3", ret.Line, ret.Column)
	}
	if toks[2].Column != 7 {
		t.Errorf("r0 at column %d, want 7", toks[2].Column)
	}
}

func TestTokenizeColumnsCountRunes(t *testing.T) {
	toks := Tokenize("é r0 \"ü\" x\n")
	want := []struct {
		typ Type
		col int
	}{
		{Ident, 1}, {Ident, 3}, {String, 6}, {Ident, 10}, {Newline, 11},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Column != w.col {
			t.Errorf("token %d %q = %s at column %d, want %s at %d",
				i, toks[i].Value, toks[i].Type, toks[i].Column, w.typ, w.col)
		}
	}
}
