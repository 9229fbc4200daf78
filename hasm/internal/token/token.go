package token

import (
	"unicode"
	"unicode/utf8"
)

type Type int

const (
	Ident Type = iota
	Directive
	Number
	String
	Comma
	Colon
	Equals
	Newline
	Invalid
)

func (t Type) String() string {
	switch t {
	case Ident:
		return "identifier"
	case Directive:
		return "directive"
	case Number:
		return "number"
	case String:
		return "string"
	case Comma:
		return "','"
	case Colon:
		return "':'"
	case Equals:
		return "'='"
	case Newline:
		return "end of line"
	case Invalid:
		return "invalid token"
	}
	return "unknown"
}

// Token is one lexeme. String tokens keep their quotes; Unquote is left to
// the parser so that escape errors carry a position.
type Token struct {
	Value  string
	Type   Type
	Line   int
	Column int
}

// Tokenize splits line-oriented assembly into tokens. Every line ends with a
// Newline token, including the last one. Malformed input produces Invalid
// tokens rather than an error.
func Tokenize(input string) []Token {
	var tokens []Token
	line, col := 1, 1
	emit := func(typ Type, value string, c int) {
		tokens = append(tokens, Token{Value: value, Type: typ, Line: line, Column: c})
	}

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		start, startCol := i, col

		switch {
		case r == '\n':
			emit(Newline, "", col)
			line++
			col = 1
			i += size
			continue
		case r == ';':
			for i < len(input) && input[i] != '\n' {
				i++
			}
			continue
		case unicode.IsSpace(r):
			i += size
			col++
			continue
		case r == ',':
			emit(Comma, ",", col)
		case r == ':':
			emit(Colon, ":", col)
		case r == '=':
			emit(Equals, "=", col)
		case r == '"':
			i++
			closed := false
			for i < len(input) && input[i] != '\n' {
				if input[i] == '\\' && i+1 < len(input) && input[i+1] != '\n' {
					i += 2
					continue
				}
				if input[i] == '"' {
					closed = true
					i++
					break
				}
				i++
			}
			typ := String
			if !closed {
				typ = Invalid
			}
			emit(typ, input[start:i], startCol)
			col += utf8.RuneCountInString(input[start:i])
			continue
		case r == '-' || r == '+' || unicode.IsDigit(r):
			i += size
			for i < len(input) {
				c := input[i]
				if isWordByte(c) || ((c == '-' || c == '+') && (input[i-1] == 'e' || input[i-1] == 'E')) {
					i++
					continue
				}
				break
			}
			emit(Number, input[start:i], startCol)
			col += utf8.RuneCountInString(input[start:i])
			continue
		case r == '.' || r == '_' || unicode.IsLetter(r):
			i += size
			for i < len(input) && isWordByte(input[i]) {
				i++
			}
			typ := Ident
			if r == '.' {
				typ = Directive
			}
			emit(typ, input[start:i], startCol)
			col += utf8.RuneCountInString(input[start:i])
			continue
		default:
			emit(Invalid, string(r), col)
		}
		i += size
		col++
	}

	if n := len(tokens); n == 0 || tokens[n-1].Type != Newline {
		emit(Newline, "", col)
	}
	return tokens
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
