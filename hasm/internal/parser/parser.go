package parser

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/wippyai/hbctool/errors"
	"github.com/wippyai/hbctool/hasm/internal/token"
	"github.com/wippyai/hbctool/hbc"
)

// GrammarVersion is the only accepted value of the .hasm directive.
const GrammarVersion = 1

type Parser struct {
	unit   *Unit
	file   string
	tokens []token.Token
	pos    int
}

// New returns a parser that adds the declarations of one file to unit.
func New(file string, tokens []token.Token, unit *Unit) *Parser {
	return &Parser{unit: unit, file: file, tokens: tokens}
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) at(t *token.Token) errors.Position {
	if t == nil {
		if n := len(p.tokens); n > 0 {
			last := p.tokens[n-1]
			return errors.Position{File: p.file, Line: last.Line, Column: last.Column}
		}
		return errors.Position{File: p.file, Line: 1, Column: 1}
	}
	return errors.Position{File: p.file, Line: t.Line, Column: t.Column}
}

func (p *Parser) errorf(t *token.Token, format string, args ...any) error {
	return errors.Syntax(p.at(t), fmt.Sprintf(format, args...))
}

func describe(t *token.Token) string {
	if t == nil {
		return "end of input"
	}
	if t.Type == token.Newline {
		return "end of line"
	}
	return fmt.Sprintf("%s %q", t.Type, t.Value)
}

func (p *Parser) expect(typ token.Type, what string) (*token.Token, error) {
	t := p.next()
	if t == nil || t.Type != typ {
		return nil, p.errorf(t, "expected %s, got %s", what, describe(t))
	}
	return t, nil
}

func (p *Parser) endOfLine() error {
	_, err := p.expect(token.Newline, "end of line")
	return err
}

func (p *Parser) integer(what string, bits int) (int64, *token.Token, error) {
	t, err := p.expect(token.Number, what)
	if err != nil {
		return 0, nil, err
	}
	v, perr := strconv.ParseInt(t.Value, 10, 64)
	if perr != nil || v < 0 || (bits < 64 && v >= 1<<bits) {
		return 0, nil, p.errorf(t, "invalid %s %q", what, t.Value)
	}
	return v, t, nil
}

func (p *Parser) ref(prefix byte, what string) (int, *token.Token, error) {
	t, err := p.expect(token.Ident, what)
	if err != nil {
		return 0, nil, err
	}
	n, ok := parseRef(t.Value, prefix)
	if !ok {
		return 0, nil, p.errorf(t, "expected %s, got %q", what, t.Value)
	}
	return n, t, nil
}

// parseRef parses <prefix><decimal index>.
func parseRef(s string, prefix byte) (int, bool) {
	if len(s) < 2 || s[0] != prefix {
		return 0, false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s[1:], 10, 31)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// Parse reads every statement of the file into the unit.
func (p *Parser) Parse() error {
	for {
		t := p.next()
		if t == nil {
			return nil
		}
		switch t.Type {
		case token.Newline:
			continue
		case token.Directive:
			if err := p.directive(t); err != nil {
				return err
			}
		default:
			return p.errorf(t, "expected directive, got %s", describe(t))
		}
	}
}

func (p *Parser) directive(t *token.Token) error {
	u := p.unit
	switch t.Value {
	case ".hasm":
		v, vt, err := p.integer("grammar version", 32)
		if err != nil {
			return err
		}
		if v != GrammarVersion {
			return p.errorf(vt, "unsupported grammar version %d", v)
		}
	case ".version":
		v, _, err := p.integer("bytecode version", 32)
		if err != nil {
			return err
		}
		if err := u.setScalar(&u.version, uint64(v), p.at(t), ".version"); err != nil {
			return err
		}
	case ".options":
		v, _, err := p.integer("options byte", 8)
		if err != nil {
			return err
		}
		if err := u.setScalar(&u.options, uint64(v), p.at(t), ".options"); err != nil {
			return err
		}
	case ".entry":
		n, _, err := p.ref('f', "function reference")
		if err != nil {
			return err
		}
		if err := u.setScalar(&u.entry, uint64(n), p.at(t), ".entry"); err != nil {
			return err
		}
	case ".hash":
		ht := p.next()
		if ht == nil || (ht.Type != token.Ident && ht.Type != token.Number) {
			return p.errorf(ht, "expected hex hash, got %s", describe(ht))
		}
		b, err := hex.DecodeString(ht.Value)
		if err != nil {
			return p.errorf(ht, "invalid hex hash %q", ht.Value)
		}
		if u.hash.set {
			return p.errorf(t, "duplicate .hash, previous at %s", u.hash.pos)
		}
		u.hash = bytesDecl{value: b, pos: p.at(t), set: true}
	case ".string":
		n, nt, err := p.ref('s', "string reference")
		if err != nil {
			return err
		}
		st, err := p.expect(token.String, "quoted string")
		if err != nil {
			return err
		}
		s, uerr := strconv.Unquote(st.Value)
		if uerr != nil {
			return p.errorf(st, "invalid string literal: %v", uerr)
		}
		if prev, dup := u.strings[n]; dup {
			return p.errorf(nt, "s%d redeclared, previous at %s", n, prev.pos)
		}
		u.strings[n] = stringDecl{value: s, pos: p.at(nt)}
	case ".array", ".key", ".value":
		return p.literalDirective(t)
	case ".function":
		return p.function(t)
	case ".end":
		return p.errorf(t, ".end outside of a function")
	default:
		return p.errorf(t, "unknown directive %s", t.Value)
	}
	return p.endOfLine()
}

func (p *Parser) literalDirective(t *token.Token) error {
	var (
		prefix byte
		pool   map[int]literalDecl
	)
	switch t.Value {
	case ".array":
		prefix, pool = 'a', p.unit.arrays
	case ".key":
		prefix, pool = 'k', p.unit.keys
	default:
		prefix, pool = 'v', p.unit.values
	}
	n, nt, err := p.ref(prefix, fmt.Sprintf("%c reference", prefix))
	if err != nil {
		return err
	}
	lit, err := p.literal()
	if err != nil {
		return err
	}
	if prev, dup := pool[n]; dup {
		return p.errorf(nt, "%c%d redeclared, previous at %s", prefix, n, prev.pos)
	}
	lit.pos = p.at(nt)
	pool[n] = lit
	return p.endOfLine()
}

func (p *Parser) literal() (literalDecl, error) {
	kt, err := p.expect(token.Ident, "literal kind")
	if err != nil {
		return literalDecl{}, err
	}
	kind, ok := hbc.LiteralKindByName(kt.Value)
	if !ok {
		return literalDecl{}, p.errorf(kt, "unknown literal kind %q", kt.Value)
	}
	d := literalDecl{lit: hbc.Literal{Kind: kind}}
	switch kind {
	case hbc.LiteralNumber:
		vt := p.next()
		if vt == nil || (vt.Type != token.Number && vt.Type != token.Ident) {
			return d, p.errorf(vt, "expected number, got %s", describe(vt))
		}
		f, ok := parseFloat(vt.Value)
		if !ok {
			return d, p.errorf(vt, "invalid number %q", vt.Value)
		}
		d.lit.Number = f
	case hbc.LiteralInt:
		vt, err := p.expect(token.Number, "integer")
		if err != nil {
			return d, err
		}
		v, perr := strconv.ParseInt(vt.Value, 10, 32)
		if perr != nil {
			return d, p.errorf(vt, "invalid int literal %q", vt.Value)
		}
		d.lit.Int = int32(v)
	case hbc.LiteralString:
		n, st, err := p.ref('s', "string reference")
		if err != nil {
			return d, err
		}
		d.lit.String = uint32(n)
		d.strPos = p.at(st)
	case hbc.LiteralBigInt:
		vt, err := p.expect(token.Number, "hex bigint")
		if err != nil {
			return d, err
		}
		b, ok := parseHexBytes(vt.Value)
		if !ok || len(b) == 0 {
			return d, p.errorf(vt, "invalid bigint %q", vt.Value)
		}
		d.lit.BigInt = b
	}
	return d, nil
}

func parseHexBytes(s string) ([]byte, bool) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, false
	}
	b, err := hex.DecodeString(s[2:])
	return b, err == nil
}

func (p *Parser) function(t *token.Token) error {
	n, nt, err := p.ref('f', "function reference")
	if err != nil {
		return err
	}
	name, namet, err := p.ref('s', "name string reference")
	if err != nil {
		return err
	}
	f := &funcDecl{name: uint32(name), namePos: p.at(namet), pos: p.at(nt)}

	for {
		kt := p.next()
		if kt != nil && kt.Type == token.Newline {
			break
		}
		if kt == nil || kt.Type != token.Ident {
			return p.errorf(kt, "expected attribute or end of line, got %s", describe(kt))
		}
		if _, err := p.expect(token.Equals, "'='"); err != nil {
			return err
		}
		var dst *uint32
		bits := 32
		switch kt.Value {
		case "params":
			dst = &f.params
		case "frame":
			dst = &f.frame
		case "flags":
			dst, bits = &f.flags, 8
		default:
			return p.errorf(kt, "unknown function attribute %q", kt.Value)
		}
		v, _, err := p.integer(kt.Value, bits)
		if err != nil {
			return err
		}
		*dst = uint32(v)
	}

	if err := p.body(f); err != nil {
		return err
	}
	if prev, dup := p.unit.functions[n]; dup {
		return p.errorf(nt, "f%d redeclared, previous at %s", n, prev.pos)
	}
	p.unit.functions[n] = f
	return nil
}

func (p *Parser) body(f *funcDecl) error {
	for {
		t := p.next()
		if t == nil {
			return errors.Syntax(f.pos, "function is missing .end")
		}
		switch t.Type {
		case token.Newline:
			continue
		case token.Directive:
			switch t.Value {
			case ".end":
				return p.endOfLine()
			case ".loc":
				line, _, err := p.integer("line", 32)
				if err != nil {
					return err
				}
				if _, err := p.expect(token.Colon, "':'"); err != nil {
					return err
				}
				col, _, err := p.integer("column", 32)
				if err != nil {
					return err
				}
				f.items = append(f.items, item{kind: itemLoc, line: uint32(line), column: uint32(col), pos: p.at(t)})
			case ".handler":
				it := item{kind: itemHandler, pos: p.at(t)}
				for range 3 {
					lt, err := p.expect(token.Ident, "label")
					if err != nil {
						return err
					}
					it.operands = append(it.operands, operand{text: lt.Value, typ: lt.Type, pos: p.at(lt)})
				}
				f.items = append(f.items, it)
			default:
				return p.errorf(t, "unexpected %s in function body", t.Value)
			}
			if err := p.endOfLine(); err != nil {
				return err
			}
		case token.Ident:
			if nt := p.peek(); nt != nil && nt.Type == token.Colon {
				p.next()
				f.items = append(f.items, item{kind: itemLabel, name: t.Value, pos: p.at(t)})
				continue
			}
			it, err := p.instruction(t)
			if err != nil {
				return err
			}
			f.items = append(f.items, it)
		default:
			return p.errorf(t, "expected instruction, label or directive, got %s", describe(t))
		}
	}
}

func (p *Parser) instruction(mn *token.Token) (item, error) {
	it := item{kind: itemInstr, name: mn.Value, pos: p.at(mn)}
	if t := p.peek(); t != nil && t.Type == token.Newline {
		p.next()
		return it, nil
	}
	for {
		t := p.next()
		if t == nil || (t.Type != token.Ident && t.Type != token.Number) {
			return it, p.errorf(t, "expected operand, got %s", describe(t))
		}
		it.operands = append(it.operands, operand{text: t.Value, typ: t.Type, pos: p.at(t)})
		sep := p.next()
		if sep != nil && sep.Type == token.Newline {
			return it, nil
		}
		if sep == nil || sep.Type != token.Comma {
			return it, p.errorf(sep, "expected ',' or end of line, got %s", describe(sep))
		}
	}
}
