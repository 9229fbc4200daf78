package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDetect   Phase = "detect"   // header / magic probing
	PhaseDecode   Phase = "decode"   // binary to Module
	PhaseEncode   Phase = "encode"   // Module to binary
	PhaseRender   Phase = "render"   // Module to text
	PhaseParse    Phase = "parse"    // text to Module
	PhaseValidate Phase = "validate" // structural validation
	PhaseLoad     Phase = "load"     // file access in the pipeline layer
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupportedFormat   Kind = "unsupported_format"
	KindMalformedHeader     Kind = "malformed_header"
	KindTruncatedData       Kind = "truncated_data"
	KindInvalidOpcode       Kind = "invalid_opcode"
	KindSyntax              Kind = "syntax_error"
	KindUnresolvedReference Kind = "unresolved_reference"
	KindUnsupportedVersion  Kind = "unsupported_version"
	KindCorruptLayout       Kind = "corrupt_layout"
	KindHashMismatch        Kind = "hash_mismatch"
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
)

// Sentinels for errors.Is. They match any phase.
var (
	ErrUnsupportedFormat   = sentinel(KindUnsupportedFormat)
	ErrMalformedHeader     = sentinel(KindMalformedHeader)
	ErrTruncatedData       = sentinel(KindTruncatedData)
	ErrInvalidOpcode       = sentinel(KindInvalidOpcode)
	ErrSyntax              = sentinel(KindSyntax)
	ErrUnresolvedReference = sentinel(KindUnresolvedReference)
	ErrUnsupportedVersion  = sentinel(KindUnsupportedVersion)
	ErrCorruptLayout       = sentinel(KindCorruptLayout)
	ErrHashMismatch        = sentinel(KindHashMismatch)
)

func sentinel(kind Kind) *Error {
	return &Error{Kind: kind, Offset: -1}
}

// Position is a location in textual assembly input.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsZero reports whether the position is unset.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0 && p.File == ""
}

func (p Position) String() string {
	var b strings.Builder
	if p.File != "" {
		b.WriteString(p.File)
		b.WriteByte(':')
	}
	fmt.Fprintf(&b, "%d:%d", p.Line, p.Column)
	return b.String()
}

// Error is the structured error type used throughout the codec
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string

	// Offset is the byte offset in binary input, or -1 when unknown.
	Offset int
	// Pos is the location in textual input.
	Pos Position
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.Offset >= 0 && e.Pos.IsZero() {
		fmt.Fprintf(&b, " (offset 0x%x)", e.Offset)
	}
	if !e.Pos.IsZero() {
		b.WriteString(" (")
		b.WriteString(e.Pos.String())
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: -1,
		},
	}
}

// Path sets the structure path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Offset sets the byte offset in binary input
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// At sets the text position
func (b *Builder) At(file string, line, column int) *Builder {
	b.err.Pos = Position{File: file, Line: line, Column: column}
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Convenience constructors for common error patterns

// UnsupportedFormat creates an unrecognized-magic or unknown-version error
func UnsupportedFormat(detail string, value any) *Error {
	return &Error{
		Phase:  PhaseDetect,
		Kind:   KindUnsupportedFormat,
		Detail: detail,
		Value:  value,
		Offset: 0,
	}
}

// MalformedHeader creates a too-short or invalid prologue error
func MalformedHeader(detail string) *Error {
	return &Error{
		Phase:  PhaseDetect,
		Kind:   KindMalformedHeader,
		Detail: detail,
		Offset: -1,
	}
}

// Truncated creates an error for a region that runs past the end of the buffer
func Truncated(phase Phase, path []string, offset, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTruncatedData,
		Path:   path,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d available", need, have),
	}
}

// InvalidOpcode creates an unknown instruction byte error
func InvalidOpcode(path []string, offset int, b byte, version uint32) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidOpcode,
		Path:   path,
		Offset: offset,
		Value:  b,
		Detail: fmt.Sprintf("byte 0x%02x is not an opcode in version %d", b, version),
	}
}

// CorruptLayout creates an error for non-canonical offsets, padding or sizes
func CorruptLayout(path []string, offset int, detail string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindCorruptLayout,
		Path:   path,
		Offset: offset,
		Detail: detail,
	}
}

// Unresolved creates a dangling reference error
func Unresolved(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnresolvedReference,
		Path:   path,
		Offset: -1,
		Detail: detail,
	}
}

// UnsupportedVersion creates an encode-time representability error
func UnsupportedVersion(path []string, version uint32, detail string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindUnsupportedVersion,
		Path:   path,
		Offset: -1,
		Value:  version,
		Detail: detail,
	}
}

// Syntax creates a text parse error at a position
func Syntax(pos Position, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Offset: -1,
		Pos:    pos,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Offset: -1,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Offset: -1,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: -1,
		Detail: detail,
		Cause:  cause,
	}
}
