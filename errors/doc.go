// Package errors provides structured error types for the hbctool codec.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a structure path, a byte offset for binary input, a
// file/line/column position for textual input, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTruncatedData).
//		Path("function[3]", "body").
//		Offset(0x1c0).
//		Detail("need %d bytes, %d available", 12, 4).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Truncated(errors.PhaseDecode, path, off, need, have)
//	err := errors.Syntax(pos, "expected register")
//
// Callers match kinds with the sentinels, which ignore the phase:
//
//	if errors.Is(err, hbcerrors.ErrTruncatedData) { ... }
package errors
