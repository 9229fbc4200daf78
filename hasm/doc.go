// Package hasm renders bytecode modules as line-oriented assembly text and
// parses that text back.
//
// A rendered module looks like:
//
//	.hasm 1
//	.version 84
//	.options 0
//	.entry f0
//
//	.string s0 "global"
//	.array a0 int 7
//
//	.function f0 s0 params=1 frame=2 flags=0  ; "global"
//	  .loc 1:1
//	  LoadConstZero r0
//	  JmpTrue L0, r0
//	  Ret r0
//	L0:
//	  Ret r1
//	.end
//
// Jump operands and handler ranges are written as labels; they are turned
// back into byte distances when the bytecode version is known, so files
// may be split and ordered freely. Parsing a rendered module yields a
// module equal to the original.
//
// The directory form splits the same statements into metadata.hasm,
// strings.hasm, literals.hasm and one functions/NNNNNN.hasm per function.
package hasm
