// Package bytecode defines the decoded form of a compiled Feeny program and
// its on-disk encoding.
//
// A Program is a constant pool (ints, null, strings, methods, slots and
// classes), a list of global declarations and the index of the entry method.
// Method bodies hold symbolic instructions whose operands are constant-pool
// indices or label names; the linker turns them into executable code.
//
// # File format
//
// All multi-byte quantities are little-endian. A short is 2 unsigned bytes,
// an int is 4 signed bytes and a string is an int length followed by raw
// bytes.
//
//	Program  := short count, Value×count, short nglobals, short×nglobals, short entry
//	Value    := byte tag, payload
//	  Int    (0) int
//	  Null   (1)
//	  String (2) string
//	  Method (3) short name, byte nargs, short nlocals, int ninstrs, Instr×ninstrs
//	  Slot   (4) short name
//	  Class  (5) short count, short×count
//	Instr    := byte opcode, payload (see opcodes.go)
//
// Decode and Encode read and write this layout exactly. Builder assembles
// programs in memory, which is how tests construct their fixtures.
package bytecode
