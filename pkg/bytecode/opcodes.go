package bytecode

import "fmt"

// Opcode identifies a symbolic (pre-link) instruction in a compiled program.
// The numeric values are fixed by the file format and must not be reordered.
type Opcode byte

const (
	OpLabel     Opcode = 0x00 // Define label: OpLabel <name:u16>
	OpLit       Opcode = 0x01 // Push literal: OpLit <value:u16>
	OpPrintf    Opcode = 0x02 // Print: OpPrintf <format:u16> <arity:u8>
	OpArray     Opcode = 0x03 // Pop length and init, push array
	OpObject    Opcode = 0x04 // Construct object: OpObject <class:u16>
	OpSlot      Opcode = 0x05 // Read variable slot: OpSlot <name:u16>
	OpSetSlot   Opcode = 0x06 // Write variable slot: OpSetSlot <name:u16>
	OpCallSlot  Opcode = 0x07 // Send: OpCallSlot <name:u16> <arity:u8>
	OpCall      Opcode = 0x08 // Call function: OpCall <name:u16> <arity:u8>
	OpSetLocal  Opcode = 0x09 // OpSetLocal <idx:u16>
	OpGetLocal  Opcode = 0x0A // OpGetLocal <idx:u16>
	OpSetGlobal Opcode = 0x0B // OpSetGlobal <name:u16>
	OpGetGlobal Opcode = 0x0C // OpGetGlobal <name:u16>
	OpBranch    Opcode = 0x0D // Pop, jump unless null: OpBranch <label:u16>
	OpGoto      Opcode = 0x0E // Jump: OpGoto <label:u16>
	OpReturn    Opcode = 0x0F // Return from current frame
	OpDrop      Opcode = 0x10 // Pop and discard
)

// Operand describes the shape of an instruction's payload in the file format.
type Operand uint8

const (
	OperandNone      Operand = iota // no payload
	OperandIndex                    // u16
	OperandIndexArgc                // u16 followed by u8
)

// OpcodeInfo provides metadata about each opcode for listing and decoding.
type OpcodeInfo struct {
	Name    string  // Listing mnemonic
	Operand Operand // Payload layout
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpLabel:     {"label", OperandIndex},
	OpLit:       {"lit", OperandIndex},
	OpPrintf:    {"printf", OperandIndexArgc},
	OpArray:     {"array", OperandNone},
	OpObject:    {"object", OperandIndex},
	OpSlot:      {"slot", OperandIndex},
	OpSetSlot:   {"set-slot", OperandIndex},
	OpCallSlot:  {"call-slot", OperandIndexArgc},
	OpCall:      {"call", OperandIndexArgc},
	OpSetLocal:  {"set local", OperandIndex},
	OpGetLocal:  {"get local", OperandIndex},
	OpSetGlobal: {"set global", OperandIndex},
	OpGetGlobal: {"get global", OperandIndex},
	OpBranch:    {"branch", OperandIndex},
	OpGoto:      {"goto", OperandIndex},
	OpReturn:    {"return", OperandNone},
	OpDrop:      {"drop", OperandNone},
}

// GetOpcodeInfo returns metadata for an opcode.
// The second result is false if the opcode is not part of the format.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// String returns the listing mnemonic of an opcode.
func (op Opcode) String() string {
	if info, ok := opcodeInfoTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// HasArity reports whether the instruction carries an arity byte.
func (op Opcode) HasArity() bool {
	return opcodeInfoTable[op].Operand == OperandIndexArgc
}

// ReferencesName reports whether the index operand of op refers to a
// String constant holding a symbol name (label, slot, function, global).
func (op Opcode) ReferencesName() bool {
	switch op {
	case OpLabel, OpSlot, OpSetSlot, OpCallSlot, OpCall,
		OpSetGlobal, OpGetGlobal, OpBranch, OpGoto:
		return true
	}
	return false
}

// ValueTag identifies a constant-pool entry kind in the file format.
type ValueTag byte

const (
	TagInt    ValueTag = 0x00
	TagNull   ValueTag = 0x01
	TagString ValueTag = 0x02
	TagMethod ValueTag = 0x03
	TagSlot   ValueTag = 0x04
	TagClass  ValueTag = 0x05
)

// String returns a readable name for the tag.
func (t ValueTag) String() string {
	switch t {
	case TagInt:
		return "Int"
	case TagNull:
		return "Null"
	case TagString:
		return "String"
	case TagMethod:
		return "Method"
	case TagSlot:
		return "Slot"
	case TagClass:
		return "Class"
	default:
		return fmt.Sprintf("ValueTag(%d)", byte(t))
	}
}
