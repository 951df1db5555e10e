package bytecode

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ---------------------------------------------------------------------------
// Load errors
// ---------------------------------------------------------------------------

var (
	ErrUnexpectedEOF   = errors.New("unexpected end of bytecode")
	ErrUnknownValueTag = errors.New("unrecognized value tag")
	ErrUnknownOpcode   = errors.New("unrecognized opcode")
	ErrBadIndex        = errors.New("bad constant index")
)

// ---------------------------------------------------------------------------
// Reader: decodes the little-endian program format
// ---------------------------------------------------------------------------

// Reader decodes a compiled program from an in-memory buffer.
//
// Layout (little-endian; short = 2 bytes unsigned, int = 4 bytes signed,
// string = int length followed by raw bytes):
//
//	values:  short count, then count × (tag byte + payload)
//	globals: short count, then count × short value index
//	entry:   short value index
type Reader struct {
	data   []byte
	offset int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Decode reads an entire program from r.
func Decode(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read bytecode")
	}
	return NewReader(data).ReadProgram()
}

// Load reads and decodes the program stored at path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read file %s", path)
	}
	prog, err := NewReader(data).ReadProgram()
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return prog, nil
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.offset
}

// ReadProgram decodes the values, globals and entry sections.
func (r *Reader) ReadProgram() (*Program, error) {
	values, err := r.readValues()
	if err != nil {
		return nil, err
	}
	globals, err := r.readIndexList()
	if err != nil {
		return nil, errors.WithMessage(err, "globals")
	}
	entry, err := r.readShort()
	if err != nil {
		return nil, errors.WithMessage(err, "entry")
	}

	prog := &Program{Values: values, Globals: globals, Entry: entry}
	if err := prog.checkIndices(); err != nil {
		return nil, err
	}
	return prog, nil
}

// ---------------------------------------------------------------------------
// Primitive reads
// ---------------------------------------------------------------------------

func (r *Reader) readByte() (int, error) {
	if r.offset+1 > len(r.data) {
		return 0, errors.Wrapf(ErrUnexpectedEOF, "at offset %d", r.offset)
	}
	b := r.data[r.offset]
	r.offset++
	return int(b), nil
}

func (r *Reader) readShort() (int, error) {
	if r.offset+2 > len(r.data) {
		return 0, errors.Wrapf(ErrUnexpectedEOF, "at offset %d", r.offset)
	}
	v := int(binary.LittleEndian.Uint16(r.data[r.offset:]))
	r.offset += 2
	return v, nil
}

func (r *Reader) readInt() (int32, error) {
	if r.offset+4 > len(r.data) {
		return 0, errors.Wrapf(ErrUnexpectedEOF, "at offset %d", r.offset)
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return int32(v), nil
}

func (r *Reader) readString() (string, error) {
	n, err := r.readInt()
	if err != nil {
		return "", err
	}
	if n < 0 || r.offset+int(n) > len(r.data) {
		return "", errors.Wrapf(ErrUnexpectedEOF, "string of length %d at offset %d", n, r.offset)
	}
	s := string(r.data[r.offset : r.offset+int(n)])
	r.offset += int(n)
	return s, nil
}

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

func (r *Reader) readIndexList() ([]int, error) {
	n, err := r.readShort()
	if err != nil {
		return nil, err
	}
	list := make([]int, n)
	for i := range list {
		if list[i], err = r.readShort(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *Reader) readValues() ([]Value, error) {
	n, err := r.readShort()
	if err != nil {
		return nil, errors.WithMessage(err, "value count")
	}
	values := make([]Value, n)
	for i := range values {
		if values[i], err = r.readValue(); err != nil {
			return nil, errors.WithMessagef(err, "value #%d", i)
		}
	}
	return values, nil
}

func (r *Reader) readValue() (Value, error) {
	start := r.offset
	tag, err := r.readByte()
	if err != nil {
		return nil, err
	}

	switch ValueTag(tag) {
	case TagInt:
		v, err := r.readInt()
		if err != nil {
			return nil, err
		}
		return IntValue{Value: v}, nil

	case TagNull:
		return NullValue{}, nil

	case TagString:
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		return StringValue{Value: s}, nil

	case TagMethod:
		var m MethodValue
		if m.Name, err = r.readShort(); err != nil {
			return nil, err
		}
		if m.NArgs, err = r.readByte(); err != nil {
			return nil, err
		}
		if m.NLocals, err = r.readShort(); err != nil {
			return nil, err
		}
		if m.Code, err = r.readCode(); err != nil {
			return nil, err
		}
		return m, nil

	case TagSlot:
		name, err := r.readShort()
		if err != nil {
			return nil, err
		}
		return SlotValue{Name: name}, nil

	case TagClass:
		members, err := r.readIndexList()
		if err != nil {
			return nil, err
		}
		return ClassValue{Members: members}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownValueTag, "tag %d at offset %d", tag, start)
	}
}

func (r *Reader) readCode() ([]Instruction, error) {
	n, err := r.readInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Wrapf(ErrUnexpectedEOF, "negative instruction count %d", n)
	}
	// Each instruction is at least one byte.
	capHint := int(n)
	if rem := len(r.data) - r.offset; capHint > rem {
		capHint = rem
	}
	code := make([]Instruction, 0, capHint)
	for i := 0; i < int(n); i++ {
		ins, err := r.readInstruction()
		if err != nil {
			return nil, errors.WithMessagef(err, "instruction %d", i)
		}
		code = append(code, ins)
	}
	return code, nil
}

func (r *Reader) readInstruction() (Instruction, error) {
	start := r.offset
	b, err := r.readByte()
	if err != nil {
		return Instruction{}, err
	}
	op := Opcode(b)
	info, ok := GetOpcodeInfo(op)
	if !ok {
		return Instruction{}, errors.Wrapf(ErrUnknownOpcode, "opcode %d at offset %d", b, start)
	}

	ins := Instruction{Op: op}
	switch info.Operand {
	case OperandIndex:
		if ins.Index, err = r.readShort(); err != nil {
			return Instruction{}, err
		}
	case OperandIndexArgc:
		if ins.Index, err = r.readShort(); err != nil {
			return Instruction{}, err
		}
		if ins.Arity, err = r.readByte(); err != nil {
			return Instruction{}, err
		}
	}
	return ins, nil
}

// checkIndices verifies that every constant-pool reference is in range.
// Whether a referenced constant has the right kind is left to the linker.
func (p *Program) checkIndices() error {
	inRange := func(idx int) bool { return idx >= 0 && idx < len(p.Values) }

	for i, v := range p.Values {
		switch v := v.(type) {
		case MethodValue:
			if !inRange(v.Name) {
				return errors.Wrapf(ErrBadIndex, "method #%d name #%d", i, v.Name)
			}
			for j, ins := range v.Code {
				if ins.Op == OpGetLocal || ins.Op == OpSetLocal {
					continue
				}
				if ins.Op.ReferencesName() || ins.Op == OpPrintf || ins.Op == OpLit || ins.Op == OpObject {
					if !inRange(ins.Index) {
						return errors.Wrapf(ErrBadIndex, "method #%d instruction %d (%s) operand #%d", i, j, ins.Op, ins.Index)
					}
				}
			}
		case SlotValue:
			if !inRange(v.Name) {
				return errors.Wrapf(ErrBadIndex, "slot #%d name #%d", i, v.Name)
			}
		case ClassValue:
			for _, m := range v.Members {
				if !inRange(m) {
					return errors.Wrapf(ErrBadIndex, "class #%d member #%d", i, m)
				}
			}
		}
	}
	for _, g := range p.Globals {
		if !inRange(g) {
			return errors.Wrapf(ErrBadIndex, "global #%d", g)
		}
	}
	if !inRange(p.Entry) {
		return errors.Wrapf(ErrBadIndex, "entry #%d", p.Entry)
	}
	return nil
}
