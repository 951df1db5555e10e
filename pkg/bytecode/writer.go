package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Encode writes p to w in the compiled program format read by Decode.
func Encode(w io.Writer, p *Program) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "failed to write bytecode")
}

// Marshal returns the encoded form of p.
func Marshal(p *Program) ([]byte, error) {
	e := &encoder{}
	if err := e.writeCount(len(p.Values), "values"); err != nil {
		return nil, err
	}
	for i, v := range p.Values {
		if err := e.writeValue(v); err != nil {
			return nil, errors.WithMessagef(err, "value #%d", i)
		}
	}
	if err := e.writeIndexList(p.Globals); err != nil {
		return nil, errors.WithMessage(err, "globals")
	}
	if err := e.writeShort(p.Entry); err != nil {
		return nil, errors.WithMessage(err, "entry")
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) writeByte(v int) error {
	if v < 0 || v > math.MaxUint8 {
		return errors.Errorf("value %d does not fit in a byte", v)
	}
	e.buf.WriteByte(byte(v))
	return nil
}

func (e *encoder) writeShort(v int) error {
	if v < 0 || v > math.MaxUint16 {
		return errors.Errorf("value %d does not fit in a short", v)
	}
	e.buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(v)))
	return nil
}

func (e *encoder) writeInt(v int32) {
	e.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(v)))
}

func (e *encoder) writeCount(n int, what string) error {
	return errors.WithMessage(e.writeShort(n), what)
}

func (e *encoder) writeIndexList(list []int) error {
	if err := e.writeShort(len(list)); err != nil {
		return err
	}
	for _, idx := range list {
		if err := e.writeShort(idx); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeValue(v Value) error {
	if err := e.writeByte(int(v.Tag())); err != nil {
		return err
	}
	switch v := v.(type) {
	case IntValue:
		e.writeInt(v.Value)
	case NullValue:
	case StringValue:
		if len(v.Value) > math.MaxInt32 {
			return errors.New("string too long")
		}
		e.writeInt(int32(len(v.Value)))
		e.buf.WriteString(v.Value)
	case MethodValue:
		if err := e.writeShort(v.Name); err != nil {
			return err
		}
		if err := e.writeByte(v.NArgs); err != nil {
			return err
		}
		if err := e.writeShort(v.NLocals); err != nil {
			return err
		}
		e.writeInt(int32(len(v.Code)))
		for i, ins := range v.Code {
			if err := e.writeInstruction(ins); err != nil {
				return errors.WithMessagef(err, "instruction %d", i)
			}
		}
	case SlotValue:
		return e.writeShort(v.Name)
	case ClassValue:
		return e.writeIndexList(v.Members)
	default:
		return errors.Wrapf(ErrUnknownValueTag, "%T", v)
	}
	return nil
}

func (e *encoder) writeInstruction(ins Instruction) error {
	info, ok := GetOpcodeInfo(ins.Op)
	if !ok {
		return errors.Wrapf(ErrUnknownOpcode, "opcode %d", byte(ins.Op))
	}
	e.buf.WriteByte(byte(ins.Op))
	switch info.Operand {
	case OperandIndex:
		return e.writeShort(ins.Index)
	case OperandIndexArgc:
		if err := e.writeShort(ins.Index); err != nil {
			return err
		}
		return e.writeByte(ins.Arity)
	}
	return nil
}
