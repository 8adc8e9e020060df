// Package vm implements the register-based bytecode interpreter: frame
// setup, the dispatch loop, and per-opcode handlers, per spec.md §4.5.
package vm

import (
	"math"

	"dust/internal/bytecode"
	"dust/internal/object"
)

// Value is one register slot: inert bits for scalars, or an object-pool
// Ref for heap-typed values, tagged with the operand type that produced
// it (spec.md §3: "a parallel 'tag' table indicates whether the slot is
// empty, a scalar, or a heap-object pointer" — folded into the register
// itself here rather than kept in a second parallel array, since Go's
// struct-of-slices vs slice-of-structs tradeoff favors locality over a
// literal second table).
type Value struct {
	Bits uint64
	Obj  object.Ref
	Tag  bytecode.OperandType
}

func boolValue(b bool) Value {
	if b {
		return Value{Bits: 1, Tag: bytecode.TypeBoolean}
	}
	return Value{Tag: bytecode.TypeBoolean}
}

func (v Value) asBool() bool     { return v.Bits != 0 }
func (v Value) asByte() byte     { return byte(v.Bits) }
func (v Value) asChar() rune     { return rune(int32(v.Bits)) }
func (v Value) asInt() int64     { return int64(v.Bits) }
func (v Value) asFloat() float64 { return math.Float64frombits(v.Bits) }

func intValue(i int64) Value     { return Value{Bits: uint64(i), Tag: bytecode.TypeInteger} }
func floatValue(f float64) Value { return Value{Bits: math.Float64bits(f), Tag: bytecode.TypeFloat} }
func byteValue(b byte) Value     { return Value{Bits: uint64(b), Tag: bytecode.TypeByte} }
func charValue(r rune) Value     { return Value{Bits: uint64(uint32(r)), Tag: bytecode.TypeCharacter} }

func objValue(tag bytecode.OperandType, ref object.Ref) Value {
	return Value{Obj: ref, Tag: tag}
}

// constantValue converts a Prototype constant-pool entry to a register
// Value, allocating a pool object for string constants (spec.md §3:
// constants are read-only program data, but strings still need an
// object-pool identity to be droppable like any other string).
func (t *Thread) constantValue(c bytecode.Constant) Value {
	switch c.Type {
	case bytecode.TypeInteger:
		return intValue(c.Int)
	case bytecode.TypeFloat:
		return floatValue(c.Flt)
	case bytecode.TypeByte:
		return byteValue(c.Byt)
	case bytecode.TypeCharacter:
		return charValue(c.Chr)
	case bytecode.TypeBoolean:
		return boolValue(c.Bool)
	case bytecode.TypeString:
		ref := t.pool.Alloc(t.id, object.Value{Kind: object.KindString, Str: c.Str})
		return objValue(bytecode.TypeString, ref)
	default:
		return Value{}
	}
}

// encodedValue interprets an ENCODED address's index as an immediate
// scalar of the instruction's operand type, per spec.md §3 "the index
// itself IS the value".
func encodedValue(ot bytecode.OperandType, idx int32) Value {
	switch ot {
	case bytecode.TypeBoolean:
		return boolValue(idx != 0)
	case bytecode.TypeByte:
		return byteValue(byte(idx))
	case bytecode.TypeCharacter:
		return charValue(rune(idx))
	case bytecode.TypeFloat:
		return floatValue(float64(idx))
	default:
		return intValue(int64(idx))
	}
}
