package vm

import (
	"fmt"
	"strconv"

	"dust/internal/bytecode"
	"dust/internal/object"
)

// This file is the native-ABI-facing surface stdlib's functions are
// written against: exported constructors/accessors over the otherwise
// package-private Value representation, and the entry point _spawn uses
// to run a Prototype on a fresh thread-pool worker.

func IntValue(i int64) Value                                  { return intValue(i) }
func FloatValue(f float64) Value                              { return floatValue(f) }
func BoolValue(b bool) Value                                  { return boolValue(b) }
func ByteValue(b byte) Value                                  { return byteValue(b) }
func CharValue(r rune) Value                                  { return charValue(r) }
func ObjValue(tag bytecode.OperandType, ref object.Ref) Value { return objValue(tag, ref) }

func AsInt(v Value) int64     { return v.asInt() }
func AsFloat(v Value) float64 { return v.asFloat() }
func AsBool(v Value) bool     { return v.asBool() }
func AsByte(v Value) byte     { return v.asByte() }
func AsChar(v Value) rune     { return v.asChar() }

// ID is the thread's pool-shard hint, exposed so native functions can
// allocate object-pool values under the calling thread's shard.
func (t *Thread) ID() int { return t.id }

// Format renders a RunResult's Value as Dust source-ish text, the way a
// driver prints a top-level expression's result. Heap-typed values are
// read back out of the Machine's object pool.
func (m *Machine) Format(v Value) string {
	switch v.Tag {
	case bytecode.TypeBoolean:
		return strconv.FormatBool(v.asBool())
	case bytecode.TypeByte:
		return strconv.Itoa(int(v.asByte()))
	case bytecode.TypeCharacter:
		return string(v.asChar())
	case bytecode.TypeFloat:
		return strconv.FormatFloat(v.asFloat(), 'g', -1, 64)
	case bytecode.TypeInteger:
		return strconv.FormatInt(v.asInt(), 10)
	case bytecode.TypeString:
		return m.Pool.Get(v.Obj).Str
	case bytecode.TypeList:
		obj := m.Pool.Get(v.Obj)
		elems := make([]string, len(obj.List))
		for i, el := range obj.List {
			elems[i] = m.Format(Value{Bits: el.Bits, Obj: el.Obj, Tag: obj.ElemTag})
		}
		return fmt.Sprintf("%v", elems)
	case bytecode.TypeFunction:
		return fmt.Sprintf("<fn %d>", v.asInt())
	default:
		return "none"
	}
}

// RunPrototype executes Prototypes[idx] to completion on a fresh Thread,
// sharing this Machine's cell table, object pool, and native registry —
// the body of work a _spawn task runs on a thread-pool worker.
func (m *Machine) RunPrototype(idx int) {
	th := &Thread{id: idx + 1000, pool: m.Pool, m: m}
	proto := m.Program.Prototypes[idx]
	th.frames = append(th.frames, newCallFrame(proto, idx))
	th.dispatch()
}
