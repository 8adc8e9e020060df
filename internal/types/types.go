// Package types implements Dust's nominal static type system: the
// primitive kinds of spec.md §3 plus function types used by the resolver
// and compiler.
package types

import "strings"

// Kind is the operand-type dispatch tag of spec.md §3 ("NONE, BOOLEAN,
// BYTE, CHARACTER, FLOAT, INTEGER, STRING, LIST, FUNCTION").
type Kind uint8

const (
	None Kind = iota
	Bool
	Byte
	Char
	Float
	Int
	Str
	List
	Function
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Bool:
		return "bool"
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Float:
		return "float"
	case Int:
		return "int"
	case Str:
		return "str"
	case List:
		return "list"
	case Function:
		return "fn"
	}
	return "?"
}

// IsObject reports whether values of this kind live in the object pool
// (strings, lists, function references) rather than inline in a register
// per spec.md §3.
func (k Kind) IsObject() bool {
	return k == Str || k == List || k == Function
}

// Type is a nominal Dust type. Lists carry an element type; functions
// carry a signature. Nominal equality only: see Equal.
type Type struct {
	Kind Kind
	Elem *Type         // valid when Kind == List
	Func *FunctionType // valid when Kind == Function
}

// FunctionType is a function's value-parameter types plus return type.
// TypeParams has room for generic type parameter names; nothing in this
// port fills it in, and no call site substitutes or instantiates them.
type FunctionType struct {
	TypeParams []string
	Params     []Type
	Return     Type
}

var (
	NoneT  = Type{Kind: None}
	BoolT  = Type{Kind: Bool}
	ByteT  = Type{Kind: Byte}
	CharT  = Type{Kind: Char}
	FloatT = Type{Kind: Float}
	IntT   = Type{Kind: Int}
	StrT   = Type{Kind: Str}
)

func ListOf(elem Type) Type {
	e := elem
	return Type{Kind: List, Elem: &e}
}

func FuncOf(params []Type, ret Type) Type {
	return Type{Kind: Function, Func: &FunctionType{Params: params, Return: ret}}
}

// Equal implements nominal type equality (spec.md §4.3: "Structural
// subtype is not supported; nominal equality").
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case List:
		return Equal(*a.Elem, *b.Elem)
	case Function:
		if len(a.Func.Params) != len(b.Func.Params) {
			return false
		}
		for i := range a.Func.Params {
			if !Equal(a.Func.Params[i], b.Func.Params[i]) {
				return false
			}
		}
		return Equal(a.Func.Return, b.Func.Return)
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case List:
		return "[" + t.Elem.String() + "]"
	case Function:
		var b strings.Builder
		b.WriteString("fn(")
		for i, p := range t.Func.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteString(") -> ")
		b.WriteString(t.Func.Return.String())
		return b.String()
	default:
		return t.Kind.String()
	}
}

// Join computes the result type of `if`/`else` branches (spec.md §4.3):
// identical branch types join to that type; otherwise there is no join
// and the caller must report a TypeMismatch.
func Join(a, b Type) (Type, bool) {
	if Equal(a, b) {
		return a, true
	}
	return Type{}, false
}
