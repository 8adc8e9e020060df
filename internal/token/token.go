// Package token defines the lexical tokens of Dust source and the
// file/span bookkeeping shared by every later pipeline stage.
package token

import "fmt"

// FileId identifies one source file among the ones the driver handed to
// the compiler. FileId(0) is always the entry file.
type FileId uint16

// Span is a half-open byte range [Start, End) inside file File.
type Span struct {
	File  FileId
	Start uint32
	End   uint32
}

// Join returns the smallest span covering both a and b. Both must share a
// file; callers that span multiple files are a compiler bug.
func Join(a, b Span) Span {
	if a.File != b.File {
		panic("token: Join across different files")
	}
	s := a
	if b.Start < s.Start {
		s.Start = b.Start
	}
	if b.End > s.End {
		s.End = b.End
	}
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Kind enumerates the categories of token the lexer emits.
type Kind uint8

const (
	Eof Kind = iota
	Error

	Ident
	Int
	Float
	Byte
	Char
	String

	// Keywords
	KwLet
	KwMut
	KwFn
	KwIf
	KwElse
	KwWhile
	KwLoop
	KwBreak
	KwReturn
	KwType
	KwMod
	KwUse
	KwAs
	KwTrue
	KwFalse

	// Punctuation / operators
	Plus
	Minus
	Star
	Slash
	Percent
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	AndAnd
	OrOr
	Bang
	Eq
	PlusEq
	MinusEq
	StarEq
	SlashEq
	PercentEq
	Arrow    // ->
	FatArrow // =>
	ColonColon
	Colon
	Semi
	Comma
	Dot
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
)

var names = map[Kind]string{
	Eof: "eof", Error: "error",
	Ident: "identifier", Int: "int", Float: "float", Byte: "byte", Char: "char", String: "string",
	KwLet: "let", KwMut: "mut", KwFn: "fn", KwIf: "if", KwElse: "else", KwWhile: "while",
	KwLoop: "loop", KwBreak: "break", KwReturn: "return", KwType: "type", KwMod: "mod",
	KwUse: "use", KwAs: "as", KwTrue: "true", KwFalse: "false",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	EqEq: "==", NotEq: "!=", Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=",
	AndAnd: "&&", OrOr: "||", Bang: "!", Eq: "=",
	PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=", PercentEq: "%=",
	Arrow: "->", FatArrow: "=>", ColonColon: "::", Colon: ":", Semi: ";", Comma: ",", Dot: ".",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// Keywords maps the fixed keyword table onto their token kind. Looked up
// only after an identifier has already been scanned, per spec.md §4.1.
var Keywords = map[string]Kind{
	"let": KwLet, "mut": KwMut, "fn": KwFn, "if": KwIf, "else": KwElse,
	"while": KwWhile, "loop": KwLoop, "break": KwBreak, "return": KwReturn,
	"type": KwType, "mod": KwMod, "use": KwUse, "as": KwAs,
	"true": KwTrue, "false": KwFalse,
}

// Token is one lexical unit: its kind, its source span, and (for literals
// and identifiers) the exact source text it was scanned from.
type Token struct {
	Kind Kind
	Span Span
	Text string
}

func (t Token) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Span)
	}
	return fmt.Sprintf("%s@%s", t.Kind, t.Span)
}
