// Package lexer turns UTF-8 Dust source into a stream of tokens.
//
// The escape-sequence table and the "scan to the matching quote, then
// validate" shape are generalized from the teacher's insertEscapeSeqReplacements
// and quote-scanning logic in vm/compile.go, lifted from a line-oriented
// assembly preprocessor into a byte-at-a-time streaming tokenizer.
package lexer

import (
	"unicode"
	"unicode/utf8"

	"dust/internal/dusterr"
	"dust/internal/token"
)

// escapeSeqReplacements mirrors the teacher's map in vm/compile.go: the
// fixed set of two-character escapes this language recognizes inside
// character and string literals.
var escapeSeqReplacements = map[byte]byte{
	'a': '\a', 'b': '\b', 't': '\t', 'n': '\n', 'r': '\r',
	'f': '\f', 'v': '\v', '\\': '\\', '\'': '\'', '"': '"', '0': 0,
}

// Lexer is a streaming tokenizer over one file's source bytes.
type Lexer struct {
	file   token.FileId
	src    []byte
	offset int
}

func New(file token.FileId, src []byte) *Lexer {
	return &Lexer{file: file, src: src}
}

func (l *Lexer) span(start int) token.Span {
	return token.Span{File: l.file, Start: uint32(start), End: uint32(l.offset)}
}

func (l *Lexer) errAt(start int, err error) (token.Token, error) {
	return token.Token{Kind: token.Error, Span: l.span(start)}, dusterr.WithSpan(err, l.span(start))
}

func (l *Lexer) peekByte() (byte, bool) {
	if l.offset >= len(l.src) {
		return 0, false
	}
	return l.src[l.offset], true
}

func (l *Lexer) peekByteAt(n int) (byte, bool) {
	if l.offset+n >= len(l.src) {
		return 0, false
	}
	return l.src[l.offset+n], true
}

// decodeRune reads one UTF-8 rune at the current offset, reporting the
// byte offset of the first invalid sequence per spec.md §4.1.
func (l *Lexer) decodeRune() (rune, int, error) {
	if l.offset >= len(l.src) {
		return 0, 0, nil
	}
	r, size := utf8.DecodeRune(l.src[l.offset:])
	if r == utf8.RuneError && size <= 1 {
		return 0, 0, dusterr.WithSpan(dusterr.ErrInvalidUTF8, token.Span{File: l.file, Start: uint32(l.offset), End: uint32(l.offset + 1)})
	}
	return r, size, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// skipWhitespaceAndComments consumes whitespace, `//` line comments, and
// nested `/* */` block comments per spec.md §4.1.
func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		r, size, err := l.decodeRune()
		if err != nil {
			return err
		}
		if size == 0 {
			return nil
		}
		if unicode.IsSpace(r) {
			l.offset += size
			continue
		}
		if r == '/' {
			if b, ok := l.peekByteAt(1); ok && b == '/' {
				l.offset += 2
				for {
					r2, size2, err := l.decodeRune()
					if err != nil {
						return err
					}
					if size2 == 0 || r2 == '\n' {
						break
					}
					l.offset += size2
				}
				continue
			}
			if b, ok := l.peekByteAt(1); ok && b == '*' {
				start := l.offset
				l.offset += 2
				depth := 1
				for depth > 0 {
					if l.offset >= len(l.src) {
						return l.errAtOffset(start, dusterr.ErrUnterminatedBlockComment)
					}
					if l.offset+1 < len(l.src) && l.src[l.offset] == '/' && l.src[l.offset+1] == '*' {
						depth++
						l.offset += 2
						continue
					}
					if l.offset+1 < len(l.src) && l.src[l.offset] == '*' && l.src[l.offset+1] == '/' {
						depth--
						l.offset += 2
						continue
					}
					l.offset++
				}
				continue
			}
		}
		return nil
	}
}

func (l *Lexer) errAtOffset(start int, err error) error {
	return dusterr.WithSpan(err, token.Span{File: l.file, Start: uint32(start), End: uint32(l.offset)})
}

// Next returns the next token, or a LexError with its span. Per spec.md
// §8 ("lexer totality"), repeated calls after Eof keep returning Eof
// rather than looping or panicking.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{Kind: token.Error}, err
	}

	start := l.offset
	r, size, err := l.decodeRune()
	if err != nil {
		return token.Token{Kind: token.Error}, err
	}
	if size == 0 {
		return token.Token{Kind: token.Eof, Span: l.span(start)}, nil
	}

	switch {
	case isIdentStart(r):
		return l.scanIdent(start)
	case unicode.IsDigit(r):
		return l.scanNumber(start)
	case r == '"':
		l.offset += size // opening quote
		return l.scanString(start)
	case r == '\'':
		l.offset += size // opening quote
		return l.scanChar(start)
	}

	l.offset += size
	return l.scanOperator(start, r)
}

func (l *Lexer) scanIdent(start int) (token.Token, error) {
	for {
		r, size, err := l.decodeRune()
		if err != nil {
			return token.Token{Kind: token.Error}, err
		}
		if size == 0 || !isIdentCont(r) {
			break
		}
		l.offset += size
	}
	text := string(l.src[start:l.offset])
	kind := token.Ident
	if kw, ok := token.Keywords[text]; ok {
		kind = kw
	}
	return token.Token{Kind: kind, Span: l.span(start), Text: text}, nil
}

// scanNumber handles integers (with underscores), floats (`.` and/or
// exponent), and `0x..` byte literals, per spec.md §4.1.
func (l *Lexer) scanNumber(start int) (token.Token, error) {
	if b, ok := l.peekByte(); ok && b == '0' {
		if b2, ok2 := l.peekByteAt(1); ok2 && (b2 == 'x' || b2 == 'X') {
			l.offset += 2
			for {
				b, ok := l.peekByte()
				if !ok || !isHexDigit(b) {
					break
				}
				l.offset++
			}
			return token.Token{Kind: token.Byte, Span: l.span(start), Text: string(l.src[start:l.offset])}, nil
		}
	}

	isFloat := false
	sawExp := false
	for {
		b, ok := l.peekByte()
		if !ok {
			break
		}
		if b >= '0' && b <= '9' || b == '_' {
			l.offset++
			continue
		}
		if b == '.' {
			if nb, ok2 := l.peekByteAt(1); ok2 && nb >= '0' && nb <= '9' {
				isFloat = true
				l.offset++
				continue
			}
		}
		if (b == 'e' || b == 'E') && !sawExp {
			isFloat = true
			sawExp = true
			l.offset++
			if nb, ok2 := l.peekByte(); ok2 && (nb == '+' || nb == '-') {
				l.offset++
			}
			continue
		}
		break
	}
	kind := token.Int
	if isFloat {
		kind = token.Float
	}
	return token.Token{Kind: kind, Span: l.span(start), Text: string(l.src[start:l.offset])}, nil
}

func isHexDigit(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

// readEscaped consumes the body of a quoted literal up to (not including)
// the terminator byte, decoding escapes via escapeSeqReplacements.
func (l *Lexer) readEscaped(start int, terminator byte) (string, error) {
	var out []byte
	for {
		b, ok := l.peekByte()
		if !ok {
			if terminator == '"' {
				return "", l.errAtOffset(start, dusterr.ErrUnterminatedString)
			}
			return "", l.errAtOffset(start, dusterr.ErrUnterminatedChar)
		}
		if b == terminator {
			l.offset++
			return string(out), nil
		}
		if b == '\\' {
			escStart := l.offset
			l.offset++
			eb, ok := l.peekByte()
			if !ok {
				return "", l.errAtOffset(start, dusterr.ErrUnterminatedString)
			}
			replaced, known := escapeSeqReplacements[eb]
			if !known {
				return "", l.errAtOffset(escStart, dusterr.ErrIllegalEscape)
			}
			out = append(out, replaced)
			l.offset++
			continue
		}
		out = append(out, b)
		l.offset++
	}
}

func (l *Lexer) scanString(start int) (token.Token, error) {
	text, err := l.readEscaped(start, '"')
	if err != nil {
		return token.Token{Kind: token.Error}, err
	}
	return token.Token{Kind: token.String, Span: l.span(start), Text: text}, nil
}

func (l *Lexer) scanChar(start int) (token.Token, error) {
	text, err := l.readEscaped(start, '\'')
	if err != nil {
		return token.Token{Kind: token.Error}, err
	}
	if utf8.RuneCountInString(text) != 1 {
		return token.Token{Kind: token.Error}, l.errAtOffset(start, dusterr.ErrUnterminatedChar)
	}
	return token.Token{Kind: token.Char, Span: l.span(start), Text: text}, nil
}

func (l *Lexer) scanOperator(start int, r rune) (token.Token, error) {
	two := func(next byte, kind2 token.Kind, kind1 token.Kind) (token.Token, error) {
		if b, ok := l.peekByte(); ok && b == next {
			l.offset++
			return token.Token{Kind: kind2, Span: l.span(start)}, nil
		}
		return token.Token{Kind: kind1, Span: l.span(start)}, nil
	}

	switch r {
	case '+':
		return two('=', token.PlusEq, token.Plus)
	case '-':
		if b, ok := l.peekByte(); ok && b == '>' {
			l.offset++
			return token.Token{Kind: token.Arrow, Span: l.span(start)}, nil
		}
		return two('=', token.MinusEq, token.Minus)
	case '*':
		return two('=', token.StarEq, token.Star)
	case '/':
		return two('=', token.SlashEq, token.Slash)
	case '%':
		return two('=', token.PercentEq, token.Percent)
	case '=':
		if b, ok := l.peekByte(); ok && b == '>' {
			l.offset++
			return token.Token{Kind: token.FatArrow, Span: l.span(start)}, nil
		}
		return two('=', token.EqEq, token.Eq)
	case '!':
		return two('=', token.NotEq, token.Bang)
	case '<':
		return two('=', token.LtEq, token.Lt)
	case '>':
		return two('=', token.GtEq, token.Gt)
	case '&':
		if b, ok := l.peekByte(); ok && b == '&' {
			l.offset++
			return token.Token{Kind: token.AndAnd, Span: l.span(start)}, nil
		}
		return token.Token{Kind: token.Error}, l.errAtOffset(start, dusterr.ErrUnrecognizedPunct)
	case '|':
		if b, ok := l.peekByte(); ok && b == '|' {
			l.offset++
			return token.Token{Kind: token.OrOr, Span: l.span(start)}, nil
		}
		return token.Token{Kind: token.Error}, l.errAtOffset(start, dusterr.ErrUnrecognizedPunct)
	case ':':
		return two(':', token.ColonColon, token.Colon)
	case ';':
		return token.Token{Kind: token.Semi, Span: l.span(start)}, nil
	case ',':
		return token.Token{Kind: token.Comma, Span: l.span(start)}, nil
	case '.':
		return token.Token{Kind: token.Dot, Span: l.span(start)}, nil
	case '(':
		return token.Token{Kind: token.LParen, Span: l.span(start)}, nil
	case ')':
		return token.Token{Kind: token.RParen, Span: l.span(start)}, nil
	case '[':
		return token.Token{Kind: token.LBracket, Span: l.span(start)}, nil
	case ']':
		return token.Token{Kind: token.RBracket, Span: l.span(start)}, nil
	case '{':
		return token.Token{Kind: token.LBrace, Span: l.span(start)}, nil
	case '}':
		return token.Token{Kind: token.RBrace, Span: l.span(start)}, nil
	}
	return token.Token{Kind: token.Error}, l.errAtOffset(start, dusterr.ErrUnrecognizedPunct)
}

// Tokenize drains the lexer into a slice, stopping at the first error or
// after Eof. Convenience wrapper for the parser and for tests.
func Tokenize(file token.FileId, src []byte) ([]token.Token, error) {
	l := New(file, src)
	var toks []token.Token
	for {
		t, err := l.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, t)
		if t.Kind == token.Eof {
			return toks, nil
		}
	}
}
