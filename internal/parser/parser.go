// Package parser implements Dust's Pratt-style expression parser over a
// token stream, producing a flat ast.Tree plus a list of recoverable
// parse errors, per spec.md §4.2.
package parser

import (
	"fmt"

	"dust/internal/ast"
	"dust/internal/dusterr"
	"dust/internal/lexer"
	"dust/internal/token"
)

// Error is one recoverable parse error: a message plus the span it
// occurred at.
type Error struct {
	Err  error
	Span token.Span
}

func (e Error) Error() string         { return fmt.Sprintf("%s: %s", e.Span, e.Err) }
func (e Error) SpanValue() token.Span { return e.Span }

// Parser holds parser state. It never panics on malformed input: it
// records an Error and resynchronizes at the next statement terminator
// or matching brace, per spec.md §4.2.
type Parser struct {
	file   token.FileId
	toks   []token.Token
	pos    int
	tree   *ast.Tree
	errors []error
}

// Parse lexes src fully (an internal lex error is reported as one parse
// Error so the caller only has one error list to read) then parses it
// into a syntax tree.
func Parse(file token.FileId, src []byte) (*ast.Tree, []error) {
	toks, lexErr := lexer.Tokenize(file, src)
	p := &Parser{file: file, toks: toks, tree: ast.New()}
	if lexErr != nil {
		p.errors = append(p.errors, lexErr)
		// Still parse whatever tokens were produced before the error so
		// callers see as much of the tree as possible.
	}
	if len(p.toks) == 0 || p.toks[len(p.toks)-1].Kind != token.Eof {
		p.toks = append(p.toks, token.Token{Kind: token.Eof})
	}
	p.tree.Root = p.parseProgram()
	return p.tree, p.errors
}

func (p *Parser) cur() token.Token     { return p.toks[p.pos] }
func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(k token.Kind) token.Token {
	if t, ok := p.check(k); ok {
		return t
	}
	p.recordError(dusterr.ErrUnexpectedToken, fmt.Sprintf("expected %s, found %s", k, p.cur().Kind))
	return p.cur()
}

func (p *Parser) recordError(sentinel error, detail string) {
	p.errors = append(p.errors, Error{Err: fmt.Errorf("%w: %s", sentinel, detail), Span: p.cur().Span})
}

// sync skips tokens until a stabilizing point: a `;`, a closing brace at
// depth 0, or Eof. This is the parser's only recovery mechanism, per
// spec.md §4.2.
func (p *Parser) sync() {
	depth := 0
	for {
		switch p.cur().Kind {
		case token.Eof:
			return
		case token.LBrace:
			depth++
			p.advance()
			continue
		case token.RBrace:
			if depth == 0 {
				return
			}
			depth--
			p.advance()
			continue
		case token.Semi:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) add(n ast.Node) ast.SyntaxId { return p.tree.Add(n) }

// ---- program / items / statements ----

func (p *Parser) parseProgram() ast.SyntaxId {
	start := p.cur().Span
	var children []ast.SyntaxId
	for !p.at(token.Eof) {
		before := p.pos
		id := p.parseItemOrStatement()
		children = append(children, id)
		if p.pos == before {
			// Safety valve: guarantee forward progress even on inputs the
			// recovery logic doesn't directly handle (spec.md §8 "no
			// lexer/parser invocation enters an infinite loop").
			p.advance()
		}
	}
	end := start
	if len(p.toks) > 0 {
		end = p.toks[len(p.toks)-1].Span
	}
	return p.add(ast.Node{Kind: ast.KindProgram, Span: token.Join(start, end), Children: children})
}

func (p *Parser) parseItemOrStatement() ast.SyntaxId {
	switch p.cur().Kind {
	case token.KwFn:
		return p.parseFnItem()
	case token.KwType:
		return p.parseTypeItem()
	case token.KwMod:
		return p.parseModItem()
	case token.KwUse:
		return p.parseUseItem()
	case token.KwLet:
		return p.parseLetStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseFnItem() ast.SyntaxId {
	start := p.expect(token.KwFn).Span
	name := ""
	if t, ok := p.check(token.Ident); ok {
		name = t.Text
	}
	params := p.parseParamList()
	retType := ""
	if _, ok := p.check(token.Arrow); ok {
		retType = p.parseTypeName()
	}
	body := p.parseBlock()
	n := ast.Node{Kind: ast.KindFnItem, Text: name, TypeName: retType, Children: params, A: body}
	n.Span = token.Join(start, p.tree.Get(body).Span)
	return p.add(n)
}

// parseParamList parses `(name: Type, ...)`.
func (p *Parser) parseParamList() []ast.SyntaxId {
	p.expect(token.LParen)
	var params []ast.SyntaxId
	for !p.at(token.RParen) && !p.at(token.Eof) {
		start := p.cur().Span
		name := ""
		if t, ok := p.check(token.Ident); ok {
			name = t.Text
		} else {
			p.recordError(dusterr.ErrMalformedGrammar, "expected parameter name")
			p.sync()
			break
		}
		typeName := ""
		if _, ok := p.check(token.Colon); ok {
			typeName = p.parseTypeName()
		}
		params = append(params, p.add(ast.Node{Kind: ast.KindParam, Text: name, TypeName: typeName, Span: start}))
		if _, ok := p.check(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen)
	return params
}

func (p *Parser) parseTypeName() string {
	if p.at(token.LBracket) {
		p.advance()
		inner := p.parseTypeName()
		p.expect(token.RBracket)
		return "[" + inner + "]"
	}
	if t, ok := p.check(token.Ident); ok {
		return t.Text
	}
	p.recordError(dusterr.ErrMalformedGrammar, "expected type name")
	return "none"
}

func (p *Parser) parseTypeItem() ast.SyntaxId {
	start := p.expect(token.KwType).Span
	name := ""
	if t, ok := p.check(token.Ident); ok {
		name = t.Text
	}
	p.expect(token.Eq)
	typeName := p.parseTypeName()
	p.expect(token.Semi)
	return p.add(ast.Node{Kind: ast.KindTypeItem, Text: name, TypeName: typeName, Span: start})
}

func (p *Parser) parseModItem() ast.SyntaxId {
	start := p.expect(token.KwMod).Span
	name := ""
	if t, ok := p.check(token.Ident); ok {
		name = t.Text
	}
	p.expect(token.LBrace)
	var children []ast.SyntaxId
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		children = append(children, p.parseItemOrStatement())
	}
	end := p.expect(token.RBrace).Span
	return p.add(ast.Node{Kind: ast.KindModItem, Text: name, Span: token.Join(start, end), Children: children})
}

func (p *Parser) parseUseItem() ast.SyntaxId {
	start := p.expect(token.KwUse).Span
	var path []string
	for {
		t, ok := p.check(token.Ident)
		if !ok {
			break
		}
		path = append(path, t.Text)
		if _, ok := p.check(token.ColonColon); !ok {
			break
		}
	}
	end := p.expect(token.Semi).Span
	return p.add(ast.Node{Kind: ast.KindUseItem, Text: joinPath(path), Span: token.Join(start, end)})
}

func joinPath(path []string) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += "::"
		}
		s += p
	}
	return s
}

func (p *Parser) parseLetStmt() ast.SyntaxId {
	start := p.expect(token.KwLet).Span
	isMut := false
	if _, ok := p.check(token.KwMut); ok {
		isMut = true
	}
	name := ""
	if t, ok := p.check(token.Ident); ok {
		name = t.Text
	} else {
		p.recordError(dusterr.ErrMalformedGrammar, "expected binding name")
	}
	typeName := ""
	if _, ok := p.check(token.Colon); ok {
		typeName = p.parseTypeName()
	}
	p.expect(token.Eq)
	value := p.parseExpr()
	end := p.expect(token.Semi).Span
	n := ast.Node{Kind: ast.KindLetStmt, Text: name, TypeName: typeName, IsMut: isMut, A: value, Span: token.Join(start, end)}
	return p.add(n)
}

func (p *Parser) parseExprStmt() ast.SyntaxId {
	start := p.cur().Span
	e := p.parseExprOrAssign()
	end := start
	if _, ok := p.check(token.Semi); ok {
		end = p.toks[p.pos-1].Span
	} else {
		end = p.tree.Get(e).Span
	}
	return p.add(ast.Node{Kind: ast.KindExprStmt, A: e, Span: token.Join(start, end)})
}

// parseExprOrAssign handles `x = e` and `x op= e` at statement level,
// falling back to a plain expression otherwise.
func (p *Parser) parseExprOrAssign() ast.SyntaxId {
	e := p.parseExpr()
	switch p.cur().Kind {
	case token.Eq:
		p.advance()
		rhs := p.parseExpr()
		return p.add(ast.Node{Kind: ast.KindAssign, A: e, B: rhs, Span: token.Join(p.tree.Get(e).Span, p.tree.Get(rhs).Span)})
	case token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq, token.PercentEq:
		op := compoundOp(p.cur().Kind)
		p.advance()
		rhs := p.parseExpr()
		n := ast.Node{Kind: ast.KindCompoundAssign, A: e, B: rhs, BinOp: op, Span: token.Join(p.tree.Get(e).Span, p.tree.Get(rhs).Span)}
		return p.add(n)
	}
	return e
}

func compoundOp(k token.Kind) ast.BinaryOp {
	switch k {
	case token.PlusEq:
		return ast.OpAdd
	case token.MinusEq:
		return ast.OpSub
	case token.StarEq:
		return ast.OpMul
	case token.SlashEq:
		return ast.OpDiv
	case token.PercentEq:
		return ast.OpRem
	}
	return ast.OpAdd
}

// ---- expressions ----

// precedence table for the Pratt/precedence-climbing binary parser.
func binPrec(k token.Kind) (int, ast.BinaryOp, bool) {
	switch k {
	case token.OrOr:
		return 1, ast.OpOr, true
	case token.AndAnd:
		return 2, ast.OpAnd, true
	case token.EqEq:
		return 3, ast.OpEq, true
	case token.NotEq:
		return 3, ast.OpNotEq, true
	case token.Lt:
		return 4, ast.OpLt, true
	case token.LtEq:
		return 4, ast.OpLtEq, true
	case token.Gt:
		return 4, ast.OpGt, true
	case token.GtEq:
		return 4, ast.OpGtEq, true
	case token.Plus:
		return 5, ast.OpAdd, true
	case token.Minus:
		return 5, ast.OpSub, true
	case token.Star:
		return 6, ast.OpMul, true
	case token.Slash:
		return 6, ast.OpDiv, true
	case token.Percent:
		return 6, ast.OpRem, true
	}
	return 0, 0, false
}

func (p *Parser) parseExpr() ast.SyntaxId { return p.parseBinary(1) }

func (p *Parser) parseBinary(minPrec int) ast.SyntaxId {
	lhs := p.parseAsCast()
	for {
		prec, op, ok := binPrec(p.cur().Kind)
		if !ok || prec < minPrec {
			return lhs
		}
		p.advance()
		// Left-associative: next minimum precedence is prec+1.
		rhs := p.parseBinary(prec + 1)
		lhs = p.add(ast.Node{Kind: ast.KindBinary, BinOp: op, A: lhs, B: rhs, Span: token.Join(p.tree.Get(lhs).Span, p.tree.Get(rhs).Span)})
	}
}

func (p *Parser) parseUnary() ast.SyntaxId {
	switch p.cur().Kind {
	case token.Minus:
		start := p.advance().Span
		operand := p.parseUnary()
		return p.add(ast.Node{Kind: ast.KindUnary, UnOp: ast.OpNeg, A: operand, Span: token.Join(start, p.tree.Get(operand).Span)})
	case token.Bang:
		start := p.advance().Span
		operand := p.parseUnary()
		return p.add(ast.Node{Kind: ast.KindUnary, UnOp: ast.OpNot, A: operand, Span: token.Join(start, p.tree.Get(operand).Span)})
	}
	return p.parsePostfix()
}

func (p *Parser) parseAsCast() ast.SyntaxId {
	e := p.parseUnary()
	for p.at(token.KwAs) {
		p.advance()
		typeName := p.parseTypeName()
		e = p.add(ast.Node{Kind: ast.KindAsCast, A: e, TypeName: typeName, Span: p.tree.Get(e).Span})
	}
	return e
}

func (p *Parser) parsePostfix() ast.SyntaxId {
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case token.LParen:
			p.advance()
			var args []ast.SyntaxId
			for !p.at(token.RParen) && !p.at(token.Eof) {
				args = append(args, p.parseExpr())
				if _, ok := p.check(token.Comma); !ok {
					break
				}
			}
			end := p.expect(token.RParen).Span
			e = p.add(ast.Node{Kind: ast.KindCall, A: e, Children: args, Span: token.Join(p.tree.Get(e).Span, end)})
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			end := p.expect(token.RBracket).Span
			e = p.add(ast.Node{Kind: ast.KindIndex, A: e, B: idx, Span: token.Join(p.tree.Get(e).Span, end)})
		case token.Dot:
			p.advance()
			name := ""
			if t, ok := p.check(token.Ident); ok {
				name = t.Text
			}
			e = p.add(ast.Node{Kind: ast.KindField, A: e, Text: name, Span: p.tree.Get(e).Span})
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.SyntaxId {
	t := p.cur()
	switch t.Kind {
	case token.Int:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindIntLit, Text: t.Text, Span: t.Span})
	case token.Float:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindFloatLit, Text: t.Text, Span: t.Span})
	case token.Byte:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindByteLit, Text: t.Text, Span: t.Span})
	case token.Char:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindCharLit, Text: t.Text, Span: t.Span})
	case token.String:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindStringLit, Text: t.Text, Span: t.Span})
	case token.KwTrue:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindBoolLit, Bool: true, Span: t.Span})
	case token.KwFalse:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindBoolLit, Bool: false, Span: t.Span})
	case token.Ident:
		p.advance()
		return p.add(ast.Node{Kind: ast.KindIdent, Text: t.Text, Span: t.Span})
	case token.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RParen)
		return e
	case token.LBracket:
		return p.parseListLit()
	case token.LBrace:
		return p.parseBlock()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwLoop:
		return p.parseLoop()
	case token.KwBreak:
		return p.parseBreak()
	case token.KwReturn:
		return p.parseReturn()
	case token.KwFn:
		return p.parseClosure()
	default:
		p.recordError(dusterr.ErrUnexpectedToken, fmt.Sprintf("unexpected token %s in expression", t.Kind))
		p.sync()
		return p.add(ast.Node{Kind: ast.KindError, Span: t.Span})
	}
}

func (p *Parser) parseListLit() ast.SyntaxId {
	start := p.expect(token.LBracket).Span
	var elems []ast.SyntaxId
	for !p.at(token.RBracket) && !p.at(token.Eof) {
		elems = append(elems, p.parseExpr())
		if _, ok := p.check(token.Comma); !ok {
			break
		}
	}
	end := p.expect(token.RBracket).Span
	return p.add(ast.Node{Kind: ast.KindListLit, Children: elems, Span: token.Join(start, end)})
}

func (p *Parser) parseBlock() ast.SyntaxId {
	start := p.expect(token.LBrace).Span
	var children []ast.SyntaxId
	for !p.at(token.RBrace) && !p.at(token.Eof) {
		before := p.pos
		children = append(children, p.parseItemOrStatement())
		if p.pos == before {
			p.advance()
		}
	}
	end := p.expect(token.RBrace).Span
	return p.add(ast.Node{Kind: ast.KindBlock, Children: children, Span: token.Join(start, end)})
}

func (p *Parser) parseIf() ast.SyntaxId {
	start := p.expect(token.KwIf).Span
	cond := p.parseExpr()
	then := p.parseBlock()
	elseId := ast.InvalidId
	end := p.tree.Get(then).Span
	if _, ok := p.check(token.KwElse); ok {
		if p.at(token.KwIf) {
			elseId = p.parseIf()
		} else {
			elseId = p.parseBlock()
		}
		end = p.tree.Get(elseId).Span
	}
	return p.add(ast.Node{Kind: ast.KindIf, A: cond, B: then, C: elseId, Span: token.Join(start, end)})
}

func (p *Parser) parseWhile() ast.SyntaxId {
	start := p.expect(token.KwWhile).Span
	cond := p.parseExpr()
	body := p.parseBlock()
	return p.add(ast.Node{Kind: ast.KindWhile, A: cond, B: body, Span: token.Join(start, p.tree.Get(body).Span)})
}

func (p *Parser) parseLoop() ast.SyntaxId {
	start := p.expect(token.KwLoop).Span
	body := p.parseBlock()
	return p.add(ast.Node{Kind: ast.KindLoop, A: body, Span: token.Join(start, p.tree.Get(body).Span)})
}

func (p *Parser) parseBreak() ast.SyntaxId {
	start := p.expect(token.KwBreak).Span
	val := ast.InvalidId
	end := start
	if !p.at(token.Semi) && !p.at(token.RBrace) {
		val = p.parseExpr()
		end = p.tree.Get(val).Span
	}
	return p.add(ast.Node{Kind: ast.KindBreak, A: val, Span: token.Join(start, end)})
}

func (p *Parser) parseReturn() ast.SyntaxId {
	start := p.expect(token.KwReturn).Span
	val := ast.InvalidId
	end := start
	if !p.at(token.Semi) && !p.at(token.RBrace) {
		val = p.parseExpr()
		end = p.tree.Get(val).Span
	}
	return p.add(ast.Node{Kind: ast.KindReturn, A: val, Span: token.Join(start, end)})
}

func (p *Parser) parseClosure() ast.SyntaxId {
	start := p.expect(token.KwFn).Span
	params := p.parseParamList()
	retType := ""
	if _, ok := p.check(token.Arrow); ok {
		retType = p.parseTypeName()
	}
	body := p.parseBlock()
	return p.add(ast.Node{Kind: ast.KindClosure, Children: params, A: body, TypeName: retType, Span: token.Join(start, p.tree.Get(body).Span)})
}
