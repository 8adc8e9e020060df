package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/lexer"
	"dust/internal/token"
)

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	toks, err := lexer.Tokenize(token.FileId(0), []byte(src))
	require.NoError(t, err)
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeKeywordsAndPunctuation(t *testing.T) {
	got := kinds(t, "let mut x: int = 1 + 2;")
	require.Equal(t, []token.Kind{
		token.KwLet, token.KwMut, token.Ident, token.Colon, token.Ident,
		token.Eq, token.Int, token.Plus, token.Int, token.Semi, token.Eof,
	}, got)
}

func TestTokenizeTwoCharOperatorsPreferLongestMatch(t *testing.T) {
	got := kinds(t, "a == b != c <= d >= e += f -= g *= h /= i %= j && k || l -> m => n :: o")
	want := []token.Kind{
		token.Ident, token.EqEq, token.Ident, token.NotEq, token.Ident, token.LtEq, token.Ident,
		token.GtEq, token.Ident, token.PlusEq, token.Ident, token.MinusEq, token.Ident, token.StarEq,
		token.Ident, token.SlashEq, token.Ident, token.PercentEq, token.Ident, token.AndAnd, token.Ident,
		token.OrOr, token.Ident, token.Arrow, token.Ident, token.FatArrow, token.Ident, token.ColonColon,
		token.Ident, token.Eof,
	}
	require.Equal(t, want, got)
}

func TestTokenizeNumberLiterals(t *testing.T) {
	toks, err := lexer.Tokenize(token.FileId(0), []byte("1_000 3.14 1e10 2.5e-3 0xFF"))
	require.NoError(t, err)
	require.Equal(t, token.Int, toks[0].Kind)
	require.Equal(t, "1_000", toks[0].Text)
	require.Equal(t, token.Float, toks[1].Kind)
	require.Equal(t, token.Float, toks[2].Kind)
	require.Equal(t, token.Float, toks[3].Kind)
	require.Equal(t, token.Byte, toks[4].Kind)
	require.Equal(t, "0xFF", toks[4].Text)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := lexer.Tokenize(token.FileId(0), []byte(`"a\nb\t\"c\""`))
	require.NoError(t, err)
	require.Equal(t, token.String, toks[0].Kind)
	require.Equal(t, "a\nb\t\"c\"", toks[0].Text)
}

func TestTokenizeCharLiteral(t *testing.T) {
	toks, err := lexer.Tokenize(token.FileId(0), []byte(`'x' '\n'`))
	require.NoError(t, err)
	require.Equal(t, token.Char, toks[0].Kind)
	require.Equal(t, "x", toks[0].Text)
	require.Equal(t, token.Char, toks[1].Kind)
	require.Equal(t, "\n", toks[1].Text)
}

func TestTokenizeRejectsMultiRuneCharLiteral(t *testing.T) {
	_, err := lexer.Tokenize(token.FileId(0), []byte(`'ab'`))
	require.Error(t, err)
}

func TestTokenizeUnterminatedStringIsAnError(t *testing.T) {
	_, err := lexer.Tokenize(token.FileId(0), []byte(`"abc`))
	require.Error(t, err)
}

func TestTokenizeIllegalEscapeIsAnError(t *testing.T) {
	_, err := lexer.Tokenize(token.FileId(0), []byte(`"a\qb"`))
	require.Error(t, err)
}

func TestTokenizeSkipsLineAndNestedBlockComments(t *testing.T) {
	got := kinds(t, "1 // trailing comment\n/* outer /* inner */ still-outer */ 2")
	require.Equal(t, []token.Kind{token.Int, token.Int, token.Eof}, got)
}

func TestTokenizeUnterminatedBlockCommentIsAnError(t *testing.T) {
	_, err := lexer.Tokenize(token.FileId(0), []byte("/* never closed"))
	require.Error(t, err)
}

func TestTokenizeUnrecognizedPunctuationIsAnError(t *testing.T) {
	_, err := lexer.Tokenize(token.FileId(0), []byte("a & b"))
	require.Error(t, err)
}

func TestTokenizeInvalidUTF8IsAnError(t *testing.T) {
	_, err := lexer.Tokenize(token.FileId(0), []byte{'a', 0xff, 'b'})
	require.Error(t, err)
}

func TestTokenizeEmptySourceIsJustEof(t *testing.T) {
	got := kinds(t, "")
	require.Equal(t, []token.Kind{token.Eof}, got)
}
