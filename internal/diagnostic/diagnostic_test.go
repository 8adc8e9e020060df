package diagnostic_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/diagnostic"
	"dust/internal/dusterr"
	"dust/internal/token"
)

func TestLocateFindsLineAndColumnAcrossMultipleLines(t *testing.T) {
	f := diagnostic.NewFile("t.dust", []byte("abc\ndef\nghi\n"))
	require.Equal(t, diagnostic.Position{Line: 1, Col: 1}, f.Locate(0))
	require.Equal(t, diagnostic.Position{Line: 1, Col: 4}, f.Locate(3))
	require.Equal(t, diagnostic.Position{Line: 2, Col: 1}, f.Locate(4))
	require.Equal(t, diagnostic.Position{Line: 3, Col: 3}, f.Locate(10))
}

func TestRenderIncludesFileLineColAndCaret(t *testing.T) {
	set := &diagnostic.Set{Files: []*diagnostic.File{diagnostic.NewFile("main.dust", []byte("let x = y;\n"))}}
	span := token.Span{File: 0, Start: 8, End: 9}
	err := dusterr.WithSpan(dusterr.ErrUnknownIdentifier, span)

	out := set.Render(err)
	require.Contains(t, out, "main.dust:1:9:")
	require.Contains(t, out, "let x = y;")
	require.Contains(t, out, "^")
}

func TestRenderFallsBackToPlainErrorWithoutSpan(t *testing.T) {
	set := &diagnostic.Set{Files: []*diagnostic.File{diagnostic.NewFile("main.dust", []byte("x\n"))}}
	out := set.Render(dusterr.ErrUnknownIdentifier)
	require.Equal(t, dusterr.ErrUnknownIdentifier.Error(), out)
}

func TestRenderFallsBackWhenFileIndexIsUnknown(t *testing.T) {
	set := &diagnostic.Set{}
	span := token.Span{File: 0, Start: 0, End: 1}
	err := dusterr.WithSpan(dusterr.ErrUnknownIdentifier, span)
	out := set.Render(err)
	require.Contains(t, out, dusterr.ErrUnknownIdentifier.Error())
}
