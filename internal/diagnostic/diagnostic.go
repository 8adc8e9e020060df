// Package diagnostic turns the byte-offset token.Span errors produced by
// every pipeline stage into file:line:col messages with a source excerpt,
// generalizing the teacher's formatInstructionStr (vm/vm.go), which prints
// the offending instruction's source line alongside its address.
package diagnostic

import (
	"fmt"
	"strings"

	"dust/internal/token"
)

// File is one source file's name and text, kept around only so
// diagnostics can be rendered with line:col and an excerpt.
type File struct {
	Name string
	Src  []byte

	lineStarts []uint32
}

// NewFile indexes src's line-start offsets once up front so later Locate
// calls are a binary search rather than a rescan.
func NewFile(name string, src []byte) *File {
	f := &File{Name: name, Src: src, lineStarts: []uint32{0}}
	for i, b := range src {
		if b == '\n' {
			f.lineStarts = append(f.lineStarts, uint32(i+1))
		}
	}
	return f
}

// Position is a 1-based line/column pair.
type Position struct {
	Line, Col int
}

// Locate converts a byte offset into a line:col position via binary
// search over the file's indexed line starts.
func (f *File) Locate(offset uint32) Position {
	lo, hi := 0, len(f.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	line := lo
	col := int(offset-f.lineStarts[line]) + 1
	return Position{Line: line + 1, Col: col}
}

// lineText returns the source text of the given 1-based line number,
// without its trailing newline.
func (f *File) lineText(line int) string {
	start := f.lineStarts[line-1]
	end := uint32(len(f.Src))
	if line < len(f.lineStarts) {
		end = f.lineStarts[line]
	}
	return strings.TrimRight(string(f.Src[start:end]), "\r\n")
}

// Set resolves token.Span.File indices against the driver's loaded files,
// FileId(0) always naming the entry file per token.go.
type Set struct {
	Files []*File
}

func (s *Set) file(id token.FileId) *File {
	if int(id) < len(s.Files) {
		return s.Files[id]
	}
	return nil
}

// Render formats err as "file:line:col: message", followed by the
// offending source line and a caret pointing at the span's start, when
// err carries (or wraps) a token.Span.
func (s *Set) Render(err error) string {
	span, ok := spanOf(err)
	if !ok {
		return err.Error()
	}
	f := s.file(span.File)
	if f == nil {
		return err.Error()
	}
	pos := f.Locate(span.Start)
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s\n", f.Name, pos.Line, pos.Col, err)
	line := f.lineText(pos.Line)
	b.WriteString("  " + line + "\n")
	b.WriteString("  " + strings.Repeat(" ", pos.Col-1) + "^")
	return b.String()
}

// spanner is satisfied by any error that reports the span it occurred at
// through a Span method; dusterr.Spanned has no such method (see spanOf).
type spanner interface {
	Span() token.Span
}

// spanOf extracts a token.Span from err if it (or something it wraps)
// exposes one. dusterr.Spanned stores its span as a plain field rather
// than through this interface, so it's checked by type assertion first.
func spanOf(err error) (token.Span, bool) {
	type hasSpanField interface{ SpanValue() token.Span }
	if s, ok := err.(hasSpanField); ok {
		return s.SpanValue(), true
	}
	if s, ok := err.(spanner); ok {
		return s.Span(), true
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return spanOf(u.Unwrap())
	}
	return token.Span{}, false
}
