// Package span locates diagnostics and AST nodes in source text.
//
// All line and column values are 1-based, matching how editors and
// terminal error messages report position.
package span

import (
	"fmt"
	"strings"
)

// Span is a half-open source range: [start, end), both 1-based.
type Span struct {
	StartLine uint32 `json:"start_line"`
	StartCol  uint32 `json:"start_col"`
	EndLine   uint32 `json:"end_line"`
	EndCol    uint32 `json:"end_col"`
}

// New builds a span from explicit coordinates.
func New(startLine, startCol, endLine, endCol uint32) Span {
	return Span{StartLine: startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol}
}

// Point builds a zero-width span at a single position.
func Point(line, col uint32) Span {
	return New(line, col, line, col)
}

// Merge returns the smallest span covering both s and other.
func (s Span) Merge(other Span) Span {
	startLine := min(s.StartLine, other.StartLine)
	var startCol uint32
	switch {
	case s.StartLine < other.StartLine:
		startCol = s.StartCol
	case other.StartLine < s.StartLine:
		startCol = other.StartCol
	default:
		startCol = min(s.StartCol, other.StartCol)
	}

	endLine := max(s.EndLine, other.EndLine)
	var endCol uint32
	switch {
	case s.EndLine > other.EndLine:
		endCol = s.EndCol
	case other.EndLine > s.EndLine:
		endCol = other.EndCol
	default:
		endCol = max(s.EndCol, other.EndCol)
	}

	return New(startLine, startCol, endLine, endCol)
}

// String renders the span's start position as "line:col".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
}

// SourceFile holds source text plus a cached line-start index for
// O(1) line lookup during diagnostic rendering.
type SourceFile struct {
	Name       string
	Source     string
	lineStarts []int
}

// NewSourceFile indexes source's line starts once, up front.
func NewSourceFile(name, source string) *SourceFile {
	lineStarts := []int{0}
	for i, c := range source {
		if c == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	return &SourceFile{Name: name, Source: source, lineStarts: lineStarts}
}

// Line returns the 1-based source line, with any trailing \r trimmed.
// The second return value is false if lineNumber is out of range.
func (f *SourceFile) Line(lineNumber uint32) (string, bool) {
	if lineNumber == 0 {
		return "", false
	}
	idx := int(lineNumber - 1)
	if idx >= len(f.lineStarts) {
		return "", false
	}
	start := f.lineStarts[idx]
	var end int
	if idx+1 < len(f.lineStarts) {
		end = f.lineStarts[idx+1] - 1 // strip the \n
	} else {
		end = len(f.Source)
	}
	return strings.TrimRight(f.Source[start:end], "\r"), true
}

// LineCount returns the total number of lines in the file.
func (f *SourceFile) LineCount() int {
	return len(f.lineStarts)
}
