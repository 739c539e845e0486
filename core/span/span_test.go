package span_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/span"
)

func TestPoint(t *testing.T) {
	s := span.Point(1, 5)
	assert.Equal(t, uint32(1), s.StartLine)
	assert.Equal(t, uint32(5), s.StartCol)
	assert.Equal(t, uint32(1), s.EndLine)
	assert.Equal(t, uint32(5), s.EndCol)
}

func TestMerge(t *testing.T) {
	a := span.New(1, 5, 1, 10)
	b := span.New(2, 3, 2, 8)
	merged := a.Merge(b)
	assert.Equal(t, span.New(1, 5, 2, 8), merged)
}

func TestMergeSameLine(t *testing.T) {
	a := span.New(1, 5, 1, 10)
	b := span.New(1, 3, 1, 8)
	merged := a.Merge(b)
	assert.Equal(t, uint32(3), merged.StartCol)
	assert.Equal(t, uint32(10), merged.EndCol)
}

func TestDisplay(t *testing.T) {
	s := span.New(3, 7, 3, 15)
	assert.Equal(t, "3:7", s.String())
}

func TestSourceFileLineExtraction(t *testing.T) {
	src := span.NewSourceFile("test.pepl", "line one\nline two\nline three")

	line, ok := src.Line(1)
	require.True(t, ok)
	assert.Equal(t, "line one", line)

	line, ok = src.Line(2)
	require.True(t, ok)
	assert.Equal(t, "line two", line)

	line, ok = src.Line(3)
	require.True(t, ok)
	assert.Equal(t, "line three", line)

	_, ok = src.Line(0)
	assert.False(t, ok)

	_, ok = src.Line(4)
	assert.False(t, ok)
}

func TestSourceFileCRLF(t *testing.T) {
	src := span.NewSourceFile("test.pepl", "line one\r\nline two\r\n")

	line, ok := src.Line(1)
	require.True(t, ok)
	assert.Equal(t, "line one", line)

	line, ok = src.Line(2)
	require.True(t, ok)
	assert.Equal(t, "line two", line)
}

func TestSourceFileLineCount(t *testing.T) {
	src := span.NewSourceFile("test.pepl", "a\nb\nc")
	assert.Equal(t, 3, src.LineCount())
}

func TestSourceFileEmpty(t *testing.T) {
	src := span.NewSourceFile("test.pepl", "")
	assert.Equal(t, 1, src.LineCount())

	line, ok := src.Line(1)
	require.True(t, ok)
	assert.Equal(t, "", line)
}

func TestMergeDeterminism(t *testing.T) {
	a := span.New(1, 5, 1, 10)
	b := span.New(2, 3, 2, 8)
	first := a.Merge(b)
	for i := 0; i < 100; i++ {
		result := a.Merge(b)
		require.Equal(t, first, result, fmt.Sprintf("determinism failure at iteration %d", i))
	}
}

func TestMergeIsCommutative(t *testing.T) {
	a := span.New(1, 5, 3, 2)
	b := span.New(2, 1, 4, 9)
	if diff := cmp.Diff(a.Merge(b), b.Merge(a)); diff != "" {
		t.Errorf("Merge must be commutative (-a.Merge(b) +b.Merge(a)):\n%s", diff)
	}
}

func TestMergeIsAssociative(t *testing.T) {
	a := span.New(1, 1, 1, 5)
	b := span.New(2, 1, 2, 5)
	c := span.New(3, 1, 3, 5)
	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))
	if diff := cmp.Diff(left, right); diff != "" {
		t.Errorf("Merge must be associative (-left +right):\n%s", diff)
	}
}

func TestSourceFileDeterminism(t *testing.T) {
	source := "space Counter {\n  state {\n    count: number = 0\n  }\n}"
	firstFile := span.NewSourceFile("test.pepl", source)
	firstLine2, _ := firstFile.Line(2)

	for i := 0; i < 100; i++ {
		file := span.NewSourceFile("test.pepl", source)
		line2, _ := file.Line(2)
		require.Equal(t, firstLine2, line2, fmt.Sprintf("determinism failure at iteration %d", i))
	}
}
