package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/ast"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/runtime/parser"
	"github.com/pepl-lang/pepl/runtime/validation"
)

func actionsOf(t *testing.T, src string) []ast.ActionDecl {
	t.Helper()
	file := span.NewSourceFile("t.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	return prog.SpaceVal.Body.Actions
}

func TestDetectActionRecursion_DirectSelfCall(t *testing.T) {
	src := `space S {
  state { x: number = 0 }
  action loop() {
    loop()
  }
}`
	err := validation.DetectActionRecursion(actionsOf(t, src))
	require.NotNil(t, err)
	assert.Equal(t, "loop", err.Action)
	assert.Equal(t, []string{"loop", "loop"}, err.Cycle)
}

func TestDetectActionRecursion_IndirectCycle(t *testing.T) {
	src := `space S {
  state { x: number = 0 }
  action a() { b() }
  action b() { c() }
  action c() { a() }
}`
	err := validation.DetectActionRecursion(actionsOf(t, src))
	require.NotNil(t, err)
	assert.Contains(t, err.Cycle, "a")
	assert.Contains(t, err.Cycle, "b")
	assert.Contains(t, err.Cycle, "c")
}

func TestDetectActionRecursion_NoRecursion(t *testing.T) {
	src := `space S {
  state { x: number = 0 }
  action a() { set x = 1 }
  action b() { a() }
}`
	err := validation.DetectActionRecursion(actionsOf(t, src))
	assert.Nil(t, err)
}

func TestDetectActionRecursion_UnknownCalleeIsIgnored(t *testing.T) {
	src := `space S {
  state { x: number = 0 }
  action a() { math.abs(x) }
}`
	err := validation.DetectActionRecursion(actionsOf(t, src))
	assert.Nil(t, err)
}

func TestDetectActionRecursion_ReportsFirstOffenderInDeclarationOrder(t *testing.T) {
	src := `space S {
  state { x: number = 0 }
  action good() { set x = 1 }
  action bad() { bad() }
  action other() { good() }
}`
	err := validation.DetectActionRecursion(actionsOf(t, src))
	require.NotNil(t, err)
	assert.Equal(t, "bad", err.Action)
}
