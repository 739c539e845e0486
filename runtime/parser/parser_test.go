package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/ast"
	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/runtime/parser"
)

const counterSource = `space Counter {
  state {
    count: number = 0
  }

  action increment() {
    set count = count + 1
  }

  action decrement() {
    set count = math.max(0, count - 1)
  }

  view main() -> Surface {
    Column {
      spacing: 8
    } {
      Text { value: "count: ${count}" }
      Button { label: "increment", onPress: increment }
    }
  }
}`

func TestParseCounterHasNoErrors(t *testing.T) {
	file := span.NewSourceFile("counter.pepl", counterSource)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	require.NotNil(t, prog)
	assert.Equal(t, "Counter", prog.SpaceVal.Name.Name)
	require.Len(t, prog.SpaceVal.Body.State.Fields, 1)
	assert.Equal(t, "count", prog.SpaceVal.Body.State.Fields[0].Name.Name)
	require.Len(t, prog.SpaceVal.Body.Actions, 2)
	require.Len(t, prog.SpaceVal.Body.Views, 1)
}

func TestParseActionSetQualifiedCall(t *testing.T) {
	file := span.NewSourceFile("counter.pepl", counterSource)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	decrement := prog.SpaceVal.Body.Actions[1]
	require.Len(t, decrement.Body.Stmts, 1)
	setStmt, ok := decrement.Body.Stmts[0].(*ast.SetStmt)
	require.True(t, ok)
	require.Len(t, setStmt.Target, 1)
	assert.Equal(t, "count", setStmt.Target[0].Name)

	call, ok := setStmt.Value.Kind.(ast.QualifiedCall)
	require.True(t, ok)
	assert.Equal(t, "math", call.Module.Name)
	assert.Equal(t, "max", call.Function.Name)
	require.Len(t, call.Args, 2)
}

func TestParseAllSpansWithinSource(t *testing.T) {
	file := span.NewSourceFile("counter.pepl", counterSource)
	lines := uint32(0)
	for i := range counterSource {
		if counterSource[i] == '\n' {
			lines++
		}
	}
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	ast.Walk(prog, func(n ast.Node) bool {
		sp := n.Span()
		assert.GreaterOrEqual(t, sp.StartLine, uint32(1))
		assert.LessOrEqual(t, sp.EndLine, lines+1)
		return true
	})
}

func TestParseSectionOutOfOrderEmitsE600(t *testing.T) {
	src := `space Bad {
  action doThing() {
    return
  }

  state {
    x: number = 0
  }
}`
	file := span.NewSourceFile("bad.pepl", src)
	_, errs := parser.Parse(file)
	require.NotEmpty(t, errs)
	assert.Equal(t, diagnostic.BlockOrderingViolated, errs[0].Code)
}

func TestParseMissingStateBlockEmitsE606(t *testing.T) {
	src := `space Bad {
  action doThing() {
    return
  }
}`
	file := span.NewSourceFile("bad.pepl", src)
	_, errs := parser.Parse(file)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Code == diagnostic.EmptyStateBlock {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParseNilCoalesceIsLowestPrecedence(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  derived {
    y: number = 1 ?? 2 or 3 and 4
  }
}`
	file := span.NewSourceFile("s.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	require.NotNil(t, prog.SpaceVal.Body.Derived)
	require.Len(t, prog.SpaceVal.Body.Derived.Fields, 1)

	top, ok := prog.SpaceVal.Body.Derived.Fields[0].Value.Kind.(ast.NilCoalesce)
	require.True(t, ok)
	_, leftIsNumber := top.Left.Kind.(ast.NumberLit)
	assert.True(t, leftIsNumber)
	_, rightIsOr := top.Right.Kind.(ast.Binary)
	assert.True(t, rightIsOr)
}

func TestParseMatchExprWithWildcard(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action run() {
    let r = match x {
      Active -> 1
      _ -> 0
    }
  }
}`
	file := span.NewSourceFile("s.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	action := prog.SpaceVal.Body.Actions[0]
	letStmt, ok := action.Body.Stmts[0].(*ast.LetBinding)
	require.True(t, ok)
	match, ok := letStmt.Value.Kind.(ast.MatchExprKind)
	require.True(t, ok)
	require.Len(t, match.Match.Arms, 2)
	_, lastIsWildcard := match.Match.Arms[1].Pattern.(*ast.WildcardPattern)
	assert.True(t, lastIsWildcard)
}

func TestParseLambdaWithBlockBodyHasNoErrors(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action run() {
    let f = fn(n: number) { return }
  }
}`
	file := span.NewSourceFile("s.pepl", src)
	_, errs := parser.Parse(file)
	require.Empty(t, errs)
}

func TestParseCapabilitiesBlock(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  capabilities {
    required: [http]
    optional: [storage]
  }
}`
	file := span.NewSourceFile("s.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	require.NotNil(t, prog.SpaceVal.Body.Capabilities)
	require.Len(t, prog.SpaceVal.Body.Capabilities.Required, 1)
	assert.Equal(t, "http", prog.SpaceVal.Body.Capabilities.Required[0].Name)
	require.Len(t, prog.SpaceVal.Body.Capabilities.Optional, 1)
	assert.Equal(t, "storage", prog.SpaceVal.Body.Capabilities.Optional[0].Name)
}

func TestParseTestsBlockWithResponses(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  capabilities {
    required: [http]
  }
}

tests {
  test "handles a mocked response" with_responses {
    http.get("/x") -> "ok"
  } {
    assert x == 0
  }
}`
	file := span.NewSourceFile("s.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	require.Len(t, prog.Tests, 1)
	require.Len(t, prog.Tests[0].Cases, 1)
	tc := prog.Tests[0].Cases[0]
	assert.Equal(t, "handles a mocked response", tc.Description)
	require.NotNil(t, tc.WithResponses)
	require.Len(t, tc.WithResponses.Mappings, 1)
	assert.Equal(t, "http", tc.WithResponses.Mappings[0].Module.Name)
	assert.Equal(t, "get", tc.WithResponses.Mappings[0].Function.Name)
}

func TestParseSumTypeDecl(t *testing.T) {
	src := `space S {
  type Shape = {
    Circle(radius: number),
    Rectangle(width: number, height: number),
    Unknown
  }

  state {
    x: number = 0
  }
}`
	file := span.NewSourceFile("s.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	require.Len(t, prog.SpaceVal.Body.Types, 1)
	body, ok := prog.SpaceVal.Body.Types[0].Body.(ast.SumTypeBody)
	require.True(t, ok)
	require.Len(t, body.Variants, 3)
	assert.Equal(t, "Circle", body.Variants[0].Name.Name)
	require.Len(t, body.Variants[0].Params, 1)
	assert.Equal(t, "Unknown", body.Variants[2].Name.Name)
	assert.Empty(t, body.Variants[2].Params)
}

func TestParseDeterministic(t *testing.T) {
	file1 := span.NewSourceFile("counter.pepl", counterSource)
	file2 := span.NewSourceFile("counter.pepl", counterSource)
	prog1, errs1 := parser.Parse(file1)
	prog2, errs2 := parser.Parse(file2)
	require.Empty(t, errs1)
	require.Empty(t, errs2)
	assert.Equal(t, prog1, prog2)
}
