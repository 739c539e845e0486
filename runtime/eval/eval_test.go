package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/runtime/checker"
	"github.com/pepl-lang/pepl/runtime/eval"
	"github.com/pepl-lang/pepl/runtime/parser"
)

const counterSource = `space Counter {
  state {
    count: number = 0
  }

  invariant nonNegative {
    count >= 0
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

func TestDispatchIncrementsCounter(t *testing.T) {
	file := span.NewSourceFile("counter.pepl", counterSource)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	require.Empty(t, checker.Check(file, prog))

	inst, err := eval.NewSpaceInstance(prog, 0)
	require.NoError(t, err)

	v, ok := inst.GetState("count")
	require.True(t, ok)
	assert.Equal(t, float64(0), v.Number)

	_, dispatchErr := inst.DispatchAction("increment", nil)
	require.NoError(t, dispatchErr)

	v, _ = inst.GetState("count")
	assert.Equal(t, float64(1), v.Number)
}

func TestDispatchClampsAtZero(t *testing.T) {
	file := span.NewSourceFile("counter.pepl", counterSource)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	inst, err := eval.NewSpaceInstance(prog, 0)
	require.NoError(t, err)

	_, dispatchErr := inst.DispatchAction("decrement", nil)
	require.NoError(t, dispatchErr)

	v, _ := inst.GetState("count")
	assert.Equal(t, float64(0), v.Number)
}

func TestInvariantViolationRollsBackState(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  invariant neverTen {
    x != 10
  }

  action jumpToTen() {
    set x = 10
  }
}`
	file := span.NewSourceFile("t.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	inst, err := eval.NewSpaceInstance(prog, 0)
	require.NoError(t, err)

	_, dispatchErr := inst.DispatchAction("jumpToTen", nil)
	require.Error(t, dispatchErr)
	evalErr, ok := dispatchErr.(*eval.EvalError)
	require.True(t, ok)
	assert.Equal(t, eval.InvariantViolation, evalErr.Kind)
	assert.Equal(t, "neverTen", evalErr.InvariantName)

	v, _ := inst.GetState("x")
	assert.Equal(t, float64(0), v.Number, "state must equal its pre-dispatch value after rollback")
}

func TestGasExhaustionStopsDispatch(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  action spin() {
    for i in [1, 2, 3, 4, 5] {
      set x = x + math.abs(i)
    }
  }
}`
	file := span.NewSourceFile("t.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	inst, err := eval.NewSpaceInstance(prog, 2)
	require.NoError(t, err)

	_, dispatchErr := inst.DispatchAction("spin", nil)
	require.Error(t, dispatchErr)
	evalErr, ok := dispatchErr.(*eval.EvalError)
	require.True(t, ok)
	assert.Equal(t, eval.GasExhausted, evalErr.Kind)
}

func TestRenderProducesOrderedProps(t *testing.T) {
	file := span.NewSourceFile("counter.pepl", counterSource)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	inst, err := eval.NewSpaceInstance(prog, 0)
	require.NoError(t, err)

	node, err := inst.Render("main", nil)
	require.NoError(t, err)
	require.Equal(t, "Column", node.Component)
	require.Len(t, node.Props, 1)
	assert.Equal(t, "spacing", node.Props[0].Key)
	require.Len(t, node.Children, 2)
	assert.Equal(t, "Text", node.Children[0].Component)
	assert.Equal(t, "Button", node.Children[1].Component)
}

func TestMockedStdlibResponseIsUsedInsteadOfBuiltin(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }

  capabilities {
    required: [http]
  }

  action fetch() {
    let r = http.get("/x")
  }
}`
	file := span.NewSourceFile("t.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)
	require.Empty(t, checker.Check(file, prog))

	inst, err := eval.NewSpaceInstance(prog, 0)
	require.NoError(t, err)
	inst.WithMockResponses([]eval.MockResponse{
		{Module: "http", Function: "get", Response: eval.StringVal("mocked")},
	})

	_, dispatchErr := inst.DispatchAction("fetch", nil)
	require.NoError(t, dispatchErr)
}

func TestUndefinedActionDispatchReportsUndefinedAction(t *testing.T) {
	src := `space S {
  state {
    x: number = 0
  }
}`
	file := span.NewSourceFile("t.pepl", src)
	prog, errs := parser.Parse(file)
	require.Empty(t, errs)

	inst, err := eval.NewSpaceInstance(prog, 0)
	require.NoError(t, err)

	_, dispatchErr := inst.DispatchAction("doesNotExist", nil)
	require.Error(t, dispatchErr)
	evalErr, ok := dispatchErr.(*eval.EvalError)
	require.True(t, ok)
	assert.Equal(t, eval.UndefinedAction, evalErr.Kind)
}
