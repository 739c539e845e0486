package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/runtime/pipeline"
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

  view main() -> Surface {
    Column {
      spacing: 8
    } {
      Text { value: "count: ${count}" }
      Button { label: "increment", onPress: increment }
    }
  }
}`

func TestTypeCheckCleanSourceHasNoErrors(t *testing.T) {
	result := pipeline.TypeCheck("counter.pepl", counterSource)
	assert.False(t, result.Errors.HasErrors())
}

func TestTypeCheckCatchesSyntaxErrors(t *testing.T) {
	result := pipeline.TypeCheck("broken.pepl", `space {`)
	assert.True(t, result.Errors.HasErrors())
}

func TestTypeCheckCatchesSemanticErrors(t *testing.T) {
	src := `space S {
  state {
    count: number = 0
  }

  action bump() {
    set count = count + "nope"
  }
}`
	result := pipeline.TypeCheck("bad.pepl", src)
	require.True(t, result.Errors.HasErrors())
}

func TestCompileCleanSourceProducesModule(t *testing.T) {
	result := pipeline.Compile("counter.pepl", counterSource)
	require.False(t, result.Errors.HasErrors())
	require.NotNil(t, result.Module)
	assert.NotEmpty(t, result.Module.Bytes)
}

func TestCompileShortCircuitsOnParseErrors(t *testing.T) {
	result := pipeline.Compile("broken.pepl", `space {`)
	require.True(t, result.Errors.HasErrors())
	assert.Nil(t, result.Module)
}

func TestCompileShortCircuitsOnCheckErrors(t *testing.T) {
	src := `space S {
  state {
    count: number = 0
  }

  action bump() {
    set count = count + "nope"
  }
}`
	result := pipeline.Compile("bad.pepl", src)
	require.True(t, result.Errors.HasErrors())
	assert.Nil(t, result.Module)
}

func TestCompileToResultReportsSuccess(t *testing.T) {
	out := pipeline.CompileToResult("counter.pepl", counterSource)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Module)
	assert.Equal(t, 0, out.Errors.TotalErrors)
}

func TestCompileToResultReportsFailureWithoutPanicking(t *testing.T) {
	out := pipeline.CompileToResult("broken.pepl", `space {`)
	assert.False(t, out.Success)
	assert.Empty(t, out.Module)
	assert.Greater(t, out.Errors.TotalErrors, 0)
}

func TestCompileRepeatedlyIsByteIdentical(t *testing.T) {
	first := pipeline.Compile("counter.pepl", counterSource)
	require.NotNil(t, first.Module)
	for i := 0; i < 10; i++ {
		again := pipeline.Compile("counter.pepl", counterSource)
		require.NotNil(t, again.Module)
		require.Equal(t, first.Module.Bytes, again.Module.Bytes)
	}
}

func TestRecursiveActionReportsRecursionNotAllowed(t *testing.T) {
	src := `space S {
  state {
    count: number = 0
  }

  action loop() {
    loop()
  }
}`
	result := pipeline.TypeCheck("recur.pepl", src)
	require.True(t, result.Errors.HasErrors())
	var sawCode bool
	for _, e := range result.Errors.Errors {
		if e.Code == diagnostic.RecursionNotAllowed {
			sawCode = true
		}
	}
	assert.True(t, sawCode)
}
