package emitter_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/runtime/checker"
	"github.com/pepl-lang/pepl/runtime/emitter"
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

  view main() -> Surface {
    Column {
      spacing: 8
    } {
      Text { value: "count: ${count}" }
      Button { label: "increment", onPress: increment }
    }
  }
}`

func compileClean(t *testing.T, src string) *emitter.Module {
	t.Helper()
	file := span.NewSourceFile("counter.pepl", src)
	prog, parseErrs := parser.Parse(file)
	require.Empty(t, parseErrs)
	require.Empty(t, checker.Check(file, prog))

	mod, err := emitter.New(file, prog).Emit()
	require.NoError(t, err)
	require.NotNil(t, mod)
	return mod
}

func TestEmitProducesWasmMagicAndVersion(t *testing.T) {
	mod := compileClean(t, counterSource)
	require.GreaterOrEqual(t, len(mod.Bytes), 8)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6D}, mod.Bytes[0:4])
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, mod.Bytes[4:8])
}

func TestEmitRecordsSourceMapEntryPerAction(t *testing.T) {
	mod := compileClean(t, counterSource)

	var found bool
	for _, entry := range mod.SourceMap.Entries {
		if entry.FuncName == "increment" {
			found = true
			assert.Equal(t, emitter.KindAction, entry.Kind)
		}
	}
	assert.True(t, found, "expected a source map entry for the increment action")
}

func TestEmitSourceMapFuncNamesAreUnique(t *testing.T) {
	mod := compileClean(t, counterSource)

	seen := map[string]bool{}
	for _, entry := range mod.SourceMap.Entries {
		assert.False(t, seen[entry.FuncName], "duplicate func_name %q in source map", entry.FuncName)
		seen[entry.FuncName] = true
	}
}

func TestEmitIsDeterministicAcrossRepeatedCompiles(t *testing.T) {
	var first []byte
	for i := 0; i < 25; i++ {
		mod := compileClean(t, counterSource)
		if i == 0 {
			first = mod.Bytes
			continue
		}
		require.Equal(t, first, mod.Bytes, "compile #%d produced different bytes than compile #0", i)
		require.Equal(t, first, mod.Bytes)
	}
}

func TestEmitIncludesCompactCborSourceMapSection(t *testing.T) {
	mod := compileClean(t, counterSource)
	assert.True(t, bytes.Contains(mod.Bytes, []byte("pepl_source_map_cbor")))
}

func TestEmitHashIsStableAcrossCompiles(t *testing.T) {
	a := compileClean(t, counterSource)
	b := compileClean(t, counterSource)
	assert.Equal(t, a.Hash, b.Hash)
}

func TestEmitRecordsUpdateEntryWhenDeclared(t *testing.T) {
	withoutUpdate := compileClean(t, counterSource)
	_ = withoutUpdate

	withUpdateSrc := `space Clock {
  state {
    ticks: number = 0
  }

  update(dt: number) {
    set ticks = ticks + 1
  }

  view main() -> Surface {
    Text { value: "${ticks}" }
  }
}`
	mod := compileClean(t, withUpdateSrc)
	var sawUpdate bool
	for _, entry := range mod.SourceMap.Entries {
		if entry.FuncName == "update" {
			sawUpdate = true
			assert.Equal(t, emitter.KindUpdate, entry.Kind)
		}
	}
	assert.True(t, sawUpdate)
}
