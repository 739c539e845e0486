package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/runtime/stdlib"
)

func TestCoreLogSignature(t *testing.T) {
	reg := stdlib.New()
	s, ok := reg.Get("core", "log")
	require.True(t, ok)
	require.Len(t, s.Params, 1)
	assert.Equal(t, "any", s.Params[0].Type.String())
	assert.Equal(t, "nil", s.Ret.String())
}

func TestMathConstants(t *testing.T) {
	reg := stdlib.New()
	pi, ok := reg.GetConstant("math", "PI")
	require.True(t, ok)
	assert.Equal(t, "number", pi.String())
	_, ok = reg.GetConstant("math", "NOPE")
	assert.False(t, ok)
}

func TestUnknownModule(t *testing.T) {
	reg := stdlib.New()
	assert.False(t, reg.HasModule("nope"))
	assert.True(t, reg.HasModule("http"))
	assert.True(t, reg.HasModule("math"))
}

func TestListAliases(t *testing.T) {
	reg := stdlib.New()
	update, ok := reg.Get("list", "update")
	require.True(t, ok)
	set, ok := reg.Get("list", "set")
	require.True(t, ok)
	assert.Equal(t, update.Ret.String(), set.Ret.String())

	any, ok := reg.Get("list", "any")
	require.True(t, ok)
	some, ok := reg.Get("list", "some")
	require.True(t, ok)
	assert.Equal(t, any.Ret.String(), some.Ret.String())
}

func TestCapabilityModules(t *testing.T) {
	caps := stdlib.CapabilityModules()
	for _, mod := range []string{"http", "storage", "location", "notifications", "timer"} {
		assert.Contains(t, caps, mod)
	}
	assert.NotContains(t, caps, "math")
	assert.NotContains(t, caps, "core")
}

func TestSuggestFunction(t *testing.T) {
	reg := stdlib.New()
	suggestion, ok := reg.SuggestFunction("string", "lenght")
	require.True(t, ok)
	assert.Equal(t, "string.length", suggestion)
}

func TestFunctionCount(t *testing.T) {
	reg := stdlib.New()
	total := 0
	for _, fns := range reg.Modules() {
		total += len(fns)
	}
	assert.Equal(t, 100, total)
}
