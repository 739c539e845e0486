package diagnostic_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
)

func TestCodeCategoryBuckets(t *testing.T) {
	assert.Equal(t, diagnostic.CategorySyntax, diagnostic.UnexpectedToken.Category())
	assert.Equal(t, diagnostic.CategoryType, diagnostic.TypeMismatch.Category())
	assert.Equal(t, diagnostic.CategoryInvariant, diagnostic.InvariantUnreachable.Category())
	assert.Equal(t, diagnostic.CategoryCapability, diagnostic.UndeclaredCapability.Category())
	assert.Equal(t, diagnostic.CategoryScope, diagnostic.RecursionNotAllowed.Category())
	assert.Equal(t, diagnostic.CategoryStructure, diagnostic.DerivedFieldModified.Category())
	assert.Equal(t, diagnostic.CategoryCodegen, diagnostic.Internal.Category())
}

func TestPushErrorRespectsMaxErrorsButKeepsExactTotal(t *testing.T) {
	ce := diagnostic.Empty()
	for i := 0; i < diagnostic.MaxErrors+5; i++ {
		ce.PushError(diagnostic.New("t.pepl", diagnostic.TypeMismatch, "boom", span.New(1, 1, 1, 1), ""))
	}
	assert.Len(t, ce.Errors, diagnostic.MaxErrors)
	assert.Equal(t, diagnostic.MaxErrors+5, ce.TotalErrors)
	assert.True(t, ce.HasErrors())
}

func TestPushWarningForcesWarningSeverity(t *testing.T) {
	ce := diagnostic.Empty()
	err := diagnostic.New("t.pepl", diagnostic.UnknownType, "hmm", span.New(2, 3, 2, 9), "")
	ce.PushWarning(err)
	require.Len(t, ce.Warnings, 1)
	assert.Equal(t, diagnostic.SeverityWarning, ce.Warnings[0].Severity)
	assert.False(t, ce.HasErrors())
}

// TestCompileErrorsJSONRoundTrip checks that marshaling a populated
// CompileErrors to JSON and back reproduces an equal value, so a host
// relaying diagnostics over the wire never silently drops a field.
func TestCompileErrorsJSONRoundTrip(t *testing.T) {
	ce := diagnostic.Empty()
	ce.PushError(diagnostic.New("a.pepl", diagnostic.RecursionNotAllowed, "loop recurses", span.New(4, 1, 4, 6), "action loop() {"))
	ce.PushError(diagnostic.New("a.pepl", diagnostic.UndeclaredCapability, "missing http", span.New(9, 2, 9, 14), "").WithSuggestion(`declare "http" in capabilities.required`))
	ce.PushWarning(diagnostic.New("a.pepl", diagnostic.EmptyStateBlock, "state block is empty", span.New(1, 1, 1, 1), ""))

	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	require.NoError(t, diagnostic.ValidateJSON(raw))

	var round diagnostic.CompileErrors
	require.NoError(t, json.Unmarshal(raw, &round))
	assert.Equal(t, ce, round)
}
