package diagnostic_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
)

func TestValidateJSONAcceptsEmptyCompileErrors(t *testing.T) {
	ce := diagnostic.Empty()
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	assert.NoError(t, diagnostic.ValidateJSON(raw))
}

func TestValidateJSONAcceptsAPopulatedError(t *testing.T) {
	ce := diagnostic.Empty()
	ce.PushError(diagnostic.New("t.pepl", diagnostic.TypeMismatch, "boom", span.New(1, 2, 1, 5), "let x = 1"))
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	assert.NoError(t, diagnostic.ValidateJSON(raw))
}

func TestValidateJSONRejectsBadSeverity(t *testing.T) {
	raw := []byte(`{
		"errors": [{"file":"t.pepl","code":201,"severity":"fatal","category":"type","message":"x","line":1,"column":1,"end_line":1,"end_column":1}],
		"warnings": [],
		"total_errors": 1,
		"total_warnings": 0
	}`)
	assert.Error(t, diagnostic.ValidateJSON(raw))
}

func TestValidateJSONRejectsMissingField(t *testing.T) {
	raw := []byte(`{"errors": [], "warnings": []}`)
	assert.Error(t, diagnostic.ValidateJSON(raw))
}

func TestCompileErrorsValidateMethod(t *testing.T) {
	ce := diagnostic.Empty()
	ce.PushWarning(diagnostic.New("t.pepl", diagnostic.UnknownType, "hmm", span.New(1, 1, 1, 1), ""))
	assert.NoError(t, ce.Validate())
}
