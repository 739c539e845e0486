package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileErrorsSchemaJSON is the JSON Schema a serialized CompileErrors
// must satisfy, matching the field-for-field shape PeplError and
// CompileErrors marshal to.
const compileErrorsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["errors", "warnings", "total_errors", "total_warnings"],
  "properties": {
    "errors": { "type": "array", "items": { "$ref": "#/$defs/peplError" } },
    "warnings": { "type": "array", "items": { "$ref": "#/$defs/peplError" } },
    "total_errors": { "type": "integer", "minimum": 0 },
    "total_warnings": { "type": "integer", "minimum": 0 }
  },
  "$defs": {
    "peplError": {
      "type": "object",
      "required": ["file", "code", "severity", "category", "message", "line", "column", "end_line", "end_column"],
      "properties": {
        "file": { "type": "string" },
        "code": { "type": "integer", "minimum": 100, "maximum": 799 },
        "severity": { "type": "string", "enum": ["error", "warning"] },
        "category": { "type": "string", "enum": ["syntax", "type", "invariant", "capability", "scope", "structure", "codegen"] },
        "message": { "type": "string" },
        "line": { "type": "integer", "minimum": 0 },
        "column": { "type": "integer", "minimum": 0 },
        "end_line": { "type": "integer", "minimum": 0 },
        "end_column": { "type": "integer", "minimum": 0 },
        "source_line": { "type": "string" },
        "suggestion": { "type": "string" }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		const url = "schema://pepl-compile-errors.json"
		if err := compiler.AddResource(url, strings.NewReader(compileErrorsSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("compiling diagnostic schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(url)
	})
	return schema, schemaErr
}

// ValidateJSON checks that raw is a valid JSON encoding of a
// CompileErrors value, per the wire contract callers depend on. It
// decodes raw generically rather than into CompileErrors so it also
// catches a hand-built or host-relayed payload that merely looks
// right but violates a field constraint (wrong severity spelling, a
// code outside E100-E799, a missing required field).
func ValidateJSON(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return s.Validate(doc)
}

// Validate marshals c and checks the result against the schema,
// for validating a value this package itself produced rather than one
// read from the wire.
func (c *CompileErrors) Validate() error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling CompileErrors: %w", err)
	}
	return ValidateJSON(raw)
}
