// Package pipeline is the single facade through which callers run a
// PEPL source file through lexing, parsing, type checking, and
// bytecode emission. It never exposes the intermediate phases
// individually: a caller wants a type-check result or a compiled
// module, never a half-checked AST.
package pipeline

import (
	"fmt"

	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/invariant"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/runtime/checker"
	"github.com/pepl-lang/pepl/runtime/emitter"
	"github.com/pepl-lang/pepl/runtime/parser"
)

// CheckResult is the outcome of TypeCheck: the file's diagnostics,
// empty when the source is clean.
type CheckResult struct {
	Errors diagnostic.CompileErrors
}

// CompileResult is the outcome of Compile: either a module or a
// non-empty set of diagnostics, never both.
type CompileResult struct {
	Module *emitter.Module
	Errors diagnostic.CompileErrors
}

// TypeCheck runs lexing, parsing, and type checking and returns every
// diagnostic produced. It never emits a module.
func TypeCheck(filename, source string) (result CheckResult) {
	defer recoverInternal(filename, &result.Errors)
	invariant.Precondition(filename != "", "filename must not be empty")

	file := span.NewSourceFile(filename, source)
	prog, parseErrs := parser.Parse(file)
	result.Errors = collect(parseErrs)
	if result.Errors.HasErrors() {
		return result
	}

	checkErrs := checker.Check(file, prog)
	result.Errors = collect(checkErrs)
	return result
}

// Compile runs the full pipeline: parse, type check, then emit. Any
// diagnostic from parsing or type checking short-circuits emission.
// A failure during emission itself is wrapped as an E700-series
// codegen diagnostic rather than returned as a Go error, so callers
// only ever need to inspect Errors.
func Compile(filename, source string) (result CompileResult) {
	defer recoverInternal(filename, &result.Errors)
	invariant.Precondition(filename != "", "filename must not be empty")

	file := span.NewSourceFile(filename, source)
	prog, parseErrs := parser.Parse(file)
	result.Errors = collect(parseErrs)
	if result.Errors.HasErrors() {
		return result
	}

	checkErrs := checker.Check(file, prog)
	result.Errors = collect(checkErrs)
	if result.Errors.HasErrors() {
		return result
	}

	mod, err := emitter.New(file, prog).Emit()
	if err != nil {
		result.Errors.PushError(diagnostic.New(filename, diagnostic.Unsupported, err.Error(), span.Span{}, ""))
		return result
	}
	result.Module = mod
	return result
}

// CompileToResult is Compile plus a JSON-serializable envelope
// suitable for handing straight to a host or test harness: it never
// panics and never returns a Go error, matching the facade's "always
// comes back as structured diagnostics" contract.
type CompileToResultOutput struct {
	Success bool                     `json:"success"`
	Module  []byte                   `json:"module,omitempty"`
	Errors  diagnostic.CompileErrors `json:"diagnostics"`
}

func CompileToResult(filename, source string) CompileToResultOutput {
	res := Compile(filename, source)
	out := CompileToResultOutput{Errors: res.Errors}
	if res.Module != nil {
		out.Success = true
		out.Module = res.Module.Bytes
	}
	return out
}

func collect(errs []diagnostic.PeplError) diagnostic.CompileErrors {
	ce := diagnostic.Empty()
	for _, e := range errs {
		if e.Severity == diagnostic.SeverityWarning {
			ce.PushWarning(e)
		} else {
			ce.PushError(e)
		}
	}
	return ce
}

// recoverInternal is the facade's panic boundary: an invariant
// violation deep in the checker or emitter becomes an E701 Internal
// diagnostic instead of tearing down the host process.
func recoverInternal(filename string, errs *diagnostic.CompileErrors) {
	if r := recover(); r != nil {
		if errs.Errors == nil {
			*errs = diagnostic.Empty()
		}
		errs.PushError(diagnostic.New(filename, diagnostic.Internal, fmt.Sprintf("internal compiler error: %v", r), span.Span{}, ""))
	}
}

var _ = invariant.Invariant
