// Package diagnostic defines the structured error/warning shape the
// compiler reports. A view layer renders these directly — it must
// never parse free-form message strings.
package diagnostic

import (
	"fmt"

	"github.com/pepl-lang/pepl/core/span"
)

// MaxErrors bounds how many errors are retained in a CompileErrors;
// total_errors keeps counting past it.
const MaxErrors = 20

// Severity distinguishes a hard error from a warning.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Category buckets an ErrorCode by its hundred-range.
type Category string

const (
	CategorySyntax    Category = "syntax"
	CategoryType      Category = "type"
	CategoryInvariant Category = "invariant"
	CategoryCapability Category = "capability"
	CategoryScope     Category = "scope"
	CategoryStructure Category = "structure"
	CategoryCodegen   Category = "codegen"
)

// Code is a numeric compiler error code (E100-E704).
type Code uint16

const (
	// Syntax errors (E100-E199)
	UnexpectedToken Code = 100
	UnclosedBrace   Code = 101
	InvalidKeyword  Code = 102

	// Type errors (E200-E299)
	UnknownType        Code = 200
	TypeMismatch       Code = 201
	WrongArgCount       Code = 202
	NonExhaustiveMatch Code = 210

	// Invariant errors (E300-E399)
	InvariantUnreachable Code = 300
	InvariantUnknownField Code = 301

	// Capability errors (E400-E499)
	UndeclaredCapability Code = 400
	CapabilityUnavailable Code = 401
	UnknownComponent     Code = 402

	// Scope errors (E500-E599)
	VariableAlreadyDeclared Code = 500
	StateMutatedOutsideAction Code = 501
	RecursionNotAllowed     Code = 502

	// Structure errors (E600-E699)
	BlockOrderingViolated   Code = 600
	DerivedFieldModified    Code = 601
	ExpressionBodyLambda    Code = 602
	BlockCommentUsed        Code = 603
	UndeclaredCredential    Code = 604
	CredentialModified      Code = 605
	EmptyStateBlock         Code = 606
	StructuralLimitExceeded Code = 607

	// Codegen errors (E700-E704)
	Unsupported       Code = 700
	Internal          Code = 701
	ValidationFailed  Code = 702
	UnresolvedSymbol  Code = 703
	LimitExceeded     Code = 704
)

// Category returns the bucket this code falls into.
func (c Code) Category() Category {
	switch {
	case c >= 100 && c <= 199:
		return CategorySyntax
	case c >= 200 && c <= 299:
		return CategoryType
	case c >= 300 && c <= 399:
		return CategoryInvariant
	case c >= 400 && c <= 499:
		return CategoryCapability
	case c >= 500 && c <= 599:
		return CategoryScope
	case c >= 600 && c <= 699:
		return CategoryStructure
	case c >= 700 && c <= 799:
		return CategoryCodegen
	default:
		return CategorySyntax
	}
}

func (c Code) String() string { return fmt.Sprintf("E%d", uint16(c)) }

// PeplError is a single structured compiler diagnostic. JSON field
// names for the span portion are spelled out explicitly (line,
// column, end_line, end_column) rather than embedding span.Span's own
// json tags, because the wire format and the in-memory span
// representation are allowed to diverge.
type PeplError struct {
	File       string   `json:"file"`
	Code       Code     `json:"code"`
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Message    string   `json:"message"`
	Line       uint32   `json:"line"`
	Column     uint32   `json:"column"`
	EndLine    uint32   `json:"end_line"`
	EndColumn  uint32   `json:"end_column"`
	SourceLine string   `json:"source_line"`
	Suggestion *string  `json:"suggestion,omitempty"`
}

// New builds an error-severity PeplError at the given span.
func New(file string, code Code, message string, sp span.Span, sourceLine string) PeplError {
	return PeplError{
		File:       file,
		Code:       code,
		Severity:   SeverityError,
		Category:   code.Category(),
		Message:    message,
		Line:       sp.StartLine,
		Column:     sp.StartCol,
		EndLine:    sp.EndLine,
		EndColumn:  sp.EndCol,
		SourceLine: sourceLine,
	}
}

// WithSuggestion attaches a fix suggestion and returns the updated value.
func (e PeplError) WithSuggestion(suggestion string) PeplError {
	e.Suggestion = &suggestion
	return e
}

func (e PeplError) Span() span.Span {
	return span.New(e.Line, e.Column, e.EndLine, e.EndColumn)
}

func (e PeplError) String() string {
	return fmt.Sprintf("%d:%d: %s [%s] %s", e.Line, e.Column, e.Code, e.Category, e.Message)
}

func (e PeplError) Error() string { return e.String() }

// CompileErrors accumulates errors and warnings for a single compile,
// capping stored errors at MaxErrors while keeping an exact count.
type CompileErrors struct {
	Errors        []PeplError `json:"errors"`
	Warnings      []PeplError `json:"warnings"`
	TotalErrors   int         `json:"total_errors"`
	TotalWarnings int         `json:"total_warnings"`
}

// Empty returns a CompileErrors with no errors or warnings.
func Empty() CompileErrors {
	return CompileErrors{Errors: []PeplError{}, Warnings: []PeplError{}}
}

func (c *CompileErrors) HasErrors() bool { return c.TotalErrors > 0 }

// PushError records an error, respecting MaxErrors for storage while
// total_errors always increments.
func (c *CompileErrors) PushError(err PeplError) {
	if len(c.Errors) < MaxErrors {
		c.Errors = append(c.Errors, err)
	}
	c.TotalErrors++
}

// PushWarning records a warning. Warnings are never capped.
func (c *CompileErrors) PushWarning(warn PeplError) {
	warn.Severity = SeverityWarning
	c.Warnings = append(c.Warnings, warn)
	c.TotalWarnings++
}
