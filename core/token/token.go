// Package token defines the lexical token set the parser consumes.
//
// Tokens are produced by runtime/lexer and carry a span so every syntax
// error can point at an exact source location.
package token

import (
	"fmt"

	"github.com/pepl-lang/pepl/core/span"
)

// Kind discriminates a token. The zero value is Illegal.
type Kind int

const (
	Illegal Kind = iota
	Eof
	Newline

	Identifier
	Number
	String
	InterpString // interpolated string; Token.Parts holds its segments

	// Literal keywords
	KwTrue
	KwFalse
	KwNil

	// Structural keywords
	KwSpace
	KwState
	KwAction
	KwView
	KwDerived
	KwInvariant
	KwCapabilities
	KwCredentials
	KwTests
	KwTest
	KwAssert
	KwSet
	KwLet
	KwIf
	KwElse
	KwFor
	KwIn
	KwMatch
	KwReturn
	KwType
	KwUpdate
	KwHandleEvent
	KwFn
	KwAnd
	KwOr
	KwNot
	KwWithResponses

	// Type keywords
	KwNumber
	KwString
	KwBool
	KwColor
	KwSurface
	KwInputEvent
	KwResult
	KwList
	KwAny

	// Module-name keywords
	KwCore
	KwMath
	KwStringMod // disambiguated from KwString (type) in module position
	KwListMod
	KwRecord
	KwTime
	KwConvert
	KwJson
	KwTimer
	KwHttp
	KwStorage
	KwLocation
	KwNotifications
	KwClipboard
	KwShare

	// Punctuation
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Comma
	Colon
	Dot
	Question
	Underscore
	Arrow // ->
	Eq
	EqEq
	NotEq
	Less
	Greater
	LessEq
	GreaterEq
	Plus
	Minus
	Star
	Slash
	Percent
	QuestionQuestion // ??
	Ellipsis         // ...
)

var names = map[Kind]string{
	Illegal:          "illegal",
	Eof:              "eof",
	Newline:          "newline",
	Identifier:       "identifier",
	Number:           "number",
	String:           "string",
	KwTrue:           "true",
	KwFalse:          "false",
	KwNil:            "nil",
	KwSpace:          "space",
	KwState:          "state",
	KwAction:         "action",
	KwView:           "view",
	KwDerived:        "derived",
	KwInvariant:      "invariant",
	KwCapabilities:   "capabilities",
	KwCredentials:    "credentials",
	KwTests:          "tests",
	KwTest:           "test",
	KwAssert:         "assert",
	KwSet:            "set",
	KwLet:            "let",
	KwIf:             "if",
	KwElse:           "else",
	KwFor:            "for",
	KwIn:             "in",
	KwMatch:          "match",
	KwReturn:         "return",
	KwType:           "type",
	KwUpdate:         "update",
	KwHandleEvent:    "handleEvent",
	KwFn:             "fn",
	KwAnd:            "and",
	KwOr:             "or",
	KwNot:            "not",
	KwWithResponses:  "with_responses",
	KwNumber:         "number",
	KwBool:           "bool",
	KwColor:          "color",
	KwSurface:        "Surface",
	KwInputEvent:     "InputEvent",
	KwResult:         "Result",
	KwList:           "list",
	KwAny:            "any",
	KwCore:           "core",
	KwMath:           "math",
	KwStringMod:      "string",
	KwListMod:        "list",
	KwRecord:         "record",
	KwTime:           "time",
	KwConvert:        "convert",
	KwJson:           "json",
	KwTimer:          "timer",
	KwHttp:           "http",
	KwStorage:        "storage",
	KwLocation:       "location",
	KwNotifications:  "notifications",
	KwClipboard:      "clipboard",
	KwShare:          "share",
	LBrace:           "{",
	RBrace:           "}",
	LParen:           "(",
	RParen:           ")",
	LBracket:         "[",
	RBracket:         "]",
	Comma:            ",",
	Colon:            ":",
	Dot:              ".",
	Question:         "?",
	Underscore:       "_",
	Arrow:            "->",
	Eq:               "=",
	EqEq:             "==",
	NotEq:            "!=",
	Less:             "<",
	Greater:          ">",
	LessEq:           "<=",
	GreaterEq:        ">=",
	Plus:             "+",
	Minus:            "-",
	Star:             "*",
	Slash:            "/",
	Percent:          "%",
	QuestionQuestion: "??",
	Ellipsis:         "...",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Keywords maps the reserved-word spelling to its Kind. Module-name
// keywords deliberately collide in spelling with type keywords (string,
// list) — the lexer emits the *Mod variant only when scanning; the
// parser's expect_ident_or_module_name-equivalent re-accepts either
// spelling as an identifier in qualified-call position.
var Keywords = map[string]Kind{
	"true":           KwTrue,
	"false":          KwFalse,
	"nil":            KwNil,
	"space":          KwSpace,
	"state":          KwState,
	"action":         KwAction,
	"view":           KwView,
	"derived":        KwDerived,
	"invariant":      KwInvariant,
	"capabilities":   KwCapabilities,
	"credentials":    KwCredentials,
	"tests":          KwTests,
	"test":           KwTest,
	"assert":         KwAssert,
	"set":            KwSet,
	"let":            KwLet,
	"if":             KwIf,
	"else":           KwElse,
	"for":            KwFor,
	"in":             KwIn,
	"match":          KwMatch,
	"return":         KwReturn,
	"type":           KwType,
	"update":         KwUpdate,
	"handleEvent":    KwHandleEvent,
	"fn":             KwFn,
	"and":            KwAnd,
	"or":             KwOr,
	"not":            KwNot,
	"with_responses": KwWithResponses,
	"number":         KwNumber,
	"bool":           KwBool,
	"color":          KwColor,
	"Surface":        KwSurface,
	"InputEvent":     KwInputEvent,
	"Result":         KwResult,
	"any":            KwAny,
	"core":           KwCore,
	"math":           KwMath,
	"string":         KwStringMod,
	"list":           KwListMod,
	"record":         KwRecord,
	"time":           KwTime,
	"convert":        KwConvert,
	"json":           KwJson,
	"timer":          KwTimer,
	"http":           KwHttp,
	"storage":        KwStorage,
	"location":       KwLocation,
	"notifications":  KwNotifications,
	"clipboard":      KwClipboard,
	"share":          KwShare,
}

// ModuleNameKinds is the fixed set of stdlib-module keywords that may
// appear as a plain identifier in qualified-call or field-name position
// (spec §6, "module-name keywords").
var ModuleNameKinds = map[Kind]bool{
	KwCore: true, KwMath: true, KwStringMod: true, KwListMod: true,
	KwRecord: true, KwTime: true, KwConvert: true, KwJson: true,
	KwTimer: true, KwHttp: true, KwStorage: true, KwLocation: true,
	KwNotifications: true, KwClipboard: true, KwShare: true,
}

// IsKeyword reports whether k is a reserved word (including module
// names, but not the true/false/nil literals), i.e. a token kind that is
// contextually valid as a field/member name per the grammar's
// field-name carve-out.
func IsKeyword(k Kind) bool {
	switch k {
	case KwTrue, KwFalse, KwNil:
		return false // literal tokens never double as names
	}
	_, isModule := ModuleNameKinds[k]
	if isModule {
		return true
	}
	for _, kw := range Keywords {
		if kw == k {
			return true
		}
	}
	return false
}

// StringPart is one literal or expression segment inside an
// interpolated string. The lexer does not evaluate expression
// segments — it reports the raw source text, which the parser
// re-lexes and parses as a nested expression.
type StringPart struct {
	Literal    string
	IsExpr     bool
	ExprSource string
	ExprSpan   span.Span
}

// Token is a single lexical token with its source span.
type Token struct {
	Kind  Kind
	Text  string // raw source text, or decoded value for strings
	Value float64
	Parts []StringPart // only set when Kind indicates an interpolated string
	Span  span.Span
}

func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Kind.String()
}
