// Package parser turns a token stream into a Program AST.
//
// It is a recursive-descent parser with explicit precedence climbing
// for expressions, a fixed positional state machine enforcing space-body
// section order, and four nesting-depth counters (lambda, record,
// expression, for) backing the structural limits. Errors never abort
// parsing: every failure path pushes a diagnostic and calls
// synchronize() so the cursor lands on a recoverable boundary.
package parser

import (
	"fmt"

	"github.com/pepl-lang/pepl/core/ast"
	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/core/token"
	"github.com/pepl-lang/pepl/runtime/lexer"
)

const (
	maxLambdaDepth = 3
	maxRecordDepth = 4
	maxExprDepth   = 16
	maxForDepth    = 3
)

// Parser holds the token cursor, diagnostic sink, and nesting counters
// for one parse of one source file.
type Parser struct {
	file   *span.SourceFile
	tokens []token.Token
	pos    int
	errs   []diagnostic.PeplError

	lambdaDepth, recordDepth, exprDepth, forDepth int
}

// Parse lexes and parses file into a Program, returning every lexer and
// parser diagnostic in source order.
func Parse(file *span.SourceFile) (*ast.Program, []diagnostic.PeplError) {
	tokens, lexErrs := lexer.Lex(file)
	p := &Parser{file: file, tokens: tokens}
	prog := p.parseProgram()
	errs := make([]diagnostic.PeplError, 0, len(lexErrs)+len(p.errs))
	errs = append(errs, lexErrs...)
	errs = append(errs, p.errs...)
	return prog, errs
}

// ─── Cursor primitives ──────────────────────────────────────────────────────

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) curKind() token.Kind { return p.cur().Kind }

func (p *Parser) atEnd() bool { return p.curKind() == token.Eof }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.curKind() == k }

func (p *Parser) expect(k token.Kind, msg string) (token.Token, bool) {
	if p.check(k) {
		return p.advance(), true
	}
	t := p.cur()
	p.errorAt(diagnostic.UnexpectedToken, t.Span, "%s, found %s", msg, t.Kind)
	return t, false
}

func (p *Parser) skipNewlines() {
	for p.check(token.Newline) {
		p.advance()
	}
}

func (p *Parser) tooManyErrors() bool {
	return len(p.errs) > diagnostic.MaxErrors
}

func (p *Parser) errorAt(code diagnostic.Code, sp span.Span, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	line, _ := p.file.Line(sp.StartLine)
	p.errs = append(p.errs, diagnostic.New(p.file.Name, code, msg, sp, line))
}

var blockKeywords = map[token.Kind]bool{
	token.KwType: true, token.KwState: true, token.KwCapabilities: true,
	token.KwCredentials: true, token.KwDerived: true, token.KwInvariant: true,
	token.KwAction: true, token.KwView: true, token.KwUpdate: true,
	token.KwHandleEvent: true, token.KwTests: true, token.KwTest: true,
}

// synchronize advances past tokens until a newline or a block-level
// keyword is seen, so parsing can continue after an error.
func (p *Parser) synchronize() {
	for !p.atEnd() {
		if p.curKind() == token.Newline {
			p.advance()
			return
		}
		if blockKeywords[p.curKind()] || p.curKind() == token.RBrace {
			return
		}
		p.advance()
	}
}

// bareIdent accepts a plain identifier only — used for binding
// positions (let names, parameter names, declaration names).
func (p *Parser) bareIdent(msg string) ast.Ident {
	t := p.cur()
	if t.Kind == token.Identifier {
		p.advance()
		return ast.NewIdent(t.Text, t.Span)
	}
	p.errorAt(diagnostic.UnexpectedToken, t.Span, "%s, found %s", msg, t.Kind)
	return ast.NewIdent("", t.Span)
}

// identName accepts an identifier or any keyword spelling, per the
// field-name carve-out: record fields, prop names, and dotted-path
// segments may reuse a reserved word.
func (p *Parser) identName() (ast.Ident, bool) {
	t := p.cur()
	if t.Kind == token.Identifier || token.IsKeyword(t.Kind) {
		p.advance()
		return ast.NewIdent(t.Text, t.Span), true
	}
	return ast.Ident{}, false
}

func (p *Parser) fieldIdent(msg string) ast.Ident {
	id, ok := p.identName()
	if !ok {
		p.errorAt(diagnostic.UnexpectedToken, p.cur().Span, "%s, found %s", msg, p.curKind())
		return ast.NewIdent("", p.cur().Span)
	}
	return id
}

// ─── Program & space body ───────────────────────────────────────────────────

func (p *Parser) parseProgram() *ast.Program {
	p.skipNewlines()
	start := p.cur().Span
	space := p.parseSpaceDecl()
	end := space.SpanVal

	var tests []ast.TestsBlock
	p.skipNewlines()
	for p.check(token.KwTests) && !p.tooManyErrors() {
		tb := p.parseTestsBlock()
		tests = append(tests, tb)
		end = tb.SpanVal
		p.skipNewlines()
	}
	return &ast.Program{SpaceVal: space, Tests: tests, SpanVal: start.Merge(end)}
}

func (p *Parser) parseSpaceDecl() ast.SpaceDecl {
	startTok, _ := p.expect(token.KwSpace, "expected 'space'")
	name := p.bareIdent("expected a space name")
	p.expect(token.LBrace, "expected '{' after the space name")
	body := p.parseSpaceBody()
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the space body")
	return ast.SpaceDecl{Name: name, Body: body, SpanVal: startTok.Span.Merge(endTok.Span)}
}

const (
	secType = iota
	secState
	secCapabilities
	secCredentials
	secDerived
	secInvariant
	secAction
	secView
	secUpdate
	secHandleEvent
)

func sectionMulti(sec int) bool {
	switch sec {
	case secType, secInvariant, secAction, secView:
		return true
	}
	return false
}

func sectionName(sec int) string {
	switch sec {
	case secType:
		return "type"
	case secState:
		return "state"
	case secCapabilities:
		return "capabilities"
	case secCredentials:
		return "credentials"
	case secDerived:
		return "derived"
	case secInvariant:
		return "invariant"
	case secAction:
		return "action"
	case secView:
		return "view"
	case secUpdate:
		return "update"
	case secHandleEvent:
		return "handleEvent"
	default:
		return "unknown"
	}
}

func (p *Parser) peekSection() (int, bool) {
	switch p.curKind() {
	case token.KwType:
		return secType, true
	case token.KwState:
		return secState, true
	case token.KwCapabilities:
		return secCapabilities, true
	case token.KwCredentials:
		return secCredentials, true
	case token.KwDerived:
		return secDerived, true
	case token.KwInvariant:
		return secInvariant, true
	case token.KwAction:
		return secAction, true
	case token.KwView:
		return secView, true
	case token.KwUpdate:
		return secUpdate, true
	case token.KwHandleEvent:
		return secHandleEvent, true
	}
	return 0, false
}

// parseSpaceBody enforces the fixed section order with a positional
// state machine: once a later section is seen, earlier sections become
// unavailable. A mis-ordered or duplicated singular section emits E600
// and synchronizes to the next block keyword.
func (p *Parser) parseSpaceBody() ast.SpaceBody {
	start := p.cur().Span
	var body ast.SpaceBody
	lastSec := -1
	stateSeen := false

	p.skipNewlines()
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		sec, ok := p.peekSection()
		if !ok {
			p.errorAt(diagnostic.UnexpectedToken, p.cur().Span, "unexpected token %s in space body", p.curKind())
			p.synchronize()
			p.skipNewlines()
			continue
		}
		if sec < lastSec || (sec == lastSec && !sectionMulti(sec)) {
			p.errorAt(diagnostic.BlockOrderingViolated, p.cur().Span, "%s section is out of order", sectionName(sec))
			p.synchronize()
			p.skipNewlines()
			continue
		}
		lastSec = sec
		switch sec {
		case secType:
			body.Types = append(body.Types, p.parseTypeDecl())
		case secState:
			body.State = p.parseStateBlock()
			stateSeen = true
		case secCapabilities:
			c := p.parseCapabilitiesBlock()
			body.Capabilities = &c
		case secCredentials:
			c := p.parseCredentialsBlock()
			body.Credentials = &c
		case secDerived:
			d := p.parseDerivedBlock()
			body.Derived = &d
		case secInvariant:
			body.Invariants = append(body.Invariants, p.parseInvariantDecl())
		case secAction:
			body.Actions = append(body.Actions, p.parseActionDecl())
		case secView:
			body.Views = append(body.Views, p.parseViewDecl())
		case secUpdate:
			u := p.parseUpdateDecl()
			body.Update = &u
		case secHandleEvent:
			h := p.parseHandleEventDecl()
			body.HandleEvent = &h
		}
		p.skipNewlines()
	}
	if !stateSeen {
		p.errorAt(diagnostic.EmptyStateBlock, p.cur().Span, "space is missing a state block")
	}
	body.SpanVal = start.Merge(p.cur().Span)
	return body
}

// ─── Type declarations ──────────────────────────────────────────────────────

func (p *Parser) parseTypeDecl() ast.TypeDecl {
	startTok, _ := p.expect(token.KwType, "expected 'type'")
	name := p.bareIdent("expected a type name")
	p.expect(token.Eq, "expected '=' after the type name")
	p.skipNewlines()

	var bodyNode ast.TypeDeclBody
	endSpan := name.SpanVal
	if p.check(token.LBrace) {
		p.advance()
		p.skipNewlines()
		var variants []ast.VariantDef
		for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
			variants = append(variants, p.parseVariantDef())
			p.skipNewlines()
			if p.check(token.Comma) {
				p.advance()
				p.skipNewlines()
			}
		}
		endTok, _ := p.expect(token.RBrace, "expected '}' to close the type variants")
		endSpan = endTok.Span
		bodyNode = ast.SumTypeBody{Variants: variants}
	} else {
		ann := p.parseTypeAnnotation()
		endSpan = ann.SpanVal
		bodyNode = ast.AliasBody{Type: ann}
	}
	return ast.TypeDecl{Name: name, Body: bodyNode, SpanVal: startTok.Span.Merge(endSpan)}
}

func (p *Parser) parseVariantDef() ast.VariantDef {
	name := p.bareIdent("expected a variant name")
	var params []ast.Param
	end := name.SpanVal
	if p.check(token.LParen) {
		p.advance()
		for !p.check(token.RParen) && !p.atEnd() {
			params = append(params, p.parseParam())
			if p.check(token.Comma) {
				p.advance()
				p.skipNewlines()
			}
		}
		endTok, _ := p.expect(token.RParen, "expected ')' to close the variant parameters")
		end = endTok.Span
	}
	return ast.VariantDef{Name: name, Params: params, SpanVal: name.SpanVal.Merge(end)}
}

func (p *Parser) parseParam() ast.Param {
	name := p.bareIdent("expected a parameter name")
	p.expect(token.Colon, "expected ':' after the parameter name")
	ann := p.parseTypeAnnotation()
	return ast.Param{Name: name, TypeAnn: ann, SpanVal: name.SpanVal.Merge(ann.SpanVal)}
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(token.LParen, "expected '(' to start the parameter list")
	p.skipNewlines()
	var params []ast.Param
	for !p.check(token.RParen) && !p.atEnd() {
		params = append(params, p.parseParam())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RParen, "expected ')' to close the parameter list")
	return params
}

// parseTypeAnnotation dispatches on the current token. list<T> and
// Result<T,E> reuse the comparison '<'/'>' tokens for generic brackets;
// sum-type variant separation in parseTypeDecl uses brace+comma
// grouping since the token set carries no '|' punctuation.
func (p *Parser) parseTypeAnnotation() ast.TypeAnnotation {
	t := p.cur()
	switch t.Kind {
	case token.KwNumber:
		p.advance()
		return ast.NewTypeAnnotation(ast.NumberType{}, t.Span)
	case token.KwStringMod:
		// lexIdentifier always emits the *Mod kind for the spelling
		// "string"; a type position resolves it to the string type.
		p.advance()
		return ast.NewTypeAnnotation(ast.StringTypeAnn{}, t.Span)
	case token.KwBool:
		p.advance()
		return ast.NewTypeAnnotation(ast.BoolType{}, t.Span)
	case token.KwNil:
		p.advance()
		return ast.NewTypeAnnotation(ast.NilType{}, t.Span)
	case token.KwAny:
		p.advance()
		return ast.NewTypeAnnotation(ast.AnyType{}, t.Span)
	case token.KwColor:
		p.advance()
		return ast.NewTypeAnnotation(ast.ColorType{}, t.Span)
	case token.KwSurface:
		p.advance()
		return ast.NewTypeAnnotation(ast.SurfaceType{}, t.Span)
	case token.KwInputEvent:
		p.advance()
		return ast.NewTypeAnnotation(ast.InputEventType{}, t.Span)
	case token.KwListMod:
		// same *Mod-collision reasoning as the string case above.
		p.advance()
		p.expect(token.Less, "expected '<' after 'list'")
		elem := p.parseTypeAnnotation()
		endTok, _ := p.expect(token.Greater, "expected '>' to close the list type")
		return ast.NewTypeAnnotation(ast.ListType{Elem: &elem}, t.Span.Merge(endTok.Span))
	case token.KwResult:
		p.advance()
		p.expect(token.Less, "expected '<' after 'Result'")
		ok := p.parseTypeAnnotation()
		p.expect(token.Comma, "expected ',' between Result's ok and error types")
		errT := p.parseTypeAnnotation()
		endTok, _ := p.expect(token.Greater, "expected '>' to close the Result type")
		return ast.NewTypeAnnotation(ast.ResultType{Ok: &ok, Err: &errT}, t.Span.Merge(endTok.Span))
	case token.LBrace:
		p.advance()
		p.skipNewlines()
		var fields []ast.RecordTypeField
		for !p.check(token.RBrace) && !p.atEnd() {
			fields = append(fields, p.parseRecordTypeField())
			p.skipNewlines()
			if p.check(token.Comma) {
				p.advance()
				p.skipNewlines()
			}
		}
		endTok, _ := p.expect(token.RBrace, "expected '}' to close the record type")
		return ast.NewTypeAnnotation(ast.RecordType{Fields: fields}, t.Span.Merge(endTok.Span))
	case token.LParen:
		p.advance()
		var params []ast.TypeAnnotation
		for !p.check(token.RParen) && !p.atEnd() {
			params = append(params, p.parseTypeAnnotation())
			if p.check(token.Comma) {
				p.advance()
			}
		}
		p.expect(token.RParen, "expected ')' to close the function type parameters")
		p.expect(token.Arrow, "expected '->' in a function type")
		ret := p.parseTypeAnnotation()
		return ast.NewTypeAnnotation(ast.FunctionType{Params: params, Ret: &ret}, t.Span.Merge(ret.SpanVal))
	case token.Identifier:
		p.advance()
		return ast.NewTypeAnnotation(ast.NamedType{Name: t.Text}, t.Span)
	default:
		p.errorAt(diagnostic.UnknownType, t.Span, "expected a type, found %s", t.Kind)
		p.advance()
		return ast.NewTypeAnnotation(ast.NamedType{Name: "<error>"}, t.Span)
	}
}

func (p *Parser) parseRecordTypeField() ast.RecordTypeField {
	name := p.fieldIdent("expected a field name")
	optional := false
	if p.check(token.Question) {
		p.advance()
		optional = true
	}
	p.expect(token.Colon, "expected ':' after the field name")
	ann := p.parseTypeAnnotation()
	return ast.RecordTypeField{Name: name, Optional: optional, TypeAnn: ann, SpanVal: name.SpanVal.Merge(ann.SpanVal)}
}

// ─── State, capabilities, credentials, derived ──────────────────────────────

func (p *Parser) parseStateBlock() ast.StateBlock {
	startTok, _ := p.expect(token.KwState, "expected 'state'")
	p.expect(token.LBrace, "expected '{' after 'state'")
	p.skipNewlines()
	var fields []ast.StateField
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		fields = append(fields, p.parseStateField())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the state block")
	return ast.StateBlock{Fields: fields, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseStateField() ast.StateField {
	name := p.bareIdent("expected a state field name")
	p.expect(token.Colon, "expected ':' after the field name")
	ann := p.parseTypeAnnotation()
	p.expect(token.Eq, "expected '=' with a default value")
	val := p.parseExpr()
	return ast.StateField{Name: name, TypeAnn: ann, Default: val, SpanVal: name.SpanVal.Merge(val.SpanVal)}
}

func (p *Parser) parseCapabilitiesBlock() ast.CapabilitiesBlock {
	startTok, _ := p.expect(token.KwCapabilities, "expected 'capabilities'")
	p.expect(token.LBrace, "expected '{' after 'capabilities'")
	p.skipNewlines()
	var required, optional []ast.Ident
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		label := p.bareIdent("expected 'required' or 'optional'")
		p.expect(token.Colon, "expected ':' after the capability list label")
		items := p.parseIdentList()
		switch label.Name {
		case "required":
			required = append(required, items...)
		case "optional":
			optional = append(optional, items...)
		default:
			p.errorAt(diagnostic.UnexpectedToken, label.SpanVal, "expected 'required' or 'optional', found %q", label.Name)
		}
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the capabilities block")
	return ast.CapabilitiesBlock{Required: required, Optional: optional, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseIdentList() []ast.Ident {
	p.expect(token.LBracket, "expected '[' to start a list")
	p.skipNewlines()
	var items []ast.Ident
	for !p.check(token.RBracket) && !p.atEnd() {
		items = append(items, p.fieldIdent("expected a name"))
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBracket, "expected ']' to close the list")
	return items
}

func (p *Parser) parseCredentialsBlock() ast.CredentialsBlock {
	startTok, _ := p.expect(token.KwCredentials, "expected 'credentials'")
	p.expect(token.LBrace, "expected '{' after 'credentials'")
	p.skipNewlines()
	var fields []ast.CredentialField
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		name := p.bareIdent("expected a credential name")
		p.expect(token.Colon, "expected ':' after the credential name")
		ann := p.parseTypeAnnotation()
		fields = append(fields, ast.CredentialField{Name: name, TypeAnn: ann, SpanVal: name.SpanVal.Merge(ann.SpanVal)})
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the credentials block")
	return ast.CredentialsBlock{Fields: fields, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseDerivedBlock() ast.DerivedBlock {
	startTok, _ := p.expect(token.KwDerived, "expected 'derived'")
	p.expect(token.LBrace, "expected '{' after 'derived'")
	p.skipNewlines()
	var fields []ast.DerivedField
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		name := p.bareIdent("expected a derived field name")
		p.expect(token.Colon, "expected ':' after the field name")
		ann := p.parseTypeAnnotation()
		p.expect(token.Eq, "expected '=' with a derived expression")
		val := p.parseExpr()
		fields = append(fields, ast.DerivedField{Name: name, TypeAnn: ann, Value: val, SpanVal: name.SpanVal.Merge(val.SpanVal)})
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the derived block")
	return ast.DerivedBlock{Fields: fields, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseInvariantDecl() ast.InvariantDecl {
	startTok, _ := p.expect(token.KwInvariant, "expected 'invariant'")
	name := p.bareIdent("expected an invariant name")
	p.expect(token.LBrace, "expected '{' after the invariant name")
	p.skipNewlines()
	cond := p.parseExpr()
	p.skipNewlines()
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the invariant")
	return ast.InvariantDecl{Name: name, Condition: cond, SpanVal: startTok.Span.Merge(endTok.Span)}
}

// ─── Actions, views, game loop ───────────────────────────────────────────────

func (p *Parser) parseActionDecl() ast.ActionDecl {
	startTok, _ := p.expect(token.KwAction, "expected 'action'")
	name := p.bareIdent("expected an action name")
	params := p.parseParamList()
	body := p.parseBlock()
	return ast.ActionDecl{Name: name, Params: params, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}

func (p *Parser) parseViewDecl() ast.ViewDecl {
	startTok, _ := p.expect(token.KwView, "expected 'view'")
	name := p.bareIdent("expected a view name")
	params := p.parseParamList()
	p.expect(token.Arrow, "expected '->' after the view parameters")
	p.expect(token.KwSurface, "expected 'Surface' as the view return type")
	body := p.parseUIBlock()
	return ast.ViewDecl{Name: name, Params: params, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}

func (p *Parser) parseUpdateDecl() ast.UpdateDecl {
	startTok, _ := p.expect(token.KwUpdate, "expected 'update'")
	p.expect(token.LParen, "expected '(' after 'update'")
	param := p.parseParam()
	p.expect(token.RParen, "expected ')' after the update parameter")
	body := p.parseBlock()
	return ast.UpdateDecl{Param: param, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}

func (p *Parser) parseHandleEventDecl() ast.HandleEventDecl {
	startTok, _ := p.expect(token.KwHandleEvent, "expected 'handleEvent'")
	p.expect(token.LParen, "expected '(' after 'handleEvent'")
	param := p.parseParam()
	p.expect(token.RParen, "expected ')' after the handleEvent parameter")
	body := p.parseBlock()
	return ast.HandleEventDecl{Param: param, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func (p *Parser) parseTestsBlock() ast.TestsBlock {
	startTok, _ := p.expect(token.KwTests, "expected 'tests'")
	p.expect(token.LBrace, "expected '{' after 'tests'")
	p.skipNewlines()
	var cases []ast.TestCase
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		cases = append(cases, p.parseTestCase())
		p.skipNewlines()
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the tests block")
	return ast.TestsBlock{Cases: cases, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseTestCase() ast.TestCase {
	startTok, _ := p.expect(token.KwTest, "expected 'test'")
	descTok, _ := p.expect(token.String, "expected a string description")
	p.skipNewlines()
	var withResp *ast.WithResponses
	if p.check(token.KwWithResponses) {
		w := p.parseWithResponses()
		withResp = &w
		p.skipNewlines()
	}
	body := p.parseBlock()
	return ast.TestCase{Description: descTok.Text, WithResponses: withResp, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}

func (p *Parser) parseWithResponses() ast.WithResponses {
	startTok, _ := p.expect(token.KwWithResponses, "expected 'with_responses'")
	p.expect(token.LBrace, "expected '{' after 'with_responses'")
	p.skipNewlines()
	var mappings []ast.ResponseMapping
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		mappings = append(mappings, p.parseResponseMapping())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the with_responses block")
	return ast.WithResponses{Mappings: mappings, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseResponseMapping() ast.ResponseMapping {
	module := p.fieldIdent("expected a module name")
	p.expect(token.Dot, "expected '.' after the module name")
	function := p.fieldIdent("expected a function name")
	p.expect(token.LParen, "expected '(' after the function name")
	args := p.parseArgs()
	p.expect(token.RParen, "expected ')' to close the response arguments")
	p.expect(token.Arrow, "expected '->' before the mocked response value")
	resp := p.parseExpr()
	return ast.ResponseMapping{Module: module, Function: function, Args: args, Response: resp, SpanVal: module.SpanVal.Merge(resp.SpanVal)}
}

// ─── Blocks & statements ─────────────────────────────────────────────────────

func (p *Parser) parseBlock() ast.Block {
	startTok, _ := p.expect(token.LBrace, "expected '{' to start a block")
	p.skipNewlines()
	var stmts []ast.Stmt
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		stmts = append(stmts, p.parseStmt())
		p.skipStmtEnd()
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close a block")
	return ast.Block{Stmts: stmts, SpanVal: startTok.Span.Merge(endTok.Span)}
}

// skipStmtEnd consumes the newline terminating a statement, or accepts
// a following '}' as implicitly ending the last statement in a block.
func (p *Parser) skipStmtEnd() {
	if p.check(token.Newline) {
		p.skipNewlines()
		return
	}
	if p.check(token.RBrace) || p.atEnd() {
		return
	}
	p.errorAt(diagnostic.UnexpectedToken, p.cur().Span, "expected end of statement, found %s", p.curKind())
	p.synchronize()
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curKind() {
	case token.KwSet:
		return p.parseSetStmt()
	case token.KwLet:
		return p.parseLetBinding()
	case token.KwReturn:
		tok := p.advance()
		return &ast.ReturnStmt{SpanVal: tok.Span}
	case token.KwAssert:
		return p.parseAssertStmt()
	default:
		start := p.cur().Span
		e := p.parseExpr()
		return &ast.ExprStmt{Expr: e, SpanVal: start.Merge(e.SpanVal)}
	}
}

func (p *Parser) parseSetStmt() *ast.SetStmt {
	startTok, _ := p.expect(token.KwSet, "expected 'set'")
	path := []ast.Ident{p.fieldIdent("expected a target name")}
	for p.check(token.Dot) {
		p.advance()
		path = append(path, p.fieldIdent("expected a field name"))
	}
	p.expect(token.Eq, "expected '=' in a set statement")
	val := p.parseExpr()
	return &ast.SetStmt{Target: path, Value: val, SpanVal: startTok.Span.Merge(val.SpanVal)}
}

func (p *Parser) parseLetBinding() *ast.LetBinding {
	startTok, _ := p.expect(token.KwLet, "expected 'let'")
	var namePtr *ast.Ident
	if p.check(token.Underscore) {
		p.advance()
	} else {
		n := p.bareIdent("expected a binding name or '_'")
		namePtr = &n
	}
	var annPtr *ast.TypeAnnotation
	if p.check(token.Colon) {
		p.advance()
		a := p.parseTypeAnnotation()
		annPtr = &a
	}
	p.expect(token.Eq, "expected '=' in a let binding")
	val := p.parseExpr()
	return &ast.LetBinding{Name: namePtr, TypeAnn: annPtr, Value: val, SpanVal: startTok.Span.Merge(val.SpanVal)}
}

func (p *Parser) parseAssertStmt() *ast.AssertStmt {
	startTok, _ := p.expect(token.KwAssert, "expected 'assert'")
	cond := p.parseExpr()
	var msg *string
	end := cond.SpanVal
	if p.check(token.Comma) {
		p.advance()
		tok, ok := p.expect(token.String, "expected a string message after ','")
		if ok {
			s := tok.Text
			msg = &s
			end = tok.Span
		}
	}
	return &ast.AssertStmt{Condition: cond, Message: msg, SpanVal: startTok.Span.Merge(end)}
}

// ─── Expressions — precedence climbing, low to high:
// ??, or, and, ==/!=, </>/<=/>=, +/-, */%, unary, ? (postfix), primary ───────

func (p *Parser) parseExpr() *ast.Expr {
	p.exprDepth++
	defer func() { p.exprDepth-- }()
	if p.exprDepth > maxExprDepth {
		p.errorAt(diagnostic.StructuralLimitExceeded, p.cur().Span, "expression nesting exceeds the structural limit")
	}
	return p.parseNilCoalesce()
}

func (p *Parser) parseNilCoalesce() *ast.Expr {
	left := p.parseOr()
	for p.check(token.QuestionQuestion) {
		p.advance()
		p.skipNewlines()
		right := p.parseOr()
		left = ast.NewExpr(ast.NilCoalesce{Left: left, Right: right}, left.SpanVal.Merge(right.SpanVal))
	}
	return left
}

func (p *Parser) parseOr() *ast.Expr {
	left := p.parseAnd()
	for p.check(token.KwOr) {
		p.advance()
		p.skipNewlines()
		right := p.parseAnd()
		left = ast.NewExpr(ast.Binary{Left: left, Op: ast.OpOr, Right: right}, left.SpanVal.Merge(right.SpanVal))
	}
	return left
}

func (p *Parser) parseAnd() *ast.Expr {
	left := p.parseEquality()
	for p.check(token.KwAnd) {
		p.advance()
		p.skipNewlines()
		right := p.parseEquality()
		left = ast.NewExpr(ast.Binary{Left: left, Op: ast.OpAnd, Right: right}, left.SpanVal.Merge(right.SpanVal))
	}
	return left
}

func (p *Parser) parseEquality() *ast.Expr {
	left := p.parseRelational()
	for p.check(token.EqEq) || p.check(token.NotEq) {
		op := ast.OpEq
		if p.curKind() == token.NotEq {
			op = ast.OpNotEq
		}
		p.advance()
		p.skipNewlines()
		right := p.parseRelational()
		left = ast.NewExpr(ast.Binary{Left: left, Op: op, Right: right}, left.SpanVal.Merge(right.SpanVal))
	}
	return left
}

func (p *Parser) parseRelational() *ast.Expr {
	left := p.parseAdditive()
	for {
		var op ast.BinOp
		switch p.curKind() {
		case token.Less:
			op = ast.OpLess
		case token.Greater:
			op = ast.OpGreater
		case token.LessEq:
			op = ast.OpLessEq
		case token.GreaterEq:
			op = ast.OpGreaterEq
		default:
			return left
		}
		p.advance()
		p.skipNewlines()
		right := p.parseAdditive()
		left = ast.NewExpr(ast.Binary{Left: left, Op: op, Right: right}, left.SpanVal.Merge(right.SpanVal))
	}
}

func (p *Parser) parseAdditive() *ast.Expr {
	left := p.parseMultiplicative()
	for {
		var op ast.BinOp
		switch p.curKind() {
		case token.Plus:
			op = ast.OpAdd
		case token.Minus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		p.skipNewlines()
		right := p.parseMultiplicative()
		left = ast.NewExpr(ast.Binary{Left: left, Op: op, Right: right}, left.SpanVal.Merge(right.SpanVal))
	}
}

func (p *Parser) parseMultiplicative() *ast.Expr {
	left := p.parseUnary()
	for {
		var op ast.BinOp
		switch p.curKind() {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.Percent:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		p.skipNewlines()
		right := p.parseUnary()
		left = ast.NewExpr(ast.Binary{Left: left, Op: op, Right: right}, left.SpanVal.Merge(right.SpanVal))
	}
}

func (p *Parser) parseUnary() *ast.Expr {
	switch p.curKind() {
	case token.Minus:
		tok := p.advance()
		operand := p.parseUnary()
		return ast.NewExpr(ast.Unary{Op: ast.OpNeg, Operand: operand}, tok.Span.Merge(operand.SpanVal))
	case token.KwNot:
		tok := p.advance()
		operand := p.parseUnary()
		return ast.NewExpr(ast.Unary{Op: ast.OpNot, Operand: operand}, tok.Span.Merge(operand.SpanVal))
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() *ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.curKind() {
		case token.Question:
			tok := p.advance()
			expr = ast.NewExpr(ast.ResultUnwrap{Operand: expr}, expr.SpanVal.Merge(tok.Span))
		case token.Dot:
			p.advance()
			name := p.fieldIdent("expected a field or method name")
			if p.check(token.LParen) {
				p.advance()
				args := p.parseArgs()
				endTok, _ := p.expect(token.RParen, "expected ')' to close the method arguments")
				expr = ast.NewExpr(ast.MethodCall{Object: expr, Method: name, Args: args}, expr.SpanVal.Merge(endTok.Span))
			} else {
				expr = ast.NewExpr(ast.FieldAccess{Object: expr, Field: name}, expr.SpanVal.Merge(name.SpanVal))
			}
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []*ast.Expr {
	p.skipNewlines()
	var args []*ast.Expr
	for !p.check(token.RParen) && !p.atEnd() {
		args = append(args, p.parseExpr())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	return args
}

func (p *Parser) parsePrimary() *ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.Number:
		p.advance()
		return ast.NewExpr(ast.NumberLit{Value: t.Value}, t.Span)
	case token.String:
		p.advance()
		return ast.NewExpr(ast.StringLit{Value: t.Text}, t.Span)
	case token.InterpString:
		p.advance()
		return ast.NewExpr(ast.StringInterpolation{Parts: p.parseStringParts(t.Parts)}, t.Span)
	case token.KwTrue:
		p.advance()
		return ast.NewExpr(ast.BoolLit{Value: true}, t.Span)
	case token.KwFalse:
		p.advance()
		return ast.NewExpr(ast.BoolLit{Value: false}, t.Span)
	case token.KwNil:
		p.advance()
		return ast.NewExpr(ast.NilLit{}, t.Span)
	case token.LBracket:
		return p.parseListLit()
	case token.LBrace:
		return p.parseRecordLit()
	case token.LParen:
		p.advance()
		p.skipNewlines()
		inner := p.parseExpr()
		p.skipNewlines()
		endTok, _ := p.expect(token.RParen, "expected ')' to close a parenthesized expression")
		return ast.NewExpr(ast.Paren{Inner: inner}, t.Span.Merge(endTok.Span))
	case token.KwIf:
		ifExpr := p.parseIfExpr()
		return ast.NewExpr(ast.IfExprKind{If: ifExpr}, ifExpr.SpanVal)
	case token.KwFor:
		forExpr := p.parseForExpr()
		return ast.NewExpr(ast.ForExprKind{For: forExpr}, forExpr.SpanVal)
	case token.KwMatch:
		matchExpr := p.parseMatchExpr()
		return ast.NewExpr(ast.MatchExprKind{Match: matchExpr}, matchExpr.SpanVal)
	case token.KwFn:
		lambda := p.parseLambdaExpr()
		return ast.NewExpr(ast.LambdaLit{Lambda: lambda}, lambda.SpanVal)
	case token.Identifier:
		return p.parseIdentOrCall()
	default:
		if token.ModuleNameKinds[t.Kind] {
			return p.parseQualifiedCall()
		}
		p.errorAt(diagnostic.UnexpectedToken, t.Span, "unexpected token in expression: %s", t.Kind)
		p.advance()
		return ast.NewExpr(ast.NilLit{}, t.Span)
	}
}

func (p *Parser) parseStringParts(parts []token.StringPart) []ast.StringPart {
	out := make([]ast.StringPart, len(parts))
	for i, part := range parts {
		if !part.IsExpr {
			out[i] = ast.StringPartLiteral{Text: part.Literal}
			continue
		}
		out[i] = ast.StringPartExpr{Expr: p.parseInterpolatedExpr(part)}
	}
	return out
}

// parseInterpolatedExpr re-lexes and re-parses a string-interpolation
// segment in isolation, then widens its span to cover the segment as it
// appears in the outer source (sub-expression spans stay relative to
// the segment, a deliberate simplification of the full contract).
func (p *Parser) parseInterpolatedExpr(part token.StringPart) *ast.Expr {
	sf := span.NewSourceFile(p.file.Name, part.ExprSource)
	tokens, lexErrs := lexer.Lex(sf)
	sub := &Parser{file: sf, tokens: tokens}
	expr := sub.parseExpr()
	expr.SpanVal = part.ExprSpan
	p.errs = append(p.errs, lexErrs...)
	p.errs = append(p.errs, sub.errs...)
	return expr
}

func (p *Parser) parseIdentOrCall() *ast.Expr {
	t := p.advance()
	if p.check(token.LParen) {
		p.advance()
		args := p.parseArgs()
		endTok, _ := p.expect(token.RParen, "expected ')' to close the call arguments")
		return ast.NewExpr(ast.Call{Name: ast.NewIdent(t.Text, t.Span), Args: args}, t.Span.Merge(endTok.Span))
	}
	return ast.NewExpr(ast.Identifier{Name: t.Text}, t.Span)
}

func (p *Parser) parseQualifiedCall() *ast.Expr {
	modTok := p.advance()
	module := ast.NewIdent(modTok.Text, modTok.Span)
	p.expect(token.Dot, "expected '.' after the module name")
	function := p.fieldIdent("expected a function name")
	p.expect(token.LParen, "expected '(' to start the call arguments")
	args := p.parseArgs()
	endTok, _ := p.expect(token.RParen, "expected ')' to close the call arguments")
	return ast.NewExpr(ast.QualifiedCall{Module: module, Function: function, Args: args}, modTok.Span.Merge(endTok.Span))
}

func (p *Parser) parseListLit() *ast.Expr {
	startTok, _ := p.expect(token.LBracket, "expected '['")
	p.skipNewlines()
	var elems []*ast.Expr
	for !p.check(token.RBracket) && !p.atEnd() {
		elems = append(elems, p.parseExpr())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBracket, "expected ']' to close a list literal")
	return ast.NewExpr(ast.ListLit{Elements: elems}, startTok.Span.Merge(endTok.Span))
}

func (p *Parser) parseRecordLit() *ast.Expr {
	p.recordDepth++
	defer func() { p.recordDepth-- }()
	startTok, _ := p.expect(token.LBrace, "expected '{'")
	if p.recordDepth > maxRecordDepth {
		p.errorAt(diagnostic.StructuralLimitExceeded, startTok.Span, "record literal nesting exceeds the structural limit")
	}
	p.skipNewlines()
	var entries []ast.RecordEntry
	for !p.check(token.RBrace) && !p.atEnd() {
		if p.check(token.Ellipsis) {
			p.advance()
			val := p.parseExpr()
			entries = append(entries, ast.RecordEntrySpread{Value: val})
		} else {
			name := p.fieldIdent("expected a field name")
			p.expect(token.Colon, "expected ':' after the field name")
			val := p.parseExpr()
			entries = append(entries, ast.RecordEntryField{Name: name, Value: val})
		}
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close a record literal")
	return ast.NewExpr(ast.RecordLit{Entries: entries}, startTok.Span.Merge(endTok.Span))
}

// markNewlineBeforeElse allows `}\nelse {` in addition to `} else {` by
// peeking past a single run of newlines and backtracking if no 'else'
// follows.
func (p *Parser) markNewlineBeforeElse() {
	if p.check(token.Newline) {
		save := p.pos
		p.skipNewlines()
		if !p.check(token.KwElse) {
			p.pos = save
		}
	}
}

func (p *Parser) parseIfExpr() *ast.IfExpr {
	startTok, _ := p.expect(token.KwIf, "expected 'if'")
	cond := p.parseExpr()
	then := p.parseBlock()
	end := then.SpanVal
	var elseBranch ast.ElseBranch
	p.markNewlineBeforeElse()
	if p.check(token.KwElse) {
		p.advance()
		if p.check(token.KwIf) {
			nested := p.parseIfExpr()
			elseBranch = ast.ElseIfBranch{If: nested}
			end = nested.SpanVal
		} else {
			blk := p.parseBlock()
			elseBranch = ast.ElseBlockBranch{Block: blk}
			end = blk.SpanVal
		}
	}
	return &ast.IfExpr{Condition: cond, ThenBlock: then, ElseBranch: elseBranch, SpanVal: startTok.Span.Merge(end)}
}

func (p *Parser) parseForExpr() *ast.ForExpr {
	p.forDepth++
	defer func() { p.forDepth-- }()
	startTok, _ := p.expect(token.KwFor, "expected 'for'")
	if p.forDepth > maxForDepth {
		p.errorAt(diagnostic.StructuralLimitExceeded, startTok.Span, "for-loop nesting exceeds the structural limit")
	}
	item := p.bareIdent("expected a loop item name")
	var index *ast.Ident
	if p.check(token.Comma) {
		p.advance()
		idx := p.bareIdent("expected a loop index name")
		index = &idx
	}
	p.expect(token.KwIn, "expected 'in' in a for expression")
	iterable := p.parseExpr()
	body := p.parseBlock()
	return &ast.ForExpr{Item: item, Index: index, Iterable: iterable, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}

func (p *Parser) parseMatchExpr() *ast.MatchExpr {
	startTok, _ := p.expect(token.KwMatch, "expected 'match'")
	subject := p.parseExpr()
	p.expect(token.LBrace, "expected '{' to start the match arms")
	p.skipNewlines()
	var arms []ast.MatchArm
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		arms = append(arms, p.parseMatchArm())
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the match arms")
	return &ast.MatchExpr{Subject: subject, Arms: arms, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseMatchArm() ast.MatchArm {
	pattern := p.parsePattern()
	p.expect(token.Arrow, "expected '->' after the match pattern")
	var body ast.MatchArmBody
	var end span.Span
	if p.check(token.LBrace) {
		blk := p.parseBlock()
		body = ast.MatchArmBlock{Block: blk}
		end = blk.SpanVal
	} else {
		e := p.parseExpr()
		body = ast.MatchArmExpr{Expr: e}
		end = e.SpanVal
	}
	return ast.MatchArm{Pattern: pattern, Body: body, SpanVal: pattern.Span().Merge(end)}
}

func (p *Parser) parsePattern() ast.Pattern {
	if p.check(token.Underscore) {
		tok := p.advance()
		return &ast.WildcardPattern{SpanVal: tok.Span}
	}
	name := p.bareIdent("expected a variant name or '_'")
	var bindings []ast.Ident
	end := name.SpanVal
	if p.check(token.LParen) {
		p.advance()
		for !p.check(token.RParen) && !p.atEnd() {
			bindings = append(bindings, p.bareIdent("expected a binding name"))
			if p.check(token.Comma) {
				p.advance()
			}
		}
		endTok, _ := p.expect(token.RParen, "expected ')' to close the variant bindings")
		end = endTok.Span
	}
	return &ast.VariantPattern{Name: name, Bindings: bindings, SpanVal: name.SpanVal.Merge(end)}
}

func (p *Parser) parseLambdaExpr() *ast.LambdaExpr {
	p.lambdaDepth++
	defer func() { p.lambdaDepth-- }()
	startTok, _ := p.expect(token.KwFn, "expected 'fn'")
	if p.lambdaDepth > maxLambdaDepth {
		p.errorAt(diagnostic.StructuralLimitExceeded, startTok.Span, "lambda nesting exceeds the structural limit")
	}
	params := p.parseParamList()
	if !p.check(token.LBrace) {
		p.errorAt(diagnostic.ExpressionBodyLambda, p.cur().Span, "a lambda body must be a block")
	}
	body := p.parseBlock()
	return &ast.LambdaExpr{Params: params, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}

// ─── UI blocks ───────────────────────────────────────────────────────────────

func (p *Parser) parseUIBlock() ast.UIBlock {
	startTok, _ := p.expect(token.LBrace, "expected '{' to start a UI block")
	p.skipNewlines()
	var elems []ast.UIElement
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		elems = append(elems, p.parseUIElement())
		p.skipNewlines()
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close a UI block")
	return ast.UIBlock{Elements: elems, SpanVal: startTok.Span.Merge(endTok.Span)}
}

func (p *Parser) parseUIElement() ast.UIElement {
	switch p.curKind() {
	case token.KwLet:
		l := p.parseLetBinding()
		return &ast.UILetElement{Let: *l}
	case token.KwIf:
		return p.parseUIIf()
	case token.KwFor:
		return p.parseUIFor()
	case token.Identifier:
		return p.parseComponentExpr()
	default:
		t := p.cur()
		p.errorAt(diagnostic.UnexpectedToken, t.Span, "expected a UI element, found %s", t.Kind)
		p.advance()
		return &ast.ComponentExpr{Name: ast.NewIdent("", t.Span), SpanVal: t.Span}
	}
}

func (p *Parser) parseComponentExpr() *ast.ComponentExpr {
	nameTok := p.advance()
	if c := nameTok.Text[0]; c < 'A' || c > 'Z' {
		p.errorAt(diagnostic.UnexpectedToken, nameTok.Span, "component name %q must start with an uppercase letter", nameTok.Text)
	}
	name := ast.NewIdent(nameTok.Text, nameTok.Span)
	p.expect(token.LBrace, "expected '{' to start the component properties")
	p.skipNewlines()
	var props []ast.PropAssign
	for !p.check(token.RBrace) && !p.atEnd() && !p.tooManyErrors() {
		pname := p.fieldIdent("expected a property name")
		p.expect(token.Colon, "expected ':' after the property name")
		val := p.parseExpr()
		props = append(props, ast.PropAssign{Name: pname, Value: val, SpanVal: pname.SpanVal.Merge(val.SpanVal)})
		p.skipNewlines()
		if p.check(token.Comma) {
			p.advance()
			p.skipNewlines()
		}
	}
	endTok, _ := p.expect(token.RBrace, "expected '}' to close the component properties")
	end := endTok.Span
	var children *ast.UIBlock
	if p.check(token.LBrace) {
		blk := p.parseUIBlock()
		children = &blk
		end = blk.SpanVal
	}
	return &ast.ComponentExpr{Name: name, Props: props, Children: children, SpanVal: nameTok.Span.Merge(end)}
}

func (p *Parser) parseUIIf() *ast.UIIf {
	startTok, _ := p.expect(token.KwIf, "expected 'if'")
	cond := p.parseExpr()
	then := p.parseUIBlock()
	end := then.SpanVal
	var elseBranch ast.UIElseBranch
	p.markNewlineBeforeElse()
	if p.check(token.KwElse) {
		p.advance()
		if p.check(token.KwIf) {
			nested := p.parseUIIf()
			elseBranch = ast.UIElseIf{If: nested}
			end = nested.SpanVal
		} else {
			blk := p.parseUIBlock()
			elseBranch = ast.UIElseBlock{Block: blk}
			end = blk.SpanVal
		}
	}
	return &ast.UIIf{Condition: cond, ThenBlock: then, ElseBranch: elseBranch, SpanVal: startTok.Span.Merge(end)}
}

func (p *Parser) parseUIFor() *ast.UIFor {
	p.forDepth++
	defer func() { p.forDepth-- }()
	startTok, _ := p.expect(token.KwFor, "expected 'for'")
	item := p.bareIdent("expected a loop item name")
	var index *ast.Ident
	if p.check(token.Comma) {
		p.advance()
		idx := p.bareIdent("expected a loop index name")
		index = &idx
	}
	p.expect(token.KwIn, "expected 'in' in a for expression")
	iterable := p.parseExpr()
	body := p.parseUIBlock()
	return &ast.UIFor{Item: item, Index: index, Iterable: iterable, Body: body, SpanVal: startTok.Span.Merge(body.SpanVal)}
}
