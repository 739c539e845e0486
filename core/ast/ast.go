// Package ast defines the PEPL abstract syntax tree.
//
// Every node carries a span.Span for diagnostics. Recursive expression
// variants are represented as pointers to keep node construction cheap.
// Node order always matches source order — nothing here is a map.
package ast

import (
	"fmt"
	"strings"

	"github.com/pepl-lang/pepl/core/span"
)

// Node is implemented by every AST node.
type Node interface {
	String() string
	Span() span.Span
}

// Walk calls fn for node and then for every child, depth-first,
// in source order. fn returning false skips node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *Program:
		Walk(&n.SpaceVal, fn)
		for i := range n.Tests {
			Walk(&n.Tests[i], fn)
		}
	case *SpaceDecl:
		Walk(&n.Body, fn)
	case *SpaceBody:
		for i := range n.Types {
			Walk(&n.Types[i], fn)
		}
		Walk(&n.State, fn)
		if n.Capabilities != nil {
			Walk(n.Capabilities, fn)
		}
		if n.Credentials != nil {
			Walk(n.Credentials, fn)
		}
		if n.Derived != nil {
			Walk(n.Derived, fn)
		}
		for i := range n.Invariants {
			Walk(&n.Invariants[i], fn)
		}
		for i := range n.Actions {
			Walk(&n.Actions[i], fn)
		}
		for i := range n.Views {
			Walk(&n.Views[i], fn)
		}
		if n.Update != nil {
			Walk(n.Update, fn)
		}
		if n.HandleEvent != nil {
			Walk(n.HandleEvent, fn)
		}
	case *TypeDecl:
		switch body := n.Body.(type) {
		case SumTypeBody:
			for i := range body.Variants {
				Walk(&body.Variants[i], fn)
			}
		case AliasBody:
			Walk(&body.Type, fn)
		}
	case *VariantDef:
		for i := range n.Params {
			Walk(&n.Params[i], fn)
		}
	case *StateBlock:
		for i := range n.Fields {
			Walk(&n.Fields[i], fn)
		}
	case *StateField:
		Walk(&n.TypeAnn, fn)
		Walk(n.Default, fn)
	case *CapabilitiesBlock:
		// leaf: identifiers only
	case *CredentialsBlock:
		for i := range n.Fields {
			Walk(&n.Fields[i], fn)
		}
	case *CredentialField:
		Walk(&n.TypeAnn, fn)
	case *DerivedBlock:
		for i := range n.Fields {
			Walk(&n.Fields[i], fn)
		}
	case *DerivedField:
		Walk(&n.TypeAnn, fn)
		Walk(n.Value, fn)
	case *InvariantDecl:
		Walk(n.Condition, fn)
	case *ActionDecl:
		for i := range n.Params {
			Walk(&n.Params[i], fn)
		}
		Walk(&n.Body, fn)
	case *Param:
		Walk(&n.TypeAnn, fn)
	case *Block:
		for _, stmt := range n.Stmts {
			Walk(stmt, fn)
		}
	case *ViewDecl:
		for i := range n.Params {
			Walk(&n.Params[i], fn)
		}
		Walk(&n.Body, fn)
	case *UIBlock:
		for _, elem := range n.Elements {
			Walk(elem, fn)
		}
	case *ComponentExpr:
		for i := range n.Props {
			Walk(&n.Props[i], fn)
		}
		if n.Children != nil {
			Walk(n.Children, fn)
		}
	case *PropAssign:
		Walk(n.Value, fn)
	case *UILetElement:
		Walk(&n.Let, fn)
	case *UIIf:
		Walk(n.Condition, fn)
		Walk(&n.ThenBlock, fn)
		switch e := n.ElseBranch.(type) {
		case *UIElseIf:
			Walk(e.If, fn)
		case *UIElseBlock:
			Walk(&e.Block, fn)
		}
	case *UIFor:
		Walk(n.Iterable, fn)
		Walk(&n.Body, fn)
	case *UpdateDecl:
		Walk(&n.Param, fn)
		Walk(&n.Body, fn)
	case *HandleEventDecl:
		Walk(&n.Param, fn)
		Walk(&n.Body, fn)
	case *TestsBlock:
		for i := range n.Cases {
			Walk(&n.Cases[i], fn)
		}
	case *TestCase:
		if n.WithResponses != nil {
			Walk(n.WithResponses, fn)
		}
		Walk(&n.Body, fn)
	case *WithResponses:
		for i := range n.Mappings {
			Walk(&n.Mappings[i], fn)
		}
	case *ResponseMapping:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
		Walk(n.Response, fn)
	case *SetStmt:
		Walk(n.Value, fn)
	case *LetBinding:
		if n.TypeAnn != nil {
			Walk(n.TypeAnn, fn)
		}
		Walk(n.Value, fn)
	case *ReturnStmt:
		// leaf
	case *AssertStmt:
		Walk(n.Condition, fn)
	case *ExprStmt:
		Walk(n.Expr, fn)
	case *Expr:
		walkExprKind(n.Kind, fn)
	case *IfExpr:
		Walk(n.Condition, fn)
		Walk(&n.ThenBlock, fn)
		switch e := n.ElseBranch.(type) {
		case *ElseIfBranch:
			Walk(e.If, fn)
		case *ElseBlockBranch:
			Walk(&e.Block, fn)
		}
	case *ForExpr:
		Walk(n.Iterable, fn)
		Walk(&n.Body, fn)
	case *MatchExpr:
		Walk(n.Subject, fn)
		for i := range n.Arms {
			Walk(&n.Arms[i], fn)
		}
	case *MatchArm:
		switch b := n.Body.(type) {
		case MatchArmExpr:
			Walk(b.Expr, fn)
		case MatchArmBlock:
			Walk(&b.Block, fn)
		}
	case *LambdaExpr:
		for i := range n.Params {
			Walk(&n.Params[i], fn)
		}
		Walk(&n.Body, fn)
	case *TypeAnnotation:
		walkTypeKind(n.Kind, fn)
	case *RecordTypeField:
		Walk(&n.TypeAnn, fn)
	}
}

func walkExprKind(kind ExprKind, fn func(Node) bool) {
	switch k := kind.(type) {
	case ListLit:
		for _, e := range k.Elements {
			Walk(e, fn)
		}
	case RecordLit:
		for _, entry := range k.Entries {
			switch re := entry.(type) {
			case RecordEntryField:
				Walk(re.Value, fn)
			case RecordEntrySpread:
				Walk(re.Value, fn)
			}
		}
	case StringInterpolation:
		for _, part := range k.Parts {
			if e, ok := part.(StringPartExpr); ok {
				Walk(e.Expr, fn)
			}
		}
	case Call:
		for _, a := range k.Args {
			Walk(a, fn)
		}
	case QualifiedCall:
		for _, a := range k.Args {
			Walk(a, fn)
		}
	case FieldAccess:
		Walk(k.Object, fn)
	case MethodCall:
		Walk(k.Object, fn)
		for _, a := range k.Args {
			Walk(a, fn)
		}
	case Binary:
		Walk(k.Left, fn)
		Walk(k.Right, fn)
	case Unary:
		Walk(k.Operand, fn)
	case ResultUnwrap:
		Walk(k.Operand, fn)
	case NilCoalesce:
		Walk(k.Left, fn)
		Walk(k.Right, fn)
	case IfExprKind:
		Walk(k.If, fn)
	case ForExprKind:
		Walk(k.For, fn)
	case MatchExprKind:
		Walk(k.Match, fn)
	case LambdaLit:
		Walk(k.Lambda, fn)
	case Paren:
		Walk(k.Inner, fn)
	}
}

func walkTypeKind(kind TypeKind, fn func(Node) bool) {
	switch k := kind.(type) {
	case ListType:
		Walk(k.Elem, fn)
	case RecordType:
		for i := range k.Fields {
			Walk(&k.Fields[i], fn)
		}
	case ResultType:
		Walk(k.Ok, fn)
		Walk(k.Err, fn)
	case FunctionType:
		for i := range k.Params {
			Walk(&k.Params[i], fn)
		}
		Walk(k.Ret, fn)
	}
}

// ─── Top level ──────────────────────────────────────────────────────────────

// Program is a complete PEPL source file: one space plus zero or more
// tests blocks.
type Program struct {
	SpaceVal SpaceDecl
	Tests    []TestsBlock
	SpanVal  span.Span
}

func (p *Program) Span() span.Span { return p.SpanVal }
func (p *Program) String() string  { return p.SpaceVal.String() }

// SpaceDecl is `space Name { body }`.
type SpaceDecl struct {
	Name    Ident
	Body    SpaceBody
	SpanVal span.Span
}

func (s *SpaceDecl) Span() span.Span { return s.SpanVal }
func (s *SpaceDecl) String() string  { return fmt.Sprintf("space %s", s.Name.Name) }

// SpaceBody holds the enforced block order: types, state, capabilities,
// credentials, derived, invariants, actions, views, update, handleEvent.
type SpaceBody struct {
	Types        []TypeDecl
	State        StateBlock
	Capabilities *CapabilitiesBlock
	Credentials  *CredentialsBlock
	Derived      *DerivedBlock
	Invariants   []InvariantDecl
	Actions      []ActionDecl
	Views        []ViewDecl
	Update       *UpdateDecl
	HandleEvent  *HandleEventDecl
	SpanVal      span.Span
}

func (b *SpaceBody) Span() span.Span { return b.SpanVal }
func (b *SpaceBody) String() string  { return "space body" }

// ─── Identifiers ────────────────────────────────────────────────────────────

// Ident is a spanned identifier.
type Ident struct {
	Name    string
	SpanVal span.Span
}

func NewIdent(name string, s span.Span) Ident { return Ident{Name: name, SpanVal: s} }

func (i *Ident) Span() span.Span { return i.SpanVal }
func (i *Ident) String() string  { return i.Name }

// ─── Type declarations ──────────────────────────────────────────────────────

// TypeDecl is `type Name = ...`.
type TypeDecl struct {
	Name    Ident
	Body    TypeDeclBody
	SpanVal span.Span
}

func (t *TypeDecl) Span() span.Span { return t.SpanVal }
func (t *TypeDecl) String() string  { return fmt.Sprintf("type %s", t.Name.Name) }

// TypeDeclBody is either a sum type or a type alias.
type TypeDeclBody interface{ isTypeDeclBody() }

// SumTypeBody is `type Shape = { Circle(radius: number), Rectangle(...) }`.
type SumTypeBody struct{ Variants []VariantDef }

// AliasBody is `type Meters = number`.
type AliasBody struct{ Type TypeAnnotation }

func (SumTypeBody) isTypeDeclBody() {}
func (AliasBody) isTypeDeclBody()   {}

// VariantDef is a sum type variant: `Circle(radius: number)` or a unit
// variant `Active`.
type VariantDef struct {
	Name    Ident
	Params  []Param
	SpanVal span.Span
}

func (v *VariantDef) Span() span.Span { return v.SpanVal }
func (v *VariantDef) String() string  { return v.Name.Name }

// ─── State & related blocks ─────────────────────────────────────────────────

// StateBlock is `state { field: type = default, ... }`.
type StateBlock struct {
	Fields  []StateField
	SpanVal span.Span
}

func (s *StateBlock) Span() span.Span { return s.SpanVal }
func (s *StateBlock) String() string  { return "state" }

// StateField is a single state field: `count: number = 0`.
type StateField struct {
	Name    Ident
	TypeAnn TypeAnnotation
	Default *Expr
	SpanVal span.Span
}

func (f *StateField) Span() span.Span { return f.SpanVal }
func (f *StateField) String() string  { return f.Name.Name }

// CapabilitiesBlock is `capabilities { required: [...], optional: [...] }`.
type CapabilitiesBlock struct {
	Required []Ident
	Optional []Ident
	SpanVal  span.Span
}

func (c *CapabilitiesBlock) Span() span.Span { return c.SpanVal }
func (c *CapabilitiesBlock) String() string  { return "capabilities" }

// CredentialsBlock is `credentials { api_key: string, ... }`.
type CredentialsBlock struct {
	Fields  []CredentialField
	SpanVal span.Span
}

func (c *CredentialsBlock) Span() span.Span { return c.SpanVal }
func (c *CredentialsBlock) String() string  { return "credentials" }

// CredentialField is `api_key: string`.
type CredentialField struct {
	Name    Ident
	TypeAnn TypeAnnotation
	SpanVal span.Span
}

func (c *CredentialField) Span() span.Span { return c.SpanVal }
func (c *CredentialField) String() string  { return c.Name.Name }

// DerivedBlock is `derived { total: number = list.length(items), ... }`.
type DerivedBlock struct {
	Fields  []DerivedField
	SpanVal span.Span
}

func (d *DerivedBlock) Span() span.Span { return d.SpanVal }
func (d *DerivedBlock) String() string  { return "derived" }

// DerivedField is `total: number = list.length(items)`.
type DerivedField struct {
	Name    Ident
	TypeAnn TypeAnnotation
	Value   *Expr
	SpanVal span.Span
}

func (d *DerivedField) Span() span.Span { return d.SpanVal }
func (d *DerivedField) String() string  { return d.Name.Name }

// ─── Invariants ─────────────────────────────────────────────────────────────

// InvariantDecl is `invariant name { expr }`.
type InvariantDecl struct {
	Name      Ident
	Condition *Expr
	SpanVal   span.Span
}

func (i *InvariantDecl) Span() span.Span { return i.SpanVal }
func (i *InvariantDecl) String() string  { return fmt.Sprintf("invariant %s", i.Name.Name) }

// ─── Actions ────────────────────────────────────────────────────────────────

// ActionDecl is `action name(params) { body }`.
type ActionDecl struct {
	Name    Ident
	Params  []Param
	Body    Block
	SpanVal span.Span
}

func (a *ActionDecl) Span() span.Span { return a.SpanVal }
func (a *ActionDecl) String() string  { return fmt.Sprintf("action %s", a.Name.Name) }

// Param is `name: type`.
type Param struct {
	Name    Ident
	TypeAnn TypeAnnotation
	SpanVal span.Span
}

func (p *Param) Span() span.Span { return p.SpanVal }
func (p *Param) String() string  { return p.Name.Name }

// Block is `{ statements... }`.
type Block struct {
	Stmts   []Stmt
	SpanVal span.Span
}

func (b *Block) Span() span.Span { return b.SpanVal }
func (b *Block) String() string  { return "{ ... }" }

// ─── Views ──────────────────────────────────────────────────────────────────

// ViewDecl is `view name(params) -> Surface { ui_elements... }`.
type ViewDecl struct {
	Name    Ident
	Params  []Param
	Body    UIBlock
	SpanVal span.Span
}

func (v *ViewDecl) Span() span.Span { return v.SpanVal }
func (v *ViewDecl) String() string  { return fmt.Sprintf("view %s", v.Name.Name) }

// UIBlock is `{ ui_elements... }`.
type UIBlock struct {
	Elements []UIElement
	SpanVal  span.Span
}

func (u *UIBlock) Span() span.Span { return u.SpanVal }
func (u *UIBlock) String() string  { return "{ ... }" }

// UIElement is an element inside a UI block.
type UIElement interface {
	Node
	isUIElement()
}

// ComponentExpr is `Text { value: "hello" }` or a component with children.
type ComponentExpr struct {
	Name     Ident
	Props    []PropAssign
	Children *UIBlock
	SpanVal  span.Span
}

func (c *ComponentExpr) Span() span.Span { return c.SpanVal }
func (c *ComponentExpr) String() string  { return c.Name.Name }
func (c *ComponentExpr) isUIElement()    {}

// PropAssign is a prop assignment: `label: "Click me"`.
type PropAssign struct {
	Name    Ident
	Value   *Expr
	SpanVal span.Span
}

func (p *PropAssign) Span() span.Span { return p.SpanVal }
func (p *PropAssign) String() string  { return p.Name.Name }

// UILetElement is `let name = expr` inside a UI block.
type UILetElement struct{ Let LetBinding }

func (u *UILetElement) Span() span.Span { return u.Let.SpanVal }
func (u *UILetElement) String() string  { return u.Let.String() }
func (u *UILetElement) isUIElement()    {}

// UIIf is `if cond { ui... } [else { ui... }]` — bodies contain
// UIElements, not Stmts.
type UIIf struct {
	Condition  *Expr
	ThenBlock  UIBlock
	ElseBranch UIElseBranch
	SpanVal    span.Span
}

func (u *UIIf) Span() span.Span { return u.SpanVal }
func (u *UIIf) String() string  { return "if" }
func (u *UIIf) isUIElement()    {}

// UIElseBranch is the else branch of a UI if.
type UIElseBranch interface{ isUIElseBranch() }

type UIElseIf struct{ If *UIIf }
type UIElseBlock struct{ Block UIBlock }

func (UIElseIf) isUIElseBranch()    {}
func (UIElseBlock) isUIElseBranch() {}

// UIFor is `for item[, index] in expr { ui... }`.
type UIFor struct {
	Item    Ident
	Index   *Ident
	Iterable *Expr
	Body    UIBlock
	SpanVal span.Span
}

func (u *UIFor) Span() span.Span { return u.SpanVal }
func (u *UIFor) String() string  { return "for" }
func (u *UIFor) isUIElement()    {}

// ─── Game loop ──────────────────────────────────────────────────────────────

// UpdateDecl is `update(dt: number) { body }`.
type UpdateDecl struct {
	Param   Param
	Body    Block
	SpanVal span.Span
}

func (u *UpdateDecl) Span() span.Span { return u.SpanVal }
func (u *UpdateDecl) String() string  { return "update" }

// HandleEventDecl is `handleEvent(event: InputEvent) { body }`.
type HandleEventDecl struct {
	Param   Param
	Body    Block
	SpanVal span.Span
}

func (h *HandleEventDecl) Span() span.Span { return h.SpanVal }
func (h *HandleEventDecl) String() string  { return "handleEvent" }

// ─── Tests ──────────────────────────────────────────────────────────────────

// TestsBlock is `tests { test_cases... }`.
type TestsBlock struct {
	Cases   []TestCase
	SpanVal span.Span
}

func (t *TestsBlock) Span() span.Span { return t.SpanVal }
func (t *TestsBlock) String() string  { return "tests" }

// TestCase is `test "description" [with_responses { ... }] { body }`.
type TestCase struct {
	Description   string
	WithResponses *WithResponses
	Body          Block
	SpanVal       span.Span
}

func (t *TestCase) Span() span.Span { return t.SpanVal }
func (t *TestCase) String() string  { return fmt.Sprintf("test %q", t.Description) }

// WithResponses is `with_responses { module.function(args) -> value, ... }`.
type WithResponses struct {
	Mappings []ResponseMapping
	SpanVal  span.Span
}

func (w *WithResponses) Span() span.Span { return w.SpanVal }
func (w *WithResponses) String() string  { return "with_responses" }

// ResponseMapping is `module.function(args) -> value`.
type ResponseMapping struct {
	Module   Ident
	Function Ident
	Args     []*Expr
	Response *Expr
	SpanVal  span.Span
}

func (r *ResponseMapping) Span() span.Span { return r.SpanVal }
func (r *ResponseMapping) String() string {
	return fmt.Sprintf("%s.%s(...)", r.Module.Name, r.Function.Name)
}

// ─── Statements ─────────────────────────────────────────────────────────────

// Stmt is a statement in a code block.
type Stmt interface {
	Node
	isStmt()
}

// SetStmt is `set field = expr` or `set record.field.nested = expr`.
type SetStmt struct {
	Target  []Ident
	Value   *Expr
	SpanVal span.Span
}

func (s *SetStmt) Span() span.Span { return s.SpanVal }
func (s *SetStmt) String() string {
	names := make([]string, len(s.Target))
	for i, id := range s.Target {
		names[i] = id.Name
	}
	return fmt.Sprintf("set %s = ...", strings.Join(names, "."))
}
func (s *SetStmt) isStmt() {}

// LetBinding is `let name: Type = expr` or `let _ = expr` (Name nil).
type LetBinding struct {
	Name    *Ident
	TypeAnn *TypeAnnotation
	Value   *Expr
	SpanVal span.Span
}

func (l *LetBinding) Span() span.Span { return l.SpanVal }
func (l *LetBinding) String() string {
	if l.Name == nil {
		return "let _ = ..."
	}
	return fmt.Sprintf("let %s = ...", l.Name.Name)
}
func (l *LetBinding) isStmt() {}

// ReturnStmt is `return`.
type ReturnStmt struct{ SpanVal span.Span }

func (r *ReturnStmt) Span() span.Span { return r.SpanVal }
func (r *ReturnStmt) String() string  { return "return" }
func (r *ReturnStmt) isStmt()         {}

// AssertStmt is `assert expr [, "message"]`.
type AssertStmt struct {
	Condition *Expr
	Message   *string
	SpanVal   span.Span
}

func (a *AssertStmt) Span() span.Span { return a.SpanVal }
func (a *AssertStmt) String() string  { return "assert ..." }
func (a *AssertStmt) isStmt()         {}

// ExprStmt is a bare expression statement; its value is discarded
// unless it is the last statement in the block.
type ExprStmt struct {
	Expr    *Expr
	SpanVal span.Span
}

func (e *ExprStmt) Span() span.Span { return e.SpanVal }
func (e *ExprStmt) String() string  { return e.Expr.String() }
func (e *ExprStmt) isStmt()         {}

// If, For and Match also appear as statements (they are Expr wrappers
// via ExprKind, so a bare `if`/`for`/`match` parses as ExprStmt).

// ─── Expressions ────────────────────────────────────────────────────────────

// Expr is an expression node: a tagged ExprKind plus its span.
type Expr struct {
	Kind    ExprKind
	SpanVal span.Span
}

func NewExpr(kind ExprKind, s span.Span) *Expr { return &Expr{Kind: kind, SpanVal: s} }

func (e *Expr) Span() span.Span { return e.SpanVal }
func (e *Expr) String() string  { return fmt.Sprintf("%T", e.Kind) }

// ExprKind is the discriminant of Expr.
type ExprKind interface{ isExprKind() }

type NumberLit struct{ Value float64 }
type StringLit struct{ Value string }
type StringInterpolation struct{ Parts []StringPart }
type BoolLit struct{ Value bool }
type NilLit struct{}
type ListLit struct{ Elements []*Expr }
type RecordLit struct{ Entries []RecordEntry }
type Identifier struct{ Name string }
type Call struct {
	Name Ident
	Args []*Expr
}
type QualifiedCall struct {
	Module   Ident
	Function Ident
	Args     []*Expr
}
type FieldAccess struct {
	Object *Expr
	Field  Ident
}
type MethodCall struct {
	Object *Expr
	Method Ident
	Args   []*Expr
}
type Binary struct {
	Left  *Expr
	Op    BinOp
	Right *Expr
}
type Unary struct {
	Op      UnaryOp
	Operand *Expr
}
type ResultUnwrap struct{ Operand *Expr }
type NilCoalesce struct {
	Left  *Expr
	Right *Expr
}
type IfExprKind struct{ If *IfExpr }
type ForExprKind struct{ For *ForExpr }
type MatchExprKind struct{ Match *MatchExpr }
type LambdaLit struct{ Lambda *LambdaExpr }
type Paren struct{ Inner *Expr }

func (NumberLit) isExprKind()           {}
func (StringLit) isExprKind()           {}
func (StringInterpolation) isExprKind() {}
func (BoolLit) isExprKind()             {}
func (NilLit) isExprKind()              {}
func (ListLit) isExprKind()             {}
func (RecordLit) isExprKind()           {}
func (Identifier) isExprKind()          {}
func (Call) isExprKind()                {}
func (QualifiedCall) isExprKind()       {}
func (FieldAccess) isExprKind()         {}
func (MethodCall) isExprKind()          {}
func (Binary) isExprKind()              {}
func (Unary) isExprKind()               {}
func (ResultUnwrap) isExprKind()        {}
func (NilCoalesce) isExprKind()         {}
func (IfExprKind) isExprKind()          {}
func (ForExprKind) isExprKind()         {}
func (MatchExprKind) isExprKind()       {}
func (LambdaLit) isExprKind()           {}
func (Paren) isExprKind()               {}

// StringPart is a part of an interpolated string.
type StringPart interface{ isStringPart() }

type StringPartLiteral struct{ Text string }
type StringPartExpr struct{ Expr *Expr }

func (StringPartLiteral) isStringPart() {}
func (StringPartExpr) isStringPart()    {}

// RecordEntry is an entry in a record literal.
type RecordEntry interface{ isRecordEntry() }

type RecordEntryField struct {
	Name  Ident
	Value *Expr
}
type RecordEntrySpread struct{ Value *Expr }

func (RecordEntryField) isRecordEntry()  {}
func (RecordEntrySpread) isRecordEntry() {}

// BinOp is a binary operator, ordered lowest-precedence first.
type BinOp int

const (
	OpOr BinOp = iota
	OpAnd
	OpEq
	OpNotEq
	OpLess
	OpGreater
	OpLessEq
	OpGreaterEq
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// String renders the operator's source symbol, for error messages.
func (op BinOp) String() string {
	switch op {
	case OpOr:
		return "or"
	case OpAnd:
		return "and"
	case OpEq:
		return "=="
	case OpNotEq:
		return "!="
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpLessEq:
		return "<="
	case OpGreaterEq:
		return ">="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	default:
		return "?"
	}
}

// UnaryOp is a unary operator.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "not"
	}
	return "-"
}

// IfExpr is `if cond { stmts... } [else ...]`.
type IfExpr struct {
	Condition  *Expr
	ThenBlock  Block
	ElseBranch ElseBranch
	SpanVal    span.Span
}

func (i *IfExpr) Span() span.Span { return i.SpanVal }
func (i *IfExpr) String() string  { return "if" }

// ElseBranch is the else branch of an if expression.
type ElseBranch interface{ isElseBranch() }

type ElseIfBranch struct{ If *IfExpr }
type ElseBlockBranch struct{ Block Block }

func (ElseIfBranch) isElseBranch()    {}
func (ElseBlockBranch) isElseBranch() {}

// ForExpr is `for item[, index] in iterable { stmts... }`.
type ForExpr struct {
	Item     Ident
	Index    *Ident
	Iterable *Expr
	Body     Block
	SpanVal  span.Span
}

func (f *ForExpr) Span() span.Span { return f.SpanVal }
func (f *ForExpr) String() string  { return "for" }

// MatchExpr is `match expr { arms... }`.
type MatchExpr struct {
	Subject *Expr
	Arms    []MatchArm
	SpanVal span.Span
}

func (m *MatchExpr) Span() span.Span { return m.SpanVal }
func (m *MatchExpr) String() string  { return "match" }

// MatchArm is `Pattern -> expr` or `Pattern -> { stmts... }`.
type MatchArm struct {
	Pattern Pattern
	Body    MatchArmBody
	SpanVal span.Span
}

func (m *MatchArm) Span() span.Span { return m.SpanVal }
func (m *MatchArm) String() string  { return m.Pattern.String() }

// MatchArmBody is either a single expression or a block.
type MatchArmBody interface{ isMatchArmBody() }

type MatchArmExpr struct{ Expr *Expr }
type MatchArmBlock struct{ Block Block }

func (MatchArmExpr) isMatchArmBody()  {}
func (MatchArmBlock) isMatchArmBody() {}

// Pattern is a pattern in a match arm.
type Pattern interface {
	Node
	isPattern()
}

// VariantPattern is `VariantName` or `VariantName(a, b, c)`.
type VariantPattern struct {
	Name     Ident
	Bindings []Ident
	SpanVal  span.Span
}

func (v *VariantPattern) Span() span.Span { return v.SpanVal }
func (v *VariantPattern) String() string  { return v.Name.Name }
func (v *VariantPattern) isPattern()      {}

// WildcardPattern is `_`.
type WildcardPattern struct{ SpanVal span.Span }

func (w *WildcardPattern) Span() span.Span { return w.SpanVal }
func (w *WildcardPattern) String() string  { return "_" }
func (w *WildcardPattern) isPattern()      {}

// LambdaExpr is `fn(params) { body }` — block-body only.
type LambdaExpr struct {
	Params  []Param
	Body    Block
	SpanVal span.Span
}

func (l *LambdaExpr) Span() span.Span { return l.SpanVal }
func (l *LambdaExpr) String() string  { return "fn(...)" }

// ─── Type annotations ───────────────────────────────────────────────────────

// TypeAnnotation is a type as written in source.
type TypeAnnotation struct {
	Kind    TypeKind
	SpanVal span.Span
}

func NewTypeAnnotation(kind TypeKind, s span.Span) TypeAnnotation {
	return TypeAnnotation{Kind: kind, SpanVal: s}
}

func (t *TypeAnnotation) Span() span.Span { return t.SpanVal }
func (t *TypeAnnotation) String() string  { return fmt.Sprintf("%T", t.Kind) }

// TypeKind is the discriminant of TypeAnnotation.
type TypeKind interface{ isTypeKind() }

type NumberType struct{}
type StringTypeAnn struct{}
type BoolType struct{}
type NilType struct{}
type AnyType struct{}
type ColorType struct{}
type SurfaceType struct{}
type InputEventType struct{}
type ListType struct{ Elem *TypeAnnotation }
type RecordType struct{ Fields []RecordTypeField }
type ResultType struct {
	Ok  *TypeAnnotation
	Err *TypeAnnotation
}
type FunctionType struct {
	Params []TypeAnnotation
	Ret    *TypeAnnotation
}
type NamedType struct{ Name string }

func (NumberType) isTypeKind()     {}
func (StringTypeAnn) isTypeKind()  {}
func (BoolType) isTypeKind()       {}
func (NilType) isTypeKind()        {}
func (AnyType) isTypeKind()        {}
func (ColorType) isTypeKind()      {}
func (SurfaceType) isTypeKind()    {}
func (InputEventType) isTypeKind() {}
func (ListType) isTypeKind()       {}
func (RecordType) isTypeKind()     {}
func (ResultType) isTypeKind()     {}
func (FunctionType) isTypeKind()   {}
func (NamedType) isTypeKind()      {}

// RecordTypeField is a field in an anonymous record type: `name?: Type`.
type RecordTypeField struct {
	Name     Ident
	Optional bool
	TypeAnn  TypeAnnotation
	SpanVal  span.Span
}

func (r *RecordTypeField) Span() span.Span { return r.SpanVal }
func (r *RecordTypeField) String() string  { return r.Name.Name }
