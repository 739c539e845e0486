// Package checker performs semantic type checking over a parsed
// Program: type resolution, scope-aware name resolution, capability
// gating, purity rules for views and derived fields, and structural
// rules (exhaustive match, no derived/credential mutation, no
// same-scope shadowing, no runaway action recursion).
package checker

import (
	"fmt"

	"github.com/pepl-lang/pepl/core/ast"
	"github.com/pepl-lang/pepl/core/diagnostic"
	"github.com/pepl-lang/pepl/core/span"
	"github.com/pepl-lang/pepl/core/types"
	"github.com/pepl-lang/pepl/runtime/stdlib"
	"github.com/pepl-lang/pepl/runtime/validation"
)

var uiComponentAllowList = map[string]bool{
	"Column":      true,
	"Row":         true,
	"Text":        true,
	"TextInput":   true,
	"Button":      true,
	"ProgressBar": true,
	"Modal":       true,
}

// Checker carries all state accumulated while checking one Program.
type Checker struct {
	file   *span.SourceFile
	env    *TypeEnv
	stdlib *stdlib.Registry
	errs   []diagnostic.PeplError

	// variantOwner maps a sum-type variant name to the *types.Type of
	// the sum type that declares it, so `Circle(1)` resolves as a
	// constructor call without a dedicated construction syntax.
	variantOwner     map[string]*types.Type
	typeDefs         map[string]*types.Type
	stateFields      map[string]*types.Type
	derivedFields    map[string]*types.Type
	credentialFields map[string]*types.Type
	actionSigs       map[string]*types.Type

	requiredCaps map[string]bool
	optionalCaps map[string]bool

	extraComponents map[string]bool
}

// New builds an empty checker bound to file, ready for Check.
func New(file *span.SourceFile) *Checker {
	return &Checker{
		file:             file,
		env:              NewTypeEnv(),
		stdlib:           stdlib.New(),
		variantOwner:     map[string]*types.Type{},
		typeDefs:         map[string]*types.Type{},
		stateFields:      map[string]*types.Type{},
		derivedFields:    map[string]*types.Type{},
		credentialFields: map[string]*types.Type{},
		actionSigs:       map[string]*types.Type{},
		requiredCaps:     map[string]bool{},
		optionalCaps:     map[string]bool{},
		extraComponents:  map[string]bool{},
	}
}

// Check type-checks prog and returns the accumulated diagnostics
// (empty if the program is well-typed).
func Check(file *span.SourceFile, prog *ast.Program) []diagnostic.PeplError {
	c := New(file)
	c.checkProgram(prog)
	return c.errs
}

func (c *Checker) errorAt(code diagnostic.Code, sp span.Span, format string, args ...any) {
	if len(c.errs) > diagnostic.MaxErrors*4 {
		return
	}
	line, _ := c.file.Line(sp.StartLine)
	msg := fmt.Sprintf(format, args...)
	c.errs = append(c.errs, diagnostic.New(c.file.Name, code, msg, sp, line))
}

func (c *Checker) checkProgram(prog *ast.Program) {
	body := &prog.SpaceVal.Body

	// Phase 1: seed user type declarations so forward references
	// (a field of type Shape declared before `type Shape = ...`) resolve.
	for i := range body.Types {
		td := &body.Types[i]
		switch tb := td.Body.(type) {
		case ast.SumTypeBody:
			variants := make([]types.SumVariant, len(tb.Variants))
			for vi, v := range tb.Variants {
				params := make([]types.Param, len(v.Params))
				for pi, p := range v.Params {
					params[pi] = types.Param{Name: p.Name.Name, Type: types.FromAnnotation(&p.TypeAnn)}
				}
				variants[vi] = types.SumVariant{Name: v.Name.Name, Params: params}
			}
			sumType := types.NewSumType(td.Name.Name, variants)
			c.typeDefs[td.Name.Name] = sumType
			for _, v := range variants {
				c.variantOwner[v.Name] = sumType
			}
		case ast.AliasBody:
			c.typeDefs[td.Name.Name] = types.FromAnnotation(&tb.Type)
		}
	}

	// Phase 2: resolve state/derived/credential field types and
	// check state default-value expressions against their declared type.
	for i := range body.State.Fields {
		f := &body.State.Fields[i]
		ft := c.resolveAnnotation(&f.TypeAnn)
		c.stateFields[f.Name.Name] = ft
		if f.Default != nil {
			dt := c.checkExpr(f.Default)
			if !dt.IsAssignableTo(ft) {
				c.errorAt(diagnostic.TypeMismatch, f.Default.Span(),
					"state field %q declared as %s but default is %s", f.Name.Name, ft, dt)
			}
		}
	}

	if body.Capabilities != nil {
		for _, id := range body.Capabilities.Required {
			c.requiredCaps[id.Name] = true
		}
		for _, id := range body.Capabilities.Optional {
			c.optionalCaps[id.Name] = true
		}
	}

	if body.Credentials != nil {
		for i := range body.Credentials.Fields {
			f := &body.Credentials.Fields[i]
			c.credentialFields[f.Name.Name] = c.resolveAnnotation(&f.TypeAnn)
		}
	}

	// Derived field types and bodies need every state/credential name
	// visible, but derived fields may also reference one another, so
	// seed the names before checking any bodies.
	if body.Derived != nil {
		for i := range body.Derived.Fields {
			f := &body.Derived.Fields[i]
			c.derivedFields[f.Name.Name] = c.resolveAnnotation(&f.TypeAnn)
		}
		for i := range body.Derived.Fields {
			f := &body.Derived.Fields[i]
			c.env.PushScope(ScopeDerived)
			dt := c.checkExpr(f.Value)
			c.env.PopScope()
			want := c.derivedFields[f.Name.Name]
			if !dt.IsAssignableTo(want) {
				c.errorAt(diagnostic.TypeMismatch, f.Value.Span(),
					"derived field %q declared as %s but computed %s", f.Name.Name, want, dt)
			}
		}
	}

	// Phase 3: seed action signatures so calls to actions declared
	// later in the file (or calling each other) resolve.
	for i := range body.Actions {
		a := &body.Actions[i]
		params := make([]*types.Type, len(a.Params))
		for pi, p := range a.Params {
			params[pi] = c.resolveAnnotation(&p.TypeAnn)
		}
		c.actionSigs[a.Name.Name] = types.NewFunction(params, types.TVoid)
	}

	// Phase 4: check invariants, actions, views, update, handleEvent, tests.
	for i := range body.Invariants {
		c.checkInvariant(&body.Invariants[i])
	}
	for i := range body.Actions {
		c.checkAction(&body.Actions[i])
	}
	for i := range body.Views {
		c.checkView(&body.Views[i])
	}
	if body.Update != nil {
		c.env.PushScope(ScopeUpdate)
		c.env.Define(body.Update.Param.Name.Name, c.resolveAnnotation(&body.Update.Param.TypeAnn))
		c.checkBlock(&body.Update.Body)
		c.env.PopScope()
	}
	if body.HandleEvent != nil {
		c.env.PushScope(ScopeHandleEvent)
		c.env.Define(body.HandleEvent.Param.Name.Name, c.resolveAnnotation(&body.HandleEvent.Param.TypeAnn))
		c.checkBlock(&body.HandleEvent.Body)
		c.env.PopScope()
	}
	for i := range prog.Tests {
		for j := range prog.Tests[i].Cases {
			c.checkTestCase(&prog.Tests[i].Cases[j])
		}
	}

	// Phase 6 (action recursion, E502) runs last: it only needs the
	// action bodies' call graphs, which are fully known by now.
	c.checkRecursion(body.Actions)
}

func (c *Checker) resolveAnnotation(ann *ast.TypeAnnotation) *types.Type {
	if nt, ok := ann.Kind.(ast.NamedType); ok {
		if t, ok := c.typeDefs[nt.Name]; ok {
			return t
		}
		c.errorAt(diagnostic.UnknownType, ann.Span(), "unknown type %q", nt.Name)
		return types.TUnknown
	}
	return types.FromAnnotation(ann)
}

func (c *Checker) checkInvariant(inv *ast.InvariantDecl) {
	c.env.PushScope(ScopeInvariant)
	ct := c.checkExpr(inv.Condition)
	c.env.PopScope()
	if !ct.IsBool() {
		c.errorAt(diagnostic.TypeMismatch, inv.Condition.Span(),
			"invariant %q condition must be bool, got %s", inv.Name.Name, ct)
	}
}

func (c *Checker) checkAction(a *ast.ActionDecl) {
	c.env.PushScope(ScopeAction)
	for _, p := range a.Params {
		c.env.Define(p.Name.Name, c.resolveAnnotation(&p.TypeAnn))
	}
	c.checkBlock(&a.Body)
	c.env.PopScope()
}

func (c *Checker) checkView(v *ast.ViewDecl) {
	c.env.PushScope(ScopeView)
	for _, p := range v.Params {
		c.env.Define(p.Name.Name, c.resolveAnnotation(&p.TypeAnn))
	}
	c.checkUIBlock(&v.Body)
	c.env.PopScope()
}

func (c *Checker) checkTestCase(tc *ast.TestCase) {
	c.env.PushScope(ScopeTestCase)
	if tc.WithResponses != nil {
		for i := range tc.WithResponses.Mappings {
			m := &tc.WithResponses.Mappings[i]
			for _, a := range m.Args {
				c.checkExpr(a)
			}
			c.checkExpr(m.Response)
		}
	}
	c.checkBlock(&tc.Body)
	c.env.PopScope()
}

func (c *Checker) checkBlock(b *ast.Block) {
	c.env.PushScope(ScopeBlock)
	for _, stmt := range b.Stmts {
		c.checkStmt(stmt)
	}
	c.env.PopScope()
}

func (c *Checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.SetStmt:
		c.checkSetStmt(s)
	case *ast.LetBinding:
		c.checkLetBinding(s)
	case *ast.ReturnStmt:
		// leaf, nothing to check
	case *ast.AssertStmt:
		ct := c.checkExpr(s.Condition)
		if !ct.IsBool() {
			c.errorAt(diagnostic.TypeMismatch, s.Condition.Span(), "assert condition must be bool, got %s", ct)
		}
	case *ast.ExprStmt:
		c.checkExpr(s.Expr)
	}
}

func (c *Checker) checkSetStmt(s *ast.SetStmt) {
	if !c.env.InAction() {
		c.errorAt(diagnostic.StateMutatedOutsideAction, s.Span(), "set is only allowed inside an action")
	}
	if len(s.Target) == 0 {
		return
	}
	head := s.Target[0].Name

	if _, isDerived := c.derivedFields[head]; isDerived {
		c.errorAt(diagnostic.DerivedFieldModified, s.Span(), "derived field %q cannot be assigned", head)
		c.checkExpr(s.Value)
		return
	}
	if _, isCred := c.credentialFields[head]; isCred {
		c.errorAt(diagnostic.CredentialModified, s.Span(), "credential %q cannot be assigned", head)
		c.checkExpr(s.Value)
		return
	}
	cur, ok := c.stateFields[head]
	if !ok {
		c.errorAt(diagnostic.UnresolvedSymbol, s.Target[0].Span(), "unknown state field %q", head)
		c.checkExpr(s.Value)
		return
	}
	for _, seg := range s.Target[1:] {
		rec := cur.UnwrapNullable()
		if rec.Kind != types.Record {
			c.errorAt(diagnostic.TypeMismatch, seg.Span(), "%s is not a record, cannot access field %q", cur, seg.Name)
			cur = types.TUnknown
			break
		}
		var next *types.Type
		for _, f := range rec.Fields {
			if f.Name == seg.Name {
				next = f.Type
				break
			}
		}
		if next == nil {
			c.errorAt(diagnostic.UnresolvedSymbol, seg.Span(), "record %s has no field %q", cur, seg.Name)
			cur = types.TUnknown
			break
		}
		cur = next
	}
	vt := c.checkExpr(s.Value)
	if !vt.IsAssignableTo(cur) {
		c.errorAt(diagnostic.TypeMismatch, s.Value.Span(), "cannot assign %s to field of type %s", vt, cur)
	}
}

func (c *Checker) checkLetBinding(l *ast.LetBinding) {
	vt := c.checkExpr(l.Value)
	if l.Name == nil {
		return
	}
	declared := vt
	if l.TypeAnn != nil {
		declared = c.resolveAnnotation(l.TypeAnn)
		if !vt.IsAssignableTo(declared) {
			c.errorAt(diagnostic.TypeMismatch, l.Value.Span(), "let %q declared as %s but value is %s", l.Name.Name, declared, vt)
		}
	}
	if c.env.DefinedInCurrentScope(l.Name.Name) {
		c.errorAt(diagnostic.VariableAlreadyDeclared, l.Span(), "%q is already declared in this scope", l.Name.Name)
		return
	}
	c.env.Define(l.Name.Name, declared)
}

func (c *Checker) checkUIBlock(b *ast.UIBlock) {
	for _, elem := range b.Elements {
		c.checkUIElement(elem)
	}
}

func (c *Checker) checkUIElement(elem ast.UIElement) {
	switch e := elem.(type) {
	case *ast.ComponentExpr:
		if !uiComponentAllowList[e.Name.Name] && !c.extraComponents[e.Name.Name] {
			c.errorAt(diagnostic.UnknownComponent, e.Span(), "unknown UI component %q", e.Name.Name)
		}
		for i := range e.Props {
			c.checkExpr(e.Props[i].Value)
		}
		if e.Children != nil {
			c.checkUIBlock(e.Children)
		}
	case *ast.UILetElement:
		c.checkLetBinding(&e.Let)
	case *ast.UIIf:
		ct := c.checkExpr(e.Condition)
		if !ct.IsBool() {
			c.errorAt(diagnostic.TypeMismatch, e.Condition.Span(), "if condition must be bool, got %s", ct)
		}
		c.checkUIBlock(&e.ThenBlock)
		switch branch := e.ElseBranch.(type) {
		case *ast.UIElseIf:
			c.checkUIElement(branch.If)
		case *ast.UIElseBlock:
			c.checkUIBlock(&branch.Block)
		}
	case *ast.UIFor:
		it := c.checkExpr(e.Iterable)
		c.env.PushScope(ScopeBlock)
		if it.Kind == types.List {
			c.env.Define(e.Item.Name, it.Elem)
		} else {
			if it.Kind != types.Any && it.Kind != types.Unknown {
				c.errorAt(diagnostic.TypeMismatch, e.Iterable.Span(), "for iterable must be list<T>, got %s", it)
			}
			c.env.Define(e.Item.Name, types.TUnknown)
		}
		if e.Index != nil {
			c.env.Define(e.Index.Name, types.TNumber)
		}
		c.checkUIBlock(&e.Body)
		c.env.PopScope()
	}
}

// checkExpr type-checks an expression and returns its resolved type,
// emitting diagnostics for every rule violation along the way. It
// never aborts: unresolved sub-expressions resolve to Unknown so
// checking of enclosing expressions can continue.
func (c *Checker) checkExpr(e *ast.Expr) *types.Type {
	if e == nil {
		return types.TUnknown
	}
	switch k := e.Kind.(type) {
	case ast.NumberLit:
		return types.TNumber
	case ast.StringLit:
		return types.TString
	case ast.BoolLit:
		return types.TBool
	case ast.NilLit:
		return types.TNil
	case ast.StringInterpolation:
		for _, part := range k.Parts {
			if pe, ok := part.(ast.StringPartExpr); ok {
				c.checkExpr(pe.Expr)
			}
		}
		return types.TString
	case ast.ListLit:
		var elem *types.Type
		for _, el := range k.Elements {
			t := c.checkExpr(el)
			if elem == nil {
				elem = t
			} else if !t.IsAssignableTo(elem) && !elem.IsAssignableTo(t) {
				elem = types.TAny
			}
		}
		if elem == nil {
			elem = types.TUnknown
		}
		return types.NewList(elem)
	case ast.RecordLit:
		var fields []types.RecordField
		for _, entry := range k.Entries {
			switch re := entry.(type) {
			case ast.RecordEntryField:
				fields = append(fields, types.RecordField{Name: re.Name.Name, Type: c.checkExpr(re.Value)})
			case ast.RecordEntrySpread:
				st := c.checkExpr(re.Value)
				if st.Kind == types.Record {
					fields = append(fields, st.Fields...)
				}
			}
		}
		return types.NewRecord(fields)
	case ast.Identifier:
		return c.checkIdentifier(k.Name, e.Span())
	case ast.Call:
		return c.checkCall(k, e.Span())
	case ast.QualifiedCall:
		return c.checkQualifiedCall(k, e.Span())
	case ast.FieldAccess:
		return c.checkFieldAccess(k, e.Span())
	case ast.MethodCall:
		ot := c.checkExpr(k.Object)
		for _, a := range k.Args {
			c.checkExpr(a)
		}
		_ = ot
		return types.TUnknown
	case ast.Binary:
		return c.checkBinary(k, e.Span())
	case ast.Unary:
		return c.checkUnary(k, e.Span())
	case ast.ResultUnwrap:
		ot := c.checkExpr(k.Operand)
		if !ot.IsResult() {
			c.errorAt(diagnostic.TypeMismatch, e.Span(), "%s is not a Result, cannot unwrap with ?", ot)
			return types.TUnknown
		}
		if ot.Kind == types.Result {
			return ot.Ok
		}
		return types.TUnknown
	case ast.NilCoalesce:
		lt := c.checkExpr(k.Left)
		rt := c.checkExpr(k.Right)
		if !lt.IsNullable() {
			c.errorAt(diagnostic.TypeMismatch, k.Left.Span(), "%s is not nullable, ?? has no effect", lt)
		}
		if lt.Kind == types.Nullable {
			return unifyTypes(lt.Inner, rt)
		}
		return rt
	case ast.IfExprKind:
		return c.checkIfExpr(k.If)
	case ast.ForExprKind:
		return c.checkForExpr(k.For)
	case ast.MatchExprKind:
		return c.checkMatchExpr(k.Match)
	case ast.LambdaLit:
		return c.checkLambda(k.Lambda)
	case ast.Paren:
		return c.checkExpr(k.Inner)
	default:
		return types.TUnknown
	}
}

func unifyTypes(a, b *types.Type) *types.Type {
	if a.Equal(b) {
		return a
	}
	if a.IsAssignableTo(b) {
		return b
	}
	if b.IsAssignableTo(a) {
		return a
	}
	return types.TAny
}

func (c *Checker) checkIdentifier(name string, sp span.Span) *types.Type {
	if t, ok := c.env.Lookup(name); ok {
		return t
	}
	if t, ok := c.stateFields[name]; ok {
		return t
	}
	if t, ok := c.derivedFields[name]; ok {
		if c.env.InInvariant() {
			c.errorAt(diagnostic.InvariantUnreachable, sp,
				"invariant cannot reference derived field %q: derived fields are recomputed after invariants run", name)
		}
		return t
	}
	if t, ok := c.credentialFields[name]; ok {
		return t
	}
	if sig, ok := c.actionSigs[name]; ok {
		return sig
	}
	c.errorAt(diagnostic.UnresolvedSymbol, sp, "undefined name %q", name)
	return types.TUnknown
}

func (c *Checker) checkCall(k ast.Call, sp span.Span) *types.Type {
	argTypes := make([]*types.Type, len(k.Args))
	for i, a := range k.Args {
		argTypes[i] = c.checkExpr(a)
	}

	if sumType, ok := c.variantOwner[k.Name.Name]; ok {
		return c.checkVariantConstructor(sumType, k.Name.Name, argTypes, sp)
	}

	sigType, ok := c.env.Lookup(k.Name.Name)
	if !ok {
		sigType, ok = c.actionSigs[k.Name.Name]
	}
	if !ok {
		c.errorAt(diagnostic.UnresolvedSymbol, sp, "call to undefined %q", k.Name.Name)
		return types.TUnknown
	}
	if sigType.Kind != types.Function {
		c.errorAt(diagnostic.TypeMismatch, sp, "%q is not callable", k.Name.Name)
		return types.TUnknown
	}
	if _, isAction := c.actionSigs[k.Name.Name]; isAction && !c.env.InAction() {
		c.errorAt(diagnostic.StateMutatedOutsideAction, sp, "action %q can only be called from an action", k.Name.Name)
	}
	if len(argTypes) != len(sigType.Params) {
		c.errorAt(diagnostic.WrongArgCount, sp, "%q expects %d argument(s), got %d", k.Name.Name, len(sigType.Params), len(argTypes))
	} else {
		for i, at := range argTypes {
			if !at.IsAssignableTo(sigType.Params[i]) {
				c.errorAt(diagnostic.TypeMismatch, sp, "argument %d to %q: expected %s, got %s", i+1, k.Name.Name, sigType.Params[i], at)
			}
		}
	}
	return sigType.Ret
}

func (c *Checker) checkVariantConstructor(sumType *types.Type, variantName string, argTypes []*types.Type, sp span.Span) *types.Type {
	var variant *types.SumVariant
	for i := range sumType.SumVariants {
		if sumType.SumVariants[i].Name == variantName {
			variant = &sumType.SumVariants[i]
			break
		}
	}
	if variant == nil {
		return sumType
	}
	if len(argTypes) != len(variant.Params) {
		c.errorAt(diagnostic.WrongArgCount, sp, "%s expects %d argument(s), got %d", variantName, len(variant.Params), len(argTypes))
		return sumType
	}
	for i, at := range argTypes {
		if !at.IsAssignableTo(variant.Params[i].Type) {
			c.errorAt(diagnostic.TypeMismatch, sp, "argument %d to %s: expected %s, got %s", i+1, variantName, variant.Params[i].Type, at)
		}
	}
	return sumType
}

func (c *Checker) checkQualifiedCall(k ast.QualifiedCall, sp span.Span) *types.Type {
	argTypes := make([]*types.Type, len(k.Args))
	for i, a := range k.Args {
		argTypes[i] = c.checkExpr(a)
	}
	module := k.Module.Name

	if capName, gated := stdlib.CapabilityModules()[module]; gated {
		if !c.env.InAction() {
			c.errorAt(diagnostic.StateMutatedOutsideAction, sp,
				"%s.%s is effectful and cannot be called outside an action", module, k.Function.Name)
		}
		if !c.requiredCaps[capName] && !c.optionalCaps[capName] {
			c.errorAt(diagnostic.UndeclaredCapability, sp,
				"capability %q must be declared before calling %s.%s", capName, module, k.Function.Name)
		}
	}

	fsig, ok := c.stdlib.Get(module, k.Function.Name)
	if !ok {
		if !c.stdlib.HasModule(module) {
			c.errorAt(diagnostic.UnresolvedSymbol, sp, "unknown module %q", module)
		} else if suggestion, ok := c.stdlib.SuggestFunction(module, k.Function.Name); ok {
			err := diagnostic.New(c.file.Name, diagnostic.UnresolvedSymbol,
				fmt.Sprintf("unknown function %s.%s", module, k.Function.Name), sp, "").WithSuggestion(suggestion)
			c.errs = append(c.errs, err)
		} else {
			c.errorAt(diagnostic.UnresolvedSymbol, sp, "unknown function %s.%s", module, k.Function.Name)
		}
		return types.TUnknown
	}

	required := len(fsig.Params)
	if fsig.Variadic {
		required--
	}
	if len(argTypes) < required || (!fsig.Variadic && len(argTypes) != len(fsig.Params)) {
		c.errorAt(diagnostic.WrongArgCount, sp, "%s.%s expects %d argument(s), got %d", module, k.Function.Name, len(fsig.Params), len(argTypes))
		return fsig.Ret
	}
	for i, at := range argTypes {
		var want *types.Type
		if fsig.Variadic && i >= len(fsig.Params)-1 {
			want = fsig.Params[len(fsig.Params)-1].Type
		} else {
			want = fsig.Params[i].Type
		}
		if !at.IsAssignableTo(want) {
			c.errorAt(diagnostic.TypeMismatch, sp, "argument %d to %s.%s: expected %s, got %s", i+1, module, k.Function.Name, want, at)
		}
	}
	return fsig.Ret
}

func (c *Checker) checkFieldAccess(k ast.FieldAccess, sp span.Span) *types.Type {
	ot := c.checkExpr(k.Object)
	rec := ot.UnwrapNullable()
	if rec.Kind == types.Any || rec.Kind == types.Unknown {
		return types.TUnknown
	}
	if rec.Kind != types.Record {
		c.errorAt(diagnostic.TypeMismatch, sp, "%s is not a record, cannot access field %q", ot, k.Field.Name)
		return types.TUnknown
	}
	for _, f := range rec.Fields {
		if f.Name == k.Field.Name {
			if f.Optional {
				return types.NewNullable(f.Type)
			}
			return f.Type
		}
	}
	c.errorAt(diagnostic.UnresolvedSymbol, sp, "record %s has no field %q", ot, k.Field.Name)
	return types.TUnknown
}

func (c *Checker) checkBinary(k ast.Binary, sp span.Span) *types.Type {
	lt := c.checkExpr(k.Left)
	rt := c.checkExpr(k.Right)
	switch k.Op {
	case ast.OpOr, ast.OpAnd:
		if !lt.IsBool() || !rt.IsBool() {
			c.errorAt(diagnostic.TypeMismatch, sp, "%s requires bool operands, got %s and %s", k.Op, lt, rt)
		}
		return types.TBool
	case ast.OpEq, ast.OpNotEq:
		if !lt.IsAssignableTo(rt) && !rt.IsAssignableTo(lt) {
			c.errorAt(diagnostic.TypeMismatch, sp, "cannot compare %s and %s", lt, rt)
		}
		return types.TBool
	case ast.OpLess, ast.OpGreater, ast.OpLessEq, ast.OpGreaterEq:
		numOK := lt.IsNumeric() && rt.IsNumeric()
		strOK := lt.Kind == types.String && rt.Kind == types.String
		if !numOK && !strOK {
			c.errorAt(diagnostic.TypeMismatch, sp, "%s requires two numbers or two strings, got %s and %s", k.Op, lt, rt)
		}
		return types.TBool
	case ast.OpAdd:
		if lt.Kind == types.String && rt.Kind == types.String {
			return types.TString
		}
		if !lt.IsNumeric() || !rt.IsNumeric() {
			c.errorAt(diagnostic.TypeMismatch, sp, "+ requires two numbers or two strings, got %s and %s", lt, rt)
		}
		return types.TNumber
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if !lt.IsNumeric() || !rt.IsNumeric() {
			c.errorAt(diagnostic.TypeMismatch, sp, "%s requires two numbers, got %s and %s", k.Op, lt, rt)
		}
		return types.TNumber
	default:
		return types.TUnknown
	}
}

func (c *Checker) checkUnary(k ast.Unary, sp span.Span) *types.Type {
	ot := c.checkExpr(k.Operand)
	if k.Op == ast.OpNot {
		if !ot.IsBool() {
			c.errorAt(diagnostic.TypeMismatch, sp, "not requires a bool operand, got %s", ot)
		}
		return types.TBool
	}
	if !ot.IsNumeric() {
		c.errorAt(diagnostic.TypeMismatch, sp, "unary - requires a number operand, got %s", ot)
	}
	return types.TNumber
}

func (c *Checker) checkIfExpr(i *ast.IfExpr) *types.Type {
	ct := c.checkExpr(i.Condition)
	if !ct.IsBool() {
		c.errorAt(diagnostic.TypeMismatch, i.Condition.Span(), "if condition must be bool, got %s", ct)
	}
	c.checkBlock(&i.ThenBlock)
	switch branch := i.ElseBranch.(type) {
	case *ast.ElseIfBranch:
		return c.checkIfExpr(branch.If)
	case *ast.ElseBlockBranch:
		c.checkBlock(&branch.Block)
	}
	return types.TVoid
}

func (c *Checker) checkForExpr(f *ast.ForExpr) *types.Type {
	it := c.checkExpr(f.Iterable)
	c.env.PushScope(ScopeBlock)
	if it.Kind == types.List {
		c.env.Define(f.Item.Name, it.Elem)
	} else {
		if it.Kind != types.Any && it.Kind != types.Unknown {
			c.errorAt(diagnostic.TypeMismatch, f.Iterable.Span(), "for iterable must be list<T>, got %s", it)
		}
		c.env.Define(f.Item.Name, types.TUnknown)
	}
	if f.Index != nil {
		c.env.Define(f.Index.Name, types.TNumber)
	}
	for _, stmt := range f.Body.Stmts {
		c.checkStmt(stmt)
	}
	c.env.PopScope()
	return types.TVoid
}

func (c *Checker) checkMatchExpr(m *ast.MatchExpr) *types.Type {
	subjectType := c.checkExpr(m.Subject)

	var resultType *types.Type
	hasWildcard := false
	covered := map[string]bool{}
	for i := range m.Arms {
		arm := &m.Arms[i]
		c.env.PushScope(ScopeBlock)
		switch p := arm.Pattern.(type) {
		case *ast.VariantPattern:
			covered[p.Name.Name] = true
			if subjectType.Kind == types.SumType {
				for _, v := range subjectType.SumVariants {
					if v.Name == p.Name.Name {
						for bi, b := range p.Bindings {
							if bi < len(v.Params) {
								c.env.Define(b.Name, v.Params[bi].Type)
							}
						}
					}
				}
			}
		case *ast.WildcardPattern:
			hasWildcard = true
		}
		var at *types.Type
		switch body := arm.Body.(type) {
		case ast.MatchArmExpr:
			at = c.checkExpr(body.Expr)
		case ast.MatchArmBlock:
			for _, stmt := range body.Block.Stmts {
				c.checkStmt(stmt)
			}
			at = types.TVoid
		}
		c.env.PopScope()
		if resultType == nil {
			resultType = at
		} else {
			resultType = unifyTypes(resultType, at)
		}
	}

	if subjectType.Kind == types.SumType && !hasWildcard {
		for _, v := range subjectType.SumVariants {
			if !covered[v.Name] {
				c.errorAt(diagnostic.NonExhaustiveMatch, m.Span(),
					"match on %s is not exhaustive: missing variant %q", subjectType.SumName, v.Name)
			}
		}
	}

	if resultType == nil {
		return types.TVoid
	}
	return resultType
}

func (c *Checker) checkLambda(l *ast.LambdaExpr) *types.Type {
	c.env.PushScope(ScopeLambda)
	params := make([]*types.Type, len(l.Params))
	for i, p := range l.Params {
		params[i] = c.resolveAnnotation(&p.TypeAnn)
		c.env.Define(p.Name.Name, params[i])
	}
	c.checkBlock(&l.Body)
	c.env.PopScope()
	return types.NewFunction(params, types.TVoid)
}

// checkRecursion rejects direct or transitive self-calls among
// actions: PEPL actions dispatch via snapshot-and-commit semantics
// with no call stack, so recursive action calls can never terminate.
// The call-graph walk and cycle search live in runtime/validation,
// shared with anything else that needs to reason about the action
// call graph structurally rather than expression-by-expression.
func (c *Checker) checkRecursion(actions []ast.ActionDecl) {
	if err := validation.DetectActionRecursion(actions); err != nil {
		c.errorAt(diagnostic.RecursionNotAllowed, err.Span,
			"action %q recurses (directly or transitively) into itself: %s", err.Action, err.Message)
	}
}
