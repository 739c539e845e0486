package eval

import (
	"math"
	"strings"

	"github.com/pepl-lang/pepl/core/ast"
)

// DefaultGasLimit bounds dispatch ticks when a caller doesn't supply one.
const DefaultGasLimit = 100_000

// MockResponse is a canned reply for one qualified stdlib call made
// during a test's `with_responses` block.
type MockResponse struct {
	Module   string
	Function string
	Response *Value
}

// SpaceInstance is a live, running instance of one checked space: its
// current state, a gas budget, a captured log, and (during tests) a
// table of mocked stdlib responses.
type SpaceInstance struct {
	prog *ast.Program
	body *ast.SpaceBody

	state  map[string]*Value
	gas    int
	limit  int
	log    []string
	mocks  []MockResponse
	lambdaDepth int
}

// NewSpaceInstance builds a running instance from a checked Program,
// evaluating every state field's default expression and every derived
// field once.
func NewSpaceInstance(prog *ast.Program, gasLimit int) (*SpaceInstance, error) {
	if gasLimit <= 0 {
		gasLimit = DefaultGasLimit
	}
	inst := &SpaceInstance{
		prog:  prog,
		body:  &prog.SpaceVal.Body,
		state: map[string]*Value{},
		limit: gasLimit,
	}
	env := NewEnvironment()
	for i := range inst.body.State.Fields {
		f := &inst.body.State.Fields[i]
		v, err := inst.evalExpr(f.Default, env)
		if err != nil {
			return nil, err
		}
		inst.state[f.Name.Name] = v
	}
	if err := inst.recomputeDerived(); err != nil {
		return nil, err
	}
	return inst, nil
}

// WithMockResponses installs canned stdlib replies for the lifetime of
// this instance, as used by a test case's with_responses block.
func (inst *SpaceInstance) WithMockResponses(mocks []MockResponse) {
	inst.mocks = mocks
}

// Log returns every message the running space has logged via core.log.
func (inst *SpaceInstance) Log() []string { return append([]string(nil), inst.log...) }

// GetState returns the current value of a state field.
func (inst *SpaceInstance) GetState(name string) (*Value, bool) {
	v, ok := inst.state[name]
	return v, ok
}

func (inst *SpaceInstance) baseEnv() *Environment {
	env := NewEnvironment()
	for name, v := range inst.state {
		env.Define(name, v)
	}
	derived, _ := inst.evalDerivedFields()
	for name, v := range derived {
		env.Define(name, v)
	}
	return env
}

func (inst *SpaceInstance) evalDerivedFields() (map[string]*Value, error) {
	out := map[string]*Value{}
	if inst.body.Derived == nil {
		return out, nil
	}
	env := NewEnvironment()
	for name, v := range inst.state {
		env.Define(name, v)
	}
	for i := range inst.body.Derived.Fields {
		f := &inst.body.Derived.Fields[i]
		v, err := inst.evalExpr(f.Value, env)
		if err != nil {
			return nil, err
		}
		out[f.Name.Name] = v
		env.Define(f.Name.Name, v)
	}
	return out, nil
}

func (inst *SpaceInstance) recomputeDerived() error {
	_, err := inst.evalDerivedFields()
	return err
}

// snapshot deep-copies the current state, for dispatch rollback.
func (inst *SpaceInstance) snapshot() map[string]*Value {
	cp := make(map[string]*Value, len(inst.state))
	for k, v := range inst.state {
		cp[k] = v.Clone()
	}
	return cp
}

// DispatchAction runs action name with args using snapshot-and-commit
// semantics: state is deep-copied before the body runs, invariants are
// checked against the result, and an error or a false invariant restores
// the copy, rolling the whole dispatch back (InvariantViolation for the
// latter).
func (inst *SpaceInstance) DispatchAction(name string, args []*Value) (*Value, error) {
	var action *ast.ActionDecl
	for i := range inst.body.Actions {
		if inst.body.Actions[i].Name.Name == name {
			action = &inst.body.Actions[i]
			break
		}
	}
	if action == nil {
		return nil, newErr(UndefinedAction, "no action named %q", name)
	}
	if len(args) != len(action.Params) {
		return nil, newErr(TypeMismatch, "action %q expects %d argument(s), got %d", name, len(action.Params), len(args))
	}

	before := inst.snapshot()

	if err := inst.tick(); err != nil {
		return nil, err
	}

	env := inst.baseEnv()
	for i, p := range action.Params {
		env.Define(p.Name.Name, args[i])
	}

	result, err := inst.execBlock(&action.Body, env)
	if err != nil {
		if err == returnControl {
			err = nil
		} else {
			inst.state = before
			return nil, err
		}
	}

	if err := inst.recomputeDerived(); err != nil {
		inst.state = before
		return nil, err
	}

	for i := range inst.body.Invariants {
		inv := &inst.body.Invariants[i]
		invEnv := inst.baseEnv()
		v, err := inst.evalExpr(inv.Condition, invEnv)
		if err != nil {
			inst.state = before
			return nil, err
		}
		if !v.Truthy() {
			inst.state = before
			return nil, &EvalError{Kind: InvariantViolation, InvariantName: inv.Name.Name}
		}
	}

	if result == nil {
		result = Void
	}
	return result, nil
}

func (inst *SpaceInstance) tick() error {
	inst.gas++
	if inst.gas > inst.limit {
		return newErr(GasExhausted, "gas limit %d exceeded", inst.limit)
	}
	return nil
}

func (inst *SpaceInstance) execBlock(b *ast.Block, env *Environment) (*Value, error) {
	child := env.Child()
	var last *Value
	for _, stmt := range b.Stmts {
		v, err := inst.execStmt(stmt, child)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (inst *SpaceInstance) execStmt(stmt ast.Stmt, env *Environment) (*Value, error) {
	switch s := stmt.(type) {
	case *ast.SetStmt:
		return nil, inst.execSet(s, env)
	case *ast.LetBinding:
		v, err := inst.evalExpr(s.Value, env)
		if err != nil {
			return nil, err
		}
		if s.Name != nil {
			env.Define(s.Name.Name, v)
		}
		return nil, nil
	case *ast.ReturnStmt:
		return nil, returnControl
	case *ast.AssertStmt:
		v, err := inst.evalExpr(s.Condition, env)
		if err != nil {
			return nil, err
		}
		if !v.Truthy() {
			msg := "assertion failed"
			if s.Message != nil {
				msg = *s.Message
			}
			return nil, newErr(AssertionFailed, "%s", msg)
		}
		return nil, nil
	case *ast.ExprStmt:
		return inst.evalExpr(s.Expr, env)
	default:
		return nil, nil
	}
}

func (inst *SpaceInstance) execSet(s *ast.SetStmt, env *Environment) error {
	if len(s.Target) == 0 {
		return nil
	}
	v, err := inst.evalExpr(s.Value, env)
	if err != nil {
		return err
	}
	head := s.Target[0].Name
	if len(s.Target) == 1 {
		inst.state[head] = v
		env.Set(head, v)
		return nil
	}
	root, ok := inst.state[head]
	if !ok {
		return newErr(UndefinedVariable, "unknown state field %q", head)
	}
	root = root.Clone()
	cur := root
	for _, seg := range s.Target[1 : len(s.Target)-1] {
		if cur.Kind != KRecord {
			return newErr(TypeMismatch, "%q is not a record", seg.Name)
		}
		next, ok := cur.Record[seg.Name]
		if !ok {
			return newErr(UndefinedVariable, "record has no field %q", seg.Name)
		}
		cur = next
	}
	last := s.Target[len(s.Target)-1]
	if cur.Kind != KRecord {
		return newErr(TypeMismatch, "%q is not a record", last.Name)
	}
	cur.Record[last.Name] = v
	inst.state[head] = root
	env.Set(head, root)
	return nil
}

func (inst *SpaceInstance) evalExpr(e *ast.Expr, env *Environment) (*Value, error) {
	if e == nil {
		return Nil, nil
	}
	switch k := e.Kind.(type) {
	case ast.NumberLit:
		return NumberVal(k.Value), nil
	case ast.StringLit:
		return StringVal(k.Value), nil
	case ast.BoolLit:
		return BoolVal(k.Value), nil
	case ast.NilLit:
		return Nil, nil
	case ast.StringInterpolation:
		var sb strings.Builder
		for _, part := range k.Parts {
			switch p := part.(type) {
			case ast.StringPartLiteral:
				sb.WriteString(p.Text)
			case ast.StringPartExpr:
				v, err := inst.evalExpr(p.Expr, env)
				if err != nil {
					return nil, err
				}
				sb.WriteString(v.String_())
			}
		}
		return StringVal(sb.String()), nil
	case ast.ListLit:
		items := make([]*Value, len(k.Elements))
		for i, el := range k.Elements {
			v, err := inst.evalExpr(el, env)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return ListVal(items), nil
	case ast.RecordLit:
		fields := map[string]*Value{}
		for _, entry := range k.Entries {
			switch re := entry.(type) {
			case ast.RecordEntryField:
				v, err := inst.evalExpr(re.Value, env)
				if err != nil {
					return nil, err
				}
				fields[re.Name.Name] = v
			case ast.RecordEntrySpread:
				v, err := inst.evalExpr(re.Value, env)
				if err != nil {
					return nil, err
				}
				if v.Kind == KRecord {
					for fk, fv := range v.Record {
						fields[fk] = fv
					}
				}
			}
		}
		return RecordVal(fields), nil
	case ast.Identifier:
		if v, ok := env.Get(k.Name); ok {
			return v, nil
		}
		for i := range inst.body.Actions {
			if inst.body.Actions[i].Name.Name == k.Name {
				return &Value{Kind: KActionRef, ActionRef: k.Name}, nil
			}
		}
		return nil, newErr(UndefinedVariable, "undefined name %q", k.Name)
	case ast.Call:
		return inst.evalCall(k, env)
	case ast.QualifiedCall:
		return inst.evalQualifiedCall(k, env)
	case ast.FieldAccess:
		obj, err := inst.evalExpr(k.Object, env)
		if err != nil {
			return nil, err
		}
		if obj.Kind == KNil {
			return nil, newErr(NilAccess, "cannot access field %q of nil", k.Field.Name)
		}
		if obj.Kind != KRecord {
			return nil, newErr(TypeMismatch, "%s is not a record", obj.String_())
		}
		v, ok := obj.Record[k.Field.Name]
		if !ok {
			return Nil, nil
		}
		return v, nil
	case ast.MethodCall:
		return inst.evalMethodCall(k, env)
	case ast.Binary:
		return inst.evalBinary(k, env)
	case ast.Unary:
		return inst.evalUnary(k, env)
	case ast.ResultUnwrap:
		v, err := inst.evalExpr(k.Operand, env)
		if err != nil {
			return nil, err
		}
		if v.Kind == KRecord {
			if errVal, hasErr := v.Record["error"]; hasErr && errVal.Kind != KNil {
				return nil, newErr(UnwrapError, "unwrap on error result: %s", errVal.String_())
			}
			if okVal, ok := v.Record["ok"]; ok {
				return okVal, nil
			}
		}
		return v, nil
	case ast.NilCoalesce:
		l, err := inst.evalExpr(k.Left, env)
		if err != nil {
			return nil, err
		}
		if l.Kind != KNil {
			return l, nil
		}
		return inst.evalExpr(k.Right, env)
	case ast.IfExprKind:
		return inst.evalIf(k.If, env)
	case ast.ForExprKind:
		return inst.evalFor(k.For, env)
	case ast.MatchExprKind:
		return inst.evalMatch(k.Match, env)
	case ast.LambdaLit:
		return inst.makeLambda(k.Lambda, env)
	case ast.Paren:
		return inst.evalExpr(k.Inner, env)
	default:
		return nil, newErr(Runtime, "unsupported expression kind %T", k)
	}
}

func (inst *SpaceInstance) evalCall(k ast.Call, env *Environment) (*Value, error) {
	if err := inst.tick(); err != nil {
		return nil, err
	}
	args := make([]*Value, len(k.Args))
	for i, a := range k.Args {
		v, err := inst.evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	for i := range inst.body.Actions {
		if inst.body.Actions[i].Name.Name == k.Name.Name {
			return inst.DispatchAction(k.Name.Name, args)
		}
	}
	if sumVariant, ok := inst.lookupVariant(k.Name.Name); ok {
		return VariantVal(sumVariant, args), nil
	}
	if v, ok := env.Get(k.Name.Name); ok && v.Kind == KLambda {
		return inst.invokeLambda(v.Lambda, args)
	}
	return nil, newErr(UndefinedVariable, "call to undefined %q", k.Name.Name)
}

func (inst *SpaceInstance) lookupVariant(name string) (string, bool) {
	for i := range inst.body.Types {
		if sb, ok := inst.body.Types[i].Body.(ast.SumTypeBody); ok {
			for _, v := range sb.Variants {
				if v.Name.Name == name {
					return name, true
				}
			}
		}
	}
	return "", false
}

func (inst *SpaceInstance) evalMethodCall(k ast.MethodCall, env *Environment) (*Value, error) {
	obj, err := inst.evalExpr(k.Object, env)
	if err != nil {
		return nil, err
	}
	if obj.Kind == KLambda {
		args := make([]*Value, len(k.Args))
		for i, a := range k.Args {
			v, err := inst.evalExpr(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return inst.invokeLambda(obj.Lambda, args)
	}
	return nil, newErr(UnknownFunction, "method %q is not defined on %s", k.Method.Name, obj.String_())
}

func (inst *SpaceInstance) evalQualifiedCall(k ast.QualifiedCall, env *Environment) (*Value, error) {
	if err := inst.tick(); err != nil {
		return nil, err
	}
	args := make([]*Value, len(k.Args))
	for i, a := range k.Args {
		v, err := inst.evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	for _, m := range inst.mocks {
		if m.Module == k.Module.Name && m.Function == k.Function.Name {
			return m.Response, nil
		}
	}

	v, err := callBuiltin(k.Module.Name, k.Function.Name, args)
	if err != nil {
		return nil, err
	}
	if k.Module.Name == "core" && k.Function.Name == "log" && len(args) == 1 {
		inst.log = append(inst.log, args[0].String_())
	}
	return v, nil
}

func (inst *SpaceInstance) evalBinary(k ast.Binary, env *Environment) (*Value, error) {
	l, err := inst.evalExpr(k.Left, env)
	if err != nil {
		return nil, err
	}
	r, err := inst.evalExpr(k.Right, env)
	if err != nil {
		return nil, err
	}
	switch k.Op {
	case ast.OpOr:
		return BoolVal(l.Truthy() || r.Truthy()), nil
	case ast.OpAnd:
		return BoolVal(l.Truthy() && r.Truthy()), nil
	case ast.OpEq:
		return BoolVal(l.Equal(r)), nil
	case ast.OpNotEq:
		return BoolVal(!l.Equal(r)), nil
	case ast.OpLess, ast.OpGreater, ast.OpLessEq, ast.OpGreaterEq:
		if l.Kind == KString && r.Kind == KString {
			return BoolVal(compareStrOp(k.Op, l.String, r.String)), nil
		}
		if l.Kind != KNumber || r.Kind != KNumber {
			return nil, newErr(TypeMismatch, "%s requires matching numbers or strings", k.Op)
		}
		return BoolVal(compareNumOp(k.Op, l.Number, r.Number)), nil
	case ast.OpAdd:
		if l.Kind == KString && r.Kind == KString {
			return StringVal(l.String + r.String), nil
		}
		if l.Kind != KNumber || r.Kind != KNumber {
			return nil, newErr(TypeMismatch, "+ requires two numbers or two strings")
		}
		return NumberVal(l.Number + r.Number), nil
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if l.Kind != KNumber || r.Kind != KNumber {
			return nil, newErr(TypeMismatch, "%s requires two numbers", k.Op)
		}
		return evalArith(k.Op, l.Number, r.Number)
	default:
		return nil, newErr(Runtime, "unsupported operator %s", k.Op)
	}
}

func compareStrOp(op ast.BinOp, a, b string) bool {
	switch op {
	case ast.OpLess:
		return a < b
	case ast.OpGreater:
		return a > b
	case ast.OpLessEq:
		return a <= b
	default:
		return a >= b
	}
}

func compareNumOp(op ast.BinOp, a, b float64) bool {
	switch op {
	case ast.OpLess:
		return a < b
	case ast.OpGreater:
		return a > b
	case ast.OpLessEq:
		return a <= b
	default:
		return a >= b
	}
}

func evalArith(op ast.BinOp, a, b float64) (*Value, error) {
	switch op {
	case ast.OpSub:
		return NumberVal(a - b), nil
	case ast.OpMul:
		return NumberVal(a * b), nil
	case ast.OpDiv:
		if b == 0 {
			return nil, newErr(ArithmeticTrap, "division by zero")
		}
		return NumberVal(a / b), nil
	case ast.OpMod:
		if b == 0 {
			return nil, newErr(ArithmeticTrap, "modulo by zero")
		}
		return NumberVal(math.Mod(a, b)), nil
	default:
		return nil, newErr(Runtime, "unsupported arithmetic operator")
	}
}

func (inst *SpaceInstance) evalUnary(k ast.Unary, env *Environment) (*Value, error) {
	v, err := inst.evalExpr(k.Operand, env)
	if err != nil {
		return nil, err
	}
	if k.Op == ast.OpNot {
		return BoolVal(!v.Truthy()), nil
	}
	if v.Kind != KNumber {
		return nil, newErr(TypeMismatch, "unary - requires a number")
	}
	return NumberVal(-v.Number), nil
}

func (inst *SpaceInstance) evalIf(i *ast.IfExpr, env *Environment) (*Value, error) {
	cond, err := inst.evalExpr(i.Condition, env)
	if err != nil {
		return nil, err
	}
	if cond.Truthy() {
		return inst.execBlock(&i.ThenBlock, env)
	}
	switch branch := i.ElseBranch.(type) {
	case *ast.ElseIfBranch:
		return inst.evalIf(branch.If, env)
	case *ast.ElseBlockBranch:
		return inst.execBlock(&branch.Block, env)
	}
	return Void, nil
}

func (inst *SpaceInstance) evalFor(f *ast.ForExpr, env *Environment) (*Value, error) {
	iter, err := inst.evalExpr(f.Iterable, env)
	if err != nil {
		return nil, err
	}
	if iter.Kind != KList {
		return nil, newErr(TypeMismatch, "for requires a list, got %s", iter.String_())
	}
	if err := inst.tick(); err != nil {
		return nil, err
	}
	for idx, item := range iter.List {
		child := env.Child()
		child.Define(f.Item.Name, item)
		if f.Index != nil {
			child.Define(f.Index.Name, NumberVal(float64(idx)))
		}
		for _, stmt := range f.Body.Stmts {
			if _, err := inst.execStmt(stmt, child); err != nil {
				if err == returnControl {
					return Void, nil
				}
				return nil, err
			}
		}
	}
	return Void, nil
}

func (inst *SpaceInstance) evalMatch(m *ast.MatchExpr, env *Environment) (*Value, error) {
	subject, err := inst.evalExpr(m.Subject, env)
	if err != nil {
		return nil, err
	}
	for i := range m.Arms {
		arm := &m.Arms[i]
		switch p := arm.Pattern.(type) {
		case *ast.WildcardPattern:
			return inst.evalMatchArm(arm, env, nil, nil)
		case *ast.VariantPattern:
			if subject.Kind == KVariant && subject.VariantName == p.Name.Name {
				return inst.evalMatchArm(arm, env, p.Bindings, subject.VariantArgs)
			}
			if subject.Kind != KVariant && p.Name.Name == subject.String_() {
				return inst.evalMatchArm(arm, env, nil, nil)
			}
		}
	}
	return nil, newErr(Runtime, "no match arm matched %s", subject.String_())
}

func (inst *SpaceInstance) evalMatchArm(arm *ast.MatchArm, env *Environment, bindings []ast.Ident, args []*Value) (*Value, error) {
	child := env.Child()
	for i, b := range bindings {
		if i < len(args) {
			child.Define(b.Name, args[i])
		}
	}
	switch body := arm.Body.(type) {
	case ast.MatchArmExpr:
		return inst.evalExpr(body.Expr, child)
	case ast.MatchArmBlock:
		return inst.execBlock(&body.Block, child)
	default:
		return Void, nil
	}
}

func (inst *SpaceInstance) makeLambda(l *ast.LambdaExpr, env *Environment) (*Value, error) {
	params := make([]string, len(l.Params))
	for i, p := range l.Params {
		params[i] = p.Name.Name
	}
	body := l.Body
	return &Value{Kind: KLambda, Lambda: &LambdaValue{
		Params: params,
		Body: func(args []*Value) (*Value, error) {
			child := env.Child()
			for i, name := range params {
				if i < len(args) {
					child.Define(name, args[i])
				}
			}
			return inst.execBlock(&body, child)
		},
	}}, nil
}

func (inst *SpaceInstance) invokeLambda(l *LambdaValue, args []*Value) (*Value, error) {
	if err := inst.tick(); err != nil {
		return nil, err
	}
	v, err := l.Body(args)
	if err != nil && err != returnControl {
		return nil, err
	}
	if v == nil {
		v = Void
	}
	return v, nil
}
