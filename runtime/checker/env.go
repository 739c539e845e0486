package checker

import "github.com/pepl-lang/pepl/core/types"

// ScopeKind names the kind of code context a scope represents.
type ScopeKind int

const (
	ScopeSpace ScopeKind = iota
	ScopeAction
	ScopeView
	ScopeBlock
	ScopeLambda
	ScopeDerived
	ScopeInvariant
	ScopeTestCase
	ScopeUpdate
	ScopeHandleEvent
)

type scope struct {
	kind     ScopeKind
	bindings map[string]*types.Type
}

// TypeEnv is a stack of lexical scopes used for name resolution
// during checking.
type TypeEnv struct {
	scopes []*scope
}

// NewTypeEnv creates a type environment with a single root Space scope.
func NewTypeEnv() *TypeEnv {
	return &TypeEnv{scopes: []*scope{{kind: ScopeSpace, bindings: map[string]*types.Type{}}}}
}

func (e *TypeEnv) PushScope(kind ScopeKind) {
	e.scopes = append(e.scopes, &scope{kind: kind, bindings: map[string]*types.Type{}})
}

func (e *TypeEnv) PopScope() {
	if len(e.scopes) <= 1 {
		panic("cannot pop the root scope")
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// Define binds name in the current scope. It returns false if name is
// already defined there (shadowing within one scope is rejected; the
// same name in a nested scope legitimately shadows an outer binding).
func (e *TypeEnv) Define(name string, t *types.Type) bool {
	s := e.scopes[len(e.scopes)-1]
	if _, exists := s.bindings[name]; exists {
		return false
	}
	s.bindings[name] = t
	return true
}

// Lookup searches from innermost to outermost scope.
func (e *TypeEnv) Lookup(name string) (*types.Type, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if t, ok := e.scopes[i].bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// DefinedInCurrentScope reports whether name is bound in the
// innermost scope only.
func (e *TypeEnv) DefinedInCurrentScope(name string) bool {
	_, ok := e.scopes[len(e.scopes)-1].bindings[name]
	return ok
}

func (e *TypeEnv) anyScope(pred func(ScopeKind) bool) bool {
	for _, s := range e.scopes {
		if pred(s.kind) {
			return true
		}
	}
	return false
}

func (e *TypeEnv) InAction() bool {
	return e.anyScope(func(k ScopeKind) bool {
		return k == ScopeAction || k == ScopeUpdate || k == ScopeHandleEvent
	})
}

func (e *TypeEnv) InView() bool {
	return e.anyScope(func(k ScopeKind) bool { return k == ScopeView })
}

func (e *TypeEnv) InDerived() bool {
	return e.anyScope(func(k ScopeKind) bool { return k == ScopeDerived })
}

func (e *TypeEnv) InInvariant() bool {
	return e.anyScope(func(k ScopeKind) bool { return k == ScopeInvariant })
}

func (e *TypeEnv) InTest() bool {
	return e.anyScope(func(k ScopeKind) bool { return k == ScopeTestCase })
}

// CurrentScopeKind returns the innermost scope's kind.
func (e *TypeEnv) CurrentScopeKind() ScopeKind {
	return e.scopes[len(e.scopes)-1].kind
}

// Narrow rebinds name in the current scope, shadowing any outer
// binding. The checker does not call it: an `if x != nil` branch is
// checked without narrowing x.
func (e *TypeEnv) Narrow(name string, t *types.Type) {
	e.scopes[len(e.scopes)-1].bindings[name] = t
}
