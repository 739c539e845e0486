package eval

// Environment is a stack of lexical scopes holding bound Values,
// mirroring runtime/checker's TypeEnv but carrying values instead of
// types.
type Environment struct {
	parent *Environment
	vars   map[string]*Value
}

// NewEnvironment creates a root environment with no parent.
func NewEnvironment() *Environment {
	return &Environment{vars: map[string]*Value{}}
}

// Child creates a new scope nested under e.
func (e *Environment) Child() *Environment {
	return &Environment{parent: e, vars: map[string]*Value{}}
}

// Define binds name to v in this scope, shadowing any outer binding.
func (e *Environment) Define(name string, v *Value) {
	e.vars[name] = v
}

// Get resolves name from this scope outward.
func (e *Environment) Get(name string) (*Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set rebinds name in whichever scope already defines it, or in the
// current scope if nowhere does (used for `set` on nested fields,
// where the top-level field is always pre-bound by the instance).
func (e *Environment) Set(name string, v *Value) {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			env.vars[name] = v
			return
		}
	}
	e.vars[name] = v
}
