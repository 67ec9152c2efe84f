package runtime

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUndefinedVariable is wrapped by Get when a name is bound nowhere in the chain.
var ErrUndefinedVariable = errors.New("undefined variable")

// Environment provides lexical scoping for MADOLA runtime values. Values are
// deep-copied on the way in so that no two bindings share an array.
// An Environment belongs to one run and is not safe for concurrent use.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new environment, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Parent exposes the lexical parent (nil when global).
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Extend creates a child scope.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}

// Define inserts or overwrites a binding in the current scope.
func (e *Environment) Define(name string, value Value) {
	e.values[name] = CopyValue(value)
}

// Assign updates the binding in the nearest scope that holds the name, or
// defines it in the current scope when no scope does.
func (e *Environment) Assign(name string, value Value) {
	if owner := e.owner(name); owner != nil {
		owner.Define(name, value)
		return
	}
	e.Define(name, value)
}

// Get retrieves a binding, searching outward through the scope chain.
func (e *Environment) Get(name string) (Value, error) {
	v, _, ok := e.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUndefinedVariable, name)
	}
	return v, nil
}

// Lookup returns the value, the environment that owns the binding, and whether
// the name was found.
func (e *Environment) Lookup(name string) (Value, *Environment, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.values[name]; ok {
			return v, env, true
		}
	}
	return nil, nil, false
}

func (e *Environment) owner(name string) *Environment {
	_, owner, _ := e.Lookup(name)
	return owner
}

// Has reports whether the binding exists anywhere in the scope chain.
func (e *Environment) Has(name string) bool {
	_, _, ok := e.Lookup(name)
	return ok
}

// HasInCurrentScope reports whether the binding exists in the current scope.
func (e *Environment) HasInCurrentScope(name string) bool {
	_, ok := e.values[name]
	return ok
}

// Snapshot returns a copy of the current scope's bindings.
func (e *Environment) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Keys returns the current scope's names in sorted order.
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
