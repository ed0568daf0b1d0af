package lisp

import (
	"io"
	"sort"
	"sync"
)

// Env is one frame of the scope chain. Frames are shared by reference and
// never copied; a frame's parent is fixed at creation.
type Env struct {
	parent *Env
	local  map[string]Expr
	mu     sync.RWMutex
}

func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, local: make(map[string]Expr)}
}

// NewRootEnv builds the global frame holding the builtin table. I/O builtins
// write to out.
func NewRootEnv(out io.Writer) *Env {
	env := NewEnv(nil)
	for name, fn := range Builtins(out) {
		env.Define(name, NewBuiltin(name, fn))
	}
	return env
}

// Extend creates a child frame of e.
func (e *Env) Extend() *Env {
	return NewEnv(e)
}

func (e *Env) Parent() *Env {
	return e.parent
}

// Define binds name in this frame only, overwriting any existing binding.
func (e *Env) Define(name string, value Expr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.local[name] = value
}

// Lookup returns the nearest binding of name along the chain.
func (e *Env) Lookup(name string) (Expr, bool) {
	for env := e; env != nil; env = env.parent {
		env.mu.RLock()
		v, ok := env.local[name]
		env.mu.RUnlock()
		if ok {
			return v, true
		}
	}
	return Expr{}, false
}

// Undefine removes name from the nearest frame that binds it. It is a no-op
// if no frame does.
func (e *Env) Undefine(name string) {
	for env := e; env != nil; env = env.parent {
		env.mu.Lock()
		_, ok := env.local[name]
		if ok {
			delete(env.local, name)
		}
		env.mu.Unlock()
		if ok {
			return
		}
	}
}

// Names lists every name visible from e, sorted.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	for env := e; env != nil; env = env.parent {
		env.mu.RLock()
		for k := range env.local {
			seen[k] = true
		}
		env.mu.RUnlock()
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
