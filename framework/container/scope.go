package container

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type scopeState struct {
	overrides map[string]Concrete
	retained  bool
}

// scopeManager keeps the named override maps and the stack of active scopes,
// innermost last.
type scopeManager struct {
	scopes map[string]*scopeState
	active []string
}

func newScopeManager() scopeManager {
	return scopeManager{scopes: make(map[string]*scopeState)}
}

// override returns the concrete of the innermost active scope overriding key.
func (m *scopeManager) override(key string) (Concrete, string, bool) {
	for i := len(m.active) - 1; i >= 0; i-- {
		name := m.active[i]
		state, ok := m.scopes[name]
		if !ok {
			continue
		}
		if concrete, ok := state.overrides[key]; ok {
			return concrete, name, true
		}
	}
	return nil, "", false
}

// aliasScope returns the innermost active scope with its own alias edge for
// name, or "" for the global edges.
func (m *scopeManager) aliasScope(g *AliasGraph, name string) string {
	for i := len(m.active) - 1; i >= 0; i-- {
		if g.HasScopedAlias(m.active[i], name) {
			return m.active[i]
		}
	}
	return ""
}

func (m *scopeManager) isActive(name string) bool {
	return slices.Contains(m.active, name)
}

// ── Container API ─────────────────────────────────────────────────────────────

// Scope runs fn with a fresh scope named name pushed onto the active stack.
// Bindings made with BindInScope during fn override global bindings until fn
// returns. The scope is torn down afterwards, even on panic, unless
// RetainScope was called.
//
//	err := c.Scope("request", func(c *container.Container) error {
//	    c.BindInScope("user", container.Value(u), "request")
//	    return handle(c)
//	})
func (c *Container) Scope(name string, fn func(c *Container) error) error {
	if c.scopes.isActive(name) {
		return fmt.Errorf("%w: '%s'", ErrScopeActive, name)
	}

	c.scopes.scopes[name] = &scopeState{overrides: make(map[string]Concrete)}
	c.scopes.active = append(c.scopes.active, name)
	c.logger.Debug("scope entered", zap.String("scope", name))

	defer func() {
		c.scopes.active = slices.DeleteFunc(c.scopes.active, func(s string) bool { return s == name })
		if state, ok := c.scopes.scopes[name]; ok && !state.retained {
			delete(c.scopes.scopes, name)
		}
		c.logger.Debug("scope exited", zap.String("scope", name))
	}()

	return fn(c)
}

// Sandbox runs fn in a throwaway scope with a generated name.
func (c *Container) Sandbox(fn func(c *Container) error) error {
	return c.Scope("sandbox-"+uuid.NewString(), fn)
}

// BeginScope creates an inactive, retained scope that can be filled with
// BindInScope, queried with ResolveInScope and dropped with ForgetScope.
func (c *Container) BeginScope(name string) {
	if _, ok := c.scopes.scopes[name]; !ok {
		c.scopes.scopes[name] = &scopeState{overrides: make(map[string]Concrete)}
	}
	c.scopes.scopes[name].retained = true
}

// RetainScope keeps scope's overrides after its Scope callback returns.
func (c *Container) RetainScope(name string) error {
	state, ok := c.scopes.scopes[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrScopeNotFound, name)
	}
	state.retained = true
	return nil
}

// ForgetScope drops scope's overrides and scoped alias edges.
func (c *Container) ForgetScope(name string) {
	delete(c.scopes.scopes, name)
	c.aliases.ForgetAliasScope(name)
}

// HasScope reports whether a scope named name exists.
func (c *Container) HasScope(name string) bool {
	_, ok := c.scopes.scopes[name]
	return ok
}

// BindInScope registers an override for abstract inside an existing scope.
// Scoped builds are never cached.
func (c *Container) BindInScope(abstract string, concrete Concrete, scope string) error {
	if isNilConcrete(concrete) {
		return errNilConcrete(abstract)
	}
	state, ok := c.scopes.scopes[scope]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrScopeNotFound, scope)
	}
	state.overrides[abstract] = concrete
	return nil
}

// ResolveInScope builds scope's override for abstract when it has one, and
// falls back to Make otherwise. The scope need not be active.
func (c *Container) ResolveInScope(abstract, scope string) (any, error) {
	if state, ok := c.scopes.scopes[scope]; ok {
		if concrete, ok := state.overrides[abstract]; ok {
			return c.newResolution().produce(abstract, concrete, nil, false)
		}
	}
	return c.Make(abstract)
}

// ScopedBindings returns the keys overridden in scope, sorted.
func (c *Container) ScopedBindings(scope string) []string {
	state, ok := c.scopes.scopes[scope]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(state.overrides))
}

// ActiveScopes returns the active scope stack, outermost first.
func (c *Container) ActiveScopes() []string {
	return slices.Clone(c.scopes.active)
}
