package container

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"go.uber.org/zap"
)

type binding struct {
	concrete Concrete
	shared   bool
}

// ── Binding registration ──────────────────────────────────────────────────────

// Bind registers a transient binding: a fresh instance on every Make.
//
//	// Laravel: $app->bind(UserRepository::class, EloquentUserRepository::class)
//	c.Bind("UserRepository", container.MustClass("EloquentUserRepository", NewEloquentUserRepository))
func (c *Container) Bind(abstract string, concrete Concrete) error {
	return c.BindShared(abstract, concrete, false)
}

// Singleton registers a shared binding: built once, then cached.
//
//	// Laravel: $app->singleton(Cache::class, fn() => new RedisCache())
//	c.Singleton("cache", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
//	    return NewRedisCache(), nil
//	}))
func (c *Container) Singleton(abstract string, concrete Concrete) error {
	return c.BindShared(abstract, concrete, true)
}

// BindShared replaces any binding for abstract, evicts its cached instance
// and fires the onBind hooks. A global alias named abstract is removed, so
// Make reaches the new binding. A hook error is returned with the binding
// left in place.
func (c *Container) BindShared(abstract string, concrete Concrete, shared bool) error {
	if isNilConcrete(concrete) {
		return errNilConcrete(abstract)
	}

	c.dropAlias(abstract)
	delete(c.instances, abstract)
	delete(c.registered, abstract)
	c.bindings[abstract] = &binding{concrete: concrete, shared: shared}

	// Bound classes become constructible by name, like an autoloaded class.
	if class, ok := concrete.(*Class); ok {
		if _, exists := c.classes[class.name]; !exists {
			c.classes[class.name] = class
		}
	}

	c.logger.Debug("binding registered",
		zap.String("abstract", abstract),
		zap.String("concrete", describeConcrete(concrete)),
		zap.Bool("shared", shared),
	)
	return c.hooks.fireBind(abstract, concrete)
}

// Instance registers an already-built object as a shared instance.
//
//	// Laravel: $app->instance('config', $config)
//	c.Instance("config", cfg)
func (c *Container) Instance(abstract string, instance any) {
	c.dropAlias(abstract)
	delete(c.bindings, abstract)
	c.instances[abstract] = instance
	c.registered[abstract] = struct{}{}
}

func (c *Container) dropAlias(abstract string) {
	target, ok := c.aliases.AbstractFor(abstract)
	if !ok {
		return
	}
	c.aliases.RemoveAlias(abstract)
	c.logger.Debug("alias replaced by binding",
		zap.String("alias", abstract),
		zap.String("previous", target),
	)
}

// Define makes classes constructible by name without binding them.
func (c *Container) Define(classes ...*Class) {
	for _, class := range classes {
		if class != nil {
			c.classes[class.name] = class
		}
	}
}

// Class returns the class defined under name.
func (c *Container) Class(name string) (*Class, bool) {
	class, ok := c.classes[name]
	return class, ok
}

// Classes returns the defined class names, sorted.
func (c *Container) Classes() []string {
	return slices.Sorted(maps.Keys(c.classes))
}

// Forget removes the binding, the cached instance and the shared flag of
// abstract, then fires the OnForget hooks.
func (c *Container) Forget(abstract string) {
	delete(c.bindings, abstract)
	delete(c.instances, abstract)
	delete(c.registered, abstract)
	delete(c.extenders, abstract)
	c.logger.Debug("binding forgotten", zap.String("abstract", abstract))
	c.hooks.fireForget(abstract)
}

// ForgetInstance evicts the cached instance of abstract, keeping its binding.
func (c *Container) ForgetInstance(abstract string) {
	delete(c.instances, abstract)
	delete(c.registered, abstract)
}

// ── Queries ───────────────────────────────────────────────────────────────────

// Has reports whether the terminal of abstract's alias chain has a binding
// or an instance. It follows aliases the way Make does, so an alias cycle
// reports false.
func (c *Container) Has(abstract string) bool {
	key, ok := c.aliases.peek(abstract)
	return ok && c.isBound(key)
}

// Bound is an alias for Has (Laravel naming).
func (c *Container) Bound(abstract string) bool { return c.Has(abstract) }

func (c *Container) isBound(key string) bool {
	if _, ok := c.bindings[key]; ok {
		return true
	}
	_, ok := c.instances[key]
	return ok
}

// IsShared reports whether abstract is a singleton binding or a registered
// instance.
func (c *Container) IsShared(abstract string) bool {
	if b, ok := c.bindings[abstract]; ok {
		return b.shared
	}
	_, ok := c.instances[abstract]
	return ok
}

// IsSingleton is an alias for IsShared.
func (c *Container) IsSingleton(abstract string) bool { return c.IsShared(abstract) }

// Resolved reports whether a shared instance of abstract is cached.
func (c *Container) Resolved(abstract string) bool {
	_, ok := c.instances[abstract]
	return ok
}

// Binding returns the concrete registered for abstract.
func (c *Container) Binding(abstract string) (Concrete, bool) {
	b, ok := c.bindings[abstract]
	if !ok {
		return nil, false
	}
	return b.concrete, true
}

// Bindings returns all registered abstract keys, sorted.
func (c *Container) Bindings() []string {
	keys := make([]string, 0, len(c.bindings))
	for k := range c.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Instances returns the keys of all cached instances, sorted.
func (c *Container) Instances() []string {
	return slices.Sorted(maps.Keys(c.instances))
}

// Registered returns the keys set through Instance, sorted.
func (c *Container) Registered() []string {
	return slices.Sorted(maps.Keys(c.registered))
}

func isNilConcrete(concrete Concrete) bool {
	switch v := concrete.(type) {
	case nil:
		return true
	case Factory:
		return v == nil
	case *Class:
		return v == nil
	default:
		return false
	}
}

func errNilConcrete(abstract string) error {
	return fmt.Errorf("%w: nil concrete for [%s]", ErrInvalidConcrete, abstract)
}
