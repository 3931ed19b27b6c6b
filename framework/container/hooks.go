package container

import "fmt"

// BindHook runs after a binding is registered.
type BindHook func(abstract string, concrete Concrete) error

// ResolveHook runs after an abstract has been built, with the built object
// and the resolver that built it.
type ResolveHook func(instance any, r Resolver) error

// AnyResolveHook runs for every abstract that is built.
type AnyResolveHook func(abstract string, instance any) error

// ForgetHook runs after Forget removed an abstract.
type ForgetHook func(abstract string)

// hookBus holds one ordered list per event kind. Dispatch is a plain
// iteration in registration order; the same hook registered twice fires twice.
type hookBus struct {
	onBindAny      []BindHook
	onBind         map[string][]BindHook
	resolvingAny   []AnyResolveHook
	resolving      map[string][]ResolveHook
	afterAny       []AnyResolveHook
	afterResolving map[string][]ResolveHook
	onForget       []ForgetHook
}

func newHookBus() hookBus {
	return hookBus{
		onBind:         make(map[string][]BindHook),
		resolving:      make(map[string][]ResolveHook),
		afterResolving: make(map[string][]ResolveHook),
	}
}

func (h *hookBus) fireBind(abstract string, concrete Concrete) error {
	for _, cb := range h.onBindAny {
		if err := cb(abstract, concrete); err != nil {
			return fmt.Errorf("onBind hook for [%s]: %w", abstract, err)
		}
	}
	for _, cb := range h.onBind[abstract] {
		if err := cb(abstract, concrete); err != nil {
			return fmt.Errorf("onBind hook for [%s]: %w", abstract, err)
		}
	}
	return nil
}

// fireResolved dispatches resolving then afterResolving, global lists first.
func (h *hookBus) fireResolved(abstract string, instance any, r Resolver) error {
	for _, cb := range h.resolvingAny {
		if err := cb(abstract, instance); err != nil {
			return fmt.Errorf("resolving hook for [%s]: %w", abstract, err)
		}
	}
	for _, cb := range h.resolving[abstract] {
		if err := cb(instance, r); err != nil {
			return fmt.Errorf("resolving hook for [%s]: %w", abstract, err)
		}
	}
	for _, cb := range h.afterAny {
		if err := cb(abstract, instance); err != nil {
			return fmt.Errorf("afterResolving hook for [%s]: %w", abstract, err)
		}
	}
	for _, cb := range h.afterResolving[abstract] {
		if err := cb(instance, r); err != nil {
			return fmt.Errorf("afterResolving hook for [%s]: %w", abstract, err)
		}
	}
	return nil
}

func (h *hookBus) fireForget(abstract string) {
	for _, cb := range h.onForget {
		cb(abstract)
	}
}

// hasResolveHooks reports whether building abstract fires any hook, global
// ones included.
func (h *hookBus) hasResolveHooks(abstract string) bool {
	return len(h.resolvingAny) > 0 || len(h.afterAny) > 0 ||
		len(h.resolving[abstract]) > 0 || len(h.afterResolving[abstract]) > 0
}

// ── Registration ──────────────────────────────────────────────────────────────

// OnBind registers a hook fired for every successful Bind, before key-specific
// hooks.
//
//	// Laravel-style: $app->onBind(fn($abstract) => ...)
func (c *Container) OnBind(cb BindHook) {
	c.hooks.onBindAny = append(c.hooks.onBindAny, cb)
}

// OnBindOf registers a hook fired when abstract is bound.
func (c *Container) OnBindOf(abstract string, cb BindHook) {
	c.hooks.onBind[abstract] = append(c.hooks.onBind[abstract], cb)
}

// Resolving registers a hook fired when abstract is built.
//
//	// Laravel: $app->resolving(Mailer::class, fn($mailer, $app) => ...)
func (c *Container) Resolving(abstract string, cb ResolveHook) {
	c.hooks.resolving[abstract] = append(c.hooks.resolving[abstract], cb)
}

// AfterResolving registers a hook fired after the Resolving hooks of abstract.
//
//	// Laravel: $app->afterResolving(Mailer::class, fn($mailer, $app) => ...)
func (c *Container) AfterResolving(abstract string, cb ResolveHook) {
	c.hooks.afterResolving[abstract] = append(c.hooks.afterResolving[abstract], cb)
}

// ResolvingAny registers a hook fired whenever any abstract is built.
func (c *Container) ResolvingAny(cb AnyResolveHook) {
	c.hooks.resolvingAny = append(c.hooks.resolvingAny, cb)
}

// AfterResolvingAny registers a hook fired after every build.
//
//	// Laravel: $app->afterResolving(fn($object, $app) => ...)
func (c *Container) AfterResolvingAny(cb AnyResolveHook) {
	c.hooks.afterAny = append(c.hooks.afterAny, cb)
}

// OnForget registers a hook fired after Forget.
func (c *Container) OnForget(cb ForgetHook) {
	c.hooks.onForget = append(c.hooks.onForget, cb)
}
