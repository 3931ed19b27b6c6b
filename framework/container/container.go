package container

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"go.uber.org/zap"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container, modelled on Laravel's
// Illuminate\Container\Container.
//
// It supports:
//   - Bind / Singleton / Instance / Forget
//   - Make / MakeWith / Call with reflective auto-wiring of Class concretes
//   - Aliases (chains, scoped edges, groups, profiles) through an AliasGraph
//   - Contextual binding (when A needs B, give it C)
//   - Scopes (temporary, stacked binding overrides)
//   - Tags, Extend (decorators) and lifecycle hooks
//   - State export / import
//
// A Container holds no lock. Embedders sharing one across goroutines must
// serialise Bind, Make, Forget, Alias and ImportState themselves.
type Container struct {
	// abstract → binding
	bindings map[string]*binding

	// abstract → shared instance
	instances map[string]any

	// keys whose instance came from Instance rather than a build
	registered map[string]struct{}

	// class name → constructible type
	classes map[string]*Class

	// descriptor tables of plain functions passed to Call
	funcs map[reflect.Type][]Param

	// abstract → decorators
	extenders map[string][]Extender

	// scalar parameters bag
	parameters map[string]any

	aliases    *AliasGraph
	contextual contextualIndex
	hooks      hookBus
	scopes     scopeManager
	tags       tagIndex

	logger       *zap.Logger
	maxDistance  int
	aliasLogging bool
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxSuggestionDistance sets the largest edit distance offered as a
// "did you mean" suggestion. Zero disables suggestions.
func WithMaxSuggestionDistance(n int) Option {
	return func(c *Container) { c.maxDistance = n }
}

// WithAliasLogging records every alias resolution (see AliasGraph.ResolutionLogs).
func WithAliasLogging(enabled bool) Option {
	return func(c *Container) { c.aliasLogging = enabled }
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		logger:      zap.NewNop(),
		maxDistance: DefaultSuggestionDistance,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reset()
	return c
}

func (c *Container) reset() {
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.registered = make(map[string]struct{})
	c.classes = make(map[string]*Class)
	c.funcs = make(map[reflect.Type][]Param)
	c.extenders = make(map[string][]Extender)
	c.parameters = make(map[string]any)
	c.aliases = NewAliasGraph(
		WithSuggestionDistance(c.maxDistance),
		WithAliasLogger(c.logger),
	)
	c.aliases.EnableLogging(c.aliasLogging)
	c.contextual = make(contextualIndex)
	c.hooks = newHookBus()
	c.scopes = newScopeManager()
	c.tags = make(tagIndex)

	// Bind the container to itself, like Laravel's $app->instance()
	c.Instance(selfKey, c)
}

// Flush resets the entire container, hooks included.
func (c *Container) Flush() {
	c.reset()
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// ── Aliases ───────────────────────────────────────────────────────────────────

// AliasGraph exposes the container's alias graph for profile, group and
// diagnostic operations.
func (c *Container) AliasGraph() *AliasGraph { return c.aliases }

// Alias registers an alternative name for an abstract.
//
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("CacheManager", "cache")
func (c *Container) Alias(abstract, alias string) error {
	return c.aliases.Alias(abstract, alias)
}

// AliasInScope registers an alias that only applies while scope is active.
func (c *Container) AliasInScope(abstract, alias, scope string) error {
	return c.aliases.AliasInScope(abstract, alias, scope)
}

// ResolveAlias follows name through the global alias edges.
func (c *Container) ResolveAlias(name string) (string, error) {
	return c.aliases.Resolve(name, "")
}

// ResolveAliasInScope follows name through scope's edges when it has one.
func (c *Container) ResolveAliasInScope(name, scope string) (string, error) {
	return c.aliases.Resolve(name, scope)
}

// IsAlias reports whether name is a registered alias.
func (c *Container) IsAlias(name string) bool { return c.aliases.IsAlias(name) }

// AliasesForAbstract returns the aliases pointing directly at abstract.
func (c *Container) AliasesForAbstract(abstract string) []string {
	return c.aliases.AliasesFor(abstract)
}

// AssignAliasToGroup adds alias to a non-exclusive group.
func (c *Container) AssignAliasToGroup(alias, group string) error {
	return c.aliases.AssignToGroup(alias, group)
}

// AliasResolutionPath returns the hops from name to its terminal abstract.
func (c *Container) AliasResolutionPath(name string) []string {
	return c.aliases.Path(name)
}

// ── Parameters ────────────────────────────────────────────────────────────────

// SetParameter stores a scalar parameter.
func (c *Container) SetParameter(key string, v any) { c.parameters[key] = v }

// Parameter returns a scalar parameter.
func (c *Container) Parameter(key string) (any, bool) {
	v, ok := c.parameters[key]
	return v, ok
}

// Parameters returns a copy of the parameter bag.
func (c *Container) Parameters() map[string]any { return maps.Clone(c.parameters) }

// ── Resolver ──────────────────────────────────────────────────────────────────

// Container returns c, so a *Container satisfies Resolver.
func (c *Container) Container() *Container { return c }

// BuildStack is always empty outside a resolution.
func (c *Container) BuildStack() []string { return nil }

// notFound builds the ServiceNotFound error for key, suggesting the closest
// alias, binding or class name.
func (c *Container) notFound(key string) error {
	candidates := slices.Collect(maps.Keys(c.aliases.aliases))
	candidates = slices.AppendSeq(candidates, maps.Keys(c.bindings))
	candidates = slices.AppendSeq(candidates, maps.Keys(c.classes))
	suggestion, _ := closest(key, candidates, c.maxDistance)
	return &ServiceNotFoundError{Abstract: key, Suggestion: suggestion}
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve is a generic helper that calls Make and type-asserts the result.
// It works with a *Container or with the Resolver handed to factories.
//
//	// Instead of: v, err := c.Make("db"); db := v.(*sql.DB)
//	// Write:      db, err := container.Resolve[*sql.DB](c, "db")
func Resolve[T any](r Resolver, abstract string) (T, error) {
	var zero T
	instance, err := r.Make(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%T]: [%s] resolved to %T", zero, abstract, instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver, abstract string) T {
	typed, err := Resolve[T](r, abstract)
	if err != nil {
		panic(err)
	}
	return typed
}
