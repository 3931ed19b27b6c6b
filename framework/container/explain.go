package container

import (
	"fmt"
	"maps"
	"slices"
)

// Explanation describes how an abstract would be resolved. It is the payload
// of the explain:service command and the /container/explain endpoint.
type Explanation struct {
	Abstract     string            `json:"abstract" yaml:"abstract"`
	ResolvedTo   string            `json:"resolved_to" yaml:"resolved_to"`
	Bound        bool              `json:"bound" yaml:"bound"`
	Kind         ConcreteKind      `json:"kind,omitempty" yaml:"kind,omitempty"`
	Concrete     string            `json:"concrete,omitempty" yaml:"concrete,omitempty"`
	Shared       bool              `json:"shared" yaml:"shared"`
	Resolved     bool              `json:"resolved" yaml:"resolved"`
	HasHooks     bool              `json:"has_hooks" yaml:"has_hooks"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Aliases      []string          `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Contextual   map[string]string `json:"contextual,omitempty" yaml:"contextual,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Explain reports what the container knows about abstract. It never fails:
// unbound keys, and names caught in an alias cycle, yield Bound == false and
// nothing else. Explain fires no hooks and does not touch alias usage.
func (c *Container) Explain(abstract string) Explanation {
	ex := Explanation{Abstract: abstract, ResolvedTo: abstract}

	key, ok := c.aliases.peek(abstract)
	if !ok {
		return ex
	}
	ex.ResolvedTo = key

	b, hasBinding := c.bindings[key]
	instance, hasInstance := c.instances[key]
	if !hasBinding && !hasInstance {
		return ex
	}

	ex.Bound = true
	ex.Resolved = hasInstance
	ex.Shared = c.IsShared(key)
	ex.Tags = c.TagsFor(key)
	ex.Aliases = c.aliases.AliasesFor(key)

	if hasBinding {
		ex.Kind = b.concrete.Kind()
		ex.Concrete = describeConcrete(b.concrete)
		if class, ok := b.concrete.(*Class); ok {
			ex.Dependencies = class.ParamNames()
		}
	} else {
		ex.Kind = KindValue
		ex.Concrete = fmt.Sprintf("%T", instance)
	}
	// Values are returned untouched, so no hook fires for them.
	ex.HasHooks = ex.Kind != KindValue && c.hooks.hasResolveHooks(key)

	if overrides := c.contextual[ex.concreteFrame()]; len(overrides) > 0 {
		ex.Contextual = make(map[string]string, len(overrides))
		for _, need := range slices.Sorted(maps.Keys(overrides)) {
			ex.Contextual[need] = describeConcrete(overrides[need])
		}
	}
	return ex
}

// concreteFrame is the build-stack frame the explained concrete would push,
// which is what contextual bindings are keyed by.
func (ex Explanation) concreteFrame() string {
	if ex.Kind == KindClass {
		return ex.Concrete
	}
	return ex.ResolvedTo
}

// ListDependencies returns the constructor parameter names of the concrete
// abstract resolves to. Factories and values have none.
func (c *Container) ListDependencies(abstract string) ([]string, error) {
	key, chain, ok := follow(abstract, c.aliases.aliases)
	if !ok {
		return nil, &CircularAliasError{Chain: chain}
	}

	if b, ok := c.bindings[key]; ok {
		if class, ok := b.concrete.(*Class); ok {
			return class.ParamNames(), nil
		}
		return []string{}, nil
	}
	if _, ok := c.instances[key]; ok {
		return []string{}, nil
	}
	if class, ok := c.classes[key]; ok {
		return class.ParamNames(), nil
	}
	return nil, c.notFound(key)
}
