package container

import "maps"

// contextualIndex maps consumer → abstract → concrete. It is consulted only
// while the consumer is the top frame of the build stack.
type contextualIndex map[string]map[string]Concrete

func (idx contextualIndex) set(consumer, abstract string, concrete Concrete) {
	if _, ok := idx[consumer]; !ok {
		idx[consumer] = make(map[string]Concrete)
	}
	idx[consumer][abstract] = concrete
}

func (idx contextualIndex) lookup(consumer, abstract string) (Concrete, bool) {
	concrete, ok := idx[consumer][abstract]
	return concrete, ok
}

// BindWhen registers concrete for abstract, used only while consumer is being
// built.
func (c *Container) BindWhen(abstract, consumer string, concrete Concrete) error {
	if isNilConcrete(concrete) {
		return errNilConcrete(abstract)
	}
	c.contextual.set(consumer, abstract, concrete)
	return nil
}

// Contextual returns a copy of the overrides registered for consumer.
func (c *Container) Contextual(consumer string) map[string]Concrete {
	return maps.Clone(c.contextual[consumer])
}

// When starts a contextual binding chain.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(fn() => new S3)
//	c.When("PhotoController").Needs("Filesystem").Give(container.Factory(newS3))
func (c *Container) When(consumer string) *ContextualBuilder {
	return &ContextualBuilder{container: c, consumer: consumer}
}

// ContextualBuilder implements the fluent contextual binding API.
type ContextualBuilder struct {
	container *Container
	consumer  string
	needs     string
}

// Needs specifies which abstract the consumer depends on.
func (b *ContextualBuilder) Needs(abstract string) *ContextualBuilder {
	b.needs = abstract
	return b
}

// Give provides the concrete used when the consumer resolves the needed
// abstract.
func (b *ContextualBuilder) Give(concrete Concrete) error {
	return b.container.BindWhen(b.needs, b.consumer, concrete)
}

// GiveValue is a shorthand for Give when the value is a simple scalar or
// pre-built instance.
//
//	// Laravel: ->give('/tmp/photos')
//	c.When("PhotoController").Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(v any) error {
	return b.Give(Value(v))
}
