package container

import (
	"fmt"
	"maps"
	"slices"
)

// tagIndex maps tag → keys in insertion order.
type tagIndex map[string][]string

// Tag appends abstracts to a tag. Duplicates are kept and resolved
// independently.
//
//	// Laravel: $app->tag([CpuReport::class, MemoryReport::class], 'reports')
//	c.Tag("reports", "CpuReport", "MemoryReport")
func (c *Container) Tag(tag string, abstracts ...string) {
	c.tags[tag] = append(c.tags[tag], abstracts...)
}

// Tagged resolves every abstract under tag, in tag order. The first failure
// aborts the call and no partial result is returned. Unknown tags yield an
// empty slice.
//
//	// Laravel: $app->tagged('reports')
//	reports, err := c.Tagged("reports")
func (c *Container) Tagged(tag string) ([]any, error) {
	keys := c.tags[tag]
	out := make([]any, 0, len(keys))
	for _, key := range keys {
		instance, err := c.Make(key)
		if err != nil {
			return nil, fmt.Errorf("tag '%s': %w", tag, err)
		}
		out = append(out, instance)
	}
	return out, nil
}

// TaggedKeys returns the abstracts under tag without resolving them.
func (c *Container) TaggedKeys(tag string) []string {
	return slices.Clone(c.tags[tag])
}

// Tags returns a copy of the whole index.
func (c *Container) Tags() map[string][]string {
	out := make(map[string][]string, len(c.tags))
	for tag, keys := range c.tags {
		out[tag] = slices.Clone(keys)
	}
	return out
}

// TagsFor returns the tags abstract belongs to, sorted.
func (c *Container) TagsFor(abstract string) []string {
	var out []string
	for _, tag := range slices.Sorted(maps.Keys(c.tags)) {
		if slices.Contains(c.tags[tag], abstract) {
			out = append(out, tag)
		}
	}
	return out
}
