// Package paths resolves the application's well-known directories from one
// base path.
//
//	p, _ := paths.New("/srv/app")
//	p.Storage("cache")   // /srv/app/storage/cache
//	p.Config("app.yaml") // /srv/app/config/app.yaml
package paths

import (
	"fmt"
	"path/filepath"
)

// Resolver joins paths under the base directory and its config, storage and
// resources subdirectories. Results are cleaned with filepath.Join.
type Resolver struct {
	base string
}

// New makes base absolute. An empty base is the working directory.
func New(base string) (*Resolver, error) {
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("base path %s: %w", base, err)
	}
	return &Resolver{base: abs}, nil
}

// Base returns the base path joined with elem.
func (p *Resolver) Base(elem ...string) string {
	return p.resolve("", elem)
}

// Config returns a path under <base>/config.
func (p *Resolver) Config(elem ...string) string {
	return p.resolve("config", elem)
}

// Storage returns a path under <base>/storage.
func (p *Resolver) Storage(elem ...string) string {
	return p.resolve("storage", elem)
}

// Resource returns a path under <base>/resources.
func (p *Resolver) Resource(elem ...string) string {
	return p.resolve("resources", elem)
}

func (p *Resolver) resolve(root string, elem []string) string {
	return filepath.Join(append([]string{p.base, root}, elem...)...)
}
