// Package profile loads alias profiles from YAML and keeps them applied to a
// container's alias graph.
//
//	active: testing
//	profiles:
//	  testing:
//	    mailer: FakeMailer
//	  production:
//	    mailer: SmtpMailer
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-ioc/framework/container"
)

// ErrInvalidProfile is returned for a profiles file that parses but makes no
// sense.
var ErrInvalidProfile = errors.New("invalid alias profile")

// File is the content of a profiles file.
type File struct {
	Active   string                       `yaml:"active,omitempty"`
	Profiles map[string]map[string]string `yaml:"profiles"`
}

// Load reads and validates a profiles file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a profiles document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidProfile)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that every edge is named and not a self alias, and that the
// active profile exists.
func (f *File) Validate() error {
	for _, name := range slices.Sorted(maps.Keys(f.Profiles)) {
		if name == "" {
			return fmt.Errorf("%w: profile without a name", ErrInvalidProfile)
		}
		for alias, abstract := range f.Profiles[name] {
			switch {
			case alias == "" || abstract == "":
				return fmt.Errorf("%w: profile '%s' has an empty alias or abstract", ErrInvalidProfile, name)
			case alias == abstract:
				return fmt.Errorf("%w: profile '%s' aliases [%s] to itself", ErrInvalidProfile, name, alias)
			}
		}
	}
	if f.Active != "" {
		if _, ok := f.Profiles[f.Active]; !ok {
			return fmt.Errorf("%w: active profile '%s' is not defined", ErrInvalidProfile, f.Active)
		}
	}
	return nil
}

// Apply defines every profile on g and activates the active one, if any.
func (f *File) Apply(g *container.AliasGraph) error {
	for name, edges := range f.Profiles {
		g.DefineProfile(name, edges)
	}
	if f.Active == "" {
		return nil
	}
	return g.ActivateProfile(f.Active)
}
