package ai

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/km-arc/go-ioc/framework/container"
)

// KeySource lists the keys an adapter may suggest from. *container.Container
// satisfies it.
type KeySource interface {
	Bindings() []string
}

// keyword → suggested keys, checked in order.
var hints = []struct {
	keyword string
	keys    []string
}{
	{"http", []string{"HttpClient", "RequestLogger"}},
	{"db", []string{"DatabaseManager", "ConnectionResolver"}},
	{"cache", []string{"CacheManager", "RedisAdapter"}},
	{"ai", []string{"PromptBuilder", "LLMService"}},
}

var defaultHint = []string{"Logger", "Config", "EventBus"}

// LocalAdapter answers from keyword heuristics and the keys already bound in
// a container. It needs no network.
type LocalAdapter struct {
	keys KeySource
}

// NewLocalAdapter creates a LocalAdapter. keys may be nil.
func NewLocalAdapter(keys KeySource) *LocalAdapter {
	return &LocalAdapter{keys: keys}
}

func (a *LocalAdapter) Enabled() bool { return true }

// Suggest returns bound keys containing hint, or the keyword table's entry
// when none match.
func (a *LocalAdapter) Suggest(_ context.Context, hint string) []string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint != "" && a.keys != nil {
		var matched []string
		for _, key := range a.keys.Bindings() {
			if strings.Contains(strings.ToLower(key), hint) {
				matched = append(matched, key)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	for _, h := range hints {
		if strings.Contains(hint, h.keyword) {
			return slices.Clone(h.keys)
		}
	}
	return slices.Clone(defaultHint)
}

// Predict returns the bound keys under namespace. With nothing bound there it
// falls back to a conventional guess.
func (a *LocalAdapter) Predict(_ context.Context, namespace string) []string {
	if a.keys != nil {
		var out []string
		for _, key := range a.keys.Bindings() {
			if strings.HasPrefix(key, namespace) {
				out = append(out, key)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{namespace + ".Service"}
}

// ExplainDependencies summarises ex without calling out.
func (a *LocalAdapter) ExplainDependencies(_ context.Context, ex container.Explanation) (string, error) {
	return describe(ex), nil
}

func describe(ex container.Explanation) string {
	if !ex.Bound {
		return fmt.Sprintf("%s is not bound.", ex.Abstract)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s", ex.Abstract)
	if ex.ResolvedTo != ex.Abstract {
		fmt.Fprintf(&b, " (alias of %s)", ex.ResolvedTo)
	}
	fmt.Fprintf(&b, " is a %s", ex.Kind)
	if ex.Shared {
		b.WriteString(" shared")
	}
	b.WriteString(" binding")

	switch len(ex.Dependencies) {
	case 0:
		b.WriteString(" with no dependencies.")
	case 1:
		fmt.Fprintf(&b, " depending on %s.", ex.Dependencies[0])
	default:
		fmt.Fprintf(&b, " depending on %s.", strings.Join(ex.Dependencies, ", "))
	}
	if len(ex.Dependencies) > 3 {
		b.WriteString(" Consider splitting it or injecting narrower interfaces.")
	}
	return b.String()
}

// NullAdapter is a disabled adapter. Suggestions still come from the keyword
// table so callers always get something to show.
type NullAdapter struct{}

func (NullAdapter) Enabled() bool { return false }

func (NullAdapter) Suggest(_ context.Context, _ string) []string {
	return slices.Clone(defaultHint)
}

func (NullAdapter) Predict(_ context.Context, namespace string) []string {
	return []string{namespace + ".Service"}
}

func (NullAdapter) ExplainDependencies(_ context.Context, _ container.Explanation) (string, error) {
	return "", ErrDisabled
}

func (NullAdapter) Complete(_ context.Context, _ string) (string, error) {
	return "", ErrDisabled
}
