// Package ai provides pluggable assistants that suggest service keys and
// explain container bindings.
//
// Every adapter implements Adapter. The optional capabilities are separate
// interfaces and are discovered with a type assertion:
//
//	if ex, ok := adapter.(ai.Explainer); ok {
//	    text, err := ex.ExplainDependencies(ctx, c.Explain("Mailer"))
//	}
package ai

import (
	"context"
	"errors"

	"github.com/km-arc/go-ioc/framework/container"
)

// ErrDisabled is returned by capabilities of an adapter that is switched off.
var ErrDisabled = errors.New("ai adapter disabled")

// Adapter suggests service keys.
type Adapter interface {
	// Suggest returns service keys that fit a free-form context ("http", "db").
	Suggest(ctx context.Context, hint string) []string

	// Predict returns likely keys under a namespace prefix.
	Predict(ctx context.Context, namespace string) []string
}

// Toggler reports whether an adapter is usable right now. Adapters that do
// not implement it count as enabled.
type Toggler interface {
	Enabled() bool
}

// Explainer turns an Explanation into prose.
type Explainer interface {
	ExplainDependencies(ctx context.Context, ex container.Explanation) (string, error)
}

// Completer answers an arbitrary prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// IsEnabled reports whether a is enabled.
func IsEnabled(a Adapter) bool {
	if t, ok := a.(Toggler); ok {
		return t.Enabled()
	}
	return true
}
