// Package exceptions renders errors for clients according to the
// environment, and logs them.
//
// Each environment has a Format: an output field mapped to a template.
// Templates may use :message, :kind and :trace.
//
//	h := exceptions.New("production", true, exceptions.WithLogger(logger))
//	report := h.Handle(err)
//	// {"status":"error","error":{"message":"An error occurred: ..."}}
package exceptions

import (
	"maps"
	"strings"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/metrics"
)

// Format maps an output field to its template.
type Format map[string]string

// FallbackEnv is used for environments without a format of their own.
const FallbackEnv = "production"

// DefaultFormats apply unless WithFormats overrides them.
var DefaultFormats = map[string]Format{
	"production": {
		"message": "An error occurred: :message",
		"kind":    "Error kind: :kind",
	},
	"local": {
		"message": "Development error: :message",
		"kind":    "Error kind: :kind",
		"trace":   "Error chain: :trace",
	},
}

// Report is the client-facing form of an error.
type Report struct {
	Status string            `json:"status" yaml:"status"`
	Error  map[string]string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Handler formats and logs errors.
type Handler struct {
	env     string
	display bool
	formats map[string]Format
	logger  *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithFormats replaces the format of each environment in formats.
func WithFormats(formats map[string]Format) Option {
	return func(h *Handler) {
		for env, f := range formats {
			h.formats[env] = maps.Clone(f)
		}
	}
}

// WithLogger sets the logger Handle writes to. The default discards
// everything.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Handler for env. With display false reports carry only the
// status.
func New(env string, display bool, opts ...Option) *Handler {
	h := &Handler{
		env:     env,
		display: display,
		formats: make(map[string]Format, len(DefaultFormats)),
		logger:  zap.NewNop(),
	}
	for name, f := range DefaultFormats {
		h.formats[name] = maps.Clone(f)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle logs err and returns its Report.
func (h *Handler) Handle(err error) Report {
	h.logger.Error(err.Error(),
		zap.String("kind", metrics.Kind(err)),
		zap.Strings("chain", Chain(err)),
		zap.String("env", h.env),
	)
	return h.Render(err)
}

// Render formats err with the format of the handler's environment.
func (h *Handler) Render(err error) Report {
	if !h.display {
		return Report{Status: "error"}
	}

	format, ok := h.formats[h.env]
	if !ok {
		format = h.formats[FallbackEnv]
	}
	r := strings.NewReplacer(
		":message", err.Error(),
		":kind", metrics.Kind(err),
		":trace", strings.Join(Chain(err), " <- "),
	)
	out := make(map[string]string, len(format))
	for field, tmpl := range format {
		out[field] = r.Replace(tmpl)
	}
	return Report{Status: "error", Error: out}
}

// Chain lists the messages of err and the errors it wraps, outermost first.
// Of a multi-error only the last wrapped error is followed, which is the
// cause for the container's error types.
func Chain(err error) []string {
	var out []string
	for err != nil {
		out = append(out, err.Error())
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return out
			}
			err = errs[len(errs)-1]
		default:
			return out
		}
	}
	return out
}
