// Package metrics exports container activity as Prometheus counters.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-ioc/framework/container"
)

// Collector holds the container metrics in its own registry.
type Collector struct {
	registry *prometheus.Registry

	Resolutions      *prometheus.CounterVec
	Bindings         prometheus.Counter
	Forgets          prometheus.Counter
	AliasResolutions prometheus.Counter
	Errors           *prometheus.CounterVec
}

// NewCollector creates a Collector whose metric names start with namespace
// ("ioc" gives ioc_resolutions_total).
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	resolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of objects built by the container",
		},
		[]string{"abstract"},
	)

	bindings := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bindings_total",
			Help:      "Total number of bindings registered",
		},
	)

	forgets := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forgets_total",
			Help:      "Total number of abstracts forgotten",
		},
	)

	aliasResolutions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alias_resolutions_total",
			Help:      "Total number of successful alias resolutions",
		},
	)

	errs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_errors_total",
			Help:      "Total number of failed resolutions by error kind",
		},
		[]string{"kind"},
	)

	registry.MustRegister(resolutions, bindings, forgets, aliasResolutions, errs)

	return &Collector{
		registry:         registry,
		Resolutions:      resolutions,
		Bindings:         bindings,
		Forgets:          forgets,
		AliasResolutions: aliasResolutions,
		Errors:           errs,
	}
}

// Attach registers hooks on c that feed the counters. Value concretes are
// returned without firing hooks, so they are not counted as resolutions.
// Names that are not aliases pass through the alias graph unchanged and are
// not counted as alias resolutions.
func (m *Collector) Attach(c *container.Container) {
	c.OnBind(func(string, container.Concrete) error {
		m.Bindings.Inc()
		return nil
	})
	c.OnForget(func(string) {
		m.Forgets.Inc()
	})
	c.AfterResolvingAny(func(abstract string, _ any) error {
		m.Resolutions.WithLabelValues(abstract).Inc()
		return nil
	})
	c.AliasGraph().OnAfterResolve(func(name, resolved, _ string, _ container.ResolveContext) error {
		if name != resolved {
			m.AliasResolutions.Inc()
		}
		return nil
	})
}

// RecordError counts err under its kind. nil is ignored.
func (m *Collector) RecordError(err error) {
	if err == nil {
		return
	}
	m.Errors.WithLabelValues(Kind(err)).Inc()
}

// Kind classifies a container error for the "kind" label.
func Kind(err error) string {
	switch {
	case errors.Is(err, container.ErrCircularDependency):
		return "circular_dependency"
	case errors.Is(err, container.ErrCircularAlias):
		return "circular_alias"
	case errors.Is(err, container.ErrBindingResolution):
		return "binding_resolution"
	case errors.Is(err, container.ErrServiceNotFound):
		return "not_found"
	case errors.Is(err, container.ErrInvalidState):
		return "invalid_state"
	default:
		return "other"
	}
}

// Registry returns the Prometheus registry for this collector.
func (m *Collector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
