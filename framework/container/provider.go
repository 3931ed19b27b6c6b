package container

import (
	"fmt"
	"maps"
	"slices"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider mirrors Laravel's Illuminate\Support\ServiceProvider.
//
// Register() only binds. Boot() is called after ALL providers have been
// registered, making it safe to resolve other bindings inside Boot().
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Singleton("mailer", container.MustClass("SMTPMailer", NewSMTPMailer))
//	}
//
//	func (p *AppServiceProvider) Boot(app *container.Container) error {
//	    _, err := app.Make("mailer")
//	    return err
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here; use Boot() for that.
	Register(app *Container) error

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides returns the abstract keys a deferred provider registers.
	//
	//	// Laravel: public function provides(): array { return [Cache::class]; }
	Provides() []string

	// IsDeferred returns true if this provider should be loaded lazily,
	// only when one of its Provides() abstracts is first resolved.
	//
	//	// Laravel: protected $defer = true;
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot(), Provides() and
// IsDeferred(). Embed it and only override what you need.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers.
//
// It mirrors Laravel's Application::registerConfiguredProviders and
// Application::bootProviders.
type ProviderRegistry struct {
	app        *Container
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // abstract → provider
	loaded     map[ServiceProvider]bool
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		deferred:   make(map[string]ServiceProvider),
		loaded:     make(map[ServiceProvider]bool),
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method unless it is
// deferred. A provider registered after Boot is booted immediately.
//
//	// Laravel: $app->register(new AppServiceProvider($app))
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		return r.interceptDeferred(provider)
	}

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register %T: %w", provider, err)
	}
	r.eager = append(r.eager, provider)

	if r.booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// interceptDeferred binds a loader for each deferred abstract. The first Make
// of any of them registers (and, after Boot, boots) the provider, whose own
// bindings replace the loaders.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	for _, abstract := range provider.Provides() {
		abs := abstract
		r.deferred[abs] = provider

		var loading bool
		loader := Factory(func(res Resolver, params Params) (any, error) {
			if loading {
				return nil, fmt.Errorf("deferred provider %T did not bind [%s]", provider, abs)
			}
			if err := r.load(provider); err != nil {
				return nil, err
			}
			loading = true
			defer func() { loading = false }()

			// A fresh resolution: this loader's own frame is still on res's stack.
			return res.Container().MakeWith(abs, params)
		})
		if err := r.app.Bind(abs, loader); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) load(provider ServiceProvider) error {
	if r.loaded[provider] {
		return nil
	}
	r.loaded[provider] = true
	for _, abs := range provider.Provides() {
		delete(r.deferred, abs)
	}

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register deferred %T: %w", provider, err)
	}
	if r.booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot deferred %T: %w", provider, err)
		}
	}
	return nil
}

// Boot calls Boot() on all eager providers, stopping at the first error.
//
//	// Laravel: $app->boot()
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.eager {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.eager }

// Deferred returns the abstracts whose provider has not been loaded yet, sorted.
func (r *ProviderRegistry) Deferred() []string {
	return slices.Sorted(maps.Keys(r.deferred))
}
