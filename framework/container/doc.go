// Package container provides a Laravel-style IoC (Inversion of Control)
// container and Service Provider system for Go.
//
// # Overview
//
// The container manages the instantiation and lifecycle of an application's
// dependencies: transient bindings, singletons, pre-built instances, aliases,
// tags, contextual bindings, scopes, extension (decoration) and lifecycle
// hooks. Its state can be exported and re-imported.
//
// Go has no runtime constructor reflection by class name, so constructible
// types are registered as a *Class: a constructor function plus a parameter
// descriptor table computed once by NewClass.
//
// # Container Lifecycle
//
//  1. Create: c := container.New(container.WithLogger(logger))
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()        // safe to resolve everything after this
//  4. Serve requests
//
// # Bindings
//
//	// Transient class, new instance every Make()
//	// Laravel: $app->bind(Foo::class)
//	c.Bind("Foo", container.MustClass("Foo", NewFoo))
//
//	// Singleton factory, created once, reused
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache)
//	c.Singleton("cache", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](r, "config")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return cache.NewRedis(cfg), nil
//	}))
//
//	// Pre-built value
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", myConfig)
//
//	// Alias
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("CacheManager", "cache")
//
// # Resolving
//
//	// Untyped
//	raw, err := c.Make("cache")
//
//	// Generic (no type assertion required)
//	cache, err := container.Resolve[*RedisCache](c, "cache")
//
//	// Explicit parameters
//	report, err := c.MakeWith("Report", container.Params{"id": 7})
//
// A Make walks: alias resolution, active scope overrides, the shared
// instance cache, contextual overrides for the consumer being built, the
// binding, and finally a class defined under the same name. A concrete that
// appears twice on the build stack fails with *CircularDependencyError.
//
// # Contextual Binding
//
//	// Laravel: $app->when(PhotoController::class)
//	//              ->needs(Filesystem::class)
//	//              ->give(fn() => new S3Filesystem)
//	c.When("PhotoController").Needs("Filesystem").Give(container.MustClass("S3Filesystem", NewS3))
//
// # Scopes
//
//	err := c.Scope("request", func(c *container.Container) error {
//	    c.BindInScope("user", container.Value(u), "request")
//	    return handle(c)
//	})
//
// # Tags
//
//	// Laravel: $app->tag([CpuReport::class, MemReport::class], 'reports')
//	c.Tag("reports", "CpuReport", "MemReport")
//	reports, err := c.Tagged("reports")  // []any, all or nothing
//
// # Extend / Decorate
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
//	c.Extend("logger", func(instance any, r container.Resolver) (any, error) {
//	    return &TimestampLogger{Inner: instance.(*Logger)}, nil
//	})
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) error {
//	    return app.Singleton("mailer", container.MustClass("SMTPMailer", mail.NewSMTP))
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool   { return true }
//	func (p *HeavyProvider) Provides() []string { return []string{"heavy"} }
//
// HeavyProvider.Register only runs on the first app.Make("heavy").
//
// # State
//
//	st := c.ExportState()
//	data, _ := st.Encode()
//	decoded, err := container.DecodeState(data)
//	err = fresh.ImportState(decoded)
//
// Factory bindings are listed in State.Unserializable and do not survive the
// round trip.
package container
