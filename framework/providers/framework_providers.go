package providers

import (
	"sync"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/ai"
	"github.com/km-arc/go-ioc/framework/cache"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/exceptions"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/logging"
	"github.com/km-arc/go-ioc/framework/metrics"
	"github.com/km-arc/go-ioc/framework/paths"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env and
// binds it into the container as "config".
//
// Bound abstracts:
//   - "config"         → *config.Config
//   - "configuration"  → alias of "config"
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Bootstrap\LoadConfiguration
//	$app->singleton('config', fn() => new Repository($items));
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string

	// Config, when set, is bound as-is and EnvFiles are ignored.
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load(p.EnvFiles...)
	}
	if err := app.Singleton("config", container.Value(cfg)); err != nil {
		return err
	}
	return app.Alias("config", "configuration")
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger.
//
// Bound abstracts:
//   - "log"     → *zap.Logger
//   - "logger"  → alias of "log"
//
// Laravel equivalent:
//
//	// Illuminate\Log\LogServiceProvider
//	$app->singleton('log', fn($app) => new LogManager($app));
type LoggingServiceProvider struct {
	container.BaseProvider

	// Logger, when set, is bound instead of one built from "config".
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	if p.Logger != nil {
		if err := app.Singleton("log", container.Value(p.Logger)); err != nil {
			return err
		}
	} else {
		err := app.Singleton("log", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
			cfg, err := container.Resolve[*config.Config](r, "config")
			if err != nil {
				return nil, err
			}
			return logging.New(cfg.Log)
		}))
		if err != nil {
			return err
		}
	}
	return app.Alias("log", "logger")
}

// ── PathServiceProvider ───────────────────────────────────────────────────────

// PathServiceProvider binds the application directory layout rooted at
// APP_BASE_PATH.
//
// Bound abstracts:
//   - "path"   → *paths.Resolver
//   - "paths"  → alias of "path"
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Application::bindPathsInContainer
//	$app->instance('path.storage', $app->storagePath());
type PathServiceProvider struct {
	container.BaseProvider
}

func (p *PathServiceProvider) Register(app *container.Container) error {
	err := app.Singleton("path", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		return paths.New(cfg.App.BasePath)
	}))
	if err != nil {
		return err
	}
	return app.Alias("path", "paths")
}

// ── CacheServiceProvider ──────────────────────────────────────────────────────

// CacheServiceProvider binds the file cache. The directory is CACHE_DIR, or
// storage/framework/cache under the base path.
//
// Bound abstracts:
//   - "cache"  → *cache.FileCache
//
// Laravel equivalent:
//
//	// Illuminate\Cache\CacheServiceProvider
//	$app->singleton('cache', fn($app) => new CacheManager($app));
type CacheServiceProvider struct {
	container.BaseProvider
}

func (p *CacheServiceProvider) Register(app *container.Container) error {
	return app.Singleton("cache", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		logger, err := container.Resolve[*zap.Logger](r, "log")
		if err != nil {
			return nil, err
		}
		dir := cfg.Cache.Dir
		if dir == "" {
			base, err := container.Resolve[*paths.Resolver](r, "path")
			if err != nil {
				return nil, err
			}
			dir = base.Storage("framework", "cache")
		}
		return cache.New(dir, cache.WithTTL(cfg.Cache.TTL), cache.WithLogger(logger))
	}))
}

// ── ExceptionServiceProvider ──────────────────────────────────────────────────

// ExceptionServiceProvider binds the error handler for APP_ENV. Formats from
// ERROR_FORMATS_FILE replace the built-in ones per environment.
//
// Bound abstracts:
//   - "exceptions"  → *exceptions.Handler
//
// Laravel equivalent:
//
//	$app->singleton(ExceptionHandler::class, Handler::class);
type ExceptionServiceProvider struct {
	container.BaseProvider
}

func (p *ExceptionServiceProvider) Register(app *container.Container) error {
	return app.Singleton("exceptions", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		logger, err := container.Resolve[*zap.Logger](r, "log")
		if err != nil {
			return nil, err
		}
		opts := []exceptions.Option{exceptions.WithLogger(logger)}
		if path := cfg.Error.FormatsFile; path != "" {
			raw, err := config.LoadErrorFormats(path)
			if err != nil {
				return nil, err
			}
			formats := make(map[string]exceptions.Format, len(raw))
			for env, f := range raw {
				formats[env] = f
			}
			opts = append(opts, exceptions.WithFormats(formats))
		}
		return exceptions.New(cfg.App.Env, cfg.Error.Display, opts...), nil
	}))
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Bound abstracts:
//   - "router"  → *routing.Router
//
// Laravel equivalent:
//
//	// Illuminate\Routing\RoutingServiceProvider
//	$app->singleton('router', fn($app) => new Router($app['events'], $app));
type RoutingServiceProvider struct {
	container.BaseProvider

	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	origins := p.AllowedOrigins
	return app.Singleton("router", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
		logger, err := container.Resolve[*zap.Logger](r, "log")
		if err != nil {
			return nil, err
		}
		var opts []routing.Option
		if len(origins) > 0 {
			opts = append(opts, routing.WithCORS(origins...))
		}
		return routing.New(logger, opts...), nil
	}))
}

// ── AIServiceProvider ─────────────────────────────────────────────────────────

// AIServiceProvider is deferred: nothing is built until "ai" or
// "ai.registry" is first resolved.
//
// Bound abstracts:
//   - "ai.registry"  → *ai.Registry
//   - "ai"           → ai.Adapter (the registry's default)
//
// AI_PROVIDER picks the adapter registered first: "completion" puts the
// chat completion adapter ahead of the local one, "none" registers only the
// null adapter. When "cache" is bound the completion adapter keeps its
// answers there.
type AIServiceProvider struct {
	container.BaseProvider
}

func (p *AIServiceProvider) IsDeferred() bool   { return true }
func (p *AIServiceProvider) Provides() []string { return []string{"ai", "ai.registry"} }

func (p *AIServiceProvider) Register(app *container.Container) error {
	err := app.Singleton("ai.registry", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		logger, err := container.Resolve[*zap.Logger](r, "log")
		if err != nil {
			return nil, err
		}
		var store ai.Cache
		if cfg.AI.Provider == "completion" && r.Container().Has("cache") {
			fc, err := container.Resolve[*cache.FileCache](r, "cache")
			if err != nil {
				return nil, err
			}
			store = fc
		}
		return newAIRegistry(cfg.AI, r.Container(), logger, store), nil
	}))
	if err != nil {
		return err
	}

	return app.Singleton("ai", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
		reg, err := container.Resolve[*ai.Registry](r, "ai.registry")
		if err != nil {
			return nil, err
		}
		adapter, _ := reg.Default()
		return adapter, nil
	}))
}

func newAIRegistry(cfg config.AIConfig, keys ai.KeySource, logger *zap.Logger, store ai.Cache) *ai.Registry {
	reg := ai.NewRegistry()
	local := ai.NewLocalAdapter(keys)

	switch cfg.Provider {
	case "none":
		reg.Register("none", ai.NullAdapter{})
	case "completion":
		completion := ai.NewCompletionAdapter(ai.CompletionConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
			Model:   cfg.Model,
		}, keys, logger)
		if store != nil {
			completion.WithCache(store)
		}
		reg.Register("completion", completion)
		reg.Register("local", local)
	default:
		reg.Register("local", local)
	}
	return reg
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider attaches a Prometheus collector to the container as
// soon as it is registered, so bindings made by later providers are counted.
//
// Bound abstracts:
//   - "metrics"  → *metrics.Collector
type MetricsServiceProvider struct {
	container.BaseProvider
	Namespace string // default "ioc"
}

func (p *MetricsServiceProvider) Register(app *container.Container) error {
	ns := p.Namespace
	if ns == "" {
		ns = "ioc"
	}
	collector := metrics.NewCollector(ns)

	// A factory keeps the live counters out of state snapshots, which list it
	// as unserializable.
	err := app.Singleton("metrics", container.Factory(func(container.Resolver, container.Params) (any, error) {
		return collector, nil
	}))
	if err != nil {
		return err
	}
	collector.Attach(app)
	return nil
}

// ── DiagnosticsServiceProvider ────────────────────────────────────────────────

// DiagnosticsServiceProvider binds the container endpoints and, on Boot,
// mounts them on "router" together with /metrics when a collector is bound.
// A bound "exceptions" handler formats their error bodies and
// CONTAINER_ADMIN_TOKEN enables profile activation.
//
// Bound abstracts:
//   - "diagnostics"  → *gohttp.Diagnostics
type DiagnosticsServiceProvider struct {
	container.BaseProvider

	// Locker guards the container against concurrent requests. It must be
	// the same Locker every other writer of the container holds.
	Locker sync.Locker
}

func (p *DiagnosticsServiceProvider) Register(app *container.Container) error {
	mu := p.Locker
	return app.Singleton("diagnostics", container.Factory(func(r container.Resolver, _ container.Params) (any, error) {
		logger, err := container.Resolve[*zap.Logger](r, "log")
		if err != nil {
			return nil, err
		}
		cfg, err := container.Resolve[*config.Config](r, "config")
		if err != nil {
			return nil, err
		}
		opts := []gohttp.DiagnosticsOption{
			gohttp.WithDiagnosticsLogger(logger),
			gohttp.WithAdminToken(cfg.Container.AdminToken),
		}
		if r.Container().Has("exceptions") {
			h, err := container.Resolve[*exceptions.Handler](r, "exceptions")
			if err != nil {
				return nil, err
			}
			opts = append(opts, gohttp.WithExceptionHandler(h))
		}
		if r.Container().Has("ai") {
			adapter, err := container.Resolve[ai.Adapter](r, "ai")
			if err != nil {
				return nil, err
			}
			if ex, ok := adapter.(ai.Explainer); ok && ai.IsEnabled(adapter) {
				opts = append(opts, gohttp.WithExplainer(ex))
			}
		}
		return gohttp.NewDiagnostics(r.Container(), mu, opts...), nil
	}))
}

func (p *DiagnosticsServiceProvider) Boot(app *container.Container) error {
	router, err := container.Resolve[*routing.Router](app, "router")
	if err != nil {
		return err
	}
	d, err := container.Resolve[*gohttp.Diagnostics](app, "diagnostics")
	if err != nil {
		return err
	}
	d.Routes(router)

	if app.Has("metrics") {
		collector, err := container.Resolve[*metrics.Collector](app, "metrics")
		if err != nil {
			return err
		}
		router.Handle("/metrics", collector.Handler())
	}
	return nil
}
