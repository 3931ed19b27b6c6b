package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/async"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/logging"
	"github.com/km-arc/go-ioc/framework/metrics"
	"github.com/km-arc/go-ioc/framework/profile"
	"github.com/km-arc/go-ioc/framework/providers"
	"github.com/km-arc/go-ioc/framework/routing"
)

const shutdownTimeout = 5 * time.Second

// Application is the top-level application container.
// It embeds the IoC Container and ProviderRegistry so user code can
// call app.Bind(), app.Singleton(), app.Register() directly,
// like $app in Laravel's bootstrap/app.php.
//
// The container itself holds no lock. Code that touches it while Run is
// serving must hold Locker(), the same lock the diagnostics handlers, the
// profile watcher and the async dispatcher take.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config  *config.Config
	logger  *zap.Logger
	mu      sync.Mutex
	watcher *profile.Watcher
	async   *async.Dispatcher
}

// New loads configuration from envFiles (default .env) and bootstraps the
// application.
func New(envFiles ...string) (*Application, error) {
	return NewWithConfig(config.Load(envFiles...))
}

// NewWithConfig bootstraps the application from cfg:
//   - builds the logger and the container
//   - registers the framework providers (same order as Laravel)
//   - applies the parameters file and the alias profiles file, when set
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	c := container.New(
		container.WithLogger(logger),
		container.WithMaxSuggestionDistance(cfg.Container.SuggestionDistance),
		container.WithAliasLogging(cfg.Container.AliasLogging),
	)
	a := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		config:    cfg,
		logger:    logger,
	}

	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: logger},
		&providers.PathServiceProvider{},
		&providers.ExceptionServiceProvider{},
		&providers.CacheServiceProvider{},
		&providers.MetricsServiceProvider{},
		&providers.RoutingServiceProvider{},
		&providers.AIServiceProvider{},
		&providers.DiagnosticsServiceProvider{Locker: &a.mu},
	} {
		if err := a.Register(p); err != nil {
			return nil, err
		}
	}

	if path := cfg.Container.ParametersFile; path != "" {
		n, err := config.ApplyParameters(path, c)
		if err != nil {
			return nil, err
		}
		logger.Info("Container parameters loaded", zap.String("path", path), zap.Int("count", n))
	}

	if err := a.loadProfiles(); err != nil {
		return nil, err
	}

	opts := []async.Option{
		async.WithEngine(async.NewGoroutineEngine(0)),
		async.WithLogger(logger),
	}
	if collector, err := container.Resolve[*metrics.Collector](c, "metrics"); err == nil {
		opts = append(opts, async.WithErrorHook(collector.RecordError))
	}
	a.async = async.NewDispatcher(c, &a.mu, opts...)

	return a, nil
}

func (a *Application) loadProfiles() error {
	path := a.config.Container.ProfilesFile
	if path == "" {
		return nil
	}

	f, err := profile.Load(path)
	if err != nil {
		return err
	}
	if err := f.Apply(a.AliasGraph()); err != nil {
		return fmt.Errorf("apply profiles %s: %w", path, err)
	}
	a.logger.Info("Alias profiles applied", zap.String("path", path), zap.String("active", f.Active))

	if !a.config.Container.WatchProfiles {
		return nil
	}
	w, err := profile.Watch(path, a.AliasGraph(), &a.mu, profile.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.watcher = w
	return nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Locker guards the container while the application is serving.
func (a *Application) Locker() sync.Locker { return &a.mu }

// Config returns the configuration the application was built from.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Async returns the dispatcher for background resolutions.
func (a *Application) Async() *async.Dispatcher { return a.async }

// Router resolves *routing.Router from the container.
func (a *Application) Router() (*routing.Router, error) {
	return container.Resolve[*routing.Router](a.Container, "router")
}

// Run boots the application (if needed) and serves HTTP on APP_PORT until
// ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.config.App.Port)
	if err != nil {
		return fmt.Errorf("listen on :%s: %w", a.config.App.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It returns nil after a graceful
// shutdown.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if !a.Providers.Booted() {
		if err := a.Boot(); err != nil {
			ln.Close()
			return err
		}
	}
	router, err := a.Router()
	if err != nil {
		ln.Close()
		return err
	}
	defer a.Close()

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	a.logger.Info("Server started",
		zap.String("app", a.config.App.Name),
		zap.String("env", a.config.App.Env),
		zap.String("addr", ln.Addr().String()),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Server stopped")
	return nil
}

// Close stops the profile watcher and flushes the logger.
func (a *Application) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	_ = a.logger.Sync()
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
