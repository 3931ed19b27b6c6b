package async

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-ioc/framework/container"
)

// Dispatcher resolves container abstracts through an Engine.
type Dispatcher struct {
	c       *container.Container
	mu      sync.Locker
	engine  Engine
	logger  *zap.Logger
	onError func(error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithEngine picks the first supported engine among engines.
func WithEngine(engines ...Engine) Option {
	return func(d *Dispatcher) {
		for _, e := range engines {
			if e != nil && e.Supported() {
				d.engine = e
				return
			}
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithErrorHook is called with every failed resolution, e.g.
// metrics.Collector.RecordError.
func WithErrorHook(fn func(error)) Option {
	return func(d *Dispatcher) { d.onError = fn }
}

// NewDispatcher creates a Dispatcher. mu guards c and must be shared with
// every other goroutine touching c; nil gives the dispatcher its own mutex.
// Without WithEngine, tasks run inline.
func NewDispatcher(c *container.Container, mu sync.Locker, opts ...Option) *Dispatcher {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	d := &Dispatcher{c: c, mu: mu, engine: InlineEngine{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Engine returns the engine in use.
func (d *Dispatcher) Engine() Engine { return d.engine }

// MakeAsync starts resolving abstract and returns its Future.
func (d *Dispatcher) MakeAsync(abstract string, params container.Params) *Future {
	fut := d.engine.Defer(func() (any, error) {
		d.mu.Lock()
		defer d.mu.Unlock()

		v, err := d.c.MakeWith(abstract, params)
		if err != nil {
			d.logger.Debug("async resolve failed", zap.String("abstract", abstract), zap.Error(err))
			if d.onError != nil {
				d.onError(err)
			}
		}
		return v, err
	})
	d.logger.Debug("async resolve dispatched", zap.String("abstract", abstract), zap.String("job", fut.ID()))
	return fut
}

// Await resolves abstract and waits for the result.
func (d *Dispatcher) Await(ctx context.Context, abstract string, params container.Params) (any, error) {
	return d.MakeAsync(abstract, params).Await(ctx)
}

// MakeAll resolves every abstract and returns the results in order. The
// first error cancels the remaining waits.
func (d *Dispatcher) MakeAll(ctx context.Context, abstracts ...string) ([]any, error) {
	out := make([]any, len(abstracts))
	g, ctx := errgroup.WithContext(ctx)
	for i, abstract := range abstracts {
		g.Go(func() error {
			v, err := d.Await(ctx, abstract, nil)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
