package profile

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/container"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher re-applies a profiles file to an alias graph whenever it changes.
// Reloads happen on the watcher's goroutine while holding mu.
type Watcher struct {
	path     string
	graph    *container.AliasGraph
	mu       sync.Locker
	logger   *zap.Logger
	debounce time.Duration
	onReload func(*File, error)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long the file must be quiet before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// OnReload is called after every reload attempt, with the loaded file or the
// error that stopped it.
func OnReload(fn func(*File, error)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

// Watch starts watching path. The file's directory is watched rather than the
// file, so editors that replace the file on save are seen too.
func Watch(path string, graph *container.AliasGraph, mu sync.Locker, opts ...WatcherOption) (*Watcher, error) {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("profiles path %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		graph:    graph,
		mu:       mu,
		logger:   zap.NewNop(),
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w.watcher = fsw

	go w.watchLoop()

	w.logger.Info("Watching alias profiles", zap.String("path", abs))
	return w, nil
}

func (w *Watcher) watchLoop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug("Alias profiles changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// Reload loads the file and applies it now. A file that fails to load leaves
// the graph untouched.
func (w *Watcher) Reload() {
	f, err := Load(w.path)
	if err == nil {
		w.mu.Lock()
		err = f.Apply(w.graph)
		w.mu.Unlock()
	}

	if err != nil {
		w.logger.Error("Alias profile reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.logger.Info("Alias profiles reloaded",
			zap.String("active", f.Active),
			zap.Int("profiles", len(f.Profiles)),
		)
	}
	if w.onReload != nil {
		w.onReload(f, err)
	}
}

// Stop stops watching and waits for the watch loop to exit.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		<-w.doneCh
	})
}
