// Package cache stores small values in files under one directory, each with
// an expiry.
//
//	c, _ := cache.New(paths.Storage("framework", "cache"), cache.WithTTL(time.Hour))
//	_ = c.Store("ai.summary:Mailer", summary, 0)
//	v, ok, err := c.Retrieve("ai.summary:Mailer")
//
// Values are encoded as YAML, so they come back as the generic YAML types:
// strings, numbers, bools, []any and map[string]any.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultTTL applies when neither WithTTL nor a per-entry ttl is given.
const DefaultTTL = time.Hour

const ext = ".cache"

type entry struct {
	Key       string    `yaml:"key"`
	ExpiresAt time.Time `yaml:"expires_at"`
	Data      any       `yaml:"data"`
}

// FileCache is a file-backed key/value cache. It is safe for use by several
// goroutines: each entry is written to a temporary file and renamed into
// place.
type FileCache struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithTTL sets the lifetime of entries stored with ttl 0.
func WithTTL(d time.Duration) Option {
	return func(c *FileCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *FileCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates dir if needed and returns a cache rooted there.
func New(dir string, opts ...Option) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache dir %s: %w", dir, err)
	}
	c := &FileCache{dir: dir, ttl: DefaultTTL, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dir returns the directory entries are written to.
func (c *FileCache) Dir() string { return c.dir }

// Store writes data under key. ttl <= 0 uses the cache's default TTL.
func (c *FileCache) Store(key string, data any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	out, err := yaml.Marshal(entry{Key: key, ExpiresAt: c.now().Add(ttl), Data: data})
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: write %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		return fmt.Errorf("cache: store %q: %w", key, err)
	}
	c.logger.Debug("cache stored", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// Retrieve returns the data stored under key. A missing or expired entry
// reports false; an expired entry is removed.
func (c *FileCache) Retrieve(key string) (any, bool, error) {
	e, ok, err := c.read(key)
	if err != nil || !ok {
		return nil, false, err
	}
	if c.expired(e) {
		c.logger.Debug("cache entry expired", zap.String("key", key))
		return nil, false, c.Clear(key)
	}
	return e.Data, true, nil
}

// Has reports whether key holds an unexpired entry. Unreadable entries count
// as absent.
func (c *FileCache) Has(key string) bool {
	e, ok, err := c.read(key)
	return err == nil && ok && !c.expired(e)
}

// Clear removes the entry under key. A missing entry is not an error.
func (c *FileCache) Clear(key string) error {
	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: clear %q: %w", key, err)
	}
	return nil
}

// Flush removes every entry and returns how many were removed.
func (c *FileCache) Flush() (int, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*"+ext))
	if err != nil {
		return 0, fmt.Errorf("cache: %w", err)
	}
	n := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, fmt.Errorf("cache: flush: %w", err)
		}
		n++
	}
	c.logger.Debug("cache flushed", zap.String("dir", c.dir), zap.Int("entries", n))
	return n, nil
}

func (c *FileCache) read(key string) (entry, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return entry{}, false, nil
	}
	if err != nil {
		return entry{}, false, fmt.Errorf("cache: read %q: %w", key, err)
	}
	var e entry
	if err := yaml.Unmarshal(data, &e); err != nil {
		return entry{}, false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return e, true, nil
}

func (c *FileCache) expired(e entry) bool {
	return !c.now().Before(e.ExpiresAt)
}

func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+ext)
}
