// Package cartcache keeps a best-effort snapshot of the last cart totals.
//
// The snapshot exists only to paint totals before the authoritative
// recompute runs. It never overrides server state, and storage failures
// never reach the caller.
package cartcache

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/eshaffer321/cartsync/internal/domain/pricing"
	"github.com/eshaffer321/cartsync/internal/infrastructure/clock"
	"github.com/eshaffer321/cartsync/internal/infrastructure/storage"
)

// Defaults.
const (
	DefaultKey    = "cncraft_cart"
	DefaultMaxAge = time.Hour
)

type snapshot struct {
	Data      pricing.Totals `json:"data"`
	Timestamp int64          `json:"timestamp"` // unix millis
}

// Cache reads and writes the snapshot record.
type Cache struct {
	store  storage.LocalStore
	key    string
	maxAge time.Duration
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(c *Cache) {
		if key != "" {
			c.key = key
		}
	}
}

// WithMaxAge overrides the freshness window.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithClock injects the time source.
func WithClock(clk clock.Clock) Option {
	return func(c *Cache) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a cache over store.
func New(store storage.LocalStore, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		key:    DefaultKey,
		maxAge: DefaultMaxAge,
		clock:  clock.System(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.clock == nil {
		c.clock = clock.System()
	}
	return c
}

// Save records totals with the current timestamp. Failures are logged.
func (c *Cache) Save(totals pricing.Totals) {
	if c.store == nil {
		return
	}

	data, err := json.Marshal(snapshot{Data: totals, Timestamp: c.clock.Now().UnixMilli()})
	if err != nil {
		c.logger.Warn("could not encode cart snapshot", slog.Any("error", err))
		return
	}
	if err := c.store.SetItem(c.key, string(data)); err != nil {
		c.logger.Warn("could not save cart snapshot", "key", c.key, slog.Any("error", err))
	}
}

// Load returns the snapshot when it exists, parses, and is younger than
// the freshness window. Anything else is reported as absent.
func (c *Cache) Load() (pricing.Totals, bool) {
	if c.store == nil {
		return pricing.Totals{}, false
	}

	raw, ok, err := c.store.GetItem(c.key)
	if err != nil {
		c.logger.Warn("could not load cart snapshot", "key", c.key, slog.Any("error", err))
		return pricing.Totals{}, false
	}
	if !ok {
		return pricing.Totals{}, false
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil || snap.Timestamp == 0 {
		c.logger.Debug("ignoring corrupt cart snapshot", "key", c.key)
		return pricing.Totals{}, false
	}

	age := c.clock.Now().Sub(time.UnixMilli(snap.Timestamp))
	if age >= c.maxAge {
		c.logger.Debug("ignoring stale cart snapshot", "age", age.Round(time.Second))
		return pricing.Totals{}, false
	}
	return snap.Data, true
}

// Clear removes the snapshot.
func (c *Cache) Clear() {
	if c.store == nil {
		return
	}
	if err := c.store.RemoveItem(c.key); err != nil {
		c.logger.Warn("could not clear cart snapshot", "key", c.key, slog.Any("error", err))
	}
}
