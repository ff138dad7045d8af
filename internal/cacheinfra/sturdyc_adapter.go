package cacheinfra

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc backed gateway.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the upper bound on how long sturdyc keeps any entry. Per entry
	// max-age is enforced on read; permanent entries live until TTL or eviction.
	// Must be greater than 0. Default: MaxTTL
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// MaxTTL is the default sturdyc TTL. It is long enough that permanent entries
// only leave through eviction or invalidation.
const MaxTTL = 100 * 365 * 24 * time.Hour

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                MaxTTL,
		EvictionPercentage: 10,
		EvictionInterval:   0,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice. Capacity,
// NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

type keySet = *xsync.MapOf[string, struct{}]

// MemoryGateway keeps entries in a sturdyc client and maintains a tag to key
// index so entries can be invalidated by tag.
type MemoryGateway struct {
	client *sturdyc.Client[Entry]
	tags   *xsync.MapOf[string, keySet]
	now    func() time.Time
	ttl    time.Duration

	sturdycOptions []sturdyc.Option
}

// MemoryOption customizes a MemoryGateway.
type MemoryOption func(*MemoryGateway)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(g *MemoryGateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithSturdycClock replaces the clock sturdyc uses for its own TTL.
func WithSturdycClock(clock sturdyc.Clock) MemoryOption {
	return func(g *MemoryGateway) {
		if clock != nil {
			g.sturdycOptions = append(g.sturdycOptions, sturdyc.WithClock(clock))
		}
	}
}

// NewMemoryGateway validates cfg and builds a sturdyc client from it.
func NewMemoryGateway(cfg Config, opts ...MemoryOption) (*MemoryGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &MemoryGateway{
		tags: xsync.NewMapOf[string, keySet](),
		now:  time.Now,
		ttl:  cfg.TTL,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.client = sturdyc.New[Entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		append(cfg.ToSturdycOptions(), g.sturdycOptions...)...,
	)
	return g, nil
}

// TTL returns the sturdyc TTL that caps every entry.
func (g *MemoryGateway) TTL() time.Duration {
	return g.ttl
}

// Get returns the live entry stored under key. Expired entries are dropped.
func (g *MemoryGateway) Get(ctx context.Context, key string) (Entry, bool, error) {
	entry, ok := g.client.Get(key)
	if !ok {
		return Entry{}, false, nil
	}
	if entry.Expired(g.now()) {
		g.remove(entry)
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Set stores payload under key. A zero maxAge stores nothing.
func (g *MemoryGateway) Set(ctx context.Context, key string, payload any, maxAge time.Duration, tags []string) error {
	if maxAge == 0 {
		return nil
	}

	if previous, ok := g.client.Get(key); ok {
		g.untag(key, previous.Tags)
	}

	now := g.now()
	tags = dedupeStrings(tags)
	g.client.Set(key, Entry{
		Key:     key,
		Payload: payload,
		Tags:    tags,
		Created: now,
		Expires: expiresAt(now, maxAge),
	})

	for _, tag := range tags {
		g.tags.Compute(tag, func(keys keySet, loaded bool) (keySet, bool) {
			if !loaded {
				keys = xsync.NewMapOf[string, struct{}]()
			}
			keys.Store(key, struct{}{})
			return keys, false
		})
	}
	return nil
}

// Delete removes the given keys and drops them from the tag index.
func (g *MemoryGateway) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if entry, ok := g.client.Get(key); ok {
			g.remove(entry)
			continue
		}
		g.client.Delete(key)
	}
	return nil
}

func (g *MemoryGateway) remove(entry Entry) {
	g.untag(entry.Key, entry.Tags)
	g.client.Delete(entry.Key)
}

// untag drops key from every tag in tags. Tags left without keys are removed.
func (g *MemoryGateway) untag(key string, tags []string) {
	for _, tag := range tags {
		g.tags.Compute(tag, func(keys keySet, loaded bool) (keySet, bool) {
			if !loaded {
				return keys, true
			}
			keys.Delete(key)
			return keys, keys.Size() == 0
		})
	}
}

// TaggedKeys returns the number of keys registered under tag.
func (g *MemoryGateway) TaggedKeys(tag string) int {
	keys, ok := g.tags.Load(tag)
	if !ok {
		return 0
	}
	return keys.Size()
}

// InvalidateTags removes every entry registered under any of the tags.
func (g *MemoryGateway) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		keys, ok := g.tags.LoadAndDelete(tag)
		if !ok {
			continue
		}
		keys.Range(func(key string, _ struct{}) bool {
			if entry, ok := g.client.Get(key); ok {
				g.remove(entry)
				return true
			}
			g.client.Delete(key)
			return true
		})
	}
	return nil
}

// Keys returns the keys currently held, including entries past their max-age
// that have not been read since.
func (g *MemoryGateway) Keys() []string {
	return g.client.ScanKeys()
}

// Close is a no-op; it lets the memory gateway stand in for a persistent one.
func (g *MemoryGateway) Close() error {
	return nil
}
