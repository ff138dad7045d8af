package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-remote-entities/internal/cacheinfra"
)

// Supported persistent drivers.
const (
	DriverSQLite   = cacheinfra.DriverSQLite
	DriverPostgres = cacheinfra.DriverPostgres
)

// Config exposes the in-memory gateway options.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// PersistentConfig selects the SQL backend for a persistent gateway.
type PersistentConfig struct {
	Driver string
	DSN    string
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// Validate checks the driver and DSN.
func (c PersistentConfig) Validate() error {
	return cacheinfra.PersistentConfig(c).Validate()
}

// Option customizes gateways built by this package.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now when computing expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewGateway builds the in-memory gateway.
func NewGateway(cfg Config, opts ...Option) (ClosableGateway, error) {
	o := buildOptions(opts)
	gw, err := cacheinfra.NewMemoryGateway(cfg.toInternal(), cacheinfra.WithClock(o.now))
	if err != nil {
		return nil, err
	}
	return gw, nil
}

// NewPersistentGateway opens the SQL backed gateway and creates its tables.
func NewPersistentGateway(ctx context.Context, cfg PersistentConfig, opts ...Option) (ClosableGateway, error) {
	o := buildOptions(opts)
	gw, err := cacheinfra.OpenBunGateway(ctx, cacheinfra.PersistentConfig(cfg), cacheinfra.WithBunClock(o.now))
	if err != nil {
		return nil, err
	}
	return gw, nil
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
