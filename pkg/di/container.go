package di

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-remote-entities/apiclient"
	"github.com/goliatone/go-remote-entities/cache"
	"github.com/goliatone/go-remote-entities/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultHTTPTimeout bounds every remote call made by the default HTTP client.
const DefaultHTTPTimeout = 30 * time.Second

// Config selects the gateway and the storage adapter the container builds.
type Config struct {
	Cache cache.Config
	// Persistent, when set, replaces the in-memory gateway.
	Persistent *cache.PersistentConfig
	Storage    storage.Config
}

// DefaultConfig uses the in-memory gateway and default storage settings.
func DefaultConfig() Config {
	return Config{
		Cache:   cache.DefaultConfig(),
		Storage: storage.DefaultConfig(),
	}
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every component.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client apiclient.HTTPClient) Option {
	return func(c *Container) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRegisterer registers client metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Container) {
		c.registerer = reg
	}
}

// WithHooks adds post-fetch hooks to every client.
func WithHooks(hooks ...apiclient.PostFetchHook) Option {
	return func(c *Container) {
		c.hooks = append(c.hooks, hooks...)
	}
}

// WithNamespace changes the cache key and tag namespace.
func WithNamespace(namespace string) Option {
	return func(c *Container) {
		c.keys = cache.NewKeyBuilder(namespace)
	}
}

// Container provides dependency injection for remote entity components. It
// owns one gateway and builds clients and the storage adapter on first use.
type Container struct {
	config     Config
	logger     *zap.Logger
	httpClient apiclient.HTTPClient
	decoder    apiclient.Decoder
	keys       cache.KeyBuilder
	hooks      []apiclient.PostFetchHook
	registerer prometheus.Registerer
	metrics    *apiclient.Metrics
	gateway    cache.ClosableGateway

	mu      sync.Mutex
	clients map[apiclient.Kind]apiclient.Client
	adapter *storage.Adapter
}

// NewContainer creates the gateway described by config and the shared
// dependencies every client receives.
func NewContainer(ctx context.Context, config Config, opts ...Option) (*Container, error) {
	c := &Container{
		config:     config,
		logger:     zap.NewNop(),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		decoder:    apiclient.JSONDecoder{},
		keys:       cache.NewKeyBuilder(""),
		clients:    map[apiclient.Kind]apiclient.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	metrics, err := apiclient.NewMetrics(c.registerer)
	if err != nil {
		return nil, err
	}
	c.metrics = metrics

	if config.Persistent != nil {
		c.gateway, err = cache.NewPersistentGateway(ctx, *config.Persistent)
	} else {
		c.gateway, err = cache.NewGateway(config.Cache)
	}
	if err != nil {
		return nil, err
	}

	if config.Persistent == nil && exceedsTTL(config.Storage.Cache.MaxAge, config.Cache.TTL) {
		c.logger.Warn("cache max-age is capped by the in-memory gateway ttl",
			zap.Duration("max_age", config.Storage.Cache.MaxAge),
			zap.Duration("ttl", config.Cache.TTL),
		)
	}

	c.logger.Debug("container ready",
		zap.Bool("persistent_cache", config.Persistent != nil),
		zap.String("namespace", c.keys.Namespace()),
	)
	return c, nil
}

func exceedsTTL(maxAge, ttl time.Duration) bool {
	if maxAge == cache.Permanent {
		return ttl < cache.MaxTTL
	}
	return maxAge > ttl
}

// NewContainerWithDefaults creates a container with DefaultConfig and the given
// storage settings.
func NewContainerWithDefaults(storageConfig storage.Config, opts ...Option) (*Container, error) {
	cfg := DefaultConfig()
	cfg.Storage = storageConfig
	return NewContainer(context.Background(), cfg, opts...)
}

// Config returns the configuration the container was built with.
func (c *Container) Config() Config { return c.config }

// Logger returns the shared logger.
func (c *Container) Logger() *zap.Logger { return c.logger }

// Gateway returns the cache gateway.
func (c *Container) Gateway() cache.ClosableGateway { return c.gateway }

// Metrics returns the client metrics.
func (c *Container) Metrics() *apiclient.Metrics { return c.metrics }

// Keys returns the cache key builder.
func (c *Container) Keys() cache.KeyBuilder { return c.keys }

// Deps returns the dependencies handed to every client.
func (c *Container) Deps() apiclient.Deps {
	return apiclient.Deps{
		HTTPClient: c.httpClient,
		Decoder:    c.decoder,
		Gateway:    c.gateway,
		Keys:       c.keys,
		Logger:     c.logger,
		Metrics:    c.metrics,
		Hooks:      c.hooks,
		MaxPages:   c.config.Storage.Pager.MaxPages,
	}
}

// Client returns the client for kind, configured with the storage endpoint,
// credentials and max-age. The same instance is returned on every call.
func (c *Container) Client(kind apiclient.Kind) (apiclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[kind]; ok {
		return client, nil
	}

	client, err := apiclient.New(kind, c.Deps())
	if err != nil {
		return nil, err
	}

	s := c.config.Storage
	client.SetEndpoint(s.Endpoint)
	client.SetUsername(s.API.Username)
	client.SetPassword(s.API.Password)
	client.SetIDKey(s.IDKey(client.OriginIDKey()))
	client.SetMaxAge(s.Cache.MaxAge)

	c.clients[kind] = client
	return client, nil
}

// Adapter returns the storage adapter for the configured client.
func (c *Container) Adapter() (*storage.Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adapter != nil {
		return c.adapter, nil
	}

	adapter, err := storage.New(c.config.Storage, c.Deps())
	if err != nil {
		return nil, err
	}
	c.adapter = adapter
	return adapter, nil
}

// Close releases the gateway.
func (c *Container) Close() error {
	return c.gateway.Close()
}
