package storage

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-remote-entities/apiclient"
	"github.com/goliatone/go-remote-entities/cache"
	"github.com/goliatone/go-remote-entities/query"
	"github.com/goliatone/go-remote-entities/record"
	"go.uber.org/zap"
)

// Adapter answers load and query calls for one client. Filtering and sorting
// run in memory over the full listing because the remote API only pages.
type Adapter struct {
	cfg     Config
	client  apiclient.Client
	gateway cache.Gateway
	log     *zap.Logger
}

// New validates cfg, builds the configured client from deps and applies the
// endpoint, credentials, id key and max-age to it.
func New(cfg Config, deps apiclient.Deps) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kind, err := apiclient.ParseKind(cfg.Client)
	if err != nil {
		return nil, err
	}

	if deps.MaxPages == 0 {
		deps.MaxPages = cfg.Pager.MaxPages
	}

	client, err := apiclient.New(kind, deps)
	if err != nil {
		return nil, err
	}

	client.SetEndpoint(cfg.Endpoint)
	client.SetUsername(cfg.API.Username)
	client.SetPassword(cfg.API.Password)
	client.SetIDKey(cfg.IDKey(client.OriginIDKey()))
	client.SetMaxAge(cfg.Cache.MaxAge)

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Adapter{
		cfg:     cfg,
		client:  client,
		gateway: deps.Gateway,
		log:     logger.With(zap.String("client", string(kind))),
	}, nil
}

// Client returns the configured client.
func (a *Adapter) Client() apiclient.Client {
	return a.client
}

// Config returns the configuration the adapter was built with.
func (a *Adapter) Config() Config {
	return a.cfg
}

// Query returns records keyed by the client id key.
//
// With no conditions, no sorts, and zero start and length it returns the full
// listing. Without conditions or sorts it fetches the single remote page that
// holds start. Otherwise it filters and sorts the full listing in memory and
// returns length records from start. Condition and sort fields are translated
// through the field mapping. A zero length means the default page size.
func (a *Adapter) Query(ctx context.Context, conditions []query.Condition, sorts []query.SortSpec, start, length int) *record.Set {
	mapped := make([]query.Condition, 0, len(conditions))
	for _, c := range conditions {
		c.Field = a.mapField(c.Field)
		mapped = append(mapped, c)
	}

	mappedSorts := make([]query.SortSpec, 0, len(sorts))
	for _, s := range sorts {
		s.Field = a.mapField(s.Field)
		mappedSorts = append(mappedSorts, s)
	}

	return a.run(ctx, mapped, mappedSorts, start, length)
}

func (a *Adapter) run(ctx context.Context, conditions []query.Condition, sorts []query.SortSpec, start, length int) *record.Set {
	idKey := a.client.IDKey()

	if len(conditions) == 0 && len(sorts) == 0 && start <= 0 && length <= 0 {
		return a.client.FetchAll(ctx).Rekey(idKey)
	}

	if start < 0 {
		start = 0
	}
	limit := length
	if limit <= 0 {
		limit = a.cfg.Pager.DefaultLimit
	}
	page := start/limit + 1

	if len(conditions) == 0 && len(sorts) == 0 {
		return a.client.FetchPage(ctx, limit, page).Rekey(idKey)
	}

	a.log.Debug("query over full listing",
		zap.Int("conditions", len(conditions)),
		zap.Int("sorts", len(sorts)),
		zap.Int("start", start),
		zap.Int("limit", limit),
	)
	return query.Apply(a.client.FetchAll(ctx).Rekey(idKey), conditions, sorts, start, limit)
}

// Load returns the record whose id key equals id. When the id key is not the
// remote id, the full listing is searched.
func (a *Adapter) Load(ctx context.Context, id string) (record.Record, bool) {
	idKey := a.client.IDKey()
	if idKey == a.client.OriginIDKey() {
		return a.client.FetchOne(ctx, id)
	}

	found := a.run(ctx, []query.Condition{{Field: idKey, Value: id, Operator: query.Equal}}, nil, 0, 0)
	r, ok := found.First()
	if !ok || len(r) == 0 {
		return nil, false
	}
	return r, true
}

// LoadMultiple loads the given ids in order, skipping absent ones. A nil ids
// returns every record keyed by the id key; an empty non nil ids returns an
// empty set.
func (a *Adapter) LoadMultiple(ctx context.Context, ids []string) *record.Set {
	if ids == nil {
		return a.client.FetchAll(ctx).Rekey(a.client.IDKey())
	}

	out := record.NewSet(len(ids))
	for _, id := range ids {
		if r, ok := a.Load(ctx, id); ok {
			out.Put(id, r)
		}
	}
	return out
}

// Save adds new entities and updates existing ones. The remote API is read
// only, so the result is always 0.
func (a *Adapter) Save(ctx context.Context, entity apiclient.Entity) int {
	if entity.IsNew {
		return a.client.Add(ctx, entity)
	}
	return a.client.Update(ctx, entity)
}

// Delete removes entity through the client. It is always 0.
func (a *Adapter) Delete(ctx context.Context, entity apiclient.Entity) int {
	return a.client.Delete(ctx, entity)
}

// InvalidateCache drops every cached response of the client.
func (a *Adapter) InvalidateCache(ctx context.Context) error {
	tags := a.client.CacheTagsToInvalidate()
	if err := a.gateway.InvalidateTags(ctx, tags...); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to invalidate cache").
			WithMetadata(map[string]any{"tags": tags})
	}
	a.log.Info("cache invalidated", zap.Strings("tags", tags))
	return nil
}

func (a *Adapter) mapField(field string) string {
	if field == "" {
		return field
	}
	return a.cfg.Field(field)
}
