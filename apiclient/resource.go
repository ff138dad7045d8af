package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goliatone/go-remote-entities/cache"
	"github.com/goliatone/go-remote-entities/record"
	"go.uber.org/zap"
)

var _ Client = (*resourceClient)(nil)

// resourceClient fetches one remote resource type.
type resourceClient struct {
	desc Descriptor
	deps Deps
	log  *zap.Logger

	idKey    string
	endpoint string
	username string
	password string
	maxAge   time.Duration
}

func newResourceClient(desc Descriptor, deps Deps) *resourceClient {
	return &resourceClient{
		desc:   desc,
		deps:   deps,
		log:    deps.Logger.With(zap.String("client", string(desc.Kind))),
		idKey:  desc.OriginIDKey,
		maxAge: cache.Permanent,
	}
}

func (c *resourceClient) Kind() Kind              { return c.desc.Kind }
func (c *resourceClient) Label() string           { return c.desc.Label }
func (c *resourceClient) Description() string     { return c.desc.Description }
func (c *resourceClient) OriginIDKey() string     { return c.desc.OriginIDKey }
func (c *resourceClient) EndpointVersion() string { return c.desc.Version }
func (c *resourceClient) DataParameter() string   { return c.desc.DataParameter }
func (c *resourceClient) URI() string             { return c.endpoint + "/" + c.desc.Resource }

func (c *resourceClient) Identity() Identity {
	return Identity{
		Kind:          c.Kind(),
		OriginIDKey:   c.OriginIDKey(),
		IDKey:         c.IDKey(),
		Version:       c.EndpointVersion(),
		URI:           c.URI(),
		DataParameter: c.DataParameter(),
	}
}

func (c *resourceClient) IDKey() string             { return c.idKey }
func (c *resourceClient) SetIDKey(idKey string)     { c.idKey = idKey }
func (c *resourceClient) Endpoint() string          { return c.endpoint }
func (c *resourceClient) Username() string          { return c.username }
func (c *resourceClient) SetUsername(u string)      { c.username = u }
func (c *resourceClient) Password() string          { return c.password }
func (c *resourceClient) SetPassword(p string)      { c.password = p }
func (c *resourceClient) MaxAge() time.Duration     { return c.maxAge }
func (c *resourceClient) SetMaxAge(d time.Duration) { c.maxAge = d }

func (c *resourceClient) SetEndpoint(endpoint string) {
	c.endpoint = endpoint + "/" + c.desc.Version
}

func (c *resourceClient) CacheKey(rt RequestType, params ...any) string {
	return c.deps.Keys.Key(string(c.desc.Kind), string(rt), params...)
}

func (c *resourceClient) CacheTags() []string {
	ns := c.deps.Keys.Namespace()
	return cache.MergeTags(
		[]string{ns, cache.Tag(ns, string(c.desc.Kind))},
		c.CacheTagsToInvalidate(),
	)
}

func (c *resourceClient) CacheTagsToInvalidate() []string {
	ns := c.deps.Keys.Namespace()
	return []string{
		cache.Tag(ns, string(c.desc.Kind), string(RequestOne)),
		cache.Tag(ns, string(c.desc.Kind), string(RequestMultiple)),
	}
}

// oneContext builds the cache context for a single record fetch on top of the
// given base tags.
func (c *resourceClient) oneContext(ctx context.Context, base []string, id string) CacheContext {
	ns, kind := c.deps.Keys.Namespace(), string(c.desc.Kind)
	return CacheContext{
		RequestType: RequestOne,
		ID:          id,
		Tags: cache.MergeTags(base, []string{
			cache.Tag(ns, string(RequestOne)),
			cache.Tag(ns, kind, string(RequestOne)),
			cache.Tag(ns, kind, string(RequestOne), id),
		}, cache.TagsFromContext(ctx)),
		Cacheable: true,
	}
}

func (c *resourceClient) multipleContext(ctx context.Context, base []string, limit, page int) CacheContext {
	ns, kind := c.deps.Keys.Namespace(), string(c.desc.Kind)
	return CacheContext{
		RequestType: RequestMultiple,
		Limit:       limit,
		Page:        page,
		Tags: cache.MergeTags(base, []string{
			cache.Tag(ns, string(RequestMultiple)),
			cache.Tag(ns, kind, string(RequestMultiple)),
		}, cache.TagsFromContext(ctx)),
		Cacheable: true,
	}
}

func (c *resourceClient) FetchOne(ctx context.Context, id string) (record.Record, bool) {
	key := c.CacheKey(RequestOne, id)
	if r, ok := lookup[record.Record](ctx, c, RequestOne, key); ok && r != nil {
		return r, true
	}

	r := c.getOne(ctx, id)

	cc := c.oneContext(ctx, c.CacheTags(), id)
	res := runHooks(c.deps.Hooks, c.Identity(), &cc, Result{One: r})
	if res.One != nil && cc.Cacheable {
		c.store(ctx, RequestOne, key, res.One, cc.Tags)
	}
	return res.One, res.One != nil
}

func (c *resourceClient) FetchPage(ctx context.Context, limit, page int) *record.Set {
	key := c.CacheKey(RequestMultiple, limit, page)
	if set, ok := lookup[*record.Set](ctx, c, RequestMultiple, key); ok && set != nil {
		return set
	}

	set := c.getPage(ctx, limit, page)

	cc := c.multipleContext(ctx, c.CacheTags(), limit, page)
	res := runHooks(c.deps.Hooks, c.Identity(), &cc, Result{Many: set})
	if res.Many == nil {
		res.Many = record.NewSet(0)
	}
	if cc.Cacheable {
		c.store(ctx, RequestMultiple, key, res.Many, cc.Tags)
	}
	return res.Many
}

func (c *resourceClient) FetchAll(ctx context.Context) *record.Set {
	return collectPages(ctx, c.FetchPage, c.deps.MaxPages, c.log)
}

func (c *resourceClient) Add(ctx context.Context, entity Entity) int    { return c.write("add", entity) }
func (c *resourceClient) Update(ctx context.Context, entity Entity) int { return c.write("update", entity) }
func (c *resourceClient) Delete(ctx context.Context, entity Entity) int { return c.write("delete", entity) }

func (c *resourceClient) write(op string, entity Entity) int {
	c.log.Debug("write ignored, remote api is read only", zap.String("op", op), zap.String("id", entity.ID))
	return 0
}

// getOne requests {uri}/{id}. Any failure is logged and yields nil.
func (c *resourceClient) getOne(ctx context.Context, id string) record.Record {
	body, ok := c.request(ctx, RequestOne, c.URI()+"/"+url.PathEscape(id), nil)
	if !ok {
		return nil
	}

	m, isMap := body.(map[string]any)
	if !isMap {
		c.log.Warn("unexpected record body", zap.String("id", id), zap.String("type", typeName(body)))
		return nil
	}
	return record.Record(m)
}

// getPage requests one listing page and keys its records by origin id. Any
// failure is logged and yields an empty set.
func (c *resourceClient) getPage(ctx context.Context, limit, page int) *record.Set {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", strconv.Itoa(page))

	body, ok := c.request(ctx, RequestMultiple, c.URI(), query)
	if !ok {
		return record.NewSet(0)
	}

	m, _ := body.(map[string]any)
	items, _ := m[c.desc.DataParameter].([]any)

	records := make([]record.Record, 0, len(items))
	for _, item := range items {
		if fields, ok := item.(map[string]any); ok {
			records = append(records, record.Record(fields))
		}
	}
	return record.FromRecords(records, c.desc.OriginIDKey)
}

func (c *resourceClient) request(ctx context.Context, rt RequestType, target string, query url.Values) (any, bool) {
	req := newRequest(target, c.username, c.password, query)

	start := time.Now()
	body, err := do(ctx, c.deps.HTTPClient, c.deps.Decoder, req)
	elapsed := time.Since(start)

	if err != nil {
		c.deps.Metrics.observeRequest(c.desc.Kind, rt, OutcomeTransportFailure, elapsed)
		c.log.Warn("remote request failed",
			zap.String("request_type", string(rt)),
			zap.String("url", target),
			zap.String("request_id", req.requestID),
			zap.Error(err),
		)
		return nil, false
	}

	c.deps.Metrics.observeRequest(c.desc.Kind, rt, OutcomeSuccess, elapsed)
	c.log.Debug("remote request",
		zap.String("request_type", string(rt)),
		zap.String("url", target),
		zap.String("request_id", req.requestID),
		zap.Duration("elapsed", elapsed),
	)
	return body, true
}

func (c *resourceClient) store(ctx context.Context, rt RequestType, key string, payload any, tags []string) {
	if err := c.deps.Gateway.Set(ctx, key, payload, c.maxAge, tags); err != nil {
		c.log.Warn("cache store failed", zap.String("request_type", string(rt)), zap.String("key", key), zap.Error(err))
	}
}

// lookup reads key from the gateway. Lookup errors are logged and count as a
// miss.
func lookup[T any](ctx context.Context, c *resourceClient, rt RequestType, key string) (T, bool) {
	v, ok, err := cache.Get[T](ctx, c.deps.Gateway, key)
	switch {
	case err != nil:
		c.deps.Metrics.observeLookup(c.desc.Kind, rt, OutcomeCacheLookupFailed)
		c.log.Warn("cache lookup failed", zap.String("request_type", string(rt)), zap.String("key", key), zap.Error(err))
		return v, false
	case ok:
		c.deps.Metrics.observeLookup(c.desc.Kind, rt, OutcomeCacheHit)
		c.log.Debug("cache hit", zap.String("request_type", string(rt)), zap.String("key", key))
	default:
		c.deps.Metrics.observeLookup(c.desc.Kind, rt, OutcomeCacheMiss)
		c.log.Debug("cache miss", zap.String("request_type", string(rt)), zap.String("key", key))
	}
	return v, ok
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
