package apiclient

import (
	"context"
	"time"

	"github.com/goliatone/go-remote-entities/cache"
	"github.com/goliatone/go-remote-entities/record"
)

const (
	// CollectionNameField is added to every primary site record.
	CollectionNameField = "collection_name"

	primaryFlagField    = "is_primary"
	collectionIDField   = "collection_id"
	collectionNameField = "name"
	siteNameField       = "site"
)

var _ Client = (*primarySiteClient)(nil)

// primarySiteClient joins sites with their collection. It owns a site and a
// collection client and keeps their configuration in step with its own.
type primarySiteClient struct {
	*resourceClient
	sites       *siteClient
	collections *resourceClient
}

func newPrimarySiteClient(deps Deps) *primarySiteClient {
	p := &primarySiteClient{
		resourceClient: newResourceClient(descriptors[KindPrimarySite], deps),
		sites:          newSiteClient(deps),
		collections:    newResourceClient(descriptors[KindCollection], deps),
	}
	p.SetIDKey(p.resourceClient.IDKey())
	p.SetMaxAge(p.resourceClient.MaxAge())
	return p
}

func (p *primarySiteClient) OriginIDKey() string     { return p.sites.OriginIDKey() }
func (p *primarySiteClient) EndpointVersion() string { return p.sites.EndpointVersion() }
func (p *primarySiteClient) URI() string             { return p.sites.URI() }
func (p *primarySiteClient) DataParameter() string   { return p.sites.DataParameter() }

func (p *primarySiteClient) Identity() Identity {
	return Identity{
		Kind:          p.Kind(),
		OriginIDKey:   p.OriginIDKey(),
		IDKey:         p.IDKey(),
		Version:       p.EndpointVersion(),
		URI:           p.URI(),
		DataParameter: p.DataParameter(),
	}
}

// SetIDKey applies idKey to the composite and the site client. The collection
// client always keys by its own origin id.
func (p *primarySiteClient) SetIDKey(idKey string) {
	p.resourceClient.SetIDKey(idKey)
	p.sites.SetIDKey(idKey)
	p.collections.SetIDKey(p.collections.OriginIDKey())
}

func (p *primarySiteClient) SetEndpoint(endpoint string) {
	p.resourceClient.SetEndpoint(endpoint)
	p.sites.SetEndpoint(endpoint)
	p.collections.SetEndpoint(endpoint)
}

func (p *primarySiteClient) SetUsername(username string) {
	p.resourceClient.SetUsername(username)
	p.sites.SetUsername(username)
	p.collections.SetUsername(username)
}

func (p *primarySiteClient) SetPassword(password string) {
	p.resourceClient.SetPassword(password)
	p.sites.SetPassword(password)
	p.collections.SetPassword(password)
}

func (p *primarySiteClient) SetMaxAge(maxAge time.Duration) {
	p.resourceClient.SetMaxAge(maxAge)
	p.sites.SetMaxAge(maxAge)
	p.collections.SetMaxAge(maxAge)
}

func (p *primarySiteClient) CacheTags() []string {
	return cache.MergeTags(p.resourceClient.CacheTags(), p.collections.CacheTags(), p.sites.CacheTags())
}

func (p *primarySiteClient) CacheTagsToInvalidate() []string {
	return cache.MergeTags(
		p.resourceClient.CacheTagsToInvalidate(),
		p.collections.CacheTagsToInvalidate(),
		p.sites.CacheTagsToInvalidate(),
	)
}

// FetchOne returns the site with a collection_name field taken from its
// collection, or from the site name when the collection is absent.
func (p *primarySiteClient) FetchOne(ctx context.Context, id string) (record.Record, bool) {
	key := p.CacheKey(RequestOne, id)
	if r, ok := lookup[record.Record](ctx, p.resourceClient, RequestOne, key); ok && r != nil {
		return r, true
	}

	var enriched record.Record
	if site, ok := p.sites.FetchOne(ctx, id); ok {
		enriched = site.Clone()
		enriched[CollectionNameField] = site[siteNameField]
		if site.Has(collectionIDField) {
			collection, ok := p.collections.FetchOne(ctx, record.KeyOf(site[collectionIDField]))
			if ok && collection.Has(collectionNameField) {
				enriched[CollectionNameField] = collection[collectionNameField]
			}
		}
	}

	cc := p.oneContext(ctx, p.CacheTags(), id)
	res := runHooks(p.deps.Hooks, p.Identity(), &cc, Result{One: enriched})
	if res.One != nil && cc.Cacheable {
		p.store(ctx, RequestOne, key, res.One, cc.Tags)
	}
	return res.One, res.One != nil
}

// FetchPage loads every site, keeps the primary ones, enriches each through
// FetchOne and then pages locally. Sites whose enriched fetch is absent are
// dropped before paging.
func (p *primarySiteClient) FetchPage(ctx context.Context, limit, page int) *record.Set {
	if page < 1 {
		page = 1
	}
	key := p.CacheKey(RequestMultiple, limit, page)
	if set, ok := lookup[*record.Set](ctx, p.resourceClient, RequestMultiple, key); ok && set != nil {
		return set
	}

	primary := record.NewSet(0)
	p.sites.FetchAll(ctx).Each(func(id string, site record.Record) bool {
		if !record.Truthy(site[primaryFlagField]) {
			return true
		}
		if enriched, ok := p.FetchOne(ctx, id); ok {
			primary.Put(id, enriched)
		}
		return true
	})

	paged := primary.Slice((page-1)*limit, limit)

	cc := p.multipleContext(ctx, p.CacheTags(), limit, page)
	res := runHooks(p.deps.Hooks, p.Identity(), &cc, Result{Many: paged})
	if res.Many == nil {
		res.Many = record.NewSet(0)
	}
	if cc.Cacheable {
		p.store(ctx, RequestMultiple, key, res.Many, cc.Tags)
	}
	return res.Many
}

func (p *primarySiteClient) FetchAll(ctx context.Context) *record.Set {
	return collectPages(ctx, p.FetchPage, p.deps.MaxPages, p.log)
}
