package apiclient

import (
	"context"

	"github.com/goliatone/go-remote-entities/record"
)

// detailedMarker extends the page key of the detailed site listing.
const detailedMarker = "overwritten"

var _ Client = (*siteClient)(nil)

// siteClient lists sites with their detail records. The listing endpoint
// returns a summary per site, so each listed site is fetched again through
// FetchOne and the detailed page is cached under its own key.
type siteClient struct {
	*resourceClient
}

func newSiteClient(deps Deps) *siteClient {
	return &siteClient{resourceClient: newResourceClient(descriptors[KindSite], deps)}
}

func (c *siteClient) FetchPage(ctx context.Context, limit, page int) *record.Set {
	key := c.CacheKey(RequestMultiple, limit, page, detailedMarker)
	if set, ok := lookup[*record.Set](ctx, c.resourceClient, RequestMultiple, key); ok && set != nil {
		return set
	}

	listed := c.resourceClient.FetchPage(ctx, limit, page)

	detailed := record.NewSet(listed.Len())
	listed.Each(func(id string, summary record.Record) bool {
		if full, ok := c.FetchOne(ctx, id); ok {
			detailed.Put(id, full)
		} else {
			detailed.Put(id, summary)
		}
		return true
	})

	cc := c.multipleContext(ctx, c.CacheTags(), limit, page)
	cc.Detailed = true
	res := runHooks(c.deps.Hooks, c.Identity(), &cc, Result{Many: detailed})
	if res.Many == nil {
		res.Many = record.NewSet(0)
	}
	if cc.Cacheable {
		c.store(ctx, RequestMultiple, key, res.Many, cc.Tags)
	}
	return res.Many
}

func (c *siteClient) FetchAll(ctx context.Context) *record.Set {
	return collectPages(ctx, c.FetchPage, c.deps.MaxPages, c.log)
}
