package storage

import (
	"context"
	"testing"

	"github.com/goliatone/go-remote-entities/apiclient"
	"github.com/goliatone/go-remote-entities/cache"
	"github.com/goliatone/go-remote-entities/pkg/testsupport"
	"github.com/goliatone/go-remote-entities/query"
	"github.com/goliatone/go-remote-entities/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter(t *testing.T, resource string, configure func(*Config)) (*Adapter, *testsupport.RemoteAPI) {
	t.Helper()

	api := testsupport.NewRemoteAPI(t)
	api.AddResource(resource, "id", testsupport.LoadRecords(t, testsupport.FixturePath("sites.json"))...)

	gw, err := cache.NewGateway(cache.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })

	cfg := DefaultConfig()
	cfg.Client = string(apiclient.KindCollection)
	if resource == "sites" {
		cfg.Client = string(apiclient.KindSite)
	}
	cfg.Endpoint = api.URL()
	cfg.API = APIConfig{Username: testsupport.DefaultUsername, Password: testsupport.DefaultPassword}
	if configure != nil {
		configure(&cfg)
	}

	a, err := New(cfg, apiclient.Deps{
		HTTPClient: api.Client(),
		Decoder:    apiclient.JSONDecoder{},
		Gateway:    gw,
	})
	require.NoError(t, err)
	return a, api
}

func names(set *record.Set) []string {
	var out []string
	set.Each(func(_ string, r record.Record) bool {
		out = append(out, r.String("name"))
		return true
	})
	return out
}

func TestQuery_WithoutArgumentsReturnsEverything(t *testing.T) {
	a, _ := newAdapter(t, "collections", nil)

	all := a.Query(context.Background(), nil, nil, 0, 0)

	require.Equal(t, 15, all.Len())
	assert.Equal(t, "101", all.Keys()[0])
	assert.Equal(t, "115", all.Keys()[14])
}

func TestQuery_FilterSortAndPage(t *testing.T) {
	a, _ := newAdapter(t, "collections", nil)
	ctx := context.Background()

	conditions := []query.Condition{{Field: "status", Value: "active"}}
	sorts := []query.SortSpec{{Field: "name", Direction: query.Desc}}

	first := a.Query(ctx, conditions, sorts, 0, 10)
	assert.Equal(t, []string{"115", "114", "113", "111", "110", "108", "107", "105", "104", "102"}, first.Keys())
	first.Each(func(_ string, r record.Record) bool {
		assert.Equal(t, "active", r["status"])
		return true
	})

	rest := a.Query(ctx, conditions, sorts, 10, 10)
	assert.Equal(t, []string{"101"}, rest.Keys())
}

func TestQuery_PagesRemotelyWithoutConditions(t *testing.T) {
	a, api := newAdapter(t, "collections", nil)

	page := a.Query(context.Background(), nil, nil, 5, 5)

	assert.Equal(t, []string{"106", "107", "108", "109", "110"}, page.Keys())
	requests := api.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "limit=5&page=2", requests[0].Query)
}

func TestQuery_DefaultLimit(t *testing.T) {
	a, api := newAdapter(t, "collections", func(c *Config) { c.Pager.DefaultLimit = 4 })

	page := a.Query(context.Background(), nil, nil, 3, 0)

	assert.Equal(t, []string{"101", "102", "103", "104"}, page.Keys())
	assert.Equal(t, "limit=4&page=1", api.Requests()[0].Query)
}

func TestQuery_TranslatesMappedFields(t *testing.T) {
	a, _ := newAdapter(t, "collections", func(c *Config) {
		c.FieldMapping = map[string]string{"title": "name"}
	})

	got := a.Query(context.Background(),
		[]query.Condition{{Field: "title", Value: "o", Operator: query.Contains}},
		[]query.SortSpec{{Field: "title"}},
		0, 0,
	)

	assert.Equal(t, []string{"Bravo", "Echo", "Foxtrot", "Golf", "Hotel", "Kilo", "November", "Oscar"}, names(got))
}

func TestQuery_SkipsIncompleteConditions(t *testing.T) {
	a, _ := newAdapter(t, "collections", nil)

	got := a.Query(context.Background(),
		[]query.Condition{{Field: "status"}, {Value: "active"}},
		nil, 0, 5,
	)

	assert.Equal(t, []string{"101", "102", "103", "104", "105"}, got.Keys())
}

func TestLoad_ByOriginID(t *testing.T) {
	a, api := newAdapter(t, "collections", nil)
	ctx := context.Background()

	r, ok := a.Load(ctx, "105")
	require.True(t, ok)
	assert.Equal(t, "Echo", r["name"])

	_, ok = a.Load(ctx, "105")
	require.True(t, ok)
	assert.Equal(t, 1, api.RequestCount("/v1/collections/105"))

	_, ok = a.Load(ctx, "999")
	assert.False(t, ok)
}

func TestLoad_ByMappedID(t *testing.T) {
	a, api := newAdapter(t, "collections", func(c *Config) {
		c.FieldMapping = map[string]string{"id": "slug"}
	})
	ctx := context.Background()

	assert.Equal(t, "slug", a.Client().IDKey())

	r, ok := a.Load(ctx, "echo-site")
	require.True(t, ok)
	assert.Equal(t, float64(105), r["id"])
	assert.Equal(t, 0, api.RequestCount("/v1/collections/"), "mapped ids are searched in the listing")

	_, ok = a.Load(ctx, "missing-site")
	assert.False(t, ok)

	all := a.Query(ctx, nil, nil, 0, 0)
	assert.Equal(t, "alpha-site", all.Keys()[0])
}

func TestLoadMultiple(t *testing.T) {
	a, _ := newAdapter(t, "collections", nil)
	ctx := context.Background()

	some := a.LoadMultiple(ctx, []string{"103", "999", "101"})
	assert.Equal(t, []string{"103", "101"}, some.Keys())

	all := a.LoadMultiple(ctx, nil)
	assert.Equal(t, 15, all.Len())

	none := a.LoadMultiple(ctx, []string{})
	assert.Equal(t, 0, none.Len())
}

func TestSaveAndDeleteAreNoops(t *testing.T) {
	a, api := newAdapter(t, "collections", nil)
	ctx := context.Background()

	assert.Equal(t, 0, a.Save(ctx, apiclient.Entity{ID: "1", IsNew: true}))
	assert.Equal(t, 0, a.Save(ctx, apiclient.Entity{ID: "1"}))
	assert.Equal(t, 0, a.Delete(ctx, apiclient.Entity{ID: "1"}))
	assert.Empty(t, api.Requests())
}

func TestInvalidateCache(t *testing.T) {
	a, api := newAdapter(t, "collections", nil)
	ctx := context.Background()

	a.Query(ctx, nil, nil, 0, 0)
	a.Query(ctx, nil, nil, 0, 0)
	assert.Equal(t, 1, api.RequestCount("/v1/collections"))

	require.NoError(t, a.InvalidateCache(ctx))

	a.Query(ctx, nil, nil, 0, 0)
	assert.Equal(t, 2, api.RequestCount("/v1/collections"))
}

func TestQuery_SiteClientUsesDetailedRecords(t *testing.T) {
	a, api := newAdapter(t, "sites", nil)
	api.SetDetail("sites", "101", map[string]any{"id": 101, "name": "Alpha", "status": "active", "owner": "ops"})

	got := a.Query(context.Background(), []query.Condition{{Field: "owner", Value: "ops"}}, nil, 0, 0)

	assert.Equal(t, []string{"101"}, got.Keys())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	gw, err := cache.NewGateway(cache.DefaultConfig())
	require.NoError(t, err)
	defer gw.Close()

	_, err = New(Config{}, apiclient.Deps{Gateway: gw})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Client = "site"
	cfg.Endpoint = "https://www.example.com"
	_, err = New(cfg, apiclient.Deps{})
	assert.ErrorIs(t, err, apiclient.ErrMissingGateway)
}
