// Package apiclient fetches sites, groups and collections from the versioned
// remote REST API and caches every response in a cache.Gateway.
//
// A client is built for a Kind with mandatory dependencies:
//
//	gw, _ := cache.NewGateway(cache.DefaultConfig())
//	c, err := apiclient.New(apiclient.KindSite, apiclient.Deps{
//		HTTPClient: http.DefaultClient,
//		Decoder:    apiclient.JSONDecoder{},
//		Gateway:    gw,
//		Logger:     logger,
//	})
//	c.SetEndpoint("https://www.example.com/api")
//	c.SetUsername(user)
//	c.SetPassword(pass)
//
//	site, ok := c.FetchOne(ctx, "42")
//	all := c.FetchAll(ctx)
//
// Remote failures never reach the caller: FetchOne reports the record as
// absent and FetchPage returns an empty set. They are logged at Warn level with
// the request id sent in the X-Request-ID header.
//
// KindPrimarySite is a composite view. It lists every site, keeps the primary
// ones and adds a collection_name field from the site's collection.
//
// PostFetchHook functions run after each fetch and may rewrite the result or
// mark it as not cacheable.
package apiclient
