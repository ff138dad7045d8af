// Package cache defines the gateway that remote API clients cache their
// responses in, together with key and tag helpers.
//
// # Gateways
//
// A Gateway stores a payload under a key for a max-age and registers it under a
// set of tags. Entries are invalidated by tag rather than by key, so a client
// can drop every page and record it cached with one call:
//
//	gw, err := cache.NewGateway(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer gw.Close()
//
//	_ = gw.Set(ctx, key, payload, cache.Permanent, []string{"remote_entities:site"})
//	_ = gw.InvalidateTags(ctx, "remote_entities:site")
//
// NewGateway keeps entries in process (sturdyc). NewPersistentGateway stores
// them in sqlite or postgres through bun; those payloads come back as Encoded
// msgpack bytes and Get decodes them into the requested type:
//
//	set, ok, err := cache.Get[*record.Set](ctx, gw, key)
//
// # Keys
//
// Keys are built from a namespace, the client identity, the request type and
// the request parameters, joined with KeySeparator:
//
//	keys := cache.NewKeyBuilder("")
//	keys.Key("site", "request_multiple", 100, 1) // remote_entities.site.request_multiple.100.1
//
// Keys longer than MaxKeyLength are truncated and suffixed with an xxhash digest
// of the full key.
//
// # Tags
//
// Tag joins tag segments and MergeTags unions tag sets. WithTags attaches extra
// tags to a context; clients add them to every entry stored for that request.
package cache
