package cache

import (
	"context"
	"sort"
	"strings"
)

// TagSeparator joins the segments of a cache tag.
const TagSeparator = ":"

// Tag joins the non-empty parts with TagSeparator.
func Tag(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, TagSeparator)
}

// MergeTags returns the sorted union of the given tag sets.
func MergeTags(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, tag := range set {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

type cacheTagsContextKey struct{}

// WithTags attaches extra tags to the context. Clients add them to every entry
// they store while handling the request.
func WithTags(ctx context.Context, tags ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(tags) == 0 {
		return ctx
	}

	combined := MergeTags(TagsFromContext(ctx), tags)
	if len(combined) == 0 {
		return ctx
	}
	return context.WithValue(ctx, cacheTagsContextKey{}, combined)
}

// TagsFromContext returns a copy of the tags attached with WithTags.
func TagsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if tags, ok := ctx.Value(cacheTagsContextKey{}).([]string); ok {
		return append([]string(nil), tags...)
	}
	return nil
}
