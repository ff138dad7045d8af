package apiclient

import "github.com/goliatone/go-remote-entities/record"

// RequestType distinguishes single record fetches from page fetches.
type RequestType string

const (
	RequestOne      RequestType = "request_one"
	RequestMultiple RequestType = "request_multiple"
)

// CacheContext describes the fetch a hook runs for. Hooks may change Tags and
// Cacheable.
type CacheContext struct {
	RequestType RequestType
	// ID is set for RequestOne.
	ID string
	// Limit and Page are set for RequestMultiple.
	Limit int
	Page  int
	// Detailed marks the site listing whose records were re-fetched one by one.
	Detailed  bool
	Tags      []string
	Cacheable bool
}

// Result is what a fetch produced. One is used for RequestOne, Many for
// RequestMultiple. A nil One means the record is absent.
type Result struct {
	One  record.Record
	Many *record.Set
}

// PostFetchHook runs after every remote fetch and before the result is cached.
// It returns the possibly rewritten result; clearing cc.Cacheable keeps the
// result out of the cache.
type PostFetchHook func(identity Identity, cc *CacheContext, result Result) Result

func runHooks(hooks []PostFetchHook, identity Identity, cc *CacheContext, result Result) Result {
	for _, hook := range hooks {
		if hook != nil {
			result = hook(identity, cc, result)
		}
	}
	return result
}
