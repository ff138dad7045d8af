package apiclient

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-remote-entities/cache"
	"github.com/goliatone/go-remote-entities/record"
	"go.uber.org/zap"
)

// PageSize is the page size FetchAll walks the listing with.
const PageSize = 100

var (
	ErrMissingGateway    = errors.New("api client requires a cache gateway", errors.CategoryValidation).WithTextCode("MISSING_GATEWAY")
	ErrMissingHTTPClient = errors.New("api client requires an http client", errors.CategoryValidation).WithTextCode("MISSING_HTTP_CLIENT")
	ErrMissingDecoder    = errors.New("api client requires a response decoder", errors.CategoryValidation).WithTextCode("MISSING_DECODER")
)

// Fetcher reads records from the remote API through the cache.
type Fetcher interface {
	// FetchOne returns the record with the given origin id. Transport and
	// decode failures report the record as absent.
	FetchOne(ctx context.Context, id string) (record.Record, bool)
	// FetchPage returns one listing page keyed by origin id. Failures yield an
	// empty set.
	FetchPage(ctx context.Context, limit, page int) *record.Set
	// FetchAll walks the listing PageSize records at a time until a short page.
	FetchAll(ctx context.Context) *record.Set
}

// Writer is the write contract. The remote API is read only here: every
// method returns 0 and performs no network action.
type Writer interface {
	Add(ctx context.Context, entity Entity) int
	Update(ctx context.Context, entity Entity) int
	Delete(ctx context.Context, entity Entity) int
}

// Client is implemented by every client kind, the composite included.
type Client interface {
	Fetcher
	Writer

	Kind() Kind
	Label() string
	Description() string
	Identity() Identity
	OriginIDKey() string
	EndpointVersion() string
	URI() string
	DataParameter() string

	IDKey() string
	SetIDKey(idKey string)
	// SetEndpoint stores endpoint with the version segment appended. Callers
	// pass the bare base URL every time.
	SetEndpoint(endpoint string)
	Endpoint() string
	SetUsername(username string)
	Username() string
	SetPassword(password string)
	Password() string
	SetMaxAge(maxAge time.Duration)
	MaxAge() time.Duration

	CacheKey(requestType RequestType, params ...any) string
	CacheTags() []string
	CacheTagsToInvalidate() []string
}

// Identity is the snapshot of a client handed to hooks.
type Identity struct {
	Kind          Kind
	OriginIDKey   string
	IDKey         string
	Version       string
	URI           string
	DataParameter string
}

// Entity is what the storage layer asks a client to write.
type Entity struct {
	ID     string
	Record record.Record
	IsNew  bool
}

// Deps are the collaborators every client needs. HTTPClient, Decoder and
// Gateway are mandatory.
type Deps struct {
	HTTPClient HTTPClient
	Decoder    Decoder
	Gateway    cache.Gateway
	Keys       cache.KeyBuilder
	Logger     *zap.Logger
	Metrics    *Metrics
	Hooks      []PostFetchHook
	// MaxPages caps FetchAll. Zero walks until a short page.
	MaxPages int
}

func (d Deps) normalize() (Deps, error) {
	if d.Gateway == nil {
		return d, ErrMissingGateway
	}
	if d.HTTPClient == nil {
		return d, ErrMissingHTTPClient
	}
	if d.Decoder == nil {
		return d, ErrMissingDecoder
	}
	if d.Keys == nil {
		d.Keys = cache.NewKeyBuilder("")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.MaxPages < 0 {
		d.MaxPages = 0
	}
	return d, nil
}

// New builds the client for kind.
func New(kind Kind, deps Deps) (Client, error) {
	deps, err := deps.normalize()
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindSite:
		return newSiteClient(deps), nil
	case KindGroup, KindCollection:
		return newResourceClient(descriptors[kind], deps), nil
	case KindPrimarySite:
		return newPrimarySiteClient(deps), nil
	}
	_, err = ParseKind(string(kind))
	return nil, err
}

// collectPages unions successive pages until one comes back short, the
// context is done or maxPages is reached.
func collectPages(ctx context.Context, fetch func(ctx context.Context, limit, page int) *record.Set, maxPages int, logger *zap.Logger) *record.Set {
	all := record.NewSet(PageSize)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("fetch all interrupted", zap.Int("page", page), zap.Error(err))
			return all
		}

		batch := fetch(ctx, PageSize, page)
		all.Union(batch)

		if batch.Len() < PageSize {
			return all
		}
		if maxPages > 0 && page >= maxPages {
			logger.Warn("fetch all stopped at page cap", zap.Int("max_pages", maxPages), zap.Int("records", all.Len()))
			return all
		}
	}
}
