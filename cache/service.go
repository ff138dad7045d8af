package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-remote-entities/internal/cacheinfra"
	"github.com/vmihailenco/msgpack/v5"
)

// Permanent is the max-age that disables expiry.
const Permanent = cacheinfra.Permanent

// MaxTTL is the default in-memory TTL. Permanent entries outlive any shorter
// TTL only up to that TTL.
const MaxTTL = cacheinfra.MaxTTL

// Entry is a cached payload with its expiry and tags.
type Entry = cacheinfra.Entry

// Encoded is a msgpack payload returned by persistent gateways. Get decodes it.
type Encoded = cacheinfra.Encoded

// ErrInvalidResultType is returned when a cached payload cannot be turned into
// the requested type.
var ErrInvalidResultType = errors.New("cached payload has an unexpected type", errors.CategoryInternal).
	WithTextCode("INVALID_RESULT_TYPE")

// Gateway is the key/value store with tag based invalidation that clients
// cache their fetch results in.
type Gateway interface {
	// Get returns the live entry under key. A miss is (Entry{}, false, nil).
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set stores payload under key for maxAge. Permanent disables expiry and a
	// zero maxAge stores nothing.
	Set(ctx context.Context, key string, payload any, maxAge time.Duration, tags []string) error
	Delete(ctx context.Context, keys ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

// ClosableGateway is a Gateway that holds resources.
type ClosableGateway interface {
	Gateway
	Close() error
}

// Get is a type-safe lookup over a Gateway. Payloads stored in process are
// returned as is; Encoded payloads are decoded into T.
func Get[T any](ctx context.Context, gw Gateway, key string) (T, bool, error) {
	var zero T

	entry, ok, err := gw.Get(ctx, key)
	if err != nil {
		return zero, false, errors.Wrap(err, errors.CategoryInternal, "cache lookup failed").
			WithMetadata(map[string]any{"key": key})
	}
	if !ok || entry.Payload == nil {
		return zero, false, nil
	}

	if value, ok := entry.Payload.(T); ok {
		return value, true, nil
	}

	if raw, ok := entry.Payload.(Encoded); ok {
		var value T
		if err := msgpack.Unmarshal(raw, &value); err != nil {
			return zero, false, fmt.Errorf("%w: decode %s: %v", ErrInvalidResultType, key, err)
		}
		return value, true, nil
	}

	return zero, false, fmt.Errorf("%w: %T", ErrInvalidResultType, entry.Payload)
}
