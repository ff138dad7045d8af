package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// KeySeparator defines the delimiter used between cache key segments.
	KeySeparator = "."

	// DefaultNamespace prefixes every key and tag built by this package.
	DefaultNamespace = "remote_entities"

	// MaxKeyLength is the longest key handed to a gateway. Longer keys are
	// shortened and suffixed with a digest of the full key.
	MaxKeyLength = 255

	shortKeyPrefix = 200
)

// KeyBuilder builds deterministic cache keys from a client identity, a request
// type and the request parameters.
type KeyBuilder interface {
	Key(client, requestType string, params ...any) string
	Namespace() string
}

type keyBuilder struct {
	namespace string
}

// NewKeyBuilder returns the default KeyBuilder. An empty namespace falls back
// to DefaultNamespace.
func NewKeyBuilder(namespace string) KeyBuilder {
	namespace = segment(namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &keyBuilder{namespace: namespace}
}

// Namespace returns the normalized namespace every key starts with.
func (b *keyBuilder) Namespace() string {
	return b.namespace
}

// Key joins namespace, client, request type and params, for example
// remote_entities.site.request_multiple.100.1.
func (b *keyBuilder) Key(client, requestType string, params ...any) string {
	parts := make([]string, 0, len(params)+3)
	parts = append(parts, b.namespace, segment(client), requestType)
	for _, p := range params {
		parts = append(parts, serializeValue(p))
	}
	return shortenKey(strings.Join(parts, KeySeparator))
}

func shortenKey(key string) string {
	if len(key) <= MaxKeyLength {
		return key
	}
	return key[:shortKeyPrefix] + ":" + strconv.FormatUint(xxhash.Sum64String(key), 16)
}

func serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return serializeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = serializeValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"
	case reflect.Map:
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, serializeValue(iter.Key().Interface())+"="+serializeValue(iter.Value().Interface()))
		}
		sort.Strings(pairs)
		return "{" + strings.Join(pairs, ",") + "}"
	}

	return fmt.Sprintf("%v", v)
}
