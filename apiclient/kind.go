package apiclient

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Kind selects a client variant.
type Kind string

const (
	KindSite        Kind = "site"
	KindGroup       Kind = "group"
	KindCollection  Kind = "collection"
	KindPrimarySite Kind = "primary_site"
)

// EndpointVersion is appended to every configured endpoint.
const EndpointVersion = "v1"

// Descriptor is the fixed identity of a client kind.
type Descriptor struct {
	Kind        Kind
	Label       string
	Description string
	// OriginIDKey is the remote's native identifier field.
	OriginIDKey string
	Version     string
	// Resource is the path segment after the version, e.g. "sites".
	Resource string
	// DataParameter names the listing response field holding the records.
	DataParameter string
}

var descriptors = map[Kind]Descriptor{
	KindSite: {
		Kind:          KindSite,
		Label:         "Site",
		Description:   "Sites with their full detail records.",
		OriginIDKey:   "id",
		Version:       EndpointVersion,
		Resource:      "sites",
		DataParameter: "sites",
	},
	KindGroup: {
		Kind:          KindGroup,
		Label:         "Group",
		Description:   "Site groups.",
		OriginIDKey:   "group_id",
		Version:       EndpointVersion,
		Resource:      "groups",
		DataParameter: "groups",
	},
	KindCollection: {
		Kind:          KindCollection,
		Label:         "Collection",
		Description:   "Site collections.",
		OriginIDKey:   "id",
		Version:       EndpointVersion,
		Resource:      "collections",
		DataParameter: "collections",
	},
	KindPrimarySite: {
		Kind:          KindPrimarySite,
		Label:         "Primary site",
		Description:   "Primary sites of each collection, enriched with the collection name.",
		OriginIDKey:   "id",
		Version:       EndpointVersion,
		Resource:      "sites",
		DataParameter: "sites",
	},
}

// Kinds returns every client kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindSite, KindGroup, KindCollection, KindPrimarySite}
}

// ParseKind resolves a client identifier such as "primary_site" or
// "Primary-Site".
func ParseKind(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_")))
	k := Kind(normalized)
	if _, ok := descriptors[k]; ok {
		return k, nil
	}
	return "", errors.New("unknown api client "+s, errors.CategoryBadInput).
		WithTextCode("UNKNOWN_CLIENT").
		WithMetadata(map[string]any{"client": s, "known": Kinds()})
}

// Descriptor returns the fixed identity of k.
func (k Kind) Descriptor() (Descriptor, bool) {
	d, ok := descriptors[k]
	return d, ok
}

// Label is the human readable name of k.
func (k Kind) Label() string {
	if d, ok := descriptors[k]; ok {
		return d.Label
	}
	return string(k)
}

func (k Kind) String() string {
	return string(k)
}
