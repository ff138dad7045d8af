package cache

import (
	"strings"
	"testing"
)

type stringerID string

func (s stringerID) String() string { return "id-" + string(s) }

func TestKeyBuilder_Key(t *testing.T) {
	keys := NewKeyBuilder("")

	tests := []struct {
		name        string
		client      string
		requestType string
		params      []any
		want        string
	}{
		{
			name:        "no params",
			client:      "site",
			requestType: "request_one",
			want:        "remote_entities.site.request_one",
		},
		{
			name:        "single id",
			client:      "site",
			requestType: "request_one",
			params:      []any{5},
			want:        "remote_entities.site.request_one.5",
		},
		{
			name:        "page parameters",
			client:      "group",
			requestType: "request_multiple",
			params:      []any{100, 1},
			want:        "remote_entities.group.request_multiple.100.1",
		},
		{
			name:        "detailed listing marker",
			client:      "site",
			requestType: "request_multiple",
			params:      []any{100, 2, "overwritten"},
			want:        "remote_entities.site.request_multiple.100.2.overwritten",
		},
		{
			name:        "integral float renders as int",
			client:      "site",
			requestType: "request_one",
			params:      []any{float64(42)},
			want:        "remote_entities.site.request_one.42",
		},
		{
			name:        "client name is snake cased",
			client:      "PrimarySite",
			requestType: "request_one",
			params:      []any{"7"},
			want:        "remote_entities.primary_site.request_one.7",
		},
		{
			name:        "stringer",
			client:      "site",
			requestType: "request_one",
			params:      []any{stringerID("9")},
			want:        "remote_entities.site.request_one.id-9",
		},
		{
			name:        "nil param",
			client:      "site",
			requestType: "request_one",
			params:      []any{nil},
			want:        "remote_entities.site.request_one.nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keys.Key(tt.client, tt.requestType, tt.params...)
			if got != tt.want {
				t.Errorf("Key() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyBuilder_Namespace(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{namespace: "", want: DefaultNamespace},
		{namespace: "AcmeAPI", want: "acme_api"},
		{namespace: "partner-sites", want: "partner_sites"},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			if got := NewKeyBuilder(tt.namespace).Namespace(); got != tt.want {
				t.Errorf("Namespace() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyBuilder_CompositeParams(t *testing.T) {
	keys := NewKeyBuilder("")

	a := keys.Key("site", "query", map[string]any{"b": 2, "a": 1}, []string{"x", "y"})
	b := keys.Key("site", "query", map[string]any{"a": 1, "b": 2}, []string{"x", "y"})

	if a != b {
		t.Errorf("map params should serialize deterministically: %q != %q", a, b)
	}
	if want := "remote_entities.site.query.{a=1,b=2}.[x,y]"; a != want {
		t.Errorf("Key() = %v, want %v", a, want)
	}
}

func TestKeyBuilder_LongKeys(t *testing.T) {
	keys := NewKeyBuilder("")

	long := strings.Repeat("a", 300)
	got := keys.Key("site", "request_one", long)

	if len(got) > MaxKeyLength {
		t.Fatalf("expected key of at most %d bytes, got %d", MaxKeyLength, len(got))
	}
	if !strings.HasPrefix(got, "remote_entities.site.request_one.aaa") {
		t.Errorf("expected readable prefix, got %q", got)
	}

	other := keys.Key("site", "request_one", strings.Repeat("a", 299)+"b")
	if got == other {
		t.Error("keys sharing a prefix must not collide")
	}

	if again := keys.Key("site", "request_one", long); again != got {
		t.Error("shortened keys must be stable")
	}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "site", want: "site"},
		{in: "PrimarySite", want: "primary_site"},
		{in: "primary_site", want: "primary_site"},
		{in: "primary-site", want: "primary_site"},
		{in: "HTTPClient", want: "http_client"},
		{in: "v1.sites", want: "v1_sites"},
		{in: "acme:site", want: "acme_site"},
		{in: "--site--", want: "site"},
		{in: "a . b", want: "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := segment(tt.in); got != tt.want {
				t.Errorf("segment(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
