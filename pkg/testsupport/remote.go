package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Default credentials accepted by a RemoteAPI.
const (
	DefaultUsername = "api-user"
	DefaultPassword = "api-secret"
)

// RemoteAPI is an in-process stand in for the versioned remote REST API. It
// serves GET /{version}/{resource} listings paged with limit and page, and
// GET /{version}/{resource}/{id} detail records, behind HTTP Basic auth.
type RemoteAPI struct {
	server   *httptest.Server
	version  string
	username string
	password string

	mu        sync.Mutex
	resources map[string]*resource
	overrides map[string]override
	requests  []Request
}

// Request is one call the RemoteAPI received.
type Request struct {
	Path      string
	Query     string
	RequestID string
}

type resource struct {
	idKey   string
	records []map[string]any
	details map[string]map[string]any
}

type override struct {
	status int
	body   string
}

// NewRemoteAPI starts a server that accepts DefaultUsername/DefaultPassword
// and closes it when the test ends.
func NewRemoteAPI(t testing.TB) *RemoteAPI {
	t.Helper()

	api := &RemoteAPI{
		version:   "v1",
		username:  DefaultUsername,
		password:  DefaultPassword,
		resources: map[string]*resource{},
		overrides: map[string]override{},
	}
	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)
	return api
}

// URL is the base endpoint, without the version segment.
func (a *RemoteAPI) URL() string {
	return a.server.URL
}

// Client returns an http.Client wired to the server.
func (a *RemoteAPI) Client() *http.Client {
	return a.server.Client()
}

// AddResource registers records under resource, keyed by idKey. Listing
// responses wrap them in a field named after the resource.
func (a *RemoteAPI) AddResource(name, idKey string, records ...map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res, ok := a.resources[name]
	if !ok {
		res = &resource{idKey: idKey, details: map[string]map[string]any{}}
		a.resources[name] = res
	}
	res.records = append(res.records, records...)
}

// SetDetail overrides the record served by the detail endpoint for id.
func (a *RemoteAPI) SetDetail(name, id string, detail map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if res, ok := a.resources[name]; ok {
		res.details[id] = detail
	}
}

// Respond makes path (for example "/v1/sites/5") answer with status and a raw
// body instead of the registered data.
func (a *RemoteAPI) Respond(path string, status int, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overrides[path] = override{status: status, body: body}
}

// Requests returns every request received so far.
func (a *RemoteAPI) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Request(nil), a.requests...)
}

// RequestCount counts requests whose path starts with prefix.
func (a *RemoteAPI) RequestCount(prefix string) int {
	n := 0
	for _, r := range a.Requests() {
		if strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

func (a *RemoteAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.requests = append(a.requests, Request{
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		RequestID: r.Header.Get("X-Request-ID"),
	})
	ov, overridden := a.overrides[r.URL.Path]
	a.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if !ok || user != a.username || pass != a.password {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if overridden {
		w.WriteHeader(ov.status)
		fmt.Fprint(w, ov.body)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != a.version {
		http.NotFound(w, r)
		return
	}

	a.mu.Lock()
	res, ok := a.resources[parts[1]]
	a.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch len(parts) {
	case 2:
		a.writeList(w, r, parts[1], res)
	case 3:
		a.writeDetail(w, r, res, parts[2])
	default:
		http.NotFound(w, r)
	}
}

func (a *RemoteAPI) writeList(w http.ResponseWriter, r *http.Request, name string, res *resource) {
	limit := intParam(r, "limit", 10)
	page := intParam(r, "page", 1)

	a.mu.Lock()
	total := len(res.records)
	start := (page - 1) * limit
	if start > total || start < 0 {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	items := append([]map[string]any{}, res.records[start:end]...)
	a.mu.Unlock()

	writeJSON(w, map[string]any{
		"count": total,
		name:    items,
	})
}

func (a *RemoteAPI) writeDetail(w http.ResponseWriter, r *http.Request, res *resource, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if detail, ok := res.details[id]; ok {
		writeJSON(w, detail)
		return
	}
	for _, rec := range res.records {
		if fmt.Sprint(rec[res.idKey]) == id {
			writeJSON(w, rec)
			return
		}
	}
	http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
}

func intParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Sites builds n site records with ids starting at first. Every third site is
// primary and belongs to collection 1 + id%3.
func Sites(first, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for id := first; id < first+n; id++ {
		out = append(out, map[string]any{
			"id":            id,
			"site":          fmt.Sprintf("site%d.example.com", id),
			"collection_id": 1 + id%3,
			"is_primary":    id%3 == 0,
		})
	}
	return out
}
