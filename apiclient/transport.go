package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RequestIDHeader carries the id generated for every remote call.
const RequestIDHeader = "X-Request-ID"

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Decoder turns a response body into a generic value.
type Decoder interface {
	Decode(body []byte) (any, error)
}

// JSONDecoder decodes JSON bodies into map[string]any / []any trees.
type JSONDecoder struct{}

// Decode parses body. Malformed JSON is a CategoryExternal error.
func (JSONDecoder) Decode(body []byte) (any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "malformed json body").
			WithTextCode("DECODE_FAILED")
	}
	return v, nil
}

type request struct {
	url       string
	query     url.Values
	username  string
	password  string
	requestID string
}

func newRequest(rawURL, username, password string, query url.Values) request {
	return request{
		url:       rawURL,
		query:     query,
		username:  username,
		password:  password,
		requestID: uuid.NewString(),
	}
}

// do issues an authenticated GET and decodes the body. Non 2xx statuses are
// transport failures.
func do(ctx context.Context, client HTTPClient, decoder Decoder, r request) (any, error) {
	target := r.url
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid remote url").
			WithRequestID(r.requestID).
			WithMetadata(map[string]any{"url": target})
	}
	req.SetBasicAuth(r.username, r.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, r.requestID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "remote request failed").
			WithTextCode("TRANSPORT_FAILED").
			WithRequestID(r.requestID).
			WithMetadata(map[string]any{"url": target})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read remote response").
			WithTextCode("TRANSPORT_FAILED").
			WithRequestID(r.requestID).
			WithMetadata(map[string]any{"url": target})
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.New(fmt.Sprintf("remote responded %d", resp.StatusCode), errors.CategoryExternal).
			WithCode(resp.StatusCode).
			WithTextCode("REMOTE_STATUS").
			WithRequestID(r.requestID).
			WithMetadata(map[string]any{"url": target})
	}

	v, err := decoder.Decode(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "decode remote response").
			WithTextCode("DECODE_FAILED").
			WithRequestID(r.requestID).
			WithMetadata(map[string]any{"url": target})
	}
	return v, nil
}
