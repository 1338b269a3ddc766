package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Result is a successful gateway response. JSON responses are read and
// validated before Request returns; anything else is handed back as the raw
// *http.Response with its body unread.
type Result struct {
	StatusCode int
	Header     http.Header

	method   string
	endpoint string
	body     json.RawMessage
	raw      *http.Response
}

// IsJSON reports whether the response was parsed as JSON.
func (r *Result) IsJSON() bool {
	return r.raw == nil
}

// Bytes returns the JSON payload, or nil for raw responses.
func (r *Result) Bytes() json.RawMessage {
	return r.body
}

// Raw returns the unread response for non-JSON payloads. The caller owns the
// body and must close it.
func (r *Result) Raw() *http.Response {
	return r.raw
}

// Value returns the payload decoded into generic JSON values.
func (r *Result) Value() (any, error) {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode unmarshals the JSON payload into v. An empty payload leaves v untouched.
func (r *Result) Decode(v any) error {
	if r.raw != nil {
		return &Error{
			Kind:     KindDecode,
			Method:   r.method,
			Endpoint: r.endpoint,
			Status:   r.StatusCode,
			Message:  "response is not JSON: " + r.raw.Header.Get("Content-Type"),
		}
	}
	if len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		e := newError(KindDecode, r.method, r.endpoint, err)
		e.Status = r.StatusCode
		return e
	}
	return nil
}

// Close releases a raw response body. It is a no-op for JSON results.
func (r *Result) Close() error {
	if r.raw == nil || r.raw.Body == nil {
		return nil
	}
	return r.raw.Body.Close()
}

// cancelOnClose keeps the per-call timeout alive until the caller is done
// with a raw body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func jsonResult(method, endpoint string, status int, header http.Header, body []byte) (*Result, error) {
	if len(body) > 0 && !json.Valid(body) {
		e := newError(KindDecode, method, endpoint, errors.New("malformed JSON response"))
		e.Status = status
		return nil, e
	}
	return &Result{
		StatusCode: status,
		Header:     header,
		method:     method,
		endpoint:   endpoint,
		body:       body,
	}, nil
}
