// Package gateway is the single chokepoint for backend HTTP calls. It attaches
// the session token, normalizes failures into *Error and, in demo mode, answers
// from fixtures without touching the network.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wellness-hub/internal/repository"
)

const (
	DefaultBaseURL = "http://localhost:3001/api"
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 64 << 10
)

// TokenSource yields the stored session token. repository.TokenRepository satisfies it.
type TokenSource interface {
	Load(ctx context.Context) (string, error)
}

// UnauthorizedFunc is called when an authenticated call is rejected with 401.
type UnauthorizedFunc func(ctx context.Context, err *Error)

type Config struct {
	BaseURL string
	// Timeout applies to calls whose context has no deadline. Negative disables it.
	Timeout    time.Duration
	Demo       bool
	Fixtures   *Fixtures
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client issues requests against the backend.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logrus.Entry

	mu             sync.RWMutex
	onUnauthorized UnauthorizedFunc
}

// New creates a Client. If HTTPClient is nil, http.DefaultClient is used.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Fixtures == nil {
		cfg.Fixtures = DefaultFixtures()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		cfg:  cfg,
		http: cfg.HTTPClient,
		log:  cfg.Logger.WithField("component", "gateway"),
	}
}

// Demo reports whether the client answers from fixtures.
func (c *Client) Demo() bool {
	return c.cfg.Demo
}

// OnUnauthorized registers fn to run when an authenticated call gets a 401.
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Request performs one call. It returns either a Result or a single *Error.
func (c *Client) Request(ctx context.Context, endpoint string, req Request) (*Result, error) {
	method := req.method()
	endpoint = normalizeEndpoint(endpoint)

	if c.cfg.Demo {
		return c.fixture(method, endpoint)
	}

	body, contentType, err := req.encode()
	if err != nil {
		return nil, newError(KindInvalidRequest, method, endpoint, err)
	}

	ctx, cancel := c.withTimeout(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		cancel()
		return nil, newError(KindInvalidRequest, method, endpoint, fmt.Errorf("new request: %w", err))
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", contentTypeJSON)
	requestID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, requestID)

	authed := false
	if !req.SkipAuth {
		if token := c.token(ctx); token != "" {
			httpReq.Header.Set(AuthHeader, token)
			authed = true
		}
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     method,
		"endpoint":   endpoint,
		"request_id": requestID,
	})
	started := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// classify while ctx still reflects the caller's deadline
		e := transportError(ctx, method, endpoint, err)
		cancel()
		log.WithError(err).WithField("kind", e.Kind).Debug("request failed")
		return nil, e
	}

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer cancel()
		defer resp.Body.Close()

		e := statusError(resp, method, endpoint)
		log.WithField("error", e.Message).Debug("request rejected")
		if authed && e.Unauthorized() {
			c.unauthorized(ctx, e)
		}
		return nil, e
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		defer cancel()
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			e := transportError(ctx, method, endpoint, fmt.Errorf("read body: %w", err))
			e.Status = resp.StatusCode
			return nil, e
		}
		log.Debug("request completed")
		return jsonResult(method, endpoint, resp.StatusCode, resp.Header, data)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	log.Debug("request completed with raw body")
	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		method:     method,
		endpoint:   endpoint,
		raw:        resp,
	}, nil
}

// Get issues an authenticated GET.
func (c *Client) Get(ctx context.Context, endpoint string) (*Result, error) {
	return c.Request(ctx, endpoint, Request{Method: http.MethodGet})
}

// Post issues an authenticated JSON POST.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Result, error) {
	return c.Request(ctx, endpoint, Request{Method: http.MethodPost, Body: body})
}

// Put issues an authenticated JSON PUT.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (*Result, error) {
	return c.Request(ctx, endpoint, Request{Method: http.MethodPut, Body: body})
}

// Delete issues an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, endpoint string) (*Result, error) {
	return c.Request(ctx, endpoint, Request{Method: http.MethodDelete})
}

// Do performs the request and decodes the JSON payload into T.
func Do[T any](ctx context.Context, c *Client, endpoint string, req Request) (T, error) {
	var out T
	res, err := c.Request(ctx, endpoint, req)
	if err != nil {
		return out, err
	}
	defer res.Close()

	if err := res.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) fixture(method, endpoint string) (*Result, error) {
	payload := c.cfg.Fixtures.Lookup(method, endpoint)(endpoint)
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, newError(KindDecode, method, endpoint, fmt.Errorf("encode fixture: %w", err))
	}

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
	}).Debug("demo fixture served")

	header := make(http.Header)
	header.Set("Content-Type", contentTypeJSON)
	return jsonResult(method, endpoint, http.StatusOK, header, data)
}

func (c *Client) token(ctx context.Context) string {
	if c.cfg.Tokens == nil {
		return ""
	}
	token, err := c.cfg.Tokens.Load(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.log.WithError(err).Warn("load token")
		}
		return ""
	}
	return token
}

func (c *Client) unauthorized(ctx context.Context, err *Error) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(context.WithoutCancel(ctx), err)
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout < 0 {
		return context.WithCancel(ctx)
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func statusError(resp *http.Response, method, endpoint string) *Error {
	msg := statusMessage(resp.StatusCode, resp.Status)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(data) > 0 {
		var body struct {
			Msg     string `json:"msg"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &body) == nil {
			switch {
			case body.Msg != "":
				msg = body.Msg
			case body.Message != "":
				msg = body.Message
			}
		}
	}

	return &Error{
		Kind:     KindStatus,
		Method:   method,
		Endpoint: endpoint,
		Status:   resp.StatusCode,
		Message:  msg,
	}
}

func transportError(ctx context.Context, method, endpoint string, err error) *Error {
	kind := KindNetwork
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		kind = KindCanceled
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			kind = KindTimeout
		}
	}

	e := newError(kind, method, endpoint, err)
	if kind == KindTimeout {
		e.Message = fmt.Sprintf("%s %s: request timed out", method, endpoint)
	}
	return e
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), contentTypeJSON)
}

func normalizeEndpoint(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		return "/" + endpoint
	}
	return endpoint
}
