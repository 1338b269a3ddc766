package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
	"wellness-hub/internal/repository/memory"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*gateway.Config)) (*gateway.Client, *memory.TokenRepository) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := memory.NewTokenRepository()
	cfg := gateway.Config{
		BaseURL: srv.URL + "/api/",
		Tokens:  tokens,
		Logger:  quietLogger(),
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return gateway.New(cfg), tokens
}

func TestRequestBuildsURLAndHeaders(t *testing.T) {
	t.Parallel()

	client, tokens := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/student/stress", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("x-auth-token"))
		assert.Len(t, r.Header.Get(gateway.RequestIDHeader), 36)
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"stressLevel":7}`, string(body))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"msg":"Stress entry saved","id":"42","predictions":{"level":"high"}}`))
	})
	require.NoError(t, tokens.Save(context.Background(), "secret"))

	res, err := client.Request(context.Background(), "student/stress", gateway.Request{
		Method: http.MethodPost,
		Body:   map[string]int{"stressLevel": 7},
		Header: http.Header{"X-Extra": []string{"yes"}},
	})
	require.NoError(t, err)
	assert.True(t, res.IsJSON())
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var sub domain.Submission
	require.NoError(t, res.Decode(&sub))
	assert.Equal(t, "42", sub.ID)
	assert.True(t, sub.HasPredictions())

	var pred struct {
		Level string `json:"level"`
	}
	require.NoError(t, sub.DecodePredictions(&pred))
	assert.Equal(t, "high", pred.Level)
}

func TestRequestSkipAuth(t *testing.T) {
	t.Parallel()

	client, tokens := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(gateway.AuthHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resources":[]}`))
	})
	require.NoError(t, tokens.Save(context.Background(), "secret"))

	_, err := client.Request(context.Background(), "/student/resources", gateway.Request{SkipAuth: true})
	require.NoError(t, err)
}

func TestRequestWithoutTokenOmitsHeader(t *testing.T) {
	t.Parallel()

	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Header[http.CanonicalHeaderKey(gateway.AuthHeader)]
		assert.False(t, ok)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.Get(context.Background(), "/auth/me")
	require.NoError(t, err)
}

func TestRequestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        string
	}{
		{"msg field", http.StatusBadRequest, "application/json", `{"msg":"bad creds"}`, "bad creds"},
		{"message field", http.StatusNotFound, "application/json", `{"message":"Journal not found"}`, "Journal not found"},
		{"msg wins over message", http.StatusBadRequest, "application/json", `{"msg":"a","message":"b"}`, "a"},
		{"plain text body", http.StatusBadGateway, "text/plain", "upstream down", "HTTP 502: Bad Gateway"},
		{"empty body", http.StatusInternalServerError, "", "", "HTTP 500: Internal Server Error"},
		{"json without message", http.StatusForbidden, "application/json", `{"error":"x"}`, "HTTP 403: Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Get(context.Background(), "/x")
			require.Error(t, err)

			var gwErr *gateway.Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, gateway.KindStatus, gwErr.Kind)
			assert.Equal(t, tt.status, gwErr.Status)
			assert.Equal(t, tt.want, gwErr.Error())
			assert.Equal(t, "/x", gwErr.Endpoint)
		})
	}
}

func TestRequestTextPlainReturnsRawHandle(t *testing.T) {
	t.Parallel()

	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	})

	res, err := client.Get(context.Background(), "/health/test")
	require.NoError(t, err)
	defer res.Close()

	assert.False(t, res.IsJSON())
	require.NotNil(t, res.Raw())
	assert.Nil(t, res.Bytes())

	body, err := io.ReadAll(res.Raw().Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	var v any
	var gwErr *gateway.Error
	require.ErrorAs(t, res.Decode(&v), &gwErr)
	assert.Equal(t, gateway.KindDecode, gwErr.Kind)
}

func TestRequestMalformedJSON(t *testing.T) {
	t.Parallel()

	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":`))
	})

	_, err := client.Get(context.Background(), "/auth/me")

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindDecode, gwErr.Kind)
	assert.Equal(t, http.StatusOK, gwErr.Status)
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(cfg *gateway.Config) {
		cfg.Timeout = 50 * time.Millisecond
	})
	defer close(release)

	_, err := client.Get(context.Background(), "/slow")

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindTimeout, gwErr.Kind)
}

func TestRequestCanceled(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-entered
		cancel()
	}()

	_, err := client.Get(ctx, "/slow")

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindCanceled, gwErr.Kind)
}

func TestRequestNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	withDeadline := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), time.Minute)
	}
	noDeadline := func() (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}

	cases := []struct {
		name    string
		timeout time.Duration
		ctx     func() (context.Context, context.CancelFunc)
	}{
		{name: "default timeout", ctx: noDeadline},
		{name: "timeout disabled", timeout: -1, ctx: noDeadline},
		{name: "caller deadline", ctx: withDeadline},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := gateway.New(gateway.Config{BaseURL: url, Timeout: tc.timeout, Logger: quietLogger()})
			ctx, cancel := tc.ctx()
			defer cancel()

			_, err := client.Get(ctx, "/auth/me")

			var gwErr *gateway.Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, gateway.KindNetwork, gwErr.Kind)
			assert.Zero(t, gwErr.Status)
		})
	}
}

func TestRequestInvalidBody(t *testing.T) {
	t.Parallel()

	client := gateway.New(gateway.Config{BaseURL: "http://127.0.0.1:1", Logger: quietLogger()})
	_, err := client.Post(context.Background(), "/x", map[string]any{"bad": make(chan int)})

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindInvalidRequest, gwErr.Kind)
}

func TestUnauthorizedHook(t *testing.T) {
	t.Parallel()

	client, tokens := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"Token is not valid"}`))
	})

	var calls atomic.Int32
	client.OnUnauthorized(func(ctx context.Context, err *gateway.Error) {
		calls.Add(1)
		assert.Equal(t, "Token is not valid", err.Message)
	})

	_, err := client.Get(context.Background(), "/journals")
	require.Error(t, err)
	assert.Zero(t, calls.Load(), "no hook without a token")

	require.NoError(t, tokens.Save(context.Background(), "expired"))

	_, err = client.Request(context.Background(), "/auth/login", gateway.Request{Method: http.MethodPost, SkipAuth: true})
	require.Error(t, err)
	assert.Zero(t, calls.Load(), "no hook for unauthenticated calls")

	_, err = client.Get(context.Background(), "/journals")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestDo(t *testing.T) {
	t.Parallel()

	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]domain.Journal{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}})
	})

	journals, err := gateway.Do[[]domain.Journal](context.Background(), client, "/journals", gateway.Request{})
	require.NoError(t, err)
	require.Len(t, journals, 2)
	assert.Equal(t, "b", journals[1].Title)
}

func TestDemoModeNeverTouchesNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, func(cfg *gateway.Config) {
		cfg.Demo = true
	})
	assert.True(t, client.Demo())

	t.Run("registered fixture", func(t *testing.T) {
		auth, err := gateway.Do[domain.AuthResponse](context.Background(), client, "/auth/login", gateway.Request{
			Method: http.MethodPost,
			Body:   domain.Credentials{Email: "x", Password: "y"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.DemoLoginToken, auth.Token)
		assert.Equal(t, "Demo User", auth.Username)
	})

	t.Run("method is part of the key", func(t *testing.T) {
		res, err := client.Get(context.Background(), "/auth/login")
		require.NoError(t, err)
		v, err := res.Value()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"message": "Demo mode - feature available with full backend",
			"status":  "success",
		}, v)
	})

	t.Run("prefix fixture", func(t *testing.T) {
		journal, err := gateway.Do[domain.Journal](context.Background(), client, "/journals/abc", gateway.Request{})
		require.NoError(t, err)
		assert.Equal(t, "Demo Journal Entry", journal.Title)
	})

	t.Run("risk fixture", func(t *testing.T) {
		risk, err := gateway.Do[domain.RiskAssessment](context.Background(), client, "/health/heart-predict", gateway.Request{Method: http.MethodPost})
		require.NoError(t, err)
		assert.Equal(t, "Low Risk", risk.Risk)
		assert.InDelta(t, 0.25, risk.Probability, 1e-9)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		res, err := client.Delete(context.Background(), "/nowhere")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.JSONEq(t, `{"message":"Demo mode - feature available with full backend","status":"success"}`, string(res.Bytes()))
	})

	assert.Zero(t, calls.Load())
}

func TestDemoModeCustomFixtures(t *testing.T) {
	t.Parallel()

	fixtures := gateway.NewFixtures(gateway.Static(map[string]string{"status": "fallback"})).
		Register(http.MethodGet, "/student/resources", gateway.Static(map[string][]string{"resources": {"a"}}))

	client := gateway.New(gateway.Config{
		BaseURL:  "http://127.0.0.1:1",
		Demo:     true,
		Fixtures: fixtures,
		Logger:   quietLogger(),
	})

	res, err := client.Get(context.Background(), "/student/resources")
	require.NoError(t, err)
	assert.JSONEq(t, `{"resources":["a"]}`, string(res.Bytes()))

	res, err = client.Put(context.Background(), "/journals/1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"fallback"}`, string(res.Bytes()))
}

func TestMultipartBody(t *testing.T) {
	t.Parallel()

	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "neo", r.FormValue("username"))

		file, header, err := r.FormFile("profileImage")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	_, err := client.Request(context.Background(), "/auth/register", gateway.Request{
		Method: http.MethodPost,
		Form: &gateway.Multipart{
			Fields: map[string]string{"username": "neo"},
			Files: []gateway.FilePart{{
				Field:       "profileImage",
				Filename:    "a.png",
				ContentType: "image/png",
				Data:        strings.NewReader("png"),
			}},
		},
	})
	require.NoError(t, err)
}
