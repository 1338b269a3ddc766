package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
	"wellness-hub/internal/repository"
	"wellness-hub/internal/repository/memory"
	"wellness-hub/internal/session"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type harness struct {
	server  *httptest.Server
	tokens  *memory.TokenRepository
	client  *gateway.Client
	manager *session.Manager
}

func newHarness(t *testing.T, handler http.HandlerFunc) *harness {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := memory.NewTokenRepository()
	client := gateway.New(gateway.Config{
		BaseURL: srv.URL + "/api",
		Tokens:  tokens,
		Logger:  quietLogger(),
	})
	mgr := session.NewManager(client, tokens, session.Config{Logger: quietLogger()})
	client.OnUnauthorized(mgr.HandleUnauthorized)

	return &harness{server: srv, tokens: tokens, client: client, manager: mgr}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func storedToken(t *testing.T, tokens repository.TokenRepository) string {
	t.Helper()
	token, err := tokens.Load(context.Background())
	if errors.Is(err, repository.ErrNotFound) {
		return ""
	}
	require.NoError(t, err)
	return token
}

func TestBootstrapWithoutToken(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Equal(t, session.StatusBootstrapping, h.manager.State().Status)
	assert.True(t, h.manager.State().Loading)

	require.NoError(t, h.manager.Bootstrap(context.Background()))

	state := h.manager.State()
	assert.Equal(t, session.StatusUnauthenticated, state.Status)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
	assert.False(t, state.Loading)
	assert.Zero(t, calls.Load(), "no request without a token")
}

func TestBootstrapWithToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		assert.Equal(t, "stored", r.Header.Get(gateway.AuthHeader))
		writeJSON(w, http.StatusOK, map[string]string{"username": "a", "email": "b"})
	})
	require.NoError(t, h.tokens.Save(context.Background(), "stored"))

	require.NoError(t, h.manager.Bootstrap(context.Background()))

	state := h.manager.State()
	assert.Equal(t, session.StatusAuthenticated, state.Status)
	require.NotNil(t, state.User)
	assert.Equal(t, "a", state.User.Username)
	assert.Equal(t, "b", state.User.Email)
	assert.Equal(t, "stored", state.Token)
	assert.False(t, state.Loading)
}

func TestBootstrapUnauthorizedPurgesToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token is not valid"})
	})
	require.NoError(t, h.tokens.Save(context.Background(), "expired"))

	err := h.manager.Bootstrap(context.Background())
	require.Error(t, err)

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusUnauthorized, gwErr.Status)

	state := h.manager.State()
	assert.Equal(t, session.StatusUnauthenticated, state.Status)
	assert.Nil(t, state.User)
	assert.Equal(t, "Token is not valid", state.Error)
	assert.Empty(t, storedToken(t, h.tokens))
}

func TestBootstrapMalformedUserPurgesToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"username":`))
	})
	require.NoError(t, h.tokens.Save(context.Background(), "stored"))

	err := h.manager.Bootstrap(context.Background())

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindDecode, gwErr.Kind)
	assert.Equal(t, session.StatusUnauthenticated, h.manager.State().Status)
	assert.Empty(t, storedToken(t, h.tokens))
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get(gateway.AuthHeader))

		var creds domain.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, domain.Credentials{Email: "x", Password: "y"}, creds)

		writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
	})

	err := h.manager.Login(context.Background(), domain.Credentials{Email: "x", Password: "y"})
	require.NoError(t, err)

	state := h.manager.State()
	assert.Equal(t, session.StatusAuthenticated, state.Status)
	assert.Equal(t, "T", state.Token)
	require.NotNil(t, state.User)
	assert.Equal(t, "u", state.User.Username)
	assert.Empty(t, state.Error)
	assert.Equal(t, "T", storedToken(t, h.tokens))
}

func TestLoginFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "bad creds"})
	})
	require.NoError(t, h.manager.Bootstrap(context.Background()))

	err := h.manager.Login(context.Background(), domain.Credentials{Email: "x", Password: "y"})
	require.Error(t, err)

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadRequest, gwErr.Status)
	assert.Equal(t, gateway.KindStatus, gwErr.Kind)

	state := h.manager.State()
	assert.Equal(t, session.StatusUnauthenticated, state.Status)
	assert.Equal(t, "bad creds", state.Error)
	assert.Empty(t, storedToken(t, h.tokens))
}

func TestLoginWithoutTokenInResponse(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"username": "u"})
	})

	err := h.manager.Login(context.Background(), domain.Credentials{Email: "x", Password: "y"})
	require.ErrorIs(t, err, session.ErrEmptyToken)
	assert.Equal(t, session.StatusUnauthenticated, h.manager.State().Status)
}

func TestLogoutAlwaysClears(t *testing.T) {
	t.Parallel()

	t.Run("from authenticated", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
		})
		require.NoError(t, h.manager.Login(context.Background(), domain.Credentials{Email: "x"}))
		require.Equal(t, session.StatusAuthenticated, h.manager.State().Status)

		require.NoError(t, h.manager.Logout(context.Background()))

		state := h.manager.State()
		assert.Equal(t, session.StatusUnauthenticated, state.Status)
		assert.Nil(t, state.User)
		assert.Empty(t, state.Token)
		assert.Empty(t, state.Error)
		assert.Empty(t, storedToken(t, h.tokens))
	})

	t.Run("from bootstrapping", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {})
		require.NoError(t, h.tokens.Save(context.Background(), "stale"))

		require.NoError(t, h.manager.Logout(context.Background()))

		assert.Equal(t, session.StatusUnauthenticated, h.manager.State().Status)
		assert.False(t, h.manager.State().Loading)
		assert.Empty(t, storedToken(t, h.tokens))
	})

	t.Run("twice", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {})
		require.NoError(t, h.manager.Logout(context.Background()))
		require.NoError(t, h.manager.Logout(context.Background()))
		assert.Equal(t, session.StatusUnauthenticated, h.manager.State().Status)
	})
}

func TestRegisterFailureKeepsStatusAndToken(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/me":
			writeJSON(w, http.StatusOK, map[string]string{"username": "a", "email": "b"})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"msg": "User already exists"})
		}
	})
	require.NoError(t, h.tokens.Save(context.Background(), "kept"))
	require.NoError(t, h.manager.Bootstrap(context.Background()))

	err := h.manager.Register(context.Background(), domain.Registration{
		Username: "a",
		Email:    "b",
		Password: "secret",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User already exists")

	state := h.manager.State()
	assert.Equal(t, session.StatusAuthenticated, state.Status)
	assert.Equal(t, "kept", state.Token)
	assert.Equal(t, "User already exists", state.Error)
	assert.Equal(t, "kept", storedToken(t, h.tokens))
}

func TestRegisterJSON(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reg domain.Registration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, "neo", reg.Username)

		writeJSON(w, http.StatusOK, domain.AuthResponse{Token: "R", Username: reg.Username, Email: reg.Email})
	})

	err := h.manager.Register(context.Background(), domain.Registration{
		Username: "neo",
		Email:    "neo@example.com",
		Password: "secret",
	}, nil)
	require.NoError(t, err)

	state := h.manager.State()
	assert.Equal(t, session.StatusAuthenticated, state.Status)
	assert.Equal(t, "R", state.Token)
	assert.Equal(t, "R", storedToken(t, h.tokens))
}

func TestRegisterMultipart(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "neo", r.FormValue("username"))
		assert.Equal(t, "neo@example.com", r.FormValue("email"))
		assert.Equal(t, "secret", r.FormValue("password"))

		file, header, err := r.FormFile("profileImage")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "avatar.png", header.Filename)
		assert.Equal(t, "png-bytes", string(data))

		writeJSON(w, http.StatusOK, domain.AuthResponse{
			Token:        "R",
			Username:     "neo",
			Email:        "neo@example.com",
			ProfileImage: "https://cdn.example.com/avatar.png",
		})
	})

	err := h.manager.Register(context.Background(), domain.Registration{
		Username: "neo",
		Email:    "neo@example.com",
		Password: "secret",
	}, &domain.ProfileImage{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Data:        strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)

	state := h.manager.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "https://cdn.example.com/avatar.png", state.User.ProfileImage)
}

func TestConcurrentLoginIsRejected(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
	})

	done := make(chan error, 1)
	go func() {
		done <- h.manager.Login(context.Background(), domain.Credentials{Email: "x"})
	}()

	<-entered
	err := h.manager.Login(context.Background(), domain.Credentials{Email: "x"})
	require.ErrorIs(t, err, session.ErrOperationInProgress)
	require.ErrorIs(t, h.manager.Bootstrap(context.Background()), session.ErrOperationInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, session.StatusAuthenticated, h.manager.State().Status)
}

func TestLogoutSupersedesInFlightLogin(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
	})

	done := make(chan error, 1)
	go func() {
		done <- h.manager.Login(context.Background(), domain.Credentials{Email: "x"})
	}()

	<-entered
	require.NoError(t, h.manager.Logout(context.Background()))
	close(release)

	require.ErrorIs(t, <-done, session.ErrSuperseded)
	assert.Equal(t, session.StatusUnauthenticated, h.manager.State().Status)
	assert.Empty(t, storedToken(t, h.tokens))
}

func TestUnauthorizedCallInvalidatesSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
		case "/api/journals":
			assert.Equal(t, "T", r.Header.Get(gateway.AuthHeader))
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Token is not valid"})
		}
	})
	require.NoError(t, h.manager.Login(context.Background(), domain.Credentials{Email: "x"}))

	_, err := h.client.Get(context.Background(), "/journals")
	require.Error(t, err)

	state := h.manager.State()
	assert.Equal(t, session.StatusUnauthenticated, state.Status)
	assert.Equal(t, "Token is not valid", state.Error)
	assert.Empty(t, storedToken(t, h.tokens))
}

func TestDemoMode(t *testing.T) {
	t.Parallel()

	newDemo := func(delay time.Duration) (*session.Manager, *memory.TokenRepository) {
		tokens := memory.NewTokenRepository()
		client := gateway.New(gateway.Config{
			BaseURL: "http://127.0.0.1:1/api",
			Demo:    true,
			Logger:  quietLogger(),
		})
		return session.NewManager(client, tokens, session.Config{
			Demo:      true,
			DemoDelay: delay,
			Logger:    quietLogger(),
		}), tokens
	}

	t.Run("bootstrap", func(t *testing.T) {
		t.Parallel()

		mgr, tokens := newDemo(-1)
		require.NoError(t, mgr.Bootstrap(context.Background()))

		state := mgr.State()
		assert.Equal(t, session.StatusAuthenticated, state.Status)
		assert.Equal(t, domain.DemoToken, state.Token)
		require.NotNil(t, state.User)
		assert.Equal(t, domain.DemoUser(), *state.User)
		assert.Empty(t, storedToken(t, tokens))
	})

	t.Run("login", func(t *testing.T) {
		t.Parallel()

		mgr, tokens := newDemo(-1)
		require.NoError(t, mgr.Login(context.Background(), domain.Credentials{Email: "any"}))

		state := mgr.State()
		assert.Equal(t, session.StatusAuthenticated, state.Status)
		assert.Equal(t, domain.DemoLoginToken, state.Token)
		assert.Empty(t, storedToken(t, tokens))
	})

	t.Run("register waits for the delay", func(t *testing.T) {
		t.Parallel()

		mgr, _ := newDemo(20 * time.Millisecond)
		started := time.Now()
		require.NoError(t, mgr.Register(context.Background(), domain.Registration{Username: "n"}, nil))
		assert.GreaterOrEqual(t, time.Since(started), 20*time.Millisecond)
		assert.Equal(t, session.StatusAuthenticated, mgr.State().Status)
	})

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()

		mgr, _ := newDemo(time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, mgr.Login(ctx, domain.Credentials{}), context.Canceled)
		assert.Equal(t, session.StatusBootstrapping, mgr.State().Status)
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
	})

	var (
		mu   sync.Mutex
		seen []session.Status
	)
	unsubscribe := h.manager.Subscribe(func(s session.State) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})

	require.NoError(t, h.manager.Bootstrap(context.Background()))
	require.NoError(t, h.manager.Login(context.Background(), domain.Credentials{Email: "x"}))
	require.NoError(t, h.manager.Logout(context.Background()))

	unsubscribe()
	unsubscribe()
	require.NoError(t, h.manager.Logout(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []session.Status{
		session.StatusUnauthenticated,
		session.StatusAuthenticated,
		session.StatusUnauthenticated,
	}, seen)
}

func TestStateSnapshotIsIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
	})
	require.NoError(t, h.manager.Login(context.Background(), domain.Credentials{Email: "x"}))

	snapshot := h.manager.State()
	snapshot.User.Username = "changed"

	assert.Equal(t, "u", h.manager.State().User.Username)
}

func TestObserverCanReadStateDuringConcurrentTransition(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token": "T", "username": "u", "email": "x"})
	})

	var (
		once       sync.Once
		logoutDone = make(chan error, 1)
		observed   session.State
	)
	h.manager.Subscribe(func(s session.State) {
		if s.Status != session.StatusAuthenticated {
			return
		}
		once.Do(func() {
			go func() { logoutDone <- h.manager.Logout(context.Background()) }()
			// give the logout time to queue behind this notification
			time.Sleep(50 * time.Millisecond)
			observed = h.manager.State()
		})
	})

	done := make(chan error, 1)
	go func() { done <- h.manager.Login(context.Background(), domain.Credentials{Email: "x"}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("login did not return while an observer read state")
	}
	select {
	case err := <-logoutDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("logout did not return")
	}

	assert.Equal(t, session.StatusAuthenticated, observed.Status)
	assert.Equal(t, session.StatusUnauthenticated, h.manager.State().Status)
	assert.Empty(t, storedToken(t, h.tokens))
}
