// Package session owns the authentication state of the running client.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
	"wellness-hub/internal/repository"
)

const DefaultDemoDelay = time.Second

// Requester issues backend calls. *gateway.Client satisfies it.
type Requester interface {
	Request(ctx context.Context, endpoint string, req gateway.Request) (*gateway.Result, error)
}

type Config struct {
	Demo bool
	// DemoDelay is how long demo login and register pretend to wait.
	// Zero means DefaultDemoDelay, negative means no delay.
	DemoDelay time.Duration
	Logger    *logrus.Logger
}

type observer struct {
	id int
	fn func(State)
}

// Manager drives the session state machine. It is safe for concurrent use.
// Observers are called outside the state lock, one transition at a time and
// in transition order; they must not call Logout or Invalidate synchronously.
type Manager struct {
	api    Requester
	tokens repository.TokenRepository
	cfg    Config
	log    *logrus.Entry

	busy atomic.Bool

	mu        sync.Mutex
	state     State
	epoch     uint64
	observers []observer
	nextID    int

	// notifyMu is always taken before mu.
	notifyMu sync.Mutex
}

// NewManager creates a manager in the bootstrapping state. tokens may be nil
// in demo mode.
func NewManager(api Requester, tokens repository.TokenRepository, cfg Config) *Manager {
	if cfg.DemoDelay == 0 {
		cfg.DemoDelay = DefaultDemoDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Manager{
		api:    api,
		tokens: tokens,
		cfg:    cfg,
		log:    cfg.Logger.WithField("component", "session"),
		state:  InitialState(),
	}
}

// State returns a snapshot of the current session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Subscribe registers fn to receive every new state. The returned func
// removes it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers = append(m.observers, observer{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, o := range m.observers {
				if o.id == id {
					m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Bootstrap resolves the initial state from the persisted token.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if !m.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	defer m.busy.Store(false)

	if m.cfg.Demo {
		user := domain.DemoUser()
		m.dispatch(Action{Type: ActionUserLoaded, Token: domain.DemoToken, User: &user})
		return nil
	}

	epoch := m.currentEpoch()

	token, err := m.tokens.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		m.dispatchIf(epoch, Action{Type: ActionAuthError})
		return nil
	}
	if err != nil {
		m.purge(ctx, epoch, Action{Type: ActionAuthError, Error: err.Error()})
		return fmt.Errorf("load token: %w", err)
	}

	res, err := m.api.Request(ctx, "/auth/me", gateway.Request{
		SkipAuth: true,
		Header:   http.Header{gateway.AuthHeader: []string{token}},
	})
	var user domain.User
	if err == nil {
		err = res.Decode(&user)
		_ = res.Close()
	}
	if err != nil {
		m.log.WithError(err).Warn("load user failed, clearing session")
		m.purge(ctx, epoch, Action{Type: ActionAuthError, Error: errorMessage(err, "")})
		return fmt.Errorf("load user: %w", err)
	}

	if !m.dispatchIf(epoch, Action{Type: ActionUserLoaded, Token: token, User: &user}) {
		return ErrSuperseded
	}
	return nil
}

// Login authenticates with credentials. On failure the session ends up
// unauthenticated with the error recorded, and the error is returned.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) error {
	if !m.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	defer m.busy.Store(false)

	if m.cfg.Demo {
		return m.demoSuccess(ctx, ActionLoginSuccess)
	}

	epoch := m.currentEpoch()
	resp, err := m.authenticate(ctx, "/auth/login", gateway.Request{
		Method:   http.MethodPost,
		Body:     creds,
		SkipAuth: true,
	})
	if err == nil {
		err = m.commit(ctx, epoch, resp, ActionLoginSuccess)
	}
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			return err
		}
		m.log.WithError(err).WithField("email", creds.Email).Info("login failed")
		m.purge(ctx, epoch, Action{Type: ActionLoginFail, Error: errorMessage(err, "Login failed")})
		return fmt.Errorf("login: %w", err)
	}

	m.log.WithField("email", resp.Email).Info("logged in")
	return nil
}

// Register creates an account. image is optional; when present the request
// is sent as multipart/form-data. A failure records the error but leaves the
// authentication status and the persisted token alone.
func (m *Manager) Register(ctx context.Context, reg domain.Registration, image *domain.ProfileImage) error {
	if !m.busy.CompareAndSwap(false, true) {
		return ErrOperationInProgress
	}
	defer m.busy.Store(false)

	if m.cfg.Demo {
		return m.demoSuccess(ctx, ActionRegisterSuccess)
	}

	req := gateway.Request{
		Method:   http.MethodPost,
		Body:     reg,
		SkipAuth: true,
	}
	if image != nil && image.Data != nil {
		req.Body = nil
		req.Form = &gateway.Multipart{
			Fields: map[string]string{
				"username": reg.Username,
				"email":    reg.Email,
				"password": reg.Password,
			},
			Files: []gateway.FilePart{{
				Field:       "profileImage",
				Filename:    image.Filename,
				ContentType: image.ContentType,
				Data:        image.Data,
			}},
		}
	}

	epoch := m.currentEpoch()
	resp, err := m.authenticate(ctx, "/auth/register", req)
	if err == nil {
		err = m.commit(ctx, epoch, resp, ActionRegisterSuccess)
	}
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			return err
		}
		m.log.WithError(err).WithField("email", reg.Email).Info("register failed")
		m.dispatchIf(epoch, Action{Type: ActionRegisterFail, Error: errorMessage(err, "Registration failed")})
		return fmt.Errorf("register: %w", err)
	}

	m.log.WithField("email", resp.Email).Info("registered")
	return nil
}

// Logout clears the persisted token and the session. The state transition
// always happens; the returned error only reports a storage failure.
func (m *Manager) Logout(ctx context.Context) error {
	return m.end(ctx, Action{Type: ActionLogout})
}

// Invalidate ends the session after an authorization failure detected
// outside the manager.
func (m *Manager) Invalidate(ctx context.Context, reason string) error {
	m.log.WithField("reason", reason).Info("session invalidated")
	return m.end(ctx, Action{Type: ActionAuthError, Error: reason})
}

// HandleUnauthorized adapts Invalidate to gateway.Client.OnUnauthorized.
func (m *Manager) HandleUnauthorized(ctx context.Context, err *gateway.Error) {
	if err := m.Invalidate(ctx, err.Message); err != nil {
		m.log.WithError(err).Warn("invalidate session")
	}
}

func (m *Manager) end(ctx context.Context, a Action) error {
	m.mu.Lock()
	m.epoch++
	m.mu.Unlock()

	var err error
	if !m.cfg.Demo {
		if err = m.tokens.Clear(ctx); err != nil {
			err = fmt.Errorf("clear token: %w", err)
		}
	}
	m.dispatch(a)
	return err
}

func (m *Manager) authenticate(ctx context.Context, endpoint string, req gateway.Request) (domain.AuthResponse, error) {
	var resp domain.AuthResponse

	res, err := m.api.Request(ctx, endpoint, req)
	if err != nil {
		return resp, err
	}
	defer res.Close()

	if err := res.Decode(&resp); err != nil {
		return resp, err
	}
	if resp.Token == "" {
		return resp, ErrEmptyToken
	}
	return resp, nil
}

// commit persists the token and applies the success transition unless a
// logout happened in the meantime.
func (m *Manager) commit(ctx context.Context, epoch uint64, resp domain.AuthResponse, t ActionType) error {
	if m.currentEpoch() != epoch {
		return ErrSuperseded
	}
	if err := m.tokens.Save(ctx, resp.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	user := resp.User()
	if !m.dispatchIf(epoch, Action{Type: t, Token: resp.Token, User: &user}) {
		if err := m.tokens.Clear(ctx); err != nil {
			m.log.WithError(err).Warn("clear superseded token")
		}
		return ErrSuperseded
	}
	return nil
}

func (m *Manager) demoSuccess(ctx context.Context, t ActionType) error {
	epoch := m.currentEpoch()

	if m.cfg.DemoDelay > 0 {
		timer := time.NewTimer(m.cfg.DemoDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	user := domain.DemoUser()
	if !m.dispatchIf(epoch, Action{Type: t, Token: domain.DemoLoginToken, User: &user}) {
		return ErrSuperseded
	}
	return nil
}

// purge clears the token and applies a failure transition, unless the
// operation was already superseded.
func (m *Manager) purge(ctx context.Context, epoch uint64, a Action) {
	if m.currentEpoch() != epoch {
		return
	}
	if err := m.tokens.Clear(ctx); err != nil {
		m.log.WithError(err).Warn("clear token")
	}
	m.dispatchIf(epoch, a)
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

func (m *Manager) dispatch(a Action) {
	m.notifyMu.Lock()
	m.mu.Lock()
	m.apply(a)
}

// dispatchIf applies a only if no logout happened since epoch was read.
func (m *Manager) dispatchIf(epoch uint64, a Action) bool {
	m.notifyMu.Lock()
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.notifyMu.Unlock()
		m.log.WithField("action", a.Type).Debug("discarding stale transition")
		return false
	}
	m.apply(a)
	return true
}

// apply must be called with notifyMu and mu held, in that order, and
// releases both. mu is dropped before observers run so they may read State.
func (m *Manager) apply(a Action) {
	defer m.notifyMu.Unlock()

	m.state = Reduce(m.state, a)
	snapshot := m.state
	observers := make([]observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"action": a.Type,
		"status": snapshot.Status,
	}).Debug("session transition")

	for _, o := range observers {
		o.fn(snapshot.Clone())
	}
}

func errorMessage(err error, fallback string) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
