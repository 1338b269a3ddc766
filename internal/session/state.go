package session

import "wellness-hub/internal/domain"

// Status is the authentication status of the session.
type Status string

const (
	StatusBootstrapping   Status = "bootstrapping"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// State is an immutable snapshot of the session.
type State struct {
	Status Status
	Token  string
	User   *domain.User
	// Loading is true only while the initial bootstrap runs.
	Loading bool
	Error   string
}

// Authenticated reports whether the session holds a user and a token.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// InitialState is the state before Bootstrap resolves.
func InitialState() State {
	return State{
		Status:  StatusBootstrapping,
		Loading: true,
	}
}

// ActionType names a state transition.
type ActionType string

const (
	ActionUserLoaded      ActionType = "USER_LOADED"
	ActionLoginSuccess    ActionType = "LOGIN_SUCCESS"
	ActionRegisterSuccess ActionType = "REGISTER_SUCCESS"
	ActionAuthError       ActionType = "AUTH_ERROR"
	ActionLoginFail       ActionType = "LOGIN_FAIL"
	ActionRegisterFail    ActionType = "REGISTER_FAIL"
	ActionLogout          ActionType = "LOGOUT"
)

// Action is a transition request applied by Reduce.
type Action struct {
	Type  ActionType
	Token string
	User  *domain.User
	Error string
}

// Reduce returns the state that follows s under a. It has no side effects;
// purging the durable token is the manager's job.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionUserLoaded:
		s.Status = StatusAuthenticated
		s.Loading = false
		s.User = cloneUser(a.User)
		if a.Token != "" {
			s.Token = a.Token
		}
		s.Error = ""
	case ActionLoginSuccess, ActionRegisterSuccess:
		s.Status = StatusAuthenticated
		s.Loading = false
		s.Token = a.Token
		s.User = cloneUser(a.User)
		s.Error = ""
	case ActionAuthError, ActionLoginFail, ActionLogout:
		s = State{
			Status: StatusUnauthenticated,
			Error:  a.Error,
		}
	case ActionRegisterFail:
		// Authentication status and token survive a failed registration,
		// but a failure can never leave the session bootstrapping.
		if s.Status == StatusBootstrapping {
			s.Status = StatusUnauthenticated
		}
		s.Loading = false
		s.Error = a.Error
	}
	return s
}

// Clone returns a copy whose User can be mutated without affecting s.
func (s State) Clone() State {
	s.User = cloneUser(s.User)
	return s
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
