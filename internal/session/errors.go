package session

import "errors"

var (
	// ErrOperationInProgress is returned when Bootstrap, Login or Register is
	// called while another one of them is still running.
	ErrOperationInProgress = errors.New("auth operation already in progress")
	// ErrSuperseded is returned when a Logout or Invalidate landed while the
	// operation was in flight and its result was discarded.
	ErrSuperseded = errors.New("auth operation superseded by logout")
	// ErrEmptyToken is returned when the backend accepted the credentials but
	// sent no token back.
	ErrEmptyToken = errors.New("empty token in auth response")
)
