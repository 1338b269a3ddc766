package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Kind classifies why a gateway call failed.
type Kind string

const (
	// KindNetwork is a transport failure before a response arrived.
	KindNetwork Kind = "network"
	// KindStatus is a response outside the 2xx range.
	KindStatus Kind = "status"
	// KindDecode is a success response whose body could not be parsed.
	KindDecode Kind = "decode"
	// KindTimeout is a call that exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindCanceled is a call whose context was canceled by the caller.
	KindCanceled Kind = "canceled"
	// KindInvalidRequest is a request the gateway could not encode.
	KindInvalidRequest Kind = "invalid_request"
)

// Error is the single error type returned by the gateway. Message is the
// best-effort human readable text a UI can show as is.
type Error struct {
	Kind     Kind
	Method   string
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the backend rejected the credentials.
func (e *Error) Unauthorized() bool {
	return e.Kind == KindStatus && e.Status == http.StatusUnauthorized
}

func newError(kind Kind, method, endpoint string, err error) *Error {
	msg := string(kind)
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Kind:     kind,
		Method:   method,
		Endpoint: endpoint,
		Message:  msg,
		Err:      err,
	}
}

func statusMessage(code int, status string) string {
	text := http.StatusText(code)
	if rest, ok := strings.CutPrefix(status, strconv.Itoa(code)+" "); ok && rest != "" {
		text = rest
	}
	return fmt.Sprintf("HTTP %d: %s", code, text)
}
