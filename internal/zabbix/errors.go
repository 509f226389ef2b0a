package zabbix

import (
	"errors"
	"fmt"
	"strconv"
)

// SessionExpiredCode is the error code Zabbix returns when the auth token
// is no longer valid. Only this code invalidates the local session.
const SessionExpiredCode = -32602

var (
	// ErrNotAuthenticated is returned when an auth-requiring call is made
	// without a session. No request is sent in that case.
	ErrNotAuthenticated = errors.New("zabbix: not authenticated")

	// ErrSessionExpired is returned when the server rejected the session
	// token. The session has been cleared by the time the caller sees it.
	ErrSessionExpired = errors.New("zabbix: session expired, please log in again")
)

// TransportError reports an HTTP-level failure: the request could not be
// sent, the server answered with a non-2xx status, or the body was not a
// JSON-RPC response. StatusCode is 0 when no response was received.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	msg := "zabbix transport"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": HTTP %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is an error reported by the server in the response envelope.
type APIError struct {
	Code    int
	Message string
	Data    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zabbix api error %d: %s", e.Code, e.Text())
}

// Text returns the most specific message the server gave: Data, then
// Message, then a generic phrase carrying the code.
func (e *APIError) Text() string {
	switch {
	case e.Data != "":
		return e.Data
	case e.Message != "":
		return e.Message
	default:
		return "API error: " + strconv.Itoa(e.Code)
	}
}

// SessionExpired reports whether the error code denotes an invalid token.
func (e *APIError) SessionExpired() bool {
	return e.Code == SessionExpiredCode
}

// IsNotAuthenticated reports whether err stems from a call made without a session.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// IsSessionExpired reports whether err stems from a rejected session token.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// sessionExpired wraps the server's error so callers can match both
// ErrSessionExpired and *APIError.
func sessionExpired(apiErr *APIError) error {
	return fmt.Errorf("%w: %w", ErrSessionExpired, apiErr)
}
