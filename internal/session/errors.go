package session

import "errors"

// ErrMissingFields is wrapped by AuthError when a login field is empty.
var ErrMissingFields = errors.New("please fill in all fields")

// AuthError reports a failed login. Message is the server's explanation
// when one was given.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return "login failed: " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
