package session

import (
	"fmt"
	"time"
)

// SessionError is a typed error for session lifecycle misuse.
type SessionError string

func (e SessionError) Error() string { return string(e) }

const (
	ErrAlreadyConnected SessionError = "session already connected"
	ErrNotConnected     SessionError = "session not connected"
)

// AuthorizationError reports a handshake that was not acknowledged, either
// within the timeout or at all before the connection ended. It is fatal to
// the session.
type AuthorizationError struct {
	Timeout time.Duration
	Reason  string
}

func (e *AuthorizationError) Error() string {
	if e.Reason != "" {
		return "authorization failed: " + e.Reason
	}
	return fmt.Sprintf("authorization not acknowledged within %s", e.Timeout)
}
