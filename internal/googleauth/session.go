package googleauth

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks a sign-in session through its state machine.
type SessionStatus int

const (
	// StatusPending means the session has been created but the listener
	// is not serving yet.
	StatusPending SessionStatus = iota

	// StatusAwaitingRedirect means the browser has been pointed at the
	// authorization URL and the listener is waiting for the redirect.
	StatusAwaitingRedirect

	// StatusExchanging means a valid redirect arrived and the code is
	// being exchanged for tokens.
	StatusExchanging

	// StatusCompleted is the successful terminal state.
	StatusCompleted

	// StatusFailed is the terminal state for protocol or network errors.
	StatusFailed

	// StatusCancelled is the terminal state for caller cancellation.
	StatusCancelled

	// StatusTimedOut is the terminal state when no redirect arrived in
	// time.
	StatusTimedOut
)

// String returns the string representation of the session status.
func (s SessionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAwaitingRedirect:
		return "awaiting_redirect"
	case StatusExchanging:
		return "exchanging"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal state.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// Session is the state of one sign-in attempt. Exactly one session is
// active per Authenticator at a time; it is discarded once it reaches a
// terminal status and never persisted or reused.
type Session struct {
	// ID is a random identifier used only for log correlation.
	ID string

	// PKCE is the verifier/challenge pair bound to this attempt.
	PKCE *PKCEChallenge

	// State is the anti-CSRF value that must be echoed in the redirect.
	State string

	// Port is the bound callback port, once the listener has started.
	Port int

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// Status is the current state-machine position. It is only mutated by
	// the Authenticator goroutine driving the flow.
	Status SessionStatus
}

// newSession creates a Pending session with fresh PKCE material and a fresh
// state token.
func newSession() (*Session, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}

	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        uuid.NewString(),
		PKCE:      pkce,
		State:     state,
		CreatedAt: time.Now(),
		Status:    StatusPending,
	}, nil
}
