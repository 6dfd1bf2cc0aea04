package googleauth

import (
	"errors"
	"fmt"
)

// Sentinel errors for terminal flow outcomes. Callers distinguish them with
// errors.Is so that a timeout can prompt a retry while a cancellation is
// treated as intentional abandonment.
var (
	// ErrTimeout is returned when no redirect arrives within the
	// configured timeout window.
	ErrTimeout = errors.New("timed out waiting for the browser redirect")

	// ErrCancelled is returned when the sign-in attempt is cancelled via
	// the caller's context.
	ErrCancelled = errors.New("sign-in was cancelled")

	// ErrStateMismatch is returned when the state value in the redirect
	// does not match the one generated for the session. This indicates a
	// possible CSRF attack and is never retried.
	ErrStateMismatch = errors.New("state mismatch - possible CSRF attack")

	// ErrSignInInProgress is returned when SignIn is called while another
	// sign-in attempt is still pending on the same Authenticator.
	ErrSignInInProgress = errors.New("another sign-in attempt is already in progress")
)

// ConfigurationError indicates an invalid or incomplete SignInConfig.
// It is surfaced before any network call is attempted.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

// BindError indicates that the callback listener could not bind the
// requested address. This typically means an explicitly requested port is
// already in use.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind callback listener on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// AccessDeniedError is derived from an "error" parameter in the redirect:
// the provider refused authorization, usually because the user denied
// consent. It is never retried by this package.
type AccessDeniedError struct {
	Code        string
	Description string
}

func (e *AccessDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// UserCancelled reports whether the provider error code indicates the user
// abandoned the flow rather than denying consent.
func (e *AccessDeniedError) UserCancelled() bool {
	switch e.Code {
	case "user_cancelled", "user_canceled", "cancelled":
		return true
	}
	return false
}

// ExchangeError wraps a failed call to the token endpoint. The provider's
// HTTP status and error body are carried verbatim for diagnostics. The same
// type covers both code exchange and refresh; Operation tells them apart.
type ExchangeError struct {
	// Operation is "exchange" or "refresh".
	Operation string

	// StatusCode is the provider's HTTP status. Zero for transport errors.
	StatusCode int

	// ProviderError is the parsed "error" field of the response body, e.g.
	// "invalid_grant". Empty when the body was not a standard error JSON.
	ProviderError string

	// Body is the raw response body.
	Body string

	// Err is the underlying transport error, if any.
	Err error
}

func (e *ExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("token %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// InvalidGrant reports whether the provider rejected the grant itself
// (revoked or expired refresh token, consumed authorization code). A caller
// seeing this on refresh must run a full sign-in instead of retrying.
func (e *ExchangeError) InvalidGrant() bool {
	return e.ProviderError == "invalid_grant"
}

// RevokeError wraps a failed call to the revocation endpoint. Revocation is
// best-effort: sign-out always succeeds locally and this error is only ever
// logged, never returned to sign-out callers.
type RevokeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RevokeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token revocation failed: %v", e.Err)
	}
	return fmt.Sprintf("token revocation failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *RevokeError) Unwrap() error {
	return e.Err
}
