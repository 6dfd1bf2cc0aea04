package googleauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
)

// BrowserOpener hands an authorization URL to the system browser. The
// Authenticator never opens URLs itself; it only asks this collaborator.
type BrowserOpener func(url string) error

// AuthenticatorConfig configures an Authenticator.
type AuthenticatorConfig struct {
	// Endpoints are the provider endpoints. Zero value means Google.
	Endpoints Endpoints

	// HTTPClient is an optional custom HTTP client for token calls.
	HTTPClient *http.Client

	// OpenBrowser overrides how the authorization URL reaches the user's
	// browser. Defaults to OpenBrowser (xdg-open/open/start).
	OpenBrowser BrowserOpener
}

// Authenticator drives the desktop sign-in state machine:
//
//	Pending -> AwaitingRedirect -> Exchanging -> Completed
//	                            \-> Failed | Cancelled | TimedOut
//
// One Authenticator runs at most one sign-in attempt at a time; a second
// SignIn while one is pending fails with ErrSignInInProgress. Refresh and
// SignOut are stateless one-shot operations and may be called at any time.
type Authenticator struct {
	mu          sync.Mutex
	endpoints   Endpoints
	tokens      *TokenClient
	openBrowser BrowserOpener
	active      *Session
}

// NewAuthenticator creates an Authenticator from the given configuration.
func NewAuthenticator(cfg AuthenticatorConfig) *Authenticator {
	endpoints := cfg.Endpoints
	if endpoints == (Endpoints{}) {
		endpoints = GoogleEndpoints()
	}

	opener := cfg.OpenBrowser
	if opener == nil {
		opener = OpenBrowser
	}

	return &Authenticator{
		endpoints:   endpoints,
		tokens:      NewTokenClient(endpoints, cfg.HTTPClient),
		openBrowser: opener,
	}
}

// SignIn runs one complete sign-in attempt and blocks until a terminal
// state is reached. The callback listener is always torn down and its port
// released before SignIn returns, whatever the outcome.
//
// Cancelling ctx aborts the attempt at any point, including mid-wait, and
// returns ErrCancelled. A redirect that never arrives within the configured
// timeout returns ErrTimeout.
func (a *Authenticator) SignIn(ctx context.Context, config SignInConfig) (*TokenResult, error) {
	settings, err := config.validate()
	if err != nil {
		return nil, err
	}

	session, err := a.beginSession()
	if err != nil {
		return nil, err
	}
	defer a.endSession()

	result, err := a.runSignIn(ctx, session, settings)
	if err != nil {
		slog.Debug("Sign-in finished without tokens",
			"session_id", session.ID,
			"status", session.Status.String(),
			"error", err.Error(),
		)
		return nil, err
	}

	slog.Info("Sign-in completed",
		"session_id", session.ID,
		"granted_scopes", result.Scopes,
	)
	return result, nil
}

// beginSession creates and installs the active session, enforcing the
// single-attempt policy.
func (a *Authenticator) beginSession() (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		return nil, ErrSignInInProgress
	}

	session, err := newSession()
	if err != nil {
		return nil, err
	}

	a.active = session
	return session, nil
}

// endSession clears the active session slot.
func (a *Authenticator) endSession() {
	a.mu.Lock()
	a.active = nil
	a.mu.Unlock()
}

// runSignIn executes the state machine for one session. The session status
// always ends terminal when this returns.
func (a *Authenticator) runSignIn(ctx context.Context, session *Session, settings *signInSettings) (*TokenResult, error) {
	// Bound the whole attempt, listener included, by the configured
	// timeout. Cancelling listenCtx also stops the callback server.
	listenCtx, cancel := context.WithTimeout(ctx, settings.timeout)
	defer cancel()

	server := NewCallbackServer(settings.callbackHost, settings.callbackPort, settings.callbackPath, settings.successHTML)
	redirectURI, err := server.Start(listenCtx)
	if err != nil {
		session.Status = StatusFailed
		return nil, err
	}
	defer server.Stop()

	session.Port = server.Port()

	authURL, err := BuildAuthorizationURL(a.endpoints.AuthURL, AuthURLParams{
		ClientID:     settings.clientID,
		RedirectURI:  redirectURI,
		Scopes:       settings.scopes,
		State:        session.State,
		PKCE:         session.PKCE,
		HostedDomain: settings.hostedDomain,
		LoginHint:    settings.loginHint,
	})
	if err != nil {
		session.Status = StatusFailed
		return nil, err
	}

	slog.Debug("Opening authorization URL in browser",
		"session_id", session.ID,
		"port", session.Port,
	)
	if err := a.openBrowser(authURL); err != nil {
		session.Status = StatusFailed
		return nil, err
	}

	session.Status = StatusAwaitingRedirect

	callback, err := server.WaitForCallback(listenCtx)
	if err != nil {
		return nil, a.classifyWaitError(ctx, session, err)
	}

	// The state check comes before anything else, even when the redirect
	// also carries a plausible code. A mismatch is treated as an attack.
	if callback.State != session.State {
		slog.Warn("OAuth state mismatch detected - possible CSRF attack",
			"session_id", session.ID,
			"expected_state_len", len(session.State),
			"received_state_len", len(callback.State),
		)
		session.Status = StatusFailed
		return nil, ErrStateMismatch
	}

	if callback.IsError() {
		denied := &AccessDeniedError{
			Code:        callback.Error,
			Description: callback.ErrorDescription,
		}
		if denied.UserCancelled() {
			session.Status = StatusCancelled
		} else {
			session.Status = StatusFailed
		}
		return nil, denied
	}

	// Redirect processed; release the port before talking to the token
	// endpoint so the listener never spans two exchange attempts.
	server.Stop()

	session.Status = StatusExchanging
	result, err := a.tokens.Exchange(ctx, callback.Code, settings.clientID, settings.clientSecret, redirectURI, session.PKCE.CodeVerifier)
	if err != nil {
		session.Status = StatusFailed
		return nil, err
	}

	if err := a.checkHostedDomain(settings, result); err != nil {
		session.Status = StatusFailed
		return nil, err
	}

	session.Status = StatusCompleted
	return result, nil
}

// classifyWaitError maps a wait failure onto the terminal states: the
// attempt timeout becomes TimedOut, caller cancellation becomes Cancelled,
// anything else (listener failure) is Failed.
func (a *Authenticator) classifyWaitError(ctx context.Context, session *Session, err error) error {
	switch {
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		session.Status = StatusCancelled
		return ErrCancelled
	case errors.Is(err, context.DeadlineExceeded):
		session.Status = StatusTimedOut
		return ErrTimeout
	default:
		session.Status = StatusFailed
		return err
	}
}

// checkHostedDomain verifies the hd claim of the ID token when the caller
// restricted sign-in to a hosted domain. The claim is decoded without
// signature verification; the token came over TLS from the token endpoint.
func (a *Authenticator) checkHostedDomain(settings *signInSettings, result *TokenResult) error {
	if settings.hostedDomain == "" || result.IDToken == "" {
		return nil
	}

	claims, err := ParseIDTokenClaims(result.IDToken)
	if err != nil {
		return &AccessDeniedError{
			Code:        "invalid_id_token",
			Description: "could not decode ID token claims: " + err.Error(),
		}
	}

	if claims.HostedDomain != settings.hostedDomain {
		return &AccessDeniedError{
			Code:        "hosted_domain_mismatch",
			Description: "account does not belong to " + settings.hostedDomain,
		}
	}

	return nil
}

// Refresh exchanges a refresh token for a new access token. The response
// may omit a new refresh token; callers must keep their previous one then.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken, clientID, clientSecret string) (*TokenResult, error) {
	if refreshToken == "" {
		return nil, &ConfigurationError{Message: "refresh token is required"}
	}
	if clientID == "" {
		return nil, &ConfigurationError{Message: "client ID is required"}
	}
	if clientSecret == "" {
		return nil, &ConfigurationError{Message: "client secret is required for desktop authentication"}
	}

	return a.tokens.Refresh(ctx, refreshToken, clientID, clientSecret)
}

// SignOut revokes the given access token at the provider, best-effort.
// Sign-out always succeeds locally: revocation failures are logged and
// swallowed, and an empty token is a no-op.
func (a *Authenticator) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}

	if err := a.tokens.Revoke(ctx, accessToken); err != nil {
		slog.Warn("Token revocation failed; completing sign-out locally",
			"error", err.Error(),
		)
	}

	return nil
}

// InProgress reports whether a sign-in attempt is currently active.
func (a *Authenticator) InProgress() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active != nil
}
