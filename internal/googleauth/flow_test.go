package googleauth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

// redirectingBrowser returns a BrowserOpener that plays the provider role:
// it parses the authorization URL and immediately redirects the "browser"
// to the callback with the query produced by respond.
func redirectingBrowser(t *testing.T, respond func(q url.Values) url.Values) BrowserOpener {
	t.Helper()

	return func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		query := parsed.Query()
		redirectURI := query.Get("redirect_uri")

		go func() {
			params := respond(query)
			resp, err := http.Get(redirectURI + "?" + params.Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func signInTestConfig() SignInConfig {
	return SignInConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{"openid", "email"},
		Timeout:      10 * time.Second,
	}
}

func TestAuthenticator_SignIn_Success(t *testing.T) {
	var verifierSent atomic.Value

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		verifierSent.Store(r.PostForm.Get("code_verifier"))
		if got := r.PostForm.Get("code"); got != "ABC" {
			t.Errorf("code = %q, want ABC", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"AT1","id_token":"IDT1","refresh_token":"RT1","expires_in":3600,"scope":"openid email","token_type":"Bearer"}`))
	}))
	defer ts.Close()

	var challengeSent atomic.Value
	browser := redirectingBrowser(t, func(q url.Values) url.Values {
		challengeSent.Store(q.Get("code_challenge"))
		return url.Values{
			"code":  {"ABC"},
			"state": {q.Get("state")},
		}
	})

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints:   testEndpoints(ts.URL, ts.URL),
		OpenBrowser: browser,
	})

	before := time.Now()
	result, err := auth.SignIn(context.Background(), signInTestConfig())
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	if result.AccessToken != "AT1" || result.IDToken != "IDT1" || result.RefreshToken != "RT1" {
		t.Errorf("unexpected token result: %+v", result)
	}
	if len(result.Scopes) != 2 || result.Scopes[0] != "openid" || result.Scopes[1] != "email" {
		t.Errorf("Scopes = %v, want [openid email]", result.Scopes)
	}

	wantExpiry := before.Add(3600 * time.Second)
	if result.ExpiresAt.Before(wantExpiry.Add(-10*time.Second)) || result.ExpiresAt.After(wantExpiry.Add(10*time.Second)) {
		t.Errorf("ExpiresAt = %v, want about %v", result.ExpiresAt, wantExpiry)
	}

	// The verifier exchanged at the token endpoint must be the one whose
	// challenge went into the authorization URL.
	verifier, _ := verifierSent.Load().(string)
	challenge, _ := challengeSent.Load().(string)
	hash := sha256.Sum256([]byte(verifier))
	if derived := base64.RawURLEncoding.EncodeToString(hash[:]); derived != challenge {
		t.Errorf("challenge/verifier pair does not match: derived %q, sent %q", derived, challenge)
	}

	if auth.InProgress() {
		t.Error("no session should remain active after SignIn returns")
	}
}

func TestAuthenticator_SignIn_AccessDenied(t *testing.T) {
	var tokenEndpointHit atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenEndpointHit.Store(true)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	browser := redirectingBrowser(t, func(q url.Values) url.Values {
		return url.Values{
			"error": {"access_denied"},
			"state": {q.Get("state")},
		}
	})

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints:   testEndpoints(ts.URL, ts.URL),
		OpenBrowser: browser,
	})

	_, err := auth.SignIn(context.Background(), signInTestConfig())
	if err == nil {
		t.Fatal("expected access denied error")
	}

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected *AccessDeniedError, got %T: %v", err, err)
	}
	if denied.Code != "access_denied" {
		t.Errorf("Code = %q, want access_denied", denied.Code)
	}
	if tokenEndpointHit.Load() {
		t.Error("no POST to the token endpoint may happen on access_denied")
	}
}

func TestAuthenticator_SignIn_StateMismatch(t *testing.T) {
	var tokenEndpointHit atomic.Bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenEndpointHit.Store(true)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	// A valid-looking code with the wrong state must still be fatal.
	browser := redirectingBrowser(t, func(q url.Values) url.Values {
		return url.Values{
			"code":  {"ABC"},
			"state": {"forged-state"},
		}
	})

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints:   testEndpoints(ts.URL, ts.URL),
		OpenBrowser: browser,
	})

	_, err := auth.SignIn(context.Background(), signInTestConfig())
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got: %v", err)
	}
	if tokenEndpointHit.Load() {
		t.Error("the code must never be exchanged after a state mismatch")
	}
}

func TestAuthenticator_SignIn_Timeout(t *testing.T) {
	// A browser opener that never delivers a redirect.
	browser := func(authURL string) error { return nil }

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints:   GoogleEndpoints(),
		OpenBrowser: browser,
	})

	config := signInTestConfig()
	config.Timeout = 200 * time.Millisecond

	start := time.Now()
	_, err := auth.SignIn(context.Background(), config)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v, expected about 200ms", elapsed)
	}
}

func TestAuthenticator_SignIn_Cancellation(t *testing.T) {
	browser := func(authURL string) error { return nil }

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints:   GoogleEndpoints(),
		OpenBrowser: browser,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := auth.SignIn(ctx, signInTestConfig())
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got: %v", err)
	}
}

func TestAuthenticator_SignIn_FixedPortReleasedOnTimeout(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to pick a port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	browser := func(authURL string) error { return nil }
	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints:   GoogleEndpoints(),
		OpenBrowser: browser,
	})

	config := signInTestConfig()
	config.RedirectURI = fmt.Sprintf("http://localhost:%d/callback", port)
	config.Timeout = 200 * time.Millisecond

	if _, err := auth.SignIn(context.Background(), config); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}

	// The fixed port must be rebindable immediately after the terminal state.
	relisten, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("port %d not released after timeout: %v", port, err)
	}
	relisten.Close()
}

func TestAuthenticator_SignIn_RejectsConcurrentAttempt(t *testing.T) {
	started := make(chan struct{})

	browser := func(authURL string) error {
		close(started)
		return nil
	}

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints:   GoogleEndpoints(),
		OpenBrowser: browser,
	})

	ctx, cancel := context.WithCancel(context.Background())

	firstDone := make(chan error, 1)
	go func() {
		config := signInTestConfig()
		config.Timeout = 5 * time.Second
		_, err := auth.SignIn(ctx, config)
		firstDone <- err
	}()

	<-started

	// Second attempt while the first is pending is rejected, not queued.
	_, err := auth.SignIn(context.Background(), signInTestConfig())
	if !errors.Is(err, ErrSignInInProgress) {
		t.Fatalf("expected ErrSignInInProgress, got: %v", err)
	}

	cancel()
	if err := <-firstDone; !errors.Is(err, ErrCancelled) {
		t.Errorf("first attempt should end cancelled, got: %v", err)
	}
}

func TestAuthenticator_SignIn_ConfigurationErrors(t *testing.T) {
	auth := NewAuthenticator(AuthenticatorConfig{})

	cases := []struct {
		name   string
		config SignInConfig
	}{
		{"missing client id", SignInConfig{ClientSecret: "s", Scopes: []string{"openid"}}},
		{"missing client secret", SignInConfig{ClientID: "c", Scopes: []string{"openid"}}},
		{"no scopes", SignInConfig{ClientID: "c", ClientSecret: "s"}},
		{"non-local redirect", SignInConfig{ClientID: "c", ClientSecret: "s", Scopes: []string{"openid"}, RedirectURI: "http://evil.example.com/callback"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.SignIn(context.Background(), tc.config)
			var configErr *ConfigurationError
			if !errors.As(err, &configErr) {
				t.Errorf("expected *ConfigurationError, got %T: %v", err, err)
			}
		})
	}
}

func TestAuthenticator_Refresh_Validation(t *testing.T) {
	auth := NewAuthenticator(AuthenticatorConfig{})

	_, err := auth.Refresh(context.Background(), "", "client", "secret")
	var configErr *ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("expected *ConfigurationError for missing refresh token, got: %v", err)
	}

	_, err = auth.Refresh(context.Background(), "RT1", "client", "")
	if !errors.As(err, &configErr) {
		t.Errorf("expected *ConfigurationError for missing client secret, got: %v", err)
	}
}

func TestAuthenticator_SignOut(t *testing.T) {
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Token already invalid: still success for the caller.
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints: testEndpoints(ts.URL, ts.URL),
	})

	if err := auth.SignOut(context.Background(), "AT1"); err != nil {
		t.Fatalf("SignOut must succeed when the token is already invalid: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("revocation calls = %d, want 1", calls.Load())
	}

	// No token means local-only sign-out, no network call.
	if err := auth.SignOut(context.Background(), ""); err != nil {
		t.Fatalf("SignOut with empty token failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("revocation calls = %d, want still 1", calls.Load())
	}
}

func TestAuthenticator_SignOut_RevocationFailureIsNonFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	auth := NewAuthenticator(AuthenticatorConfig{
		Endpoints: testEndpoints(ts.URL, ts.URL),
	})

	if err := auth.SignOut(context.Background(), "AT1"); err != nil {
		t.Fatalf("SignOut must never fail on revocation errors: %v", err)
	}
}
