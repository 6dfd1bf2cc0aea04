package googleauth

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Google OAuth2 endpoint constants.
const (
	GoogleAuthURL       = "https://accounts.google.com/o/oauth2/auth"
	GoogleTokenURL      = "https://oauth2.googleapis.com/token"
	GoogleRevocationURL = "https://oauth2.googleapis.com/revoke"
)

const (
	// DefaultCallbackHost is the host the local callback server binds to.
	DefaultCallbackHost = "localhost"

	// DefaultCallbackPath is the path the provider redirects back to.
	DefaultCallbackPath = "/callback"

	// DefaultSignInTimeout is how long SignIn waits for the browser redirect.
	DefaultSignInTimeout = 5 * time.Minute
)

// Endpoints holds the provider endpoint URLs used by the token and
// authorization clients. The zero value is not usable; use GoogleEndpoints
// or fill in all fields (e.g. from discovered ProviderMetadata).
type Endpoints struct {
	AuthURL   string
	TokenURL  string
	RevokeURL string
}

// GoogleEndpoints returns the standard Google OAuth2 endpoints.
func GoogleEndpoints() Endpoints {
	return Endpoints{
		AuthURL:   GoogleAuthURL,
		TokenURL:  GoogleTokenURL,
		RevokeURL: GoogleRevocationURL,
	}
}

// SignInConfig is the caller-supplied configuration for one sign-in attempt.
// It is treated as immutable for the lifetime of the attempt.
type SignInConfig struct {
	// ClientID is the OAuth2 client ID. Required.
	ClientID string

	// ClientSecret is the OAuth2 client secret. Required for the desktop
	// flow: Google's token endpoint authenticates desktop clients as
	// confidential clients.
	ClientSecret string

	// Scopes are the requested OAuth scopes. At least one is required.
	// "openid" is added automatically when absent so that an ID token is
	// always issued.
	Scopes []string

	// HostedDomain restricts sign-in to a Google Workspace domain (the
	// "hd" parameter). Optional.
	HostedDomain string

	// LoginHint pre-fills the account chooser (the "login_hint"
	// parameter). Optional.
	LoginHint string

	// RedirectURI optionally pins the callback host, port and path, e.g.
	// "http://localhost:8085/callback". The host must be localhost or
	// 127.0.0.1. When empty, the listener binds an OS-assigned port on
	// localhost with DefaultCallbackPath.
	RedirectURI string

	// SuccessHTML replaces the default page shown in the browser after a
	// successful redirect. Optional.
	SuccessHTML string

	// Timeout bounds the wait for the browser redirect. Zero means
	// DefaultSignInTimeout.
	Timeout time.Duration
}

// signInSettings is a validated, normalized SignInConfig.
type signInSettings struct {
	clientID     string
	clientSecret string
	scopes       []string
	hostedDomain string
	loginHint    string
	callbackHost string
	callbackPort int // 0 means OS-assigned
	callbackPath string
	successHTML  string
	timeout      time.Duration
}

// validate checks required fields and normalizes the config into settings
// usable by the flow. All failures are ConfigurationErrors; no network
// activity happens here.
func (c SignInConfig) validate() (*signInSettings, error) {
	if c.ClientID == "" {
		return nil, &ConfigurationError{Message: "client ID is required"}
	}
	if c.ClientSecret == "" {
		return nil, &ConfigurationError{Message: "client secret is required for desktop authentication"}
	}
	if len(c.Scopes) == 0 {
		return nil, &ConfigurationError{Message: "at least one scope is required for authentication"}
	}

	s := &signInSettings{
		clientID:     c.ClientID,
		clientSecret: c.ClientSecret,
		scopes:       normalizeScopes(c.Scopes),
		hostedDomain: c.HostedDomain,
		loginHint:    c.LoginHint,
		callbackHost: DefaultCallbackHost,
		callbackPath: DefaultCallbackPath,
		successHTML:  c.SuccessHTML,
		timeout:      c.Timeout,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultSignInTimeout
	}

	if c.RedirectURI != "" {
		parsed, err := url.Parse(c.RedirectURI)
		if err != nil {
			return nil, &ConfigurationError{Message: "invalid redirect URI: " + err.Error()}
		}
		host := parsed.Hostname()
		if host == "" {
			return nil, &ConfigurationError{Message: "redirect URI must have a host"}
		}
		if host != "localhost" && host != "127.0.0.1" {
			return nil, &ConfigurationError{Message: "redirect URI must use localhost or 127.0.0.1 for desktop authentication"}
		}
		s.callbackHost = host
		if portStr := parsed.Port(); portStr != "" {
			port, err := parsePort(portStr)
			if err != nil {
				return nil, &ConfigurationError{Message: "invalid redirect URI port: " + portStr}
			}
			s.callbackPort = port
		}
		if parsed.Path != "" && parsed.Path != "/" {
			s.callbackPath = parsed.Path
		}
	}

	return s, nil
}

func parsePort(s string) (int, error) {
	port := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, &ConfigurationError{Message: "port must be numeric"}
		}
		port = port*10 + int(r-'0')
		if port > 65535 {
			return 0, &ConfigurationError{Message: "port out of range"}
		}
	}
	return port, nil
}

// normalizeScopes deduplicates scopes preserving order and ensures "openid"
// is present so the provider issues an ID token.
func normalizeScopes(scopes []string) []string {
	seen := make(map[string]bool, len(scopes)+1)
	normalized := make([]string, 0, len(scopes)+1)

	if !containsScope(scopes, "openid") {
		normalized = append(normalized, "openid")
		seen["openid"] = true
	}

	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" || seen[scope] {
			continue
		}
		seen[scope] = true
		normalized = append(normalized, scope)
	}

	return normalized
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if strings.TrimSpace(s) == want {
			return true
		}
	}
	return false
}

// TokenResult is the outcome of a successful sign-in or refresh.
type TokenResult struct {
	// AccessToken is the OAuth2 access token. Always present.
	AccessToken string

	// IDToken is the OpenID Connect ID token. Present when the "openid"
	// scope was granted.
	IDToken string

	// RefreshToken is present when offline access was granted. Refresh
	// responses may omit it; callers must then keep their previous one.
	RefreshToken string

	// Scopes are the scopes the provider actually granted, which may
	// differ from the requested set.
	Scopes []string

	// ExpiresAt is the absolute access-token expiry, computed as the
	// moment the provider response was received plus its expires_in
	// offset. Zero when the provider did not report an expiry. When an
	// integer representation is needed, use Unix seconds.
	ExpiresAt time.Time
}

// OAuth2Token converts the result into a *oauth2.Token for callers that
// integrate with golang.org/x/oauth2. The ID token is carried in the
// "id_token" extra field, matching the wire format.
func (r *TokenResult) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       r.ExpiresAt,
	}
	if r.IDToken != "" {
		token = token.WithExtra(map[string]interface{}{
			"id_token": r.IDToken,
		})
	}
	return token
}

// tokenPayload is the raw JSON body returned by the token endpoint.
type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	Scope        string `json:"scope"`
}

// result converts the payload into a TokenResult, stamping the expiry
// relative to now.
func (p *tokenPayload) result(now time.Time) *TokenResult {
	result := &TokenResult{
		AccessToken:  p.AccessToken,
		IDToken:      p.IDToken,
		RefreshToken: p.RefreshToken,
	}
	if p.Scope != "" {
		result.Scopes = strings.Fields(p.Scope)
	}
	if p.ExpiresIn > 0 {
		result.ExpiresAt = now.Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return result
}
