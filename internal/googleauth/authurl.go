package googleauth

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthURLParams are the inputs for building an authorization URL.
type AuthURLParams struct {
	// ClientID is the OAuth2 client ID.
	ClientID string

	// RedirectURI must byte-for-byte match the redirect URI sent later in
	// the token exchange.
	RedirectURI string

	// Scopes are joined with spaces into the "scope" parameter. The
	// caller is expected to have deduplicated them (normalizeScopes).
	Scopes []string

	// State is the per-session anti-CSRF value.
	State string

	// PKCE supplies code_challenge and code_challenge_method.
	PKCE *PKCEChallenge

	// HostedDomain sets the optional "hd" parameter.
	HostedDomain string

	// LoginHint sets the optional "login_hint" parameter.
	LoginHint string
}

// BuildAuthorizationURL composes the provider authorization URL for the
// code-with-PKCE flow. It is a pure function with no I/O.
//
// access_type=offline and prompt=consent are always requested so that the
// provider issues a refresh token on every sign-in, not only the first one
// for a given user/client pair.
func BuildAuthorizationURL(authEndpoint string, p AuthURLParams) (string, error) {
	authURL, err := url.Parse(authEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint URL: %w", err)
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {p.ClientID},
		"redirect_uri":          {p.RedirectURI},
		"scope":                 {strings.Join(p.Scopes, " ")},
		"state":                 {p.State},
		"code_challenge":        {p.PKCE.CodeChallenge},
		"code_challenge_method": {p.PKCE.CodeChallengeMethod},
		"access_type":           {"offline"},
		"prompt":                {"consent"},
	}

	if p.HostedDomain != "" {
		params.Set("hd", p.HostedDomain)
	}
	if p.LoginHint != "" {
		params.Set("login_hint", p.LoginHint)
	}

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}
