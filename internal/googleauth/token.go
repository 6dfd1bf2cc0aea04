package googleauth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHTTPTimeout is the default timeout for token endpoint requests.
const DefaultHTTPTimeout = 30 * time.Second

// TokenClient talks to the provider's token and revocation endpoints.
// It holds no mutable state between calls; each call is independent and
// safe to issue concurrently.
type TokenClient struct {
	endpoints  Endpoints
	httpClient *http.Client
	now        func() time.Time
}

// NewTokenClient creates a token client for the given endpoints. A nil
// httpClient falls back to a default client with DefaultHTTPTimeout.
func NewTokenClient(endpoints Endpoints, httpClient *http.Client) *TokenClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &TokenClient{
		endpoints:  endpoints,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Exchange trades an authorization code (plus the PKCE verifier whose
// challenge was sent in the authorization URL) for tokens. The redirectURI
// must match the one used to obtain the code.
//
// A non-2xx response is returned as an *ExchangeError carrying the
// provider's error body verbatim; it is never retried here.
func (c *TokenClient) Exchange(ctx context.Context, code, clientID, clientSecret, redirectURI, codeVerifier string) (*TokenResult, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	}

	return c.postTokenForm(ctx, "exchange", data)
}

// Refresh trades a refresh token for a new access token. The provider may
// omit a new refresh token from the response; callers must then retain the
// one they already hold.
//
// If the refresh token itself was revoked or expired, the returned
// *ExchangeError reports InvalidGrant() and the caller must run a full
// sign-in instead of retrying.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken, clientID, clientSecret string) (*TokenResult, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	return c.postTokenForm(ctx, "refresh", data)
}

// Revoke invalidates an access or refresh token at the provider.
//
// Revocation is idempotent: a 400 response means the token was already
// invalid or expired and is treated as success. Any other failure is
// returned as a *RevokeError, which callers treat as non-fatal.
func (c *TokenClient) Revoke(ctx context.Context, token string) error {
	data := url.Values{
		"token": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RevokeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return &RevokeError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RevokeError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RevokeError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Google answers 400 for tokens that are already invalid. Treat that
	// as success so that revoking twice is not an error.
	if resp.StatusCode == http.StatusBadRequest {
		slog.Debug("Revocation endpoint reported token already invalid",
			"status", resp.StatusCode,
		)
		return nil
	}

	return &RevokeError{StatusCode: resp.StatusCode, Body: string(body)}
}

// postTokenForm posts a form-encoded body to the token endpoint and parses
// the response into a TokenResult. The expiry is stamped relative to the
// moment the response was received.
func (c *TokenClient) postTokenForm(ctx context.Context, operation string, data url.Values) (*TokenResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &ExchangeError{Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			Operation:     operation,
			StatusCode:    resp.StatusCode,
			ProviderError: parseProviderError(body),
			Body:          string(body),
		}
	}

	var payload tokenPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ExchangeError{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}

	return payload.result(c.now()), nil
}

// parseProviderError extracts the standard OAuth2 "error" field from an
// error response body. Returns "" when the body is not the expected JSON.
func parseProviderError(body []byte) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Error
}
