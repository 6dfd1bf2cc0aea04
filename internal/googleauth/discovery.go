package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultMetadataCacheTTL is the default TTL for cached provider metadata.
const DefaultMetadataCacheTTL = 30 * time.Minute

// ProviderMetadata is the subset of OIDC discovery metadata this package
// needs to run the sign-in flow against a non-Google provider.
type ProviderMetadata struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	RevocationEndpoint            string   `json:"revocation_endpoint,omitempty"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// Endpoints converts discovered metadata into the Endpoints the
// Authenticator consumes.
func (m *ProviderMetadata) Endpoints() Endpoints {
	return Endpoints{
		AuthURL:   m.AuthorizationEndpoint,
		TokenURL:  m.TokenEndpoint,
		RevokeURL: m.RevocationEndpoint,
	}
}

// metadataCacheEntry holds cached metadata with its fetch timestamp.
type metadataCacheEntry struct {
	metadata  *ProviderMetadata
	fetchedAt time.Time
}

// MetadataClient discovers provider endpoints from an issuer's well-known
// OpenID configuration. Results are cached with a TTL and concurrent
// fetches for the same issuer are deduplicated.
type MetadataClient struct {
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]*metadataCacheEntry
	ttl   time.Duration

	group singleflight.Group
}

// NewMetadataClient creates a metadata client. A nil httpClient falls back
// to a default client with DefaultHTTPTimeout.
func NewMetadataClient(httpClient *http.Client) *MetadataClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &MetadataClient{
		httpClient: httpClient,
		cache:      make(map[string]*metadataCacheEntry),
		ttl:        DefaultMetadataCacheTTL,
	}
}

// Discover fetches the issuer's OpenID configuration from
// <issuer>/.well-known/openid-configuration, caching the result.
func (c *MetadataClient) Discover(ctx context.Context, issuer string) (*ProviderMetadata, error) {
	issuer = strings.TrimSuffix(issuer, "/")

	c.mu.RLock()
	if entry, ok := c.cache[issuer]; ok {
		if time.Since(entry.fetchedAt) < c.ttl {
			c.mu.RUnlock()
			return entry.metadata, nil
		}
	}
	c.mu.RUnlock()

	// singleflight deduplicates concurrent fetches for the same issuer
	result, err, _ := c.group.Do(issuer, func() (interface{}, error) {
		// Double-check the cache after winning the singleflight slot
		c.mu.RLock()
		if entry, ok := c.cache[issuer]; ok {
			if time.Since(entry.fetchedAt) < c.ttl {
				c.mu.RUnlock()
				return entry.metadata, nil
			}
		}
		c.mu.RUnlock()

		return c.fetch(ctx, issuer)
	})
	if err != nil {
		return nil, err
	}

	return result.(*ProviderMetadata), nil
}

// fetch performs the actual HTTP fetch and caches the result.
func (c *MetadataClient) fetch(ctx context.Context, issuer string) (*ProviderMetadata, error) {
	wellKnownURL := issuer + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch provider metadata from %s: %w", wellKnownURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider metadata fetch from %s returned status %d", wellKnownURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var metadata ProviderMetadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("invalid provider metadata from %s: %w", wellKnownURL, err)
	}

	if metadata.AuthorizationEndpoint == "" || metadata.TokenEndpoint == "" {
		return nil, fmt.Errorf("provider metadata from %s is missing required endpoints", wellKnownURL)
	}

	c.mu.Lock()
	c.cache[issuer] = &metadataCacheEntry{
		metadata:  &metadata,
		fetchedAt: time.Now(),
	}
	c.mu.Unlock()

	slog.Debug("Discovered provider metadata",
		"issuer", issuer,
		"token_endpoint", metadata.TokenEndpoint,
	)

	return &metadata, nil
}
