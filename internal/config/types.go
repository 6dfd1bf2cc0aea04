package config

import (
	"time"

	"github.com/gsignin/gsignin/internal/googleauth"
)

// Config is the on-disk configuration for the gsignin CLI. Everything can
// be overridden with command-line flags; the file only provides defaults.
//
// The client secret lives here because Google's desktop flow requires a
// confidential client. It is not a secret in the web-application sense
// (any desktop binary embedding it can be unpacked), but it is still kept
// out of logs and command output.
type Config struct {
	ClientID     string   `yaml:"clientID,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
	HostedDomain string   `yaml:"hostedDomain,omitempty"` // Restrict sign-in to a Workspace domain
	LoginHint    string   `yaml:"loginHint,omitempty"`    // Pre-fill the account chooser
	RedirectURI  string   `yaml:"redirectURI,omitempty"`  // Pin the callback host/port/path
	SuccessHTML  string   `yaml:"successHTML,omitempty"`  // Custom browser page after sign-in

	// TimeoutSeconds bounds the wait for the browser redirect (default: 300)
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`

	// Issuer switches to a non-Google OIDC provider; endpoints are then
	// discovered from <issuer>/.well-known/openid-configuration.
	Issuer string `yaml:"issuer,omitempty"`
}

// GetDefaultConfig returns the configuration defaults applied before the
// YAML file is merged in.
func GetDefaultConfig() Config {
	return Config{
		Scopes:         []string{"openid", "email", "profile"},
		TimeoutSeconds: int(googleauth.DefaultSignInTimeout / time.Second),
	}
}

// SignInConfig converts the configuration into the core's SignInConfig.
func (c Config) SignInConfig() googleauth.SignInConfig {
	return googleauth.SignInConfig{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Scopes:       c.Scopes,
		HostedDomain: c.HostedDomain,
		LoginHint:    c.LoginHint,
		RedirectURI:  c.RedirectURI,
		SuccessHTML:  c.SuccessHTML,
		Timeout:      time.Duration(c.TimeoutSeconds) * time.Second,
	}
}
