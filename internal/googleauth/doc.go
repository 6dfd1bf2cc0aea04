// Package googleauth implements the desktop Google OAuth2 sign-in flow.
//
// Desktop applications cannot register a native redirect scheme, so the
// package obtains tokens with the Authorization Code flow plus PKCE and a
// short-lived local HTTP listener that captures the browser redirect:
//
//  1. Generate a PKCE verifier/challenge pair and a random state token.
//  2. Bind a local callback server on 127.0.0.1 (ephemeral port by default).
//  3. Build the authorization URL and open it in the system browser.
//  4. Wait for exactly one redirect carrying code+state (or error).
//  5. Validate the state, then exchange the code for tokens.
//
// The Authenticator drives the above as a state machine with a configurable
// timeout and full cancellation support; the callback listener never
// outlives a single sign-in attempt. Token refresh and revocation are
// independent one-shot operations that do not involve a listener.
//
// # Usage
//
//	auth := googleauth.NewAuthenticator(googleauth.AuthenticatorConfig{})
//
//	result, err := auth.SignIn(ctx, googleauth.SignInConfig{
//	    ClientID:     clientID,
//	    ClientSecret: clientSecret,
//	    Scopes:       []string{"openid", "email"},
//	})
//
// Tokens are returned to the caller and never persisted or logged by this
// package; wrap values in RedactedToken before handing them to anything
// that might print them.
package googleauth
