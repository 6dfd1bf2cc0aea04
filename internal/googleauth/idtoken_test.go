package googleauth

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

// makeUnsignedIDToken builds a JWT with the given claims and an empty
// signature, enough for ParseIDTokenClaims which never verifies.
func makeUnsignedIDToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}

	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "."
}

func TestParseIDTokenClaims(t *testing.T) {
	token := makeUnsignedIDToken(t, map[string]interface{}{
		"sub":            "1234567890",
		"email":          "user@example.com",
		"email_verified": true,
		"hd":             "example.com",
	})

	claims, err := ParseIDTokenClaims(token)
	if err != nil {
		t.Fatalf("ParseIDTokenClaims failed: %v", err)
	}

	if claims.Subject != "1234567890" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if !claims.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
	if claims.HostedDomain != "example.com" {
		t.Errorf("HostedDomain = %q", claims.HostedDomain)
	}
}

func TestParseIDTokenClaims_MissingOptionalClaims(t *testing.T) {
	token := makeUnsignedIDToken(t, map[string]interface{}{
		"sub": "42",
	})

	claims, err := ParseIDTokenClaims(token)
	if err != nil {
		t.Fatalf("ParseIDTokenClaims failed: %v", err)
	}

	if claims.Subject != "42" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if claims.Email != "" || claims.HostedDomain != "" || claims.EmailVerified {
		t.Errorf("optional claims should be zero: %+v", claims)
	}
}

func TestParseIDTokenClaims_Malformed(t *testing.T) {
	if _, err := ParseIDTokenClaims("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}
