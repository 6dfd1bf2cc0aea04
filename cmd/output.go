package cmd

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gsignin/gsignin/internal/googleauth"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tokenOutput is the machine-readable shape printed with --json. This is
// the one place tokens leave the process in the clear; it goes to stdout
// only, for the calling application to capture.
type tokenOutput struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	IDToken      string   `json:"id_token,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	ExpiresAt    int64    `json:"expires_at,omitempty"` // Unix seconds
}

// printTokenJSON writes the full token result as JSON to out.
func printTokenJSON(out io.Writer, result *googleauth.TokenResult) error {
	output := tokenOutput{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		IDToken:      result.IDToken,
		Scopes:       result.Scopes,
	}
	if !result.ExpiresAt.IsZero() {
		output.ExpiresAt = result.ExpiresAt.Unix()
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// printTokenSummary renders a human-readable summary table. Token values
// are redacted; use --json to obtain them.
func printTokenSummary(out io.Writer, result *googleauth.TokenResult) {
	accessToken := googleauth.NewRedactedToken(result.AccessToken)
	refreshToken := googleauth.NewRedactedToken(result.RefreshToken)

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Field", "Value"})

	tw.AppendRow(table.Row{"Access token", accessToken.String()})
	if refreshToken.IsEmpty() {
		tw.AppendRow(table.Row{"Refresh token", text.FgYellow.Sprint("(not issued)")})
	} else {
		tw.AppendRow(table.Row{"Refresh token", refreshToken.String()})
	}

	if result.IDToken != "" {
		if claims, err := googleauth.ParseIDTokenClaims(result.IDToken); err == nil {
			if claims.Email != "" {
				tw.AppendRow(table.Row{"Account", claims.Email})
			}
			if claims.HostedDomain != "" {
				tw.AppendRow(table.Row{"Hosted domain", claims.HostedDomain})
			}
		}
	}

	for i, scope := range result.Scopes {
		label := ""
		if i == 0 {
			label = "Granted scopes"
		}
		tw.AppendRow(table.Row{label, scope})
	}

	if !result.ExpiresAt.IsZero() {
		tw.AppendRow(table.Row{"Expires", result.ExpiresAt.Local().Format("2006-01-02 15:04:05 MST")})
	}

	tw.Render()
}

// resolveEndpoints returns the provider endpoints for the given issuer,
// falling back to Google when no issuer is configured. Discovered metadata
// without a revocation endpoint keeps Google's, so logout still works for
// providers that omit it.
func resolveEndpoints(ctx context.Context, issuer string) (googleauth.Endpoints, error) {
	if issuer == "" {
		return googleauth.GoogleEndpoints(), nil
	}

	metadata, err := googleauth.NewMetadataClient(nil).Discover(ctx, issuer)
	if err != nil {
		return googleauth.Endpoints{}, err
	}

	endpoints := metadata.Endpoints()
	if endpoints.RevokeURL == "" {
		endpoints.RevokeURL = googleauth.GoogleRevocationURL
	}
	return endpoints, nil
}
