package cmd

import (
	"errors"
	"fmt"

	"github.com/gsignin/gsignin/internal/googleauth"

	"github.com/spf13/cobra"
)

type refreshOptions struct {
	refreshToken string
	clientID     string
	clientSecret string
	jsonOutput   bool
}

func newRefreshCmd() *cobra.Command {
	opts := &refreshOptions{}

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for a new access token",
		Long: `Refresh obtains a new access token from a previously issued refresh
token without opening a browser. When the provider reports the refresh
token itself is no longer valid, run "gsignin login" again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "the refresh token to redeem (required)")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth2 client ID (overrides config)")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print tokens as JSON to stdout")

	return cmd
}

func runRefresh(cmd *cobra.Command, opts *refreshOptions) error {
	ctx := cmd.Context()

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	clientID := cfg.ClientID
	if cmd.Flags().Changed("client-id") {
		clientID = opts.clientID
	}
	clientSecret := cfg.ClientSecret
	if cmd.Flags().Changed("client-secret") {
		clientSecret = opts.clientSecret
	}

	endpoints, err := resolveEndpoints(ctx, cfg.Issuer)
	if err != nil {
		return err
	}

	authenticator := googleauth.NewAuthenticator(googleauth.AuthenticatorConfig{
		Endpoints: endpoints,
	})

	result, err := authenticator.Refresh(ctx, opts.refreshToken, clientID, clientSecret)
	if err != nil {
		var exchangeErr *googleauth.ExchangeError
		if errors.As(err, &exchangeErr) && exchangeErr.InvalidGrant() {
			return fmt.Errorf("refresh token is no longer valid, run \"gsignin login\" again: %w", err)
		}
		return err
	}

	if opts.jsonOutput {
		return printTokenJSON(cmd.OutOrStdout(), result)
	}

	printTokenSummary(cmd.OutOrStdout(), result)
	return nil
}
