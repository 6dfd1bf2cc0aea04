package cmd

import (
	"fmt"

	"github.com/gsignin/gsignin/internal/googleauth"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	var accessToken string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke an access token at the provider",
		Long: `Logout revokes the given access token, invalidating the associated
grant. Revocation is best-effort: a token the provider no longer
recognizes counts as revoked, and network failures are reported but do
not fail the command. With no token, logout is a local no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadCLIConfig()
			if err != nil {
				return err
			}

			endpoints, err := resolveEndpoints(ctx, cfg.Issuer)
			if err != nil {
				return err
			}

			authenticator := googleauth.NewAuthenticator(googleauth.AuthenticatorConfig{
				Endpoints: endpoints,
			})

			if err := authenticator.SignOut(ctx, accessToken); err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Signed out.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "the access token to revoke")

	return cmd
}
