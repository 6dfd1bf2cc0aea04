package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/gsignin/gsignin/internal/config"
	"github.com/gsignin/gsignin/internal/googleauth"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

type loginOptions struct {
	clientID     string
	clientSecret string
	scopes       []string
	hostedDomain string
	loginHint    string
	redirectURI  string
	timeout      time.Duration
	jsonOutput   bool
}

func newLoginCmd() *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google in your browser",
		Long: `Login starts a local callback listener, opens the Google consent
screen in your browser and waits for the redirect. On success the granted
token summary is printed; pass --json to print the tokens themselves to
stdout for the calling application to store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth2 client ID (overrides config)")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth2 client secret (overrides config)")
	cmd.Flags().StringSliceVar(&opts.scopes, "scope", nil, "requested scope, repeatable (overrides config)")
	cmd.Flags().StringVar(&opts.hostedDomain, "hosted-domain", "", "restrict sign-in to a Google Workspace domain")
	cmd.Flags().StringVar(&opts.loginHint, "login-hint", "", "pre-fill the account chooser with this address")
	cmd.Flags().StringVar(&opts.redirectURI, "redirect-uri", "", "pin the callback URI, e.g. http://localhost:8085/callback")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "how long to wait for the browser redirect (default 5m)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print tokens as JSON to stdout")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	ctx := cmd.Context()

	cfg, err := loadCLIConfig()
	if err != nil {
		return err
	}

	signInConfig := cfg.SignInConfig()
	if cmd.Flags().Changed("client-id") {
		signInConfig.ClientID = opts.clientID
	}
	if cmd.Flags().Changed("client-secret") {
		signInConfig.ClientSecret = opts.clientSecret
	}
	if cmd.Flags().Changed("scope") {
		signInConfig.Scopes = opts.scopes
	}
	if cmd.Flags().Changed("hosted-domain") {
		signInConfig.HostedDomain = opts.hostedDomain
	}
	if cmd.Flags().Changed("login-hint") {
		signInConfig.LoginHint = opts.loginHint
	}
	if cmd.Flags().Changed("redirect-uri") {
		signInConfig.RedirectURI = opts.redirectURI
	}
	if cmd.Flags().Changed("timeout") {
		signInConfig.Timeout = opts.timeout
	}

	endpoints, err := resolveEndpoints(ctx, cfg.Issuer)
	if err != nil {
		return err
	}

	authenticator := googleauth.NewAuthenticator(googleauth.AuthenticatorConfig{
		Endpoints: endpoints,
	})

	// The spinner goes to stderr so --json output on stdout stays clean.
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " Waiting for sign-in in your browser (Ctrl-C to cancel)..."
	spin.Start()

	result, err := authenticator.SignIn(ctx, signInConfig)
	spin.Stop()
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		return printTokenJSON(cmd.OutOrStdout(), result)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Signed in.")
	printTokenSummary(cmd.OutOrStdout(), result)
	return nil
}

// loadCLIConfig loads the config file from --config or the default
// location.
func loadCLIConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPathOrPanic()
	}
	return config.LoadConfig(path)
}
