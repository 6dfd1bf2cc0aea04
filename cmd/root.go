package cmd

import (
	"errors"
	"os"

	"github.com/gsignin/gsignin/internal/googleauth"
	"github.com/gsignin/gsignin/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions so scripts can react to outcomes.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeTimeout indicates the browser redirect never arrived in time.
	ExitCodeTimeout = 2
	// ExitCodeAuthFailed indicates the OAuth flow itself failed.
	ExitCodeAuthFailed = 3
)

// Global flags shared by all commands.
var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command for the gsignin application.
var rootCmd = &cobra.Command{
	Use:   "gsignin",
	Short: "Google OAuth2 sign-in for desktop applications",
	Long: `gsignin obtains Google OAuth2 tokens for desktop use with the
Authorization Code + PKCE flow: it starts a short-lived local listener,
opens the consent screen in your browser, captures the redirect and
exchanges the authorization code for tokens.

Tokens are printed to stdout for the calling application to store;
gsignin itself never persists them.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command.
// Typically called from the main package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gsignin version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if errors.Is(err, googleauth.ErrTimeout) {
		return ExitCodeTimeout
	}

	var denied *googleauth.AccessDeniedError
	if errors.As(err, &denied) {
		return ExitCodeAuthFailed
	}

	var exchangeErr *googleauth.ExchangeError
	if errors.As(err, &exchangeErr) {
		return ExitCodeAuthFailed
	}

	if errors.Is(err, googleauth.ErrStateMismatch) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config directory (default is $HOME/.config/gsignin)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newVersionCmd())
}
