// Package logging provides a structured logging system for gsignin built on
// Go's standard slog package.
//
// All log entries carry a timestamp, a level, a subsystem identifier and a
// message. Subsystems group related log output (Config, Flow, TokenClient,
// Callback) so that it can be filtered when reading logs.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Config", "Loaded configuration from %s", path)
//	logging.Error("Flow", err, "Sign-in failed")
//
// Log output always goes to the writer passed to Init; command results are
// printed to stdout separately so the two streams can be split by callers.
//
// Credentials are never logged by this package's callers; token values are
// wrapped in googleauth.RedactedToken before they get anywhere near a log
// statement.
package logging
