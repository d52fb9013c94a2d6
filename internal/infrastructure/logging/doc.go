// Package logging provides structured logging for netfield-connect.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the client and the stub server.
//
// # Features
//
//   - Text output for operators running the client by hand
//   - JSON output when the client runs under a supervisor
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error (LOG_LEVEL overrides)
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Security
//
// Never log the API key or the broker password. Usernames and endpoint
// URLs are fine.
package logging
