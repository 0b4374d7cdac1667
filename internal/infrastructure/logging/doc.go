// Package logging provides structured logging for ForestOS Core.
//
// It wraps log/slog so every component logs with the same handler,
// level and default fields (service, version).
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log passwords, JWTs or device auth tokens.
package logging
