// Package logging provides structured logging for the Scheiber bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the bridge process.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting bridge", "can_interface", cfg.CAN.Interface)
//	logger.Error("failed to connect", "error", err)
package logging
