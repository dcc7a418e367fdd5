// Package logging provides structured logging for the home sensor.
//
// This package wraps a global zap logger with convenience functions for the
// events the device and its companion CLI care about: accepted connections,
// parsed requests, written responses, and bounded copies that had to drop
// bytes.
//
// # Log Levels
//
//   - Debug: raw request bytes, ring buffer snapshots, skipped ticks
//   - Info: connections, requests, pairing window changes, flushes
//   - Warn: truncations, corrupted stores, failed sensor reads
//   - Error: storage writes that failed, listener errors
//
// # Configuration
//
// The device server initializes logging from its --log-level flag:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// The sensor-cfg CLI stays silent unless HOMESENSOR_LOG_LEVEL is set:
//
//	_ = logging.InitializeFromEnv()
//
// # Truncation
//
// Every bounded buffer in the device (request fields, store capacity) reports
// dropped bytes through LogTruncation so overflow is never silent:
//
//	logging.LogTruncation("route", 64, 12)
package logging
