// Package logging provides structured logging for the sprk tools.
//
// This package wraps a zap logger with convenience functions for common
// logging patterns. Output is silent unless a level is given explicitly or
// through the SPRK_LOG_LEVEL environment variable, so CLI output stays clean
// by default.
//
// # Log Levels
//
//   - Debug: packet hex dumps, dropped acknowledgements, websocket traffic
//   - Info: link and client connections, streaming changes
//   - Warn: unexpected responses, unknown async messages, bad checksums
//   - Error: sensor mask mismatches, transport failures
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Warn("Unexpected response",
//	    zap.Uint8("seq", 12),
//	    zap.String("status", "OK"),
//	)
//
// # Packet Logging
//
//	logging.LogPacket("tx", packet)
//	logging.LogPacket("rx", packet)
//	logging.LogRawBytes("Transport chunk", chunk)
//
// # Configuration
//
//	if err := logging.Initialize(flagLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Logs go to stderr in console format.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize or
// SetLogger has returned.
package logging
