// Package logging provides structured logging for the evigo CLI.
//
// This package wraps zap with convenience functions for the logging
// patterns used throughout the client. By default logging is silent so
// CLI output stays clean; set EVIGO_LOG_LEVEL to enable it:
//
//	EVIGO_LOG_LEVEL=debug evigo watch
//
// The session core itself never uses this package's globals - it takes
// an injected *zap.Logger - so the CLI decides once at startup what the
// whole process logs.
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device discovered",
//	    zap.String("name", dev.Name),
//	    zap.Int64("device_id", *dev.DeviceID),
//	)
//
// Raw wire traffic can be dumped at debug level with bounded hex and
// ascii renderings:
//
//	logging.LogRawBytes("frame received", data)
package logging
