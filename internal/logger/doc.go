// Package logger provides a simple, thread-safe logging facility.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, optional component name, and
// message.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Pool started")
//	logger.Info("worker-1", "Processing job")
//	logger.Error("worker-1", "Job panicked: %v", r)
//
// Binding a component once:
//
//	log := logger.Named("pool-1a2b").Named("worker-3")
//	log.Debug("online")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// ParseLevel converts configuration strings ("debug", "info", ...) into a
// Level.
//
// # Thread Safety
//
// All logging operations are protected by a mutex and safe for concurrent use.
package logger
