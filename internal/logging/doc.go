// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// The supervisor and every worker it launches log through the same setup, so
// a single journalctl query follows a whole pool.
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"supervisor": "debug",
//			"api":        "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Forked worker process", "pid", pid)
//
// Levels can be changed at runtime with [SetLevels]; loggers already handed
// out follow the change because each module owns a [log/slog.LevelVar].
//
// # Viewing Logs
//
//	journalctl -t procman                  # supervisor and workers
//	journalctl -t procman MODULE=supervisor
//	journalctl -t procman SYSLOG_PID=4242  # one worker
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	supervisor = "debug"
//	worker = "info"
package logging
