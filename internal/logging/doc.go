// Package logging provides structured logging with per-module log levels.
//
// Records go to stdout (text or json) when it is attached, to the systemd
// journal when journald is running, and always to an in-memory ring buffer
// that backs the /api/logs stream.
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"device": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("heart")
//	logger.Info("Pattern loaded", "name", name, "frames", n)
//
// Modules used by lightnode: main, heart, device, pattern, api, nats, config, hotplug.
//
// Journal entries carry SYSLOG_IDENTIFIER=lightnode and upper-cased attributes:
//
//	journalctl -t lightnode MODULE=device -f
//
// TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	device = "debug"
package logging
