// Package logging wraps log/slog with per-module levels and fans every record
// out to the places an operator of the panel might look.
//
// Call Initialize once from main, then ask for a logger per subsystem:
//
//	logging.Initialize(logging.Config{Level: "info", Format: "text", BufferSize: 1000})
//	logger := logging.GetLogger("tasks").With("task", "LED_Task")
//	logger.Info("Task suspended", "input", "button_a")
//
// Loggers handed out before Initialize keep working; their handlers are
// rebuilt and their levels follow the configuration from then on.
//
// # Sinks
//
// Each module logger writes to up to three handlers through a MultiHandler:
//
//	stdout   text or json, skipped when stdout is /dev/null
//	journal  native journald fields, when the socket is present
//	buffer   in-memory RingBuffer backing /api/logs and its SSE stream
//
// Journal records carry MODULE, every attribute as an upper-cased field and
// the CODE_* location, so they can be filtered directly:
//
//	journalctl -t panelnode MODULE=kernel -p warning
//	journalctl -t panelnode TASK=Buzzer_Task -f
//
// # Levels
//
// The global level applies to every module without its own entry. SetLevels
// swaps both at runtime; the config watcher calls it when the TOML file is
// saved:
//
//	[logging]
//	level = "info"
//
//	[logging.modules]
//	kernel = "debug"
//	http = "warn"
package logging
