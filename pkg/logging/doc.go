// Package logging provides the structured logging used across switchyard.
//
// It is a thin layer over log/slog: every entry carries a subsystem
// attribute so the registry, router, orchestrator and cache can be filtered
// independently.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stderr)
//
//	logging.Info("Router", "route %s dispatched to %s", route, service)
//	logging.Error("Registry", err, "initialization of %s failed", name)
//
// Until Init is called all log calls are dropped, which keeps library use
// and unit tests quiet.
package logging
