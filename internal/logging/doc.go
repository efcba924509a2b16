// Package logging assembles structured slog loggers and formatting helpers used
// across huddle services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline, agent, and router
// code can tag log lines with transcript references, capabilities, and
// correlation IDs. Per-component levels from [logging.component_levels] are
// applied to any logger built with NewComponentLogger. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
package logging
