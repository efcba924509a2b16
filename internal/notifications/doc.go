// Package notifications delivers huddle events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Enumerated event types cover transcript ingestion, triage
// delivery, and failures; each can be switched off in [notifications].
//
// Callers depend only on the Service interface.
package notifications
