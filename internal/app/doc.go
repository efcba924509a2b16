// Package app assembles huddle's components from a loaded config and exposes
// the operations shared by the CLI, the HTTP server, and the inbox watcher.
//
// Build selects the worker backend (OpenRouter or Gemini), the transcription
// backend (HTTP API or local WhisperX), the router assessor, and the agent
// catalog. Optional collaborators (SMTP mailer, PDF agenda import) stay nil
// when their configuration is absent and the matching operations report a
// configuration error instead.
package app
