// Package daemon coordinates the long-running `huddle serve` process.
//
// It wires the assembled app into a single lifecycle with flock-based locking
// to prevent multiple instances, an authenticated HTTP API, and the optional
// audio inbox watcher. Request ids flow from the X-Request-ID header (or a
// fresh uuid) into the triage invocation and every log line it produces.
//
// Keep orchestration logic here: ingestion, triage, and delivery live in
// their own packages while the daemon focuses on startup, shutdown, and
// transport.
package daemon
