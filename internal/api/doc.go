// Package api defines wire-format types and converters for the HTTP API.
// It translates transcript catalog entries and triage outcomes into
// transport-friendly DTOs so clients never couple to internal types.
//
// # Key Types
//
// TranscriptEntry: catalog record for one stored transcript.
//
// TriageResponse: one delivered triage invocation with its routing signals
// and normalized result.
//
// HealthResponse: server readiness with preflight and dependency results.
//
// # Converters
//
// FromEntry: transcript.Entry -> TranscriptEntry.
//
// FromOutcome: triage.Outcome -> TriageResponse.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (capability, result kind, shape) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
package api
