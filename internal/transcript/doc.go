// Package transcript binds transcription output to durable storage.
//
// A Pipeline sends recorded audio to a Backend, extracts plain text from the
// backend's response (flat text or speaker-tagged segments), and persists it
// through a Store. The Store writes one text file per Reference and records
// metadata in a small SQLite catalog. References are derived from a UTC
// timestamp and never change once issued; later triage calls read them by
// value.
package transcript
