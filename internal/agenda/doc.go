// Package agenda stores the meeting agenda as a single text blob.
//
// The blob lives at paths.agenda_file. Reads take a shared flock and writes
// an exclusive one, so the HTTP server and the CLI can update it
// concurrently. A missing file reads as the empty agenda.
package agenda
