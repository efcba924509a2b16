// Package transcribeapi is the hosted transcription backend: a single
// multipart upload to an OpenAI-compatible /audio/transcriptions endpoint.
//
// The response body is returned unmodified so the transcript package can
// recognize its shape. Non-2xx responses become *StatusError, whose Detail
// is the provider's error message when the body carries one.
package transcribeapi
