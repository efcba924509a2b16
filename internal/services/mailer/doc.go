// Package mailer delivers triage results over SMTP.
//
// The body is composed as multipart/alternative: the result text as
// text/plain, and the same text rendered from Markdown to HTML with
// goldmark. Each Send is one SMTP session; STARTTLS is used when the server
// offers it and auth is attempted only when a username is configured.
package mailer
