// Package gemini implements agents.Worker on the Google Gemini API through
// google.golang.org/genai.
//
// Keys may be supplied as a comma-separated list; a key that hits its quota
// (HTTP 429 or RESOURCE_EXHAUSTED) is rotated out and the call moves to the
// next one. Any other failure is returned to the caller unchanged.
package gemini
