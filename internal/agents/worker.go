package agents

import "context"

// Request is one language-model call.
type Request struct {
	// Model overrides the backend default when non-empty.
	Model  string
	System string
	User   string
	// JSON asks the backend for a JSON-only response when it supports one.
	JSON bool
}

// Worker is the language-model backend. Implementations make a single call
// per Complete and return the model's text unmodified.
type Worker interface {
	Complete(ctx context.Context, req Request) (string, error)
}
