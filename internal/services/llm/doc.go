// Package llm provides an OpenRouter chat client that serves as the default
// agents.Worker backend.
//
// The capability agents and the LLM router assessor both call Complete: one
// system prompt, one user prompt, and an optional JSON-object response
// format. Content is returned exactly as the model produced it; cleanup and
// interpretation belong to the normalize and triage packages.
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout,
// and max_attempts. FromConfig maps the [llm] config section onto Config.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send one agents.Request, receive the raw content.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty content, and network
// timeouts with exponential backoff (base 1s, max 10s). The attempt count comes
// from Config.MaxAttempts; huddle's configured default is a single attempt.
// Context cancellation aborts retries immediately. HTTP 401/403 responses
// match services.ErrConfiguration and are never retried.
package llm
