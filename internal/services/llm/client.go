package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"huddle/internal/agents"
	"huddle/internal/config"
	"huddle/internal/normalize"
)

const (
	defaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 15 * time.Second
	jsonResponseType   = "json_object"
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	// MaxAttempts bounds HTTP-level retries; values <= 0 keep the client default.
	MaxAttempts int
}

// FromConfig converts the shared config settings into a client Config.
func FromConfig(cfg config.LLMConfig) Config {
	return Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
		MaxAttempts:    cfg.MaxAttempts,
	}
}

// Client wraps an OpenAI-compatible chat completion endpoint (OpenRouter by
// default).
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the attempt count from Config.MaxAttempts.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the timer used between attempts.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleeper = sleeper
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultEndpoint
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		retry:      newRetryPolicy(cfg.MaxAttempts),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Complete implements agents.Worker. It returns the model's content exactly
// as produced. req.Model overrides the configured model; req.JSON requests a
// JSON object response.
func (c *Client) Complete(ctx context.Context, req agents.Request) (string, error) {
	user := strings.TrimSpace(req.User)
	if user == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm complete: api key required")
	}

	body := chatRequest{Model: c.cfg.Model}
	if model := strings.TrimSpace(req.Model); model != "" {
		body.Model = model
	}
	if system := strings.TrimSpace(req.System); system != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: system})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: user})
	if req.JSON {
		body.ResponseFormat = map[string]string{"type": jsonResponseType}
	}

	var content string
	err := c.retry.do(ctx, func() error {
		var err error
		content, err = c.complete(ctx, body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	return content, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	content, err := c.Complete(ctx, agents.Request{
		System: "You must respond with JSON only.",
		User:   `Respond with {"ok":true}`,
		JSON:   true,
	})
	if err != nil {
		return err
	}
	object, ok := normalize.DecodeObject(content)
	if !ok {
		return fmt.Errorf("llm health: payload is not a JSON object (snippet: %s)", snippet(content))
	}
	if healthy, _ := object["ok"].(bool); !healthy {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
