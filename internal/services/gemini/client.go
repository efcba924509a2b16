package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"huddle/internal/agents"
	"huddle/internal/config"
)

// Config holds the Gemini backend settings.
type Config struct {
	APIKeys []string
	Model   string
	// BaseURL overrides the API endpoint; tests point it at httptest.
	BaseURL string
}

// FromConfig builds a Config from the [gemini] section.
func FromConfig(cfg *config.Config) Config {
	return Config{
		APIKeys: splitKeys(cfg.Gemini.APIKey),
		Model:   strings.TrimSpace(cfg.Gemini.Model),
	}
}

// Client is a Gemini-backed agents.Worker.
type Client struct {
	cfg Config

	mu         sync.Mutex
	currentKey int
}

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("gemini: api key required")
	}
	cfg.APIKeys = keys
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		return nil, errors.New("gemini: model required")
	}
	return &Client{cfg: cfg}, nil
}

// Complete implements agents.Worker.
func (c *Client) Complete(ctx context.Context, req agents.Request) (string, error) {
	user := strings.TrimSpace(req.User)
	if user == "" {
		return "", errors.New("gemini complete: user prompt required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system := strings.TrimSpace(req.System); system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for range len(c.cfg.APIKeys) {
		key := c.key()
		client, err := genai.NewClient(ctx, c.clientConfig(key))
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			c.rotate(key)
			continue
		}
		result, err := client.Models.GenerateContent(ctx, model, genai.Text(user), genCfg)
		if err != nil {
			if isQuotaError(err) {
				lastErr = err
				c.rotate(key)
				continue
			}
			return "", fmt.Errorf("gemini complete: generate content: %w", err)
		}
		text := responseText(result)
		if text == "" {
			return "", errors.New("gemini complete: empty response")
		}
		return text, nil
	}
	return "", fmt.Errorf("gemini complete: all API keys exhausted: %w", lastErr)
}

// HealthCheck makes a minimal JSON call to verify the key and model.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Complete(ctx, agents.Request{User: `Respond with {"ok":true}`, JSON: true})
	if err != nil {
		return fmt.Errorf("gemini health: %w", err)
	}
	return nil
}

func (c *Client) clientConfig(key string) *genai.ClientConfig {
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	return cc
}

func (c *Client) key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.APIKeys[c.currentKey]
}

// rotate advances past key unless another caller already did.
func (c *Client) rotate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.APIKeys[c.currentKey] == key {
		c.currentKey = (c.currentKey + 1) % len(c.cfg.APIKeys)
	}
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func splitKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
