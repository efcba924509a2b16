package transcribeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"huddle/internal/config"
	"huddle/internal/transcript"
)

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 4 << 10

// Config holds the endpoint settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	ResponseFormat string
	Language       string
	Timeout        time.Duration
}

// FromConfig maps the [transcription] section onto Config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		BaseURL:        cfg.Transcription.BaseURL,
		APIKey:         cfg.Transcription.APIKey,
		Model:          cfg.Transcription.Model,
		ResponseFormat: cfg.Transcription.ResponseFormat,
		Language:       cfg.Transcription.Language,
		Timeout:        cfg.TranscriptionTimeout(),
	}
}

// StatusError is a non-2xx response from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transcription api: http %d: %s", e.StatusCode, e.Detail())
}

// Detail returns the provider's error message, or the trimmed body.
func (e *StatusError) Detail() string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return strings.TrimSpace(nested.Message)
		}
		var flat string
		if err := json.Unmarshal(payload.Error, &flat); err == nil && strings.TrimSpace(flat) != "" {
			return strings.TrimSpace(flat)
		}
	}
	return strings.TrimSpace(e.Body)
}

// Client uploads audio for transcription.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient validates cfg. The per-call deadline is owned by the caller's
// context; Timeout only bounds the HTTP client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		return nil, errors.New("transcription api: base_url required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("transcription api: api key required")
	}
	if cfg.Model == "" {
		return nil, errors.New("transcription api: model required")
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Transcribe implements transcript.Backend.
func (c *Client) Transcribe(ctx context.Context, audio []byte) ([]byte, error) {
	if len(audio) == 0 {
		return nil, errors.New("transcription api: audio payload is empty")
	}
	body, contentType, err := c.encode(audio)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, body)
	if err != nil {
		return nil, fmt.Errorf("transcription api: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription api: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcription api: read body: %w", err)
	}
	return data, nil
}

func (c *Client) encode(audio []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "meeting"+transcript.AudioExtension(audio))
	if err != nil {
		return nil, "", fmt.Errorf("transcription api: create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("transcription api: write audio: %w", err)
	}
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", c.cfg.ResponseFormat},
		{"language", c.cfg.Language},
	}
	if strings.Contains(c.cfg.ResponseFormat, "diarized") {
		fields = append(fields, [2]string{"chunking_strategy", "auto"})
	}
	for _, field := range fields {
		if strings.TrimSpace(field[1]) == "" {
			continue
		}
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("transcription api: write %s: %w", field[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("transcription api: close multipart: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
