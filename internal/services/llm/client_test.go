package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"huddle/internal/agents"
	"huddle/internal/config"
	"huddle/internal/services"
)

func completionServer(t *testing.T, choice map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": `{"ok":true}`,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := completionServer(t, map[string]any{
		"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"},
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientCompleteSendsRequest(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "Huddle" {
			t.Errorf("unexpected title header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "```json\n{\"summary\":\"done\"}\n```"}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "default-model", Title: "Huddle"})
	content, err := client.Complete(context.Background(), agents.Request{
		Model:  "override-model",
		System: "Summarize the meeting.",
		User:   "Speaker A: let's wrap up",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "```json\n{\"summary\":\"done\"}\n```" {
		t.Fatalf("expected raw content back, got %q", content)
	}
	if received.Model != "override-model" {
		t.Fatalf("expected model override, got %q", received.Model)
	}
	if len(received.Messages) != 2 || received.Messages[0].Role != "system" || received.Messages[1].Content != "Speaker A: let's wrap up" {
		t.Fatalf("unexpected messages %+v", received.Messages)
	}
	if received.ResponseFormat["type"] != jsonResponseType {
		t.Fatalf("expected json response format, got %v", received.ResponseFormat)
	}
}

func TestClientCompleteNarrativeOmitsResponseFormat(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "Which owner takes the follow-up?"}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	content, err := client.Complete(context.Background(), agents.Request{User: "Speaker A: who owns this?"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "Which owner takes the follow-up?" {
		t.Fatalf("unexpected content %q", content)
	}
	if _, ok := raw["response_format"]; ok {
		t.Fatalf("narrative request should not set response_format: %v", raw)
	}
	if model, _ := raw["model"].(string); model != "demo" {
		t.Fatalf("expected configured model, got %v", raw["model"])
	}
}

func TestClientCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "demo"})
	if _, err := client.Complete(context.Background(), agents.Request{User: "hi"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestClientErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusForbidden, services.ErrConfiguration},
		{http.StatusServiceUnavailable, services.ErrTransient},
		{http.StatusBadRequest, services.ErrExternalTool},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))
		client := NewClient(
			Config{APIKey: "test", BaseURL: server.URL, Model: "demo"},
			WithRetryMaxAttempts(1),
		)
		_, err := client.Complete(context.Background(), agents.Request{User: "transcript"})
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
	}
}

func TestClientDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(5),
		WithSleeper(func(time.Duration) {}),
	)
	if _, err := client.Complete(context.Background(), agents.Request{User: "transcript"}); err == nil {
		t.Fatal("expected unauthorized failure")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one attempt, got %d", calls.Load())
	}
}

func TestRetryPolicyBackoffDoublesAndClamps(t *testing.T) {
	p := retryPolicy{attempts: 5, base: time.Second, max: 5 * time.Second}
	transient := &emptyReplyError{}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, expected := range want {
		if got := p.delay(transient, i+1); got != expected {
			t.Fatalf("attempt %d: delay %s, want %s", i+1, got, expected)
		}
	}
	if got := p.delay(&statusError{Code: 429, RetryAfter: time.Minute}, 1); got != 5*time.Second {
		t.Fatalf("expected Retry-After clamped to max, got %s", got)
	}
}

func TestClientCompleteDeltaAndLegacyText(t *testing.T) {
	choices := []map[string]any{
		{"delta": map[string]any{"content": "delta content"}},
		{"finish_reason": "stop", "text": "legacy content"},
	}
	for _, choice := range choices {
		server := completionServer(t, choice)
		client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
		content, err := client.Complete(context.Background(), agents.Request{User: "transcript"})
		if err != nil {
			t.Fatalf("Complete returned error: %v", err)
		}
		if !strings.HasSuffix(content, "content") {
			t.Fatalf("unexpected content %q", content)
		}
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server := completionServer(t, map[string]any{
		"finish_reason": "stop",
		"message":       map[string]any{"content": ""},
	})
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), agents.Request{User: "transcript"})
	if err == nil {
		t.Fatal("expected complete to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	content, err := client.Complete(context.Background(), agents.Request{User: "transcript"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "ok" {
		t.Fatalf("unexpected content %q", content)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientConfiguredSingleAttemptDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.LLM.APIKey = "test"
	cfg.LLM.BaseURL = server.URL
	client := NewClient(FromConfig(cfg.GetLLM()), WithSleeper(func(time.Duration) {}))
	if _, err := client.Complete(context.Background(), agents.Request{User: "transcript"}); err == nil {
		t.Fatal("expected failure on 503")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls.Load())
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := ""
		if calls.Add(1) >= 3 {
			content = "third time"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}}},
		})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	content, err := client.Complete(context.Background(), agents.Request{User: "transcript"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if content != "third time" || calls.Load() != 3 {
		t.Fatalf("expected success on third call, got %q after %d", content, calls.Load())
	}
}
