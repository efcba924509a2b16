package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"huddle/internal/agents"
	"huddle/internal/config"
)

func TestFromConfigSplitsKeys(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = " first , ,second "
	got := FromConfig(&cfg)
	if len(got.APIKeys) != 2 || got.APIKeys[0] != "first" || got.APIKeys[1] != "second" {
		t.Fatalf("unexpected keys %q", got.APIKeys)
	}
	if got.Model != cfg.Gemini.Model {
		t.Fatalf("unexpected model %q", got.Model)
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient(Config{Model: "gemini-2.5-flash"}); err == nil {
		t.Fatal("expected error without keys")
	}
	if _, err := NewClient(Config{APIKeys: []string{"k"}}); err == nil {
		t.Fatal("expected error without model")
	}
}

func TestCompleteRotatesPastExhaustedKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
		body map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-goog-api-key")
		mu.Lock()
		keys = append(keys, key)
		mu.Unlock()
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if key == "exhausted" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"summary\":"},{"text":"\"done\"}"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKeys: []string{"exhausted", "fresh"}, Model: "test-model", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	text, err := client.Complete(context.Background(), agents.Request{System: "Summarize.", User: "Speaker A: wrap up", JSON: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"summary":"done"}` {
		t.Fatalf("unexpected text %q", text)
	}
	if len(keys) != 2 || keys[0] != "exhausted" || keys[1] != "fresh" {
		t.Fatalf("unexpected key sequence %q", keys)
	}
	genCfg, _ := body["generationConfig"].(map[string]any)
	if genCfg["responseMimeType"] != "application/json" {
		t.Fatalf("expected JSON mime type, got %v", body["generationConfig"])
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Fatalf("expected system instruction in body %v", body)
	}
}

func TestCompleteFailsWhenEveryKeyIsExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKeys: []string{"a", "b"}, Model: "test-model", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), agents.Request{User: "hello"})
	if err == nil || !strings.Contains(err.Error(), "exhausted") {
		t.Fatalf("expected exhausted error, got %v", err)
	}
}

func TestResponseTextHandlesEmpty(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}
