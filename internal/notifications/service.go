package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"huddle/internal/config"
)

const userAgent = "Huddle-Go/0.1.0"

// Event names a notification type.
type Event string

const (
	EventTranscriptIngested Event = "transcript_ingested"
	EventTriageDelivered    Event = "triage_delivered"
	EventRoutingIndecision  Event = "routing_indecision"
	EventError              Event = "error"
	EventTest               Event = "test"
)

// Payload carries the event's fields. Keys are event specific.
type Payload map[string]string

// Service defines the notification surface.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventTranscriptIngested: cfg.Notifications.Ingest,
			EventTriageDelivered:    cfg.Notifications.Triage,
			EventRoutingIndecision:  cfg.Notifications.Errors,
			EventError:              cfg.Notifications.Errors,
			EventTest:               true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }
	switch event {
	case EventTranscriptIngested:
		body := fmt.Sprintf("🎙️ Transcript stored: %s", get("reference"))
		if source := get("source"); source != "" {
			body += "\nSource: " + source
		}
		return message{
			title: "Huddle - Transcript Ready",
			body:  body,
			tags:  []string{"huddle", "transcript", "ingested"},
		}, true
	case EventTriageDelivered:
		capability := get("capability")
		body := fmt.Sprintf("✅ %s: %s", capability, get("reference"))
		if result := get("result"); result != "" {
			body += "\n" + truncate(result, 400)
		}
		return message{
			title: "Huddle - Triage Delivered",
			body:  body,
			tags:  []string{"huddle", "triage", capability},
		}, true
	case EventRoutingIndecision:
		return message{
			title:    "Huddle - Routing Indecision",
			body:     fmt.Sprintf("🤔 Router could not decide for %s: %s", get("reference"), get("reason")),
			tags:     []string{"huddle", "triage", "indecision"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := get("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := get("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Huddle - Error",
			body:     builder.String(),
			tags:     []string{"huddle", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Huddle - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"huddle", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
