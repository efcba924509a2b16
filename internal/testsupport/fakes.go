package testsupport

import (
	"context"
	"errors"
	"sync"

	"huddle/internal/agents"
	"huddle/internal/notifications"
)

// FakeWorker is a scripted agents.Worker. Responses are consumed in order; the
// last one repeats once the script runs out.
type FakeWorker struct {
	mu        sync.Mutex
	responses []FakeResponse
	requests  []agents.Request
}

// FakeResponse is one scripted worker reply.
type FakeResponse struct {
	Output string
	Err    error
}

// NewFakeWorker returns a worker that replies with outputs in order.
func NewFakeWorker(outputs ...string) *FakeWorker {
	w := &FakeWorker{}
	for _, output := range outputs {
		w.responses = append(w.responses, FakeResponse{Output: output})
	}
	return w
}

// NewFailingWorker returns a worker whose every call fails with err.
func NewFailingWorker(err error) *FakeWorker {
	return &FakeWorker{responses: []FakeResponse{{Err: err}}}
}

// Complete implements agents.Worker.
func (w *FakeWorker) Complete(ctx context.Context, req agents.Request) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requests = append(w.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(w.responses) == 0 {
		return "", errors.New("fake worker: no scripted response")
	}
	next := w.responses[0]
	if len(w.responses) > 1 {
		w.responses = w.responses[1:]
	}
	return next.Output, next.Err
}

// Requests returns a copy of the requests received so far.
func (w *FakeWorker) Requests() []agents.Request {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]agents.Request(nil), w.requests...)
}

// FakeBackend is a transcript.Backend returning a fixed response.
type FakeBackend struct {
	mu       sync.Mutex
	Response []byte
	Err      error
	calls    int
}

// Transcribe implements transcript.Backend.
func (b *FakeBackend) Transcribe(ctx context.Context, _ []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Err != nil {
		return nil, b.Err
	}
	return append([]byte(nil), b.Response...), nil
}

// Calls reports how many times Transcribe ran.
func (b *FakeBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// StaticAgenda is an agents.AgendaReader with fixed text.
type StaticAgenda string

// Read implements agents.AgendaReader.
func (a StaticAgenda) Read(context.Context) (string, error) {
	return string(a), nil
}

// PublishedEvent is one notification captured by RecordingNotifier.
type PublishedEvent struct {
	Event   notifications.Event
	Payload notifications.Payload
}

// RecordingNotifier is a notifications.Service that keeps every event.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// Publish implements notifications.Service.
func (n *RecordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, PublishedEvent{Event: event, Payload: payload})
	return nil
}

// Events returns a copy of the events published so far.
func (n *RecordingNotifier) Events() []PublishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]PublishedEvent(nil), n.events...)
}
