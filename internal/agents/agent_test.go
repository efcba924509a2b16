package agents_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"huddle/internal/agents"
	"huddle/internal/services"
	"huddle/internal/testsupport"
)

func newRoster(t *testing.T, worker agents.Worker, opts agents.Options) (*agents.Roster, *testsupportStore) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	roster, err := agents.NewRoster(agents.DefaultCatalog(), worker, store, opts)
	if err != nil {
		t.Fatalf("NewRoster: %v", err)
	}
	return roster, &testsupportStore{t: t, store: store}
}

func TestAgentRunSendsOneRequest(t *testing.T) {
	worker := testsupport.NewFakeWorker("```json\n{\"summary\":\"Team concluded the meeting.\"}\n```")
	roster, store := newRoster(t, worker, agents.Options{Timeout: time.Second})
	ref := store.persist("Speaker A: Let's wrap up, thanks everyone")

	agent, ok := roster.Agent(agents.Summarizer)
	if !ok {
		t.Fatal("summarizer missing from roster")
	}
	output, err := agent.Run(context.Background(), ref)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if output != "```json\n{\"summary\":\"Team concluded the meeting.\"}\n```" {
		t.Fatalf("agent must return raw worker output, got %q", output)
	}

	requests := worker.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected exactly one worker call, got %d", len(requests))
	}
	req := requests[0]
	if !req.JSON {
		t.Fatal("summarizer should request JSON output")
	}
	spec, _ := roster.Catalog().Spec(agents.Summarizer)
	if req.System != spec.Instructions {
		t.Fatalf("unexpected system prompt %q", req.System)
	}
	if !strings.Contains(req.User, "Let's wrap up, thanks everyone") || !strings.Contains(req.User, string(ref)) {
		t.Fatalf("user prompt missing transcript: %q", req.User)
	}
}

func TestAgendaCheckerIncludesAgenda(t *testing.T) {
	worker := testsupport.NewFakeWorker("The meeting is running behind schedule on item 2.")
	roster, store := newRoster(t, worker, agents.Options{Agenda: testsupport.StaticAgenda("1. Budget (10m)\n2. Hiring (15m)")})
	ref := store.persist("Speaker A: We're 20 minutes over on item 2")

	agent, _ := roster.Agent(agents.AgendaChecker)
	if _, err := agent.Run(context.Background(), ref); err != nil {
		t.Fatalf("Run: %v", err)
	}
	req := worker.Requests()[0]
	if req.JSON {
		t.Fatal("agenda checker should not request JSON")
	}
	if !strings.Contains(req.User, "2. Hiring (15m)") {
		t.Fatalf("agenda missing from prompt: %q", req.User)
	}
}

func TestAgentRunWrapsWorkerFailure(t *testing.T) {
	worker := testsupport.NewFailingWorker(errors.New("http 500"))
	roster, store := newRoster(t, worker, agents.Options{})
	ref := store.persist("Speaker A: which option did we pick?")

	agent, _ := roster.Agent(agents.QuestionAsker)
	_, err := agent.Run(context.Background(), ref)
	var werr *services.WorkerInvocationError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WorkerInvocationError, got %T %v", err, err)
	}
	if werr.Capability != "question_asker" {
		t.Fatalf("unexpected capability %q", werr.Capability)
	}
	if len(worker.Requests()) != 1 {
		t.Fatalf("worker failures must not be retried, got %d calls", len(worker.Requests()))
	}
}

func TestAgentRunMissingTranscriptIsStorageError(t *testing.T) {
	worker := testsupport.NewFakeWorker("unused")
	roster, _ := newRoster(t, worker, agents.Options{})
	agent, _ := roster.Agent(agents.Summarizer)

	_, err := agent.Run(context.Background(), "20200101T000000.000000000Z")
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if errors.Is(err, services.ErrWorkerInvocation) {
		t.Fatal("read failure must not be reported as a worker failure")
	}
	if len(worker.Requests()) != 0 {
		t.Fatal("worker should not be called when the transcript is missing")
	}
}

func TestNewRejectsRouterSpec(t *testing.T) {
	cat := agents.DefaultCatalog()
	_, err := agents.New(cat.Router(), testsupport.NewFakeWorker("x"), nil, agents.Options{})
	if err == nil {
		t.Fatal("expected error building an agent for the router spec")
	}
}

func TestRosterDoesNotExposeRouter(t *testing.T) {
	roster, _ := newRoster(t, testsupport.NewFakeWorker("x"), agents.Options{})
	if _, ok := roster.Agent(agents.Router); ok {
		t.Fatal("router must not be a handoff target")
	}
}
