package triage_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"huddle/internal/agents"
	"huddle/internal/services"
	"huddle/internal/testsupport"
	"huddle/internal/triage"
)

func TestLLMAssessorParsesSignals(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   triage.Signals
	}{
		{
			name:   "plain object",
			output: `{"concluded": true, "agenda_drift": false, "needs_clarification": false, "reason": "closing remarks"}`,
			want:   triage.Signals{Concluded: true, Reason: "closing remarks"},
		},
		{
			name:   "fenced object",
			output: "```json\n{\"concluded\": false, \"agenda_drift\": true, \"needs_clarification\": false}\n```",
			want:   triage.Signals{AgendaDrift: true},
		},
		{
			name:   "object inside prose",
			output: "Here is my assessment: {\"concluded\": false, \"agenda_drift\": false, \"needs_clarification\": true} hope that helps",
			want:   triage.Signals{NeedsClarification: true},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			worker := testsupport.NewFakeWorker(tc.output)
			assessor := triage.NewLLMAssessor(worker, agents.DefaultCatalog().Router(), 0, time.Second)
			got, err := assessor.Assess(context.Background(), "Speaker A: hello")
			if err != nil {
				t.Fatalf("Assess: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestLLMAssessorSendsRetrievedExcerpt(t *testing.T) {
	worker := testsupport.NewFakeWorker(`{"concluded": false, "agenda_drift": false, "needs_clarification": false}`)
	assessor := triage.NewLLMAssessor(worker, agents.DefaultCatalog().Router(), 0, time.Second)
	if _, err := assessor.Assess(context.Background(), "Speaker A: we are over time on budget"); err != nil {
		t.Fatalf("Assess: %v", err)
	}
	requests := worker.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one call, got %d", len(requests))
	}
	if !strings.Contains(requests[0].User, "we are over time on budget") {
		t.Fatalf("excerpt missing from prompt: %q", requests[0].User)
	}
}

func TestLLMAssessorRejectsIncompleteAssessments(t *testing.T) {
	outputs := map[string]string{
		"prose":       "The meeting seems to be wrapping up.",
		"missing key": `{"concluded": false, "needs_clarification": true}`,
		"string bool": `{"concluded": "false", "agenda_drift": false, "needs_clarification": true}`,
		"array":       `[true, false, false]`,
	}
	for name, output := range outputs {
		t.Run(name, func(t *testing.T) {
			worker := testsupport.NewFakeWorker(output)
			assessor := triage.NewLLMAssessor(worker, agents.DefaultCatalog().Router(), 0, time.Second)
			_, err := assessor.Assess(context.Background(), "Speaker A: hello")
			var indecision *services.RoutingIndecisionError
			if !errors.As(err, &indecision) {
				t.Fatalf("expected RoutingIndecisionError, got %v", err)
			}
			if indecision.Raw != output || indecision.Reason == "" {
				t.Fatalf("unexpected indecision %+v", indecision)
			}
		})
	}
}

func TestLLMAssessorHonoursTimeout(t *testing.T) {
	worker := testsupport.NewFakeWorker("{}")
	assessor := triage.NewLLMAssessor(worker, agents.DefaultCatalog().Router(), 0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := assessor.Assess(ctx, "Speaker A: hello")
	if !errors.Is(err, services.ErrWorkerInvocation) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled worker invocation, got %v", err)
	}
}

func TestRouterDecideRecordsReason(t *testing.T) {
	router, err := triage.NewRouter(agents.DefaultCatalog(), triage.KeywordAssessor{})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	decision, err := router.Decide(context.Background(), "Speaker A: okay, let's wrap up")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.Capability != agents.Summarizer {
		t.Fatalf("expected summarizer, got %s", decision.Capability)
	}
	if !strings.HasPrefix(decision.Reason, "conversation concluded") || !strings.Contains(decision.Reason, "wrap up") {
		t.Fatalf("unexpected reason %q", decision.Reason)
	}
}

func TestNewRouterRequiresAssessor(t *testing.T) {
	if _, err := triage.NewRouter(agents.DefaultCatalog(), nil); err == nil {
		t.Fatal("expected error for missing assessor")
	}
}
