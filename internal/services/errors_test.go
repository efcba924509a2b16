package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"huddle/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "pdftext", "extract", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"pdftext", "extract", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestTypedErrorsMatchMarkers(t *testing.T) {
	cause := errors.New("disk full")
	cases := []struct {
		name   string
		err    error
		marker error
		status int
	}{
		{"storage", &services.StorageError{Op: "persist", Err: cause}, services.ErrStorage, http.StatusServiceUnavailable},
		{"transcription", &services.TranscriptionError{Detail: "bad audio", Err: cause}, services.ErrTranscription, http.StatusBadGateway},
		{"worker", &services.WorkerInvocationError{Capability: "summarizer", Err: cause}, services.ErrWorkerInvocation, http.StatusBadGateway},
		{"indecision", &services.RoutingIndecisionError{Reason: "missing signals", Err: cause}, services.ErrRoutingIndecision, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.marker) {
				t.Fatalf("expected %v to match marker %v", tc.err, tc.marker)
			}
			if !errors.Is(tc.err, cause) {
				t.Fatalf("expected %v to unwrap to cause", tc.err)
			}
			if status := services.HTTPStatus(tc.err); status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
		})
	}
}

func TestTypedErrorsStayDistinct(t *testing.T) {
	storage := &services.StorageError{Op: "persist"}
	if errors.Is(storage, services.ErrTranscription) {
		t.Fatal("storage error must not match transcription marker")
	}
	worker := &services.WorkerInvocationError{Capability: "agenda_checker"}
	if errors.Is(worker, services.ErrRoutingIndecision) {
		t.Fatal("worker error must not match indecision marker")
	}
	if !strings.Contains(worker.Error(), "agenda_checker") {
		t.Fatalf("expected capability in message, got %q", worker.Error())
	}
}

func TestTranscriptionErrorGenericMessage(t *testing.T) {
	err := &services.TranscriptionError{}
	if got := err.Error(); got != "transcription: transcription backend failed" {
		t.Fatalf("unexpected message %q", got)
	}
}
