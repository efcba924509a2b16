package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	ErrStorage           = errors.New("storage error")
	ErrTranscription     = errors.New("transcription error")
	ErrWorkerInvocation  = errors.New("worker invocation error")
	ErrRoutingIndecision = errors.New("routing indecision")
)

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StorageError reports a durable read or write failure. It is fatal to the
// current call and never retried internally.
type StorageError struct {
	Op  string
	Ref string
	Err error
}

func (e *StorageError) Error() string {
	detail := buildDetail("storage", e.Op, e.Ref)
	if e.Err == nil {
		return detail
	}
	return detail + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// TranscriptionError reports a failed transcription backend call. Detail carries
// backend-provided text when the backend returned any.
type TranscriptionError struct {
	Detail string
	Err    error
}

func (e *TranscriptionError) Error() string {
	detail := strings.TrimSpace(e.Detail)
	if detail == "" {
		detail = "transcription backend failed"
	}
	if e.Err == nil {
		return "transcription: " + detail
	}
	return "transcription: " + detail + ": " + e.Err.Error()
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

func (e *TranscriptionError) Is(target error) bool { return target == ErrTranscription }

// WorkerInvocationError reports a failed language-model call made on behalf of
// one capability agent.
type WorkerInvocationError struct {
	Capability string
	Err        error
}

func (e *WorkerInvocationError) Error() string {
	capability := strings.TrimSpace(e.Capability)
	if capability == "" {
		capability = "unknown"
	}
	if e.Err == nil {
		return fmt.Sprintf("worker %s: invocation failed", capability)
	}
	return fmt.Sprintf("worker %s: %v", capability, e.Err)
}

func (e *WorkerInvocationError) Unwrap() error { return e.Err }

func (e *WorkerInvocationError) Is(target error) bool { return target == ErrWorkerInvocation }

// RoutingIndecisionError reports that the router's own assessment could not be
// turned into a handoff. Raw holds the assessment output when one was produced.
type RoutingIndecisionError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *RoutingIndecisionError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		reason = "no decision"
	}
	msg := "routing indecision: " + reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RoutingIndecisionError) Unwrap() error { return e.Err }

func (e *RoutingIndecisionError) Is(target error) bool { return target == ErrRoutingIndecision }

// HTTPStatus maps an error from the taxonomy above onto the status the API
// server reports.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRoutingIndecision):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTranscription), errors.Is(err, ErrWorkerInvocation), errors.Is(err, ErrExternalTool):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
