package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"huddle/internal/agents"
	"huddle/internal/logging"
	"huddle/internal/notifications"
	"huddle/internal/services"
	"huddle/internal/services/mailer"
	"huddle/internal/services/pdftext"
	"huddle/internal/transcript"
	"huddle/internal/triage"
)

// IngestAudio transcribes and persists audio, then publishes an ingest event.
// source labels where the audio came from (a file name or "api").
func (a *App) IngestAudio(ctx context.Context, audio []byte, source string) (transcript.Reference, error) {
	ref, err := a.Pipeline.IngestAudio(ctx, audio, transcript.WithSource(source))
	if err != nil {
		a.publishError(ctx, "ingest "+source, err)
		return "", err
	}
	a.publish(ctx, notifications.EventTranscriptIngested, notifications.Payload{
		"reference": ref.String(),
		"source":    source,
	})
	return ref, nil
}

// IngestText persists text as a new transcript without calling a backend.
func (a *App) IngestText(ctx context.Context, text, source string) (transcript.Reference, error) {
	ref, err := a.Pipeline.Persist(ctx, text, transcript.WithSource(source))
	if err != nil {
		return "", err
	}
	a.publish(ctx, notifications.EventTranscriptIngested, notifications.Payload{
		"reference": ref.String(),
		"source":    source,
	})
	return ref, nil
}

// RunTriage runs one triage invocation and publishes its outcome.
func (a *App) RunTriage(ctx context.Context, ref transcript.Reference) (triage.Outcome, error) {
	outcome, err := a.Triage.Triage(ctx, ref)
	if err != nil {
		var indecision *services.RoutingIndecisionError
		if errors.As(err, &indecision) {
			a.publish(ctx, notifications.EventRoutingIndecision, notifications.Payload{
				"reference": ref.String(),
				"reason":    indecision.Reason,
			})
		} else {
			a.publishError(ctx, "triage "+ref.String(), err)
		}
		return triage.Outcome{}, err
	}
	a.publish(ctx, notifications.EventTriageDelivered, notifications.Payload{
		"reference":  ref.String(),
		"capability": outcome.Capability.String(),
		"result":     outcome.Result.String(),
	})
	return outcome, nil
}

// EmailOutcome sends outcome to recipients, or to mail.default_to when none
// are given.
func (a *App) EmailOutcome(ctx context.Context, outcome triage.Outcome, recipients []string) error {
	if a.Mailer == nil {
		return services.Wrap(services.ErrConfiguration, "app", "email", "mail.host and mail.from are not set", nil)
	}
	if len(recipients) == 0 && strings.TrimSpace(a.Config.Mail.DefaultTo) != "" {
		recipients = strings.Split(a.Config.Mail.DefaultTo, ",")
	}
	return a.Mailer.Send(ctx, mailer.Message{
		To:       recipients,
		Subject:  fmt.Sprintf("Huddle %s: %s", outcome.Capability, outcome.Reference),
		Markdown: RenderOutcome(outcome),
	})
}

// ImportAgendaPDF extracts text from a PDF and stores it as the agenda.
func (a *App) ImportAgendaPDF(ctx context.Context, pdf []byte) (string, error) {
	text, err := a.PDF.Extract(ctx, pdf)
	switch {
	case errors.Is(err, pdftext.ErrNotPDF), errors.Is(err, pdftext.ErrNoText):
		return "", services.Wrap(services.ErrValidation, "agenda", "import pdf", "", err)
	case err != nil:
		return "", services.Wrap(services.ErrExternalTool, "agenda", "import pdf", a.Config.PDFToTextBinary(), err)
	}
	if err := a.Agenda.Write(ctx, text); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// RenderOutcome formats outcome as Markdown for email and terminal output.
func RenderOutcome(outcome triage.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", headingFor(outcome.Capability))
	fmt.Fprintf(&b, "Transcript `%s`\n\n", outcome.Reference)
	if summary, ok := outcome.Summary(); ok {
		b.WriteString(strings.TrimSpace(summary.Summary))
	} else if len(outcome.Result.Fields) > 1 {
		b.WriteString(bulletFields(outcome.Result.String()))
	} else {
		b.WriteString(outcome.Result.String())
	}
	b.WriteString("\n")
	return b.String()
}

func headingFor(capability agents.Capability) string {
	switch capability {
	case agents.Summarizer:
		return "Meeting summary"
	case agents.AgendaChecker:
		return "Agenda check"
	case agents.QuestionAsker:
		return "Clarifying questions"
	default:
		return "Triage result"
	}
}

func bulletFields(rendered string) string {
	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		lines[i] = "- " + line
	}
	return strings.Join(lines, "\n")
}

func (a *App) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := a.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

func (a *App) publishError(ctx context.Context, label string, err error) {
	a.publish(ctx, notifications.EventError, notifications.Payload{
		"context": label,
		"error":   err.Error(),
	})
}
