package triage

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"huddle/internal/agents"
	"huddle/internal/logging"
	"huddle/internal/normalize"
	"huddle/internal/services"
	"huddle/internal/transcript"
)

// Invocation tracks one triage call. It lives only for the duration of the
// call.
type Invocation struct {
	RequestID  string
	Reference  transcript.Reference
	State      State
	Capability agents.Capability
	StartedAt  time.Time
}

// Outcome is what a caller receives from a delivered invocation.
type Outcome struct {
	RequestID  string               `json:"request_id"`
	Reference  transcript.Reference `json:"reference"`
	Capability agents.Capability    `json:"capability"`
	Signals    Signals              `json:"signals"`
	Result     normalize.Result     `json:"result"`
	Elapsed    time.Duration        `json:"elapsed_ns"`
}

// Summary decodes a structured summarizer result. ok is false for narrative
// results and for other capabilities.
func (o Outcome) Summary() (summary agents.Summary, ok bool) {
	if o.Capability != agents.Summarizer || o.Result.Kind != normalize.KindStructured {
		return agents.Summary{}, false
	}
	if err := o.Result.Decode(&summary); err != nil {
		return agents.Summary{}, false
	}
	return summary, strings.TrimSpace(summary.Summary) != ""
}

// Service performs triage invocations.
type Service struct {
	transcripts agents.TranscriptReader
	router      *Router
	roster      *agents.Roster
	logger      *slog.Logger
}

// NewService wires the transcript reader, router, and leaf agents.
func NewService(transcripts agents.TranscriptReader, router *Router, roster *agents.Roster, logger *slog.Logger) (*Service, error) {
	if transcripts == nil {
		return nil, errors.New("triage: transcript reader required")
	}
	if router == nil || roster == nil {
		return nil, errors.New("triage: router and roster required")
	}
	return &Service{
		transcripts: transcripts,
		router:      router,
		roster:      roster,
		logger:      logging.NewComponentLogger(logger, "triage"),
	}, nil
}

// Triage reads the transcript for ref, hands it to exactly one agent, and
// returns the agent's normalized output. Worker failures are returned as-is;
// an undecidable assessment is a *services.RoutingIndecisionError.
func (s *Service) Triage(ctx context.Context, ref transcript.Reference) (Outcome, error) {
	inv := Invocation{
		RequestID: requestID(ctx),
		Reference: ref,
		State:     StateDispatching,
		StartedAt: time.Now(),
	}
	ctx = services.WithRequestID(ctx, inv.RequestID)
	ctx = services.WithReference(ctx, string(ref))
	logger := logging.WithContext(ctx, s.logger)

	if err := ref.Validate(); err != nil {
		return Outcome{}, err
	}
	text, err := s.transcripts.Read(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}

	decision, err := s.router.Decide(ctx, text)
	if err != nil {
		var indecision *services.RoutingIndecisionError
		if errors.As(err, &indecision) {
			logging.WarnWithContext(logger, "router could not decide", "routing_indecision",
				logging.String("decision_reason", indecision.Reason),
				logging.String("raw_snippet", snippet(indecision.Raw)),
				logging.String(logging.FieldErrorHint, "inspect the router model output or switch triage.assessor to keyword"),
				logging.String(logging.FieldImpact, "no agent was invoked"),
			)
		}
		return Outcome{}, err
	}

	agent, ok := s.roster.Agent(decision.Capability)
	if !ok {
		return Outcome{}, &services.RoutingIndecisionError{Reason: "no agent registered for " + decision.Capability.String()}
	}
	inv.Capability = decision.Capability
	logger.Info("triage handoff",
		logging.Args(append(logging.DecisionAttrs("triage_handoff", decision.Capability.String(), decision.Reason),
			logging.String(logging.FieldEventType, "triage_handoff"),
			logging.Bool("concluded", decision.Signals.Concluded),
			logging.Bool("agenda_drift", decision.Signals.AgendaDrift),
			logging.Bool("needs_clarification", decision.Signals.NeedsClarification),
		)...)...,
	)

	agentCtx := services.WithCapability(ctx, decision.Capability.String())
	raw, err := agent.Run(agentCtx, ref)
	if err != nil {
		return Outcome{}, err
	}

	result := normalize.Normalize(raw, decision.Capability.Shape())
	inv.State = StateDelivered
	elapsed := time.Since(inv.StartedAt)
	logger.Info("triage delivered",
		logging.String(logging.FieldEventType, "triage_delivered"),
		logging.String(logging.FieldCapability, inv.Capability.String()),
		logging.String("state", inv.State.String()),
		logging.String("result_kind", result.Kind.String()),
		logging.Bool("sentinel", result.IsSentinel()),
		logging.Duration("elapsed", elapsed),
	)
	return Outcome{
		RequestID:  inv.RequestID,
		Reference:  ref,
		Capability: inv.Capability,
		Signals:    decision.Signals,
		Result:     result,
		Elapsed:    elapsed,
	}, nil
}

func requestID(ctx context.Context) string {
	if id, ok := services.RequestIDFromContext(ctx); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

func snippet(raw string) string {
	runes := []rune(raw)
	if len(runes) > 160 {
		return string(runes[:160]) + "..."
	}
	return raw
}
