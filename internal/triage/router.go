package triage

import (
	"context"
	"errors"
	"fmt"

	"huddle/internal/agents"
	"huddle/internal/services"
)

// Decision is the router's choice for one invocation.
type Decision struct {
	Capability agents.Capability
	Signals    Signals
	Reason     string
}

// Router decides which leaf agent receives a transcript.
type Router struct {
	catalog  *agents.Catalog
	assessor Assessor
}

// NewRouter builds a router over the catalog's dispatch table.
func NewRouter(catalog *agents.Catalog, assessor Assessor) (*Router, error) {
	if catalog == nil {
		return nil, errors.New("triage: catalog required")
	}
	if assessor == nil {
		return nil, errors.New("triage: assessor required")
	}
	return &Router{catalog: catalog, assessor: assessor}, nil
}

// Decide assesses text and selects exactly one handoff target.
func (r *Router) Decide(ctx context.Context, text string) (Decision, error) {
	signals, err := r.assessor.Assess(ctx, text)
	if err != nil {
		return Decision{}, err
	}
	target := Select(signals)
	if !r.catalog.CanHandOff(target) {
		return Decision{}, &services.RoutingIndecisionError{
			Reason: fmt.Sprintf("policy selected %s, which is not in the router's dispatch table", target),
		}
	}
	return Decision{Capability: target, Signals: signals, Reason: policyReason(signals)}, nil
}
