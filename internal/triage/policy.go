package triage

import (
	"fmt"

	"huddle/internal/agents"
)

// Signals are the router's observations about one transcript. They are not
// mutually exclusive; Select resolves them by priority.
type Signals struct {
	Concluded          bool   `json:"concluded"`
	AgendaDrift        bool   `json:"agenda_drift"`
	NeedsClarification bool   `json:"needs_clarification"`
	Reason             string `json:"reason,omitempty"`
}

// Select applies the handoff policy: a concluded conversation is summarized;
// otherwise agenda drift goes to the agenda checker; everything else gets a
// clarifying question. Every Signals value maps to exactly one leaf.
func Select(s Signals) agents.Capability {
	switch {
	case s.Concluded:
		return agents.Summarizer
	case s.AgendaDrift:
		return agents.AgendaChecker
	default:
		return agents.QuestionAsker
	}
}

// policyReason describes which rule fired.
func policyReason(s Signals) string {
	var rule string
	switch Select(s) {
	case agents.Summarizer:
		rule = "conversation concluded"
	case agents.AgendaChecker:
		rule = "agenda drift detected"
	default:
		if s.NeedsClarification {
			rule = "clarification needed"
		} else {
			rule = "no conclusion or drift; asking for clarification"
		}
	}
	if s.Reason == "" {
		return rule
	}
	return fmt.Sprintf("%s: %s", rule, s.Reason)
}

// State is the lifecycle of one triage invocation.
type State int

const (
	StateDispatching State = iota
	StateDelivered
)

func (s State) String() string {
	switch s {
	case StateDispatching:
		return "dispatching"
	case StateDelivered:
		return "delivered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
