package agents

import (
	"fmt"
	"strings"

	"huddle/internal/normalize"
)

// Capability is the closed set of agent roles.
type Capability int

const (
	CapabilityUnknown Capability = iota
	Summarizer
	AgendaChecker
	QuestionAsker
	// Router is the triage router's own role. It is never a handoff target.
	Router
)

var capabilityNames = map[Capability]string{
	Summarizer:    "summarizer",
	AgendaChecker: "agenda_checker",
	QuestionAsker: "question_asker",
	Router:        "router",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the capability by name.
func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a capability name.
func (c *Capability) UnmarshalText(text []byte) error {
	parsed, err := ParseCapability(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCapability accepts snake, kebab, or space separated names in any case.
func ParseCapability(value string) (Capability, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for capability, name := range capabilityNames {
		if name == key {
			return capability, nil
		}
	}
	return CapabilityUnknown, fmt.Errorf("unknown capability %q", value)
}

// Leaves returns the handoff targets in policy order.
func Leaves() []Capability {
	return []Capability{Summarizer, AgendaChecker, QuestionAsker}
}

// IsLeaf reports whether c is a valid handoff target.
func (c Capability) IsLeaf() bool {
	switch c {
	case Summarizer, AgendaChecker, QuestionAsker:
		return true
	default:
		return false
	}
}

// Shape returns the output shape the normalizer expects from c.
func (c Capability) Shape() normalize.Shape {
	if c == Summarizer {
		return normalize.ShapeSummary
	}
	return normalize.ShapeNarrative
}

// Summary is the structured payload the summarizer produces.
type Summary struct {
	Summary string `json:"summary"`
}
