package triage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"huddle/internal/agents"
	"huddle/internal/normalize"
	"huddle/internal/services"
	"huddle/internal/textutil"
)

// Assessor produces routing signals for transcript text.
type Assessor interface {
	Assess(ctx context.Context, text string) (Signals, error)
}

// LLMAssessor asks the worker, using the router spec's instructions, for a
// JSON object with the three signal booleans.
type LLMAssessor struct {
	worker  agents.Worker
	spec    *agents.Spec
	budget  int
	timeout time.Duration
}

// NewLLMAssessor builds an assessor around the router spec.
func NewLLMAssessor(worker agents.Worker, spec *agents.Spec, budget int, timeout time.Duration) *LLMAssessor {
	if budget <= 0 {
		budget = agents.DefaultRetrievalBudget
	}
	return &LLMAssessor{worker: worker, spec: spec, budget: budget, timeout: timeout}
}

var signalKeys = []string{"concluded", "agenda_drift", "needs_clarification"}

// Assess makes one worker call. A failed call is a *services.WorkerInvocationError
// for the router; output that does not carry all three booleans is a
// *services.RoutingIndecisionError holding the raw text.
func (a *LLMAssessor) Assess(ctx context.Context, text string) (Signals, error) {
	req := agents.Request{
		Model:  a.spec.Model,
		System: a.spec.Instructions,
		User:   "Transcript excerpt:\n" + agents.Retrieve(text, agents.Router, a.budget),
		JSON:   true,
	}
	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	raw, err := a.worker.Complete(callCtx, req)
	if err != nil {
		return Signals{}, &services.WorkerInvocationError{Capability: agents.Router.String(), Err: err}
	}
	return parseSignals(raw)
}

func parseSignals(raw string) (Signals, error) {
	object, ok := normalize.DecodeObject(raw)
	if !ok {
		return Signals{}, &services.RoutingIndecisionError{Reason: "assessment is not a JSON object", Raw: raw}
	}
	values := make(map[string]bool, len(signalKeys))
	for _, key := range signalKeys {
		value, present := object[key]
		if !present {
			return Signals{}, &services.RoutingIndecisionError{Reason: fmt.Sprintf("assessment missing %q", key), Raw: raw}
		}
		flag, isBool := value.(bool)
		if !isBool {
			return Signals{}, &services.RoutingIndecisionError{Reason: fmt.Sprintf("assessment %q is not a boolean", key), Raw: raw}
		}
		values[key] = flag
	}
	signals := Signals{
		Concluded:          values["concluded"],
		AgendaDrift:        values["agenda_drift"],
		NeedsClarification: values["needs_clarification"],
	}
	if reason, ok := object["reason"].(string); ok {
		signals.Reason = strings.TrimSpace(reason)
	}
	return signals, nil
}

// KeywordAssessor derives signals from lexical cues. It is deterministic and
// needs no worker, so it serves offline use and tests.
type KeywordAssessor struct {
	// Agenda, when set, also flags drift when the closing turns share no
	// content vocabulary with any agenda item.
	Agenda agents.AgendaReader
}

const (
	// tailTurns is how many closing turns are searched for conclusion cues.
	tailTurns = 3
	// minTailTokens keeps short closing exchanges from reading as drift.
	minTailTokens = 6
	// agendaOverlapFloor is the similarity below which the tail counts as off-agenda.
	agendaOverlapFloor = 0.05
)

var (
	concludedCues = []string{
		"wrap up", "wrap-up", "wrapping up", "thanks everyone", "thank you everyone",
		"thanks all", "thank you all", "that's all", "that's it for today", "see you",
		"meeting adjourned", "let's end", "let's call it", "good meeting",
	}
	driftCues = []string{
		"minutes over", "over time", "overtime", "running over", "ran over", "overrun",
		"behind schedule", "running late", "running behind", "off topic", "off-topic",
		"out of time", "over on item", "past the time",
	}
	clarifyCues = []string{
		"?", "unclear", "not sure", "confused", "what do you mean", "which one",
		"does that mean", "tbd", "to be decided",
	}
	overrunPattern = regexp.MustCompile(`\b\d+\s*(?:minutes?|mins?|hours?)\s+(?:over|behind|late)\b`)
)

// Assess implements Assessor.
func (a KeywordAssessor) Assess(ctx context.Context, text string) (Signals, error) {
	folded := cases.Fold().String(text)
	tail := lastTurns(folded, tailTurns)

	var signals Signals
	var reasons []string
	if cue, ok := firstCue(tail, concludedCues); ok {
		signals.Concluded = true
		reasons = append(reasons, fmt.Sprintf("closing cue %q", cue))
	}
	if cue, ok := firstCue(folded, driftCues); ok {
		signals.AgendaDrift = true
		reasons = append(reasons, fmt.Sprintf("drift cue %q", cue))
	} else if match := overrunPattern.FindString(folded); match != "" {
		signals.AgendaDrift = true
		reasons = append(reasons, fmt.Sprintf("drift cue %q", match))
	} else if a.Agenda != nil {
		drifted, err := offAgenda(ctx, a.Agenda, tail)
		if err != nil {
			return Signals{}, err
		}
		if drifted {
			signals.AgendaDrift = true
			reasons = append(reasons, "closing turns match no agenda item")
		}
	}
	if cue, ok := firstCue(tail, clarifyCues); ok {
		signals.NeedsClarification = true
		reasons = append(reasons, fmt.Sprintf("open question cue %q", cue))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no keyword cues matched")
	}
	signals.Reason = strings.Join(reasons, "; ")
	return signals, nil
}

// offAgenda reports whether tail has enough content to judge and overlaps no
// agenda line. An empty agenda never counts as drift.
func offAgenda(ctx context.Context, reader agents.AgendaReader, tail string) (bool, error) {
	agendaText, err := reader.Read(ctx)
	if err != nil {
		return false, err
	}
	var items []*textutil.Fingerprint
	for _, line := range strings.Split(agendaText, "\n") {
		if fp := textutil.NewFingerprint(line); fp != nil {
			items = append(items, fp)
		}
	}
	if len(items) == 0 {
		return false, nil
	}
	tailPrint := textutil.NewFingerprint(tail)
	if tailPrint.TokenCount() < minTailTokens {
		return false, nil
	}
	score, _ := textutil.BestMatch(tailPrint, items)
	return score < agendaOverlapFloor, nil
}

func firstCue(text string, cues []string) (string, bool) {
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return cue, true
		}
	}
	return "", false
}

func lastTurns(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
