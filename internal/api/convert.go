package api

import (
	"huddle/internal/deps"
	"huddle/internal/preflight"
	"huddle/internal/transcript"
	"huddle/internal/triage"
)

// FromEntry converts a catalog record to its API representation.
func FromEntry(entry transcript.Entry) TranscriptEntry {
	dto := TranscriptEntry{
		Reference: entry.Reference.String(),
		Shape:     string(entry.Shape),
		Bytes:     entry.Bytes,
		Source:    entry.Source,
	}
	if !entry.CreatedAt.IsZero() {
		dto.CreatedAt = entry.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !entry.UpdatedAt.IsZero() {
		dto.UpdatedAt = entry.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromEntries converts catalog records, preserving order.
func FromEntries(entries []transcript.Entry) []TranscriptEntry {
	out := make([]TranscriptEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry))
	}
	return out
}

// FromOutcome converts a delivered triage outcome.
func FromOutcome(outcome triage.Outcome) TriageResponse {
	result := TriageResult{
		Kind:     outcome.Result.Kind.String(),
		Text:     outcome.Result.Text,
		Sentinel: outcome.Result.IsSentinel(),
	}
	if summary, ok := outcome.Summary(); ok {
		result.Summary = summary.Summary
	}
	if len(outcome.Result.Fields) > 0 {
		result.Fields = make(map[string]string, len(outcome.Result.Fields))
		for key, value := range outcome.Result.Fields {
			result.Fields[key] = value
		}
	}
	return TriageResponse{
		RequestID:  outcome.RequestID,
		Reference:  outcome.Reference.String(),
		Capability: outcome.Capability.String(),
		Signals: TriageSignals{
			Concluded:          outcome.Signals.Concluded,
			AgendaDrift:        outcome.Signals.AgendaDrift,
			NeedsClarification: outcome.Signals.NeedsClarification,
		},
		Result:    result,
		ElapsedMs: outcome.Elapsed.Milliseconds(),
	}
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromDependencies converts dependency statuses.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}
