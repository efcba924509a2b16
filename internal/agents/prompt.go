package agents

import (
	"strings"

	"huddle/internal/transcript"
)

// buildUserPrompt assembles the user message for one agent call.
func buildUserPrompt(capability Capability, ref transcript.Reference, excerpt, agendaText string) string {
	var b strings.Builder
	b.WriteString("Transcript reference: ")
	b.WriteString(string(ref))
	b.WriteString("\n\nTranscript excerpt:\n")
	if strings.TrimSpace(excerpt) == "" {
		b.WriteString("(empty transcript)")
	} else {
		b.WriteString(excerpt)
	}
	if capability == AgendaChecker {
		b.WriteString("\n\nAgenda:\n")
		if agenda := strings.TrimSpace(agendaText); agenda != "" {
			b.WriteString(agenda)
		} else {
			b.WriteString("(no agenda on file; judge drift from the conversation alone)")
		}
	}
	return b.String()
}
