package agents

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var cueTerms = map[Capability][]string{
	Summarizer: {
		"decided", "decision", "agree", "agreed", "action item", "next step", "follow up",
		"follow-up", "owner", "deadline", "wrap up", "wrap-up", "conclude", "summary", "thanks",
	},
	AgendaChecker: {
		"agenda", "item", "minutes", "over time", "overrun", "running over", "behind",
		"schedule", "off topic", "off-topic", "tangent", "skip", "late", "time box", "timebox",
	},
	QuestionAsker: {
		"?", "unclear", "not sure", "confused", "which one", "what do you mean", "maybe",
		"depends", "clarify", "either", "disagree", "tbd",
	},
	Router: {
		"wrap up", "thanks", "agenda", "over", "behind", "?", "unclear", "decided",
	},
}

// Retrieve selects the transcript turns most relevant to capability within a
// budget of runes. Turns are scored by cue-term hits with recency breaking
// ties, chosen greedily, and returned in their original order. Text that
// already fits is returned trimmed but otherwise unchanged.
func Retrieve(text string, capability Capability, budget int) string {
	text = strings.TrimSpace(text)
	if budget <= 0 || utf8.RuneCountInString(text) <= budget {
		return text
	}

	lines := strings.Split(text, "\n")
	turns := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			turns = append(turns, trimmed)
		}
	}
	if len(turns) == 0 {
		return ""
	}

	type scored struct {
		index int
		score int
		size  int
	}
	ranked := make([]scored, len(turns))
	terms := cueTerms[capability]
	for i, turn := range turns {
		folded := cases.Fold().String(turn)
		score := 0
		for _, term := range terms {
			score += strings.Count(folded, term)
		}
		ranked[i] = scored{index: i, score: score, size: utf8.RuneCountInString(turn)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].index > ranked[b].index
	})

	remaining := budget
	chosen := make([]int, 0, len(turns))
	for _, turn := range ranked {
		cost := turn.size
		if len(chosen) > 0 {
			cost++
		}
		if cost > remaining {
			continue
		}
		chosen = append(chosen, turn.index)
		remaining -= cost
	}
	if len(chosen) == 0 {
		return truncateRunes(turns[ranked[0].index], budget)
	}

	sort.Ints(chosen)
	selected := make([]string, 0, len(chosen))
	for _, idx := range chosen {
		selected = append(selected, turns[idx])
	}
	return strings.Join(selected, "\n")
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}
