package textutil

import (
	"math"
	"regexp"
	"strings"
)

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// stopWords are frequent in any conversation and say nothing about its topic.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "this": {}, "for": {}, "with": {}, "you": {},
	"are": {}, "was": {}, "have": {}, "but": {}, "not": {}, "just": {}, "what": {},
	"yeah": {}, "okay": {}, "can": {}, "will": {}, "from": {}, "our": {}, "let": {},
	"its": {}, "about": {}, "there": {}, "they": {}, "then": {}, "all": {}, "think": {},
	"speaker": {}, "going": {}, "know": {}, "right": {}, "were": {}, "has": {},
}

// Fingerprint is a term-frequency vector.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a fingerprint from text. It returns nil if the text
// produces no tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

// Tokenize splits text into lowercase content tokens.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < 3 {
			continue
		}
		if _, skip := stopWords[token]; skip {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TokenCount returns the number of unique tokens in the fingerprint.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}
