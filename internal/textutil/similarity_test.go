package textutil

import (
	"math"
	"reflect"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, NewFingerprint("quarterly budget")},
		{"b nil", NewFingerprint("quarterly budget"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	text := "Review the hiring plan for the platform team"
	got := CosineSimilarity(NewFingerprint(text), NewFingerprint(text))
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityDisjoint(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("budget forecast review"), NewFingerprint("office plants lunch"))
	if got != 0 {
		t.Errorf("CosineSimilarity(disjoint) = %v, want 0", got)
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	got := CosineSimilarity(NewFingerprint("budget forecast for Q3"), NewFingerprint("Q3 hiring budget"))
	if got <= 0 || got >= 1 {
		t.Errorf("CosineSimilarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestTokenizeDropsShortAndFillerWords(t *testing.T) {
	got := Tokenize("Speaker A: Yeah, so the Q3 budget is OK, let's review it.")
	want := []string{"budget", "review"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	if NewFingerprint("ok so we it") != nil {
		t.Fatal("expected nil fingerprint when no content tokens remain")
	}
}

func TestBestMatch(t *testing.T) {
	items := []*Fingerprint{
		NewFingerprint("Budget forecast"),
		NewFingerprint("Hiring plan for platform"),
		nil,
	}
	score, index := BestMatch(NewFingerprint("the platform hiring plan slipped"), items)
	if index != 1 || score <= 0 {
		t.Fatalf("BestMatch = (%v, %d), want index 1", score, index)
	}
	if _, index := BestMatch(NewFingerprint("lunch order"), items); index != -1 {
		t.Fatalf("expected no match, got index %d", index)
	}
}
