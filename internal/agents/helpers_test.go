package agents_test

import (
	"testing"

	"huddle/internal/testsupport"
	"huddle/internal/transcript"
)

type testsupportStore struct {
	t     *testing.T
	store *transcript.Store
}

func (s *testsupportStore) persist(text string) transcript.Reference {
	s.t.Helper()
	return testsupport.MustPersist(s.t, s.store, text)
}
