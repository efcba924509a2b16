package testsupport

import (
	"context"
	"testing"

	"huddle/internal/config"
	"huddle/internal/transcript"
)

// MustOpenStore opens a transcript.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...transcript.Option) *transcript.Store {
	t.Helper()

	store, err := transcript.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("transcript.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustPersist stores text and returns its reference.
func MustPersist(t testing.TB, store *transcript.Store, text string) transcript.Reference {
	t.Helper()

	ref, err := store.Persist(context.Background(), text)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	return ref
}
