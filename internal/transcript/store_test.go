package transcript_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"huddle/internal/services"
	"huddle/internal/testsupport"
	"huddle/internal/transcript"
)

func TestPersistReadDescribe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixed := time.Date(2026, 10, 18, 15, 30, 45, 0, time.UTC)
	store := testsupport.MustOpenStore(t, cfg, transcript.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	ref, err := store.Persist(ctx, "Speaker A: hello", transcript.WithShape(transcript.ShapeSegmented), transcript.WithSource("standup.wav"))
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if ref != "20261018T153045.000000000Z" {
		t.Fatalf("unexpected reference %q", ref)
	}
	text, err := store.Read(ctx, ref)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if text != "Speaker A: hello" {
		t.Fatalf("unexpected text %q", text)
	}

	entry, err := store.Describe(ctx, ref)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if entry.Shape != transcript.ShapeSegmented || entry.Source != "standup.wav" || entry.Bytes != int64(len(text)) {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Path != filepath.Join(cfg.Paths.TranscriptsDir, string(ref)+".txt") {
		t.Fatalf("unexpected path %q", entry.Path)
	}
	if !entry.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected created_at %s", entry.CreatedAt)
	}
}

func TestPersistDoesNotCollideWithinProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store := testsupport.MustOpenStore(t, cfg, transcript.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	const workers = 16
	refs := make(chan transcript.Reference, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ref, err := store.Persist(ctx, "meeting notes")
			if err != nil {
				t.Errorf("Persist: %v", err)
				return
			}
			refs <- ref
		}()
	}
	wg.Wait()
	close(refs)

	seen := make(map[transcript.Reference]struct{})
	for ref := range refs {
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = struct{}{}
	}
	if len(seen) != workers {
		t.Fatalf("expected %d references, got %d", workers, len(seen))
	}
}

func TestPersistSkipsExistingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store := testsupport.MustOpenStore(t, cfg, transcript.WithClock(func() time.Time { return fixed }))

	taken := filepath.Join(cfg.Paths.TranscriptsDir, "20261018T090000.000000000Z.txt")
	if err := os.WriteFile(taken, []byte("from another process"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	ref, err := store.Persist(context.Background(), "mine")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if ref != "20261018T090000.000000001Z" {
		t.Fatalf("expected bumped reference, got %q", ref)
	}
	data, _ := os.ReadFile(taken)
	if string(data) != "from another process" {
		t.Fatalf("existing file was modified: %q", data)
	}
}

func TestReadErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, err := store.Read(ctx, "../../etc/passwd")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = store.Read(ctx, "20200101T000000.000000000Z")
	if !errors.Is(err, services.ErrStorage) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected storage not-found error, got %v", err)
	}
	if status := services.HTTPStatus(err); status != 404 {
		t.Fatalf("expected 404 for missing transcript, got %d", status)
	}
}

func TestAppendExtendsTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ref := testsupport.MustPersist(t, store, "Speaker A: first")
	if err := store.Append(ctx, ref, "Speaker B: second"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	text, err := store.Read(ctx, ref)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if text != "Speaker A: first\nSpeaker B: second" {
		t.Fatalf("unexpected text %q", text)
	}
	entry, err := store.Describe(ctx, ref)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if entry.Bytes != int64(len(text)) {
		t.Fatalf("catalog bytes %d, want %d", entry.Bytes, len(text))
	}

	if err := store.Append(ctx, "20200101T000000.000000000Z", "x"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found appending to missing transcript, got %v", err)
	}
}

func TestListNewestFirstAndReindex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	current := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store := testsupport.MustOpenStore(t, cfg, transcript.WithClock(func() time.Time {
		current = current.Add(time.Minute)
		return current
	}))
	ctx := context.Background()

	var refs []transcript.Reference
	for _, text := range []string{"one", "two", "three"} {
		refs = append(refs, testsupport.MustPersist(t, store, text))
	}

	entries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Reference != refs[2] || entries[1].Reference != refs[1] {
		t.Fatalf("unexpected list order: %+v", entries)
	}

	if err := os.Remove(filepath.Join(cfg.Paths.TranscriptsDir, string(refs[0])+".txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	manual := "20261018T120000.000000000Z"
	if err := os.WriteFile(filepath.Join(cfg.Paths.TranscriptsDir, manual+".txt"), []byte("dropped in by hand"), 0o644); err != nil {
		t.Fatalf("write manual transcript: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Paths.TranscriptsDir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	indexed, err := store.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if indexed != 3 {
		t.Fatalf("expected 3 indexed transcripts, got %d", indexed)
	}
	entries, err = store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, entry := range entries {
		got = append(got, string(entry.Reference))
	}
	want := []string{manual, string(refs[2]), string(refs[1])}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected references after reindex: %v", got)
	}
}
