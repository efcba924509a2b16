package api

import (
	"context"

	"huddle/internal/services"
	"huddle/internal/transcript"
)

// TranscriptReader abstracts the store interactions needed for API queries.
type TranscriptReader interface {
	List(ctx context.Context, limit int) ([]transcript.Entry, error)
	Describe(ctx context.Context, ref transcript.Reference) (*transcript.Entry, error)
	Read(ctx context.Context, ref transcript.Reference) (string, error)
}

// TranscriptService exposes read-only transcript operations returning API DTOs.
type TranscriptService struct {
	store TranscriptReader
}

// NewTranscriptService constructs a TranscriptService around the provided reader.
func NewTranscriptService(store TranscriptReader) *TranscriptService {
	if store == nil {
		return nil
	}
	return &TranscriptService{store: store}
}

// List returns up to limit transcripts, newest first. A limit <= 0 lists all.
func (s *TranscriptService) List(ctx context.Context, limit int) ([]TranscriptEntry, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	entries, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromEntries(entries), nil
}

// Describe fetches one transcript with its text. An unknown reference is a
// services.ErrNotFound error.
func (s *TranscriptService) Describe(ctx context.Context, raw string) (*TranscriptResponse, error) {
	if s == nil || s.store == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "describe transcript", raw, nil)
	}
	ref, err := transcript.ParseReference(raw)
	if err != nil {
		return nil, err
	}
	entry, err := s.store.Describe(ctx, ref)
	if err != nil {
		return nil, err
	}
	text, err := s.store.Read(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &TranscriptResponse{Entry: FromEntry(*entry), Text: text}, nil
}
