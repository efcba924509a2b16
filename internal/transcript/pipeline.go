package transcript

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"huddle/internal/logging"
	"huddle/internal/services"
)

// Backend performs the remote transcription call and returns the raw response.
type Backend interface {
	Transcribe(ctx context.Context, audio []byte) ([]byte, error)
}

// Persister stores transcript text under a new reference.
type Persister interface {
	Persist(ctx context.Context, text string, opts ...PersistOption) (Reference, error)
}

// detailer is implemented by backend errors that carry response text.
type detailer interface {
	Detail() string
}

// Pipeline turns recorded audio into a persisted transcript reference.
type Pipeline struct {
	backend Backend
	store   Persister
	timeout time.Duration
	logger  *slog.Logger
}

// NewPipeline wires a backend to a store. A zero timeout disables the
// per-call deadline.
func NewPipeline(backend Backend, store Persister, timeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		backend: backend,
		store:   store,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "transcript"),
	}
}

// IngestAudio transcribes audio, extracts its text, and persists it. Backend
// failures return *services.TranscriptionError; persistence failures return
// *services.StorageError.
func (p *Pipeline) IngestAudio(ctx context.Context, audio []byte, opts ...PersistOption) (Reference, error) {
	if len(audio) == 0 {
		return "", services.Wrap(services.ErrValidation, "transcript", "ingest", "audio payload is empty", nil)
	}
	if p.backend == nil {
		return "", services.Wrap(services.ErrConfiguration, "transcript", "ingest", "no transcription backend configured", nil)
	}
	logger := logging.WithContext(ctx, p.logger)

	raw, err := p.transcribe(ctx, audio)
	if err != nil {
		logging.ErrorWithContext(logger, "transcription failed", "transcription_failed",
			logging.Int("audio_bytes", len(audio)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check transcription backend credentials and reachability"),
		)
		return "", err
	}

	text, shape, err := Extract(raw)
	if err != nil {
		text = SerializeRaw(raw)
		shape = ShapeRaw
		logging.WarnWithContext(logger, "transcription response shape not recognized; persisting raw response", "transcript_shape_unrecognized",
			logging.Int("response_bytes", len(raw)),
			logging.String(logging.FieldErrorHint, "confirm transcription.response_format matches the backend"),
			logging.String(logging.FieldImpact, "transcript stored as serialized backend response"),
		)
	}

	ref, err := p.persist(ctx, text, append([]PersistOption{WithShape(shape)}, opts...)...)
	if err != nil {
		return "", err
	}
	logger.Info("transcript ingested",
		logging.String(logging.FieldEventType, "transcript_ingested"),
		logging.String(logging.FieldReference, string(ref)),
		logging.String("shape", string(shape)),
		logging.Int("text_bytes", len(text)),
	)
	return ref, nil
}

// Persist stores already-transcribed text.
func (p *Pipeline) Persist(ctx context.Context, text string, opts ...PersistOption) (Reference, error) {
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "transcript", "persist", "transcript text is empty", nil)
	}
	ref, err := p.persist(ctx, text, append([]PersistOption{WithShape(ShapeText)}, opts...)...)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, p.logger).Info("transcript stored",
		logging.String(logging.FieldEventType, "transcript_stored"),
		logging.String(logging.FieldReference, string(ref)),
		logging.Int("text_bytes", len(text)),
	)
	return ref, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audio []byte) ([]byte, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	raw, err := p.backend.Transcribe(callCtx, audio)
	if err != nil {
		var existing *services.TranscriptionError
		if errors.As(err, &existing) {
			return nil, err
		}
		terr := &services.TranscriptionError{Err: err}
		var withDetail detailer
		if errors.As(err, &withDetail) {
			terr.Detail = withDetail.Detail()
		}
		return nil, terr
	}
	return raw, nil
}

func (p *Pipeline) persist(ctx context.Context, text string, opts ...PersistOption) (Reference, error) {
	if p.store == nil {
		return "", &services.StorageError{Op: "persist", Err: errors.New("no store configured")}
	}
	ref, err := p.store.Persist(ctx, text, opts...)
	if err != nil {
		var storageErr *services.StorageError
		if errors.As(err, &storageErr) {
			return "", err
		}
		return "", &services.StorageError{Op: "persist", Err: err}
	}
	return ref, nil
}
