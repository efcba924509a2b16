package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"huddle/internal/logging"
	"huddle/internal/services"
	"huddle/internal/transcript"
)

// DefaultRetrievalBudget is the rune budget used when Options leaves it unset.
const DefaultRetrievalBudget = 12000

// TranscriptReader resolves a reference to transcript text.
type TranscriptReader interface {
	Read(ctx context.Context, ref transcript.Reference) (string, error)
}

// AgendaReader returns the current agenda text ("" when none is stored).
type AgendaReader interface {
	Read(ctx context.Context) (string, error)
}

// Options tune agent construction.
type Options struct {
	RetrievalBudget int
	// Timeout bounds each worker call. Zero leaves the caller's deadline alone.
	Timeout time.Duration
	Agenda  AgendaReader
	Logger  *slog.Logger
}

// Agent runs one capability against transcripts.
type Agent struct {
	spec        *Spec
	worker      Worker
	transcripts TranscriptReader
	agenda      AgendaReader
	budget      int
	timeout     time.Duration
	logger      *slog.Logger
}

// New builds an agent for a leaf spec.
func New(spec *Spec, worker Worker, transcripts TranscriptReader, opts Options) (*Agent, error) {
	if spec == nil {
		return nil, errors.New("agents: spec required")
	}
	if !spec.Capability.IsLeaf() {
		return nil, fmt.Errorf("agents: %s is not a leaf capability", spec.Capability)
	}
	if worker == nil {
		return nil, errors.New("agents: worker required")
	}
	if transcripts == nil {
		return nil, errors.New("agents: transcript reader required")
	}
	budget := opts.RetrievalBudget
	if budget <= 0 {
		budget = DefaultRetrievalBudget
	}
	return &Agent{
		spec:        spec,
		worker:      worker,
		transcripts: transcripts,
		agenda:      opts.Agenda,
		budget:      budget,
		timeout:     opts.Timeout,
		logger:      logging.NewComponentLogger(opts.Logger, "agents").With(logging.String(logging.FieldCapability, spec.Capability.String())),
	}, nil
}

// Capability returns the agent's capability.
func (a *Agent) Capability() Capability {
	return a.spec.Capability
}

// Spec returns the agent's spec.
func (a *Agent) Spec() *Spec {
	return a.spec
}

// Run reads the transcript for ref, retrieves the relevant turns, and makes
// one worker call. The returned text is the worker's raw output. Read
// failures surface as *services.StorageError; worker failures as
// *services.WorkerInvocationError. Nothing is retried.
func (a *Agent) Run(ctx context.Context, ref transcript.Reference) (string, error) {
	text, err := a.transcripts.Read(ctx, ref)
	if err != nil {
		return "", err
	}
	excerpt := Retrieve(text, a.spec.Capability, a.budget)

	var agendaText string
	if a.spec.Capability == AgendaChecker && a.agenda != nil {
		agendaText, err = a.agenda.Read(ctx)
		if err != nil {
			return "", err
		}
	}

	req := Request{
		Model:  a.spec.Model,
		System: a.spec.Instructions,
		User:   buildUserPrompt(a.spec.Capability, ref, excerpt, agendaText),
		JSON:   a.spec.Capability.Shape().Structured(),
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, a.logger)
	started := time.Now()
	output, err := a.worker.Complete(callCtx, req)
	if err != nil {
		logging.ErrorWithContext(logger, "worker call failed", "worker_invocation_failed",
			logging.String(logging.FieldReference, string(ref)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check worker backend credentials, model name, and timeout"),
		)
		return "", &services.WorkerInvocationError{Capability: a.spec.Capability.String(), Err: err}
	}
	logger.Debug("worker call completed",
		logging.String(logging.FieldEventType, "worker_invocation_completed"),
		logging.String(logging.FieldReference, string(ref)),
		logging.Int("excerpt_runes", len([]rune(excerpt))),
		logging.Int("output_bytes", len(output)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}

// Roster holds one agent per leaf capability.
type Roster struct {
	catalog *Catalog
	agents  map[Capability]*Agent
}

// NewRoster builds the leaf agents named by the catalog.
func NewRoster(catalog *Catalog, worker Worker, transcripts TranscriptReader, opts Options) (*Roster, error) {
	if catalog == nil {
		return nil, errors.New("agents: catalog required")
	}
	roster := &Roster{catalog: catalog, agents: make(map[Capability]*Agent, len(Leaves()))}
	for _, capability := range Leaves() {
		spec, ok := catalog.Spec(capability)
		if !ok {
			return nil, fmt.Errorf("agents: catalog has no %s spec", capability)
		}
		agent, err := New(spec, worker, transcripts, opts)
		if err != nil {
			return nil, err
		}
		roster.agents[capability] = agent
	}
	return roster, nil
}

// Catalog returns the catalog the roster was built from.
func (r *Roster) Catalog() *Catalog {
	return r.catalog
}

// Agent returns the agent for capability when the router may hand off to it.
func (r *Roster) Agent(capability Capability) (*Agent, bool) {
	if !r.catalog.CanHandOff(capability) {
		return nil, false
	}
	agent, ok := r.agents[capability]
	return agent, ok
}
