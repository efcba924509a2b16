package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"huddle/internal/agenda"
	"huddle/internal/agents"
	"huddle/internal/config"
	"huddle/internal/deps"
	"huddle/internal/logging"
	"huddle/internal/notifications"
	"huddle/internal/services"
	"huddle/internal/services/gemini"
	"huddle/internal/services/llm"
	"huddle/internal/services/mailer"
	"huddle/internal/services/pdftext"
	"huddle/internal/services/transcribeapi"
	"huddle/internal/services/whisperx"
	"huddle/internal/transcript"
	"huddle/internal/triage"
)

// App holds the wired components for one process.
type App struct {
	Config      *config.Config
	Transcripts *transcript.Store
	Agenda      *agenda.Store
	Pipeline    *transcript.Pipeline
	Triage      *triage.Service
	Catalog     *agents.Catalog
	Notifier    notifications.Service
	Mailer      *mailer.Mailer
	PDF         *pdftext.Extractor
	// Assessor names the routing assessor in use, which may differ from
	// triage.assessor when worker credentials are missing.
	Assessor string

	logger *slog.Logger
}

type buildOptions struct {
	worker   agents.Worker
	backend  transcript.Backend
	notifier notifications.Service
	storeOps []transcript.Option
}

// Option overrides a collaborator Build would otherwise construct from config.
type Option func(*buildOptions)

// WithWorker replaces the configured language-model backend.
func WithWorker(worker agents.Worker) Option {
	return func(o *buildOptions) { o.worker = worker }
}

// WithBackend replaces the configured transcription backend.
func WithBackend(backend transcript.Backend) Option {
	return func(o *buildOptions) { o.backend = backend }
}

// WithNotifier replaces the ntfy notifier.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *buildOptions) { o.notifier = notifier }
}

// WithStoreOptions forwards options to transcript.Open.
func WithStoreOptions(opts ...transcript.Option) Option {
	return func(o *buildOptions) { o.storeOps = append(o.storeOps, opts...) }
}

// Build opens the stores and wires every component described by cfg. Callers
// must Close the returned App.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}
	logger = logging.NewComponentLogger(logger, "app")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "app", "build", "prepare directories", err)
	}

	store, err := transcript.Open(cfg, bo.storeOps...)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Transcripts: store, logger: logger}
	if err := a.wire(cfg, logger, bo); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(cfg *config.Config, logger *slog.Logger, bo buildOptions) error {
	agendaStore, err := agenda.Open(cfg)
	if err != nil {
		return err
	}
	a.Agenda = agendaStore

	catalog := agents.DefaultCatalog()
	if path := strings.TrimSpace(cfg.Agents.CatalogPath); path != "" {
		catalog, err = agents.LoadCatalog(path)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "app", "build", "load agent catalog", err)
		}
	}
	a.Catalog = catalog

	worker := bo.worker
	workerReady := true
	if worker == nil {
		worker, err = buildWorker(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "worker backend unavailable", "worker_unconfigured",
				logging.String("backend", cfg.Worker.Backend),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set llm.api_key or gemini.api_key"),
				logging.String(logging.FieldImpact, "triage requests will fail"),
			)
			worker = unavailableWorker{err: err}
			workerReady = false
		}
	}

	roster, err := agents.NewRoster(catalog, worker, a.Transcripts, agents.Options{
		RetrievalBudget: cfg.Worker.RetrievalBudgetChars,
		Timeout:         cfg.WorkerTimeout(),
		Agenda:          agendaStore,
		Logger:          logger,
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "app", "build", "build agents", err)
	}
	var assessor triage.Assessor = triage.KeywordAssessor{Agenda: agendaStore}
	a.Assessor = config.AssessorKeyword
	switch {
	case cfg.Triage.Assessor != config.AssessorLLM:
	case !workerReady:
		logging.WarnWithContext(logger, "llm assessor unavailable, routing with keyword cues", "assessor_fallback",
			logging.String(logging.FieldErrorHint, "configure worker credentials to route with the llm assessor"),
			logging.String(logging.FieldImpact, "routing uses lexical cues"),
		)
	default:
		assessor = triage.NewLLMAssessor(worker, catalog.Router(), cfg.Worker.RetrievalBudgetChars, cfg.WorkerTimeout())
		a.Assessor = config.AssessorLLM
	}
	router, err := triage.NewRouter(catalog, assessor)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "app", "build", "build router", err)
	}
	a.Triage, err = triage.NewService(a.Transcripts, router, roster, logger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "app", "build", "build triage service", err)
	}

	backend := bo.backend
	if backend == nil {
		backend, err = buildBackend(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "transcription backend unavailable", "transcription_unconfigured",
				logging.String("backend", cfg.Transcription.Backend),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set transcription.api_key or switch transcription.backend to whisperx"),
				logging.String(logging.FieldImpact, "audio ingestion will fail; text ingestion still works"),
			)
		}
	}
	a.Pipeline = transcript.NewPipeline(backend, a.Transcripts, cfg.TranscriptionTimeout(), logger)

	a.Notifier = bo.notifier
	if a.Notifier == nil {
		a.Notifier = notifications.NewService(cfg)
	}
	if cfg.MailConfigured() {
		a.Mailer, err = mailer.New(mailer.FromConfig(cfg))
		if err != nil {
			return err
		}
	}
	a.PDF = pdftext.New(cfg.PDFToTextBinary(), cfg.Paths.WorkDir)
	return nil
}

// Close releases the transcript catalog.
func (a *App) Close() error {
	if a == nil || a.Transcripts == nil {
		return nil
	}
	return a.Transcripts.Close()
}

func buildWorker(cfg *config.Config) (agents.Worker, error) {
	switch cfg.Worker.Backend {
	case config.WorkerBackendGemini:
		client, err := gemini.NewClient(gemini.FromConfig(cfg))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		llmCfg := cfg.GetLLM()
		if llmCfg.APIKey == "" {
			return nil, errors.New("llm api key missing")
		}
		return llm.NewClient(llm.FromConfig(llmCfg)), nil
	}
}

func buildBackend(cfg *config.Config) (transcript.Backend, error) {
	switch cfg.Transcription.Backend {
	case config.TranscriptionBackendWhisperX:
		return whisperx.NewService(whisperx.FromConfig(cfg), deps.ResolveFFmpegPath()), nil
	default:
		client, err := transcribeapi.NewClient(transcribeapi.FromConfig(cfg))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// unavailableWorker stands in for a backend whose credentials are missing so
// that read-only commands still start.
type unavailableWorker struct{ err error }

func (w unavailableWorker) Complete(context.Context, agents.Request) (string, error) {
	return "", services.Wrap(services.ErrConfiguration, "worker", "complete", "backend not configured", w.err)
}

// String describes the selected backends for startup logs.
func (a *App) String() string {
	return fmt.Sprintf("worker=%s transcription=%s assessor=%s", a.Config.Worker.Backend, a.Config.Transcription.Backend, a.Assessor)
}
