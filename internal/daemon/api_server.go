package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"huddle/internal/api"
	"huddle/internal/config"
	"huddle/internal/logging"
	"huddle/internal/services"
)

type apiServer struct {
	bind        string
	maxUpload   int64
	logger      *slog.Logger
	daemon      *Daemon
	transcripts *api.TranscriptService

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:        strings.TrimSpace(cfg.API.Bind),
		maxUpload:   int64(cfg.API.MaxUploadMiB) << 20,
		logger:      logger,
		daemon:      d,
		transcripts: api.NewTranscriptService(d.app.Transcripts),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.HandleFunc("POST /api/transcripts", srv.handleIngestAudio)
	mux.HandleFunc("POST /api/transcripts/text", srv.handleIngestText)
	mux.HandleFunc("GET /api/transcripts", srv.handleListTranscripts)
	mux.HandleFunc("GET /api/transcripts/{ref}", srv.handleTranscript)
	mux.HandleFunc("POST /api/triage", srv.handleTriage)
	mux.HandleFunc("POST /api/email", srv.handleEmail)
	mux.HandleFunc("GET /api/agenda", srv.handleGetAgenda)
	mux.HandleFunc("PUT /api/agenda", srv.handlePutAgenda)
	mux.HandleFunc("POST /api/agenda/pdf", srv.handleAgendaPDF)

	// Transcription and triage run inside the request, so the write deadline
	// has to cover the slowest backend call.
	writeTimeout := cfg.TranscriptionTimeout()
	if triage := 2 * cfg.WorkerTimeout(); triage > writeTimeout {
		writeTimeout = triage
	}
	writeTimeout += 30 * time.Second

	srv.server = &http.Server{
		Handler:           requestIDMiddleware(authMiddleware(cfg.API.Token, mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.log().Info("api server disabled (api.bind is empty)")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	requestID, _ := services.RequestIDFromContext(r.Context())
	s.writeJSON(w, status, api.ErrorResponse{Error: message, RequestID: requestID})
}

// writeServiceError maps err through the service error taxonomy.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	s.logFailure(r, status, err)
	s.writeError(w, r, status, err.Error())
}

func (s *apiServer) logFailure(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request_failed",
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
		logging.Int("status", status),
		logging.Error(err),
	)
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
