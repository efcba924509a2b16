package daemon

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"huddle/internal/api"
	"huddle/internal/preflight"
	"huddle/internal/services"
	"huddle/internal/transcript"
)

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	cfg := s.daemon.cfg
	status := s.daemon.Status()
	payload := api.HealthResponse{
		Status:        "ok",
		PID:           os.Getpid(),
		Worker:        cfg.Worker.Backend,
		Transcription: cfg.Transcription.Backend,
		Assessor:      s.daemon.app.Assessor,
		Dependencies:  api.FromDependencies(status.Dependencies),
	}
	if r.URL.Query().Get("deep") == "1" {
		results := preflight.RunAll(r.Context(), cfg)
		payload.Checks = api.FromChecks(results)
		if len(preflight.Failed(results)) > 0 {
			payload.Status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleIngestAudio(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.maxUpload)
	audio, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "audio exceeds api.max_upload_mib")
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "read audio body: "+err.Error())
		return
	}
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		source = "api"
	}
	ref, err := s.daemon.app.IngestAudio(r.Context(), audio, source)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.IngestResponse{Reference: ref.String()})
}

func (s *apiServer) handleIngestText(w http.ResponseWriter, r *http.Request) {
	var req api.IngestTextRequest
	if !s.decode(w, r, &req) {
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "api"
	}
	ref, err := s.daemon.app.IngestText(r.Context(), req.Text, source)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.IngestResponse{Reference: ref.String()})
}

func (s *apiServer) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	items, err := s.transcripts.List(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []api.TranscriptEntry{}
	}
	s.writeJSON(w, http.StatusOK, api.TranscriptListResponse{Items: items})
}

func (s *apiServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	resp, err := s.transcripts.Describe(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req api.TriageRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.triageAndRespond(w, r, req.Reference, req.EmailTo, len(req.EmailTo) > 0)
}

func (s *apiServer) handleEmail(w http.ResponseWriter, r *http.Request) {
	var req api.EmailRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.triageAndRespond(w, r, req.Reference, req.To, true)
}

func (s *apiServer) triageAndRespond(w http.ResponseWriter, r *http.Request, rawRef string, recipients []string, email bool) {
	ref, err := transcript.ParseReference(strings.TrimSpace(rawRef))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	outcome, err := s.daemon.app.RunTriage(r.Context(), ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := api.FromOutcome(outcome)
	if email {
		if err := s.daemon.app.EmailOutcome(r.Context(), outcome, recipients); err != nil {
			// The result was delivered; keep it in the body alongside the mail failure.
			status := services.HTTPStatus(err)
			s.logFailure(r, status, err)
			resp.EmailError = err.Error()
			s.writeJSON(w, status, resp)
			return
		}
		resp.Emailed = true
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleGetAgenda(w http.ResponseWriter, r *http.Request) {
	text, err := s.daemon.app.Agenda.Read(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AgendaPayload{Text: strings.TrimSpace(text)})
}

func (s *apiServer) handlePutAgenda(w http.ResponseWriter, r *http.Request) {
	var req api.AgendaPayload
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.daemon.app.Agenda.Write(r.Context(), req.Text); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AgendaPayload{Text: strings.TrimSpace(req.Text)})
}

func (s *apiServer) handleAgendaPDF(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.maxUpload)
	pdf, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "pdf exceeds api.max_upload_mib")
			return
		}
		s.writeError(w, r, http.StatusBadRequest, "read pdf body: "+err.Error())
		return
	}
	text, err := s.daemon.app.ImportAgendaPDF(r.Context(), pdf)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AgendaPayload{Text: text})
}
