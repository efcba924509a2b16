package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TranscriptEntry describes a stored transcript in a transport-friendly format.
type TranscriptEntry struct {
	Reference string `json:"reference"`
	Shape     string `json:"shape"`
	Bytes     int64  `json:"bytes"`
	Source    string `json:"source,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// TranscriptListResponse wraps a collection of transcripts, newest first.
type TranscriptListResponse struct {
	Items []TranscriptEntry `json:"items"`
}

// TranscriptResponse carries one transcript and its text.
type TranscriptResponse struct {
	Entry TranscriptEntry `json:"entry"`
	Text  string          `json:"text"`
}

// IngestTextRequest persists text as a transcript without transcription.
type IngestTextRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// IngestResponse reports the reference of a newly stored transcript.
type IngestResponse struct {
	Reference string `json:"reference"`
}

// TriageRequest asks for one triage invocation. When EmailTo is set the
// result is also mailed.
type TriageRequest struct {
	Reference string   `json:"reference"`
	EmailTo   []string `json:"emailTo,omitempty"`
}

// EmailRequest triages a transcript and mails the result.
type EmailRequest struct {
	Reference string   `json:"reference"`
	To        []string `json:"to,omitempty"`
}

// TriageSignals mirrors the routing signals the router evaluated.
type TriageSignals struct {
	Concluded          bool `json:"concluded"`
	AgendaDrift        bool `json:"agendaDrift"`
	NeedsClarification bool `json:"needsClarification"`
}

// TriageResult is the normalized agent output.
type TriageResult struct {
	Kind     string            `json:"kind"`
	Fields   map[string]string `json:"fields,omitempty"`
	Text     string            `json:"text,omitempty"`
	Summary  string            `json:"summary,omitempty"`
	Sentinel bool              `json:"sentinel"`
}

// TriageResponse reports one delivered triage invocation. EmailError is set
// when the result was delivered but mailing it failed.
type TriageResponse struct {
	RequestID  string        `json:"requestId"`
	Reference  string        `json:"reference"`
	Capability string        `json:"capability"`
	Signals    TriageSignals `json:"signals"`
	Result     TriageResult  `json:"result"`
	ElapsedMs  int64         `json:"elapsedMs"`
	Emailed    bool          `json:"emailed"`
	EmailError string        `json:"emailError,omitempty"`
}

// AgendaPayload carries the agenda text for GET and PUT.
type AgendaPayload struct {
	Text string `json:"text"`
}

// CheckResult mirrors one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// HealthResponse aggregates server readiness for API consumers.
type HealthResponse struct {
	Status        string             `json:"status"`
	PID           int                `json:"pid"`
	Worker        string             `json:"worker"`
	Transcription string             `json:"transcription"`
	Assessor      string             `json:"assessor"`
	Checks        []CheckResult      `json:"checks,omitempty"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
