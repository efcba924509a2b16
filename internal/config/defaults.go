package config

const (
	defaultConfigPath                  = "~/.config/huddle/config.toml"
	defaultTranscriptsDir              = "~/.local/share/huddle/transcripts"
	defaultCatalogPath                 = "~/.local/share/huddle/catalog.db"
	defaultAgendaFile                  = "~/.local/share/huddle/agenda.txt"
	defaultWorkDir                     = "~/.local/share/huddle/work"
	defaultLogDir                      = "~/.local/share/huddle/logs"
	defaultLLMBaseURL                  = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                    = "google/gemini-3-flash-preview"
	defaultLLMReferer                  = "https://github.com/huddle/huddle"
	defaultLLMTitle                    = "Huddle Meeting Triage"
	defaultLLMTimeoutSeconds           = 30
	defaultLLMMaxAttempts              = 1
	defaultGeminiModel                 = "gemini-2.5-flash"
	defaultWorkerTimeoutSeconds        = 30
	defaultRetrievalBudgetChars        = 12000
	defaultTranscriptionBaseURL        = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscriptionModel          = "gpt-4o-transcribe-diarize"
	defaultTranscriptionResponseFormat = "diarized_json"
	defaultTranscriptionTimeoutSeconds = 120
	defaultWhisperXModel               = "large-v3"
	defaultWhisperXVADMethod           = "silero"
	defaultAPIBind                     = "127.0.0.1:7480"
	defaultAPIMaxUploadMiB             = 200
	defaultWatchMaxConcurrent          = 2
	defaultWatchSettleMillis           = 500
	defaultMailPort                    = 587
	defaultNotifyRequestTimeout        = 10
	defaultLogFormat                   = "console"
	defaultLogLevel                    = "info"
	defaultLogRetentionDays            = 30
)

// Worker backends.
const (
	WorkerBackendOpenRouter = "openrouter"
	WorkerBackendGemini     = "gemini"
)

// Transcription backends.
const (
	TranscriptionBackendAPI      = "api"
	TranscriptionBackendWhisperX = "whisperx"
)

// Router assessors.
const (
	AssessorLLM     = "llm"
	AssessorKeyword = "keyword"
)

var defaultWatchExtensions = []string{".wav", ".mp3", ".m4a", ".ogg", ".webm", ".flac"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TranscriptsDir: defaultTranscriptsDir,
			CatalogPath:    defaultCatalogPath,
			AgendaFile:     defaultAgendaFile,
			WorkDir:        defaultWorkDir,
			LogDir:         defaultLogDir,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			MaxAttempts:    defaultLLMMaxAttempts,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		Worker: Worker{
			Backend:              WorkerBackendOpenRouter,
			TimeoutSeconds:       defaultWorkerTimeoutSeconds,
			RetrievalBudgetChars: defaultRetrievalBudgetChars,
		},
		Transcription: Transcription{
			Backend:        TranscriptionBackendAPI,
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			ResponseFormat: defaultTranscriptionResponseFormat,
			TimeoutSeconds: defaultTranscriptionTimeoutSeconds,
		},
		WhisperX: WhisperX{
			Model:     defaultWhisperXModel,
			VADMethod: defaultWhisperXVADMethod,
			Diarize:   true,
		},
		Triage: Triage{
			Assessor: AssessorLLM,
		},
		API: API{
			Bind:         defaultAPIBind,
			MaxUploadMiB: defaultAPIMaxUploadMiB,
		},
		Watch: Watch{
			Extensions:    append([]string(nil), defaultWatchExtensions...),
			MaxConcurrent: defaultWatchMaxConcurrent,
			SettleMillis:  defaultWatchSettleMillis,
		},
		Mail: Mail{
			Port: defaultMailPort,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Triage:         true,
			Ingest:         false,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
