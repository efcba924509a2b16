package config

import (
	"fmt"
	"os"
	"strings"

	"huddle/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeWorker()
	c.normalizeTranscription()
	c.normalizeWhisperX()
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeMail()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.transcripts_dir", &c.Paths.TranscriptsDir, defaultTranscriptsDir},
		{"paths.catalog_path", &c.Paths.CatalogPath, defaultCatalogPath},
		{"paths.agenda_file", &c.Paths.AgendaFile, defaultAgendaFile},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	if c.Agents.CatalogPath != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Agents.CatalogPath))
		if err != nil {
			return fmt.Errorf("agents.catalog_path: %w", err)
		}
		c.Agents.CatalogPath = expanded
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = firstEnv("HUDDLE_LLM_API_KEY", "OPENROUTER_API_KEY")
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultLLMMaxAttempts
	}

	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}
}

func (c *Config) normalizeWorker() {
	c.Worker.Backend = strings.ToLower(strings.TrimSpace(c.Worker.Backend))
	if c.Worker.Backend == "" {
		c.Worker.Backend = WorkerBackendOpenRouter
	}
	if c.Worker.TimeoutSeconds <= 0 {
		c.Worker.TimeoutSeconds = defaultWorkerTimeoutSeconds
	}
	if c.Worker.RetrievalBudgetChars <= 0 {
		c.Worker.RetrievalBudgetChars = defaultRetrievalBudgetChars
	}
	c.Triage.Assessor = strings.ToLower(strings.TrimSpace(c.Triage.Assessor))
	if c.Triage.Assessor == "" {
		c.Triage.Assessor = AssessorLLM
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = TranscriptionBackendAPI
	}
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = firstEnv("HUDDLE_TRANSCRIBE_API_KEY", "OPENAI_API_KEY")
	}
	c.Transcription.BaseURL = strings.TrimSpace(c.Transcription.BaseURL)
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = defaultTranscriptionBaseURL
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.ResponseFormat = strings.TrimSpace(c.Transcription.ResponseFormat)
	if c.Transcription.ResponseFormat == "" {
		c.Transcription.ResponseFormat = defaultTranscriptionResponseFormat
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if iso := language.ToISO2(c.Transcription.Language); iso != "" {
		c.Transcription.Language = iso
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeoutSeconds
	}
}

func (c *Config) normalizeWhisperX() {
	c.WhisperX.VADMethod = strings.ToLower(strings.TrimSpace(c.WhisperX.VADMethod))
	if c.WhisperX.VADMethod == "" {
		c.WhisperX.VADMethod = defaultWhisperXVADMethod
	}
	c.WhisperX.Model = strings.TrimSpace(c.WhisperX.Model)
	if c.WhisperX.Model == "" {
		c.WhisperX.Model = defaultWhisperXModel
	}
	c.WhisperX.HFToken = strings.TrimSpace(c.WhisperX.HFToken)
	if c.WhisperX.HFToken == "" {
		c.WhisperX.HFToken = firstEnv("HUGGING_FACE_HUB_TOKEN", "HF_TOKEN")
	}
}

func (c *Config) normalizeWatch() error {
	if strings.TrimSpace(c.Watch.InboxDir) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Watch.InboxDir))
		if err != nil {
			return fmt.Errorf("watch.inbox_dir: %w", err)
		}
		c.Watch.InboxDir = expanded
	}
	if c.Watch.MaxConcurrent <= 0 {
		c.Watch.MaxConcurrent = defaultWatchMaxConcurrent
	}
	if c.Watch.SettleMillis < 0 {
		c.Watch.SettleMillis = defaultWatchSettleMillis
	}
	exts := make([]string, 0, len(c.Watch.Extensions))
	seen := make(map[string]struct{}, len(c.Watch.Extensions))
	for _, ext := range c.Watch.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultWatchExtensions...)
	}
	c.Watch.Extensions = exts
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		c.API.Token = firstEnv("HUDDLE_API_TOKEN")
	}
	if c.API.MaxUploadMiB <= 0 {
		c.API.MaxUploadMiB = defaultAPIMaxUploadMiB
	}
}

func (c *Config) normalizeMail() {
	c.Mail.Host = strings.TrimSpace(c.Mail.Host)
	c.Mail.From = strings.TrimSpace(c.Mail.From)
	c.Mail.DefaultTo = strings.TrimSpace(c.Mail.DefaultTo)
	if c.Mail.Password == "" {
		c.Mail.Password = firstEnv("HUDDLE_SMTP_PASSWORD")
	}
	if c.Mail.Port <= 0 {
		c.Mail.Port = defaultMailPort
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "pretty", "text":
		format = "console"
	case "json":
	default:
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level

	if len(c.Logging.ComponentLevels) > 0 {
		levels := make(map[string]string, len(c.Logging.ComponentLevels))
		for component, value := range c.Logging.ComponentLevels {
			component = strings.ToLower(strings.TrimSpace(component))
			value = strings.ToLower(strings.TrimSpace(value))
			if component == "" || value == "" {
				continue
			}
			levels[component] = value
		}
		c.Logging.ComponentLevels = levels
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
