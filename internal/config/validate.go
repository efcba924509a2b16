package config

import (
	"errors"
	"fmt"
	"strings"

	"huddle/internal/language"
)

// Validate ensures the configuration is usable. Missing credentials are not
// errors here: commands that need a backend report the gap when they build it.
func (c *Config) Validate() error {
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateMail(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorker() error {
	switch c.Worker.Backend {
	case WorkerBackendOpenRouter, WorkerBackendGemini:
	default:
		return fmt.Errorf("worker.backend must be %q or %q, got %q", WorkerBackendOpenRouter, WorkerBackendGemini, c.Worker.Backend)
	}
	switch c.Triage.Assessor {
	case AssessorLLM, AssessorKeyword:
	default:
		return fmt.Errorf("triage.assessor must be %q or %q, got %q", AssessorLLM, AssessorKeyword, c.Triage.Assessor)
	}
	if c.Worker.RetrievalBudgetChars < 500 {
		return errors.New("worker.retrieval_budget_chars must be at least 500")
	}
	if c.LLM.MaxAttempts > 10 {
		return errors.New("llm.max_attempts must be at most 10")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case TranscriptionBackendAPI, TranscriptionBackendWhisperX:
	default:
		return fmt.Errorf("transcription.backend must be %q or %q, got %q", TranscriptionBackendAPI, TranscriptionBackendWhisperX, c.Transcription.Backend)
	}
	if !language.Valid(c.Transcription.Language) {
		return fmt.Errorf("transcription.language: unrecognized language %q", c.Transcription.Language)
	}
	if c.WhisperX.VADMethod != "silero" && c.WhisperX.VADMethod != "pyannote" {
		return fmt.Errorf("whisperx.vad_method must be silero or pyannote, got %q", c.WhisperX.VADMethod)
	}
	if c.WhisperX.MinSpeakers < 0 || c.WhisperX.MaxSpeakers < 0 {
		return errors.New("whisperx speaker bounds must be >= 0")
	}
	if c.WhisperX.MaxSpeakers > 0 && c.WhisperX.MinSpeakers > c.WhisperX.MaxSpeakers {
		return errors.New("whisperx.min_speakers must not exceed whisperx.max_speakers")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.MaxConcurrent > 16 {
		return errors.New("watch.max_concurrent must be at most 16")
	}
	return nil
}

func (c *Config) validateMail() error {
	if c.Mail.Host == "" {
		return nil
	}
	if c.Mail.From == "" {
		return errors.New("mail.from must be set when mail.host is configured")
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return errors.New("mail.port must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateLogging() error {
	valid := map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
	if _, ok := valid[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	for component, level := range c.Logging.ComponentLevels {
		if _, ok := valid[level]; !ok {
			return fmt.Errorf("logging.component_levels.%s: unsupported level %q", component, level)
		}
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

// MailConfigured reports whether SMTP delivery can be attempted.
func (c *Config) MailConfigured() bool {
	return strings.TrimSpace(c.Mail.Host) != "" && strings.TrimSpace(c.Mail.From) != ""
}
