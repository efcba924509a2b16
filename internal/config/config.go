package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	TranscriptsDir string `toml:"transcripts_dir"`
	CatalogPath    string `toml:"catalog_path"`
	AgendaFile     string `toml:"agenda_file"`
	WorkDir        string `toml:"work_dir"`
	LogDir         string `toml:"log_dir"`
}

// LLM contains OpenRouter-compatible chat completion settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// MaxAttempts bounds HTTP-level retries for one worker call. The default of 1
	// leaves retry decisions to the caller.
	MaxAttempts int `toml:"max_attempts"`
}

// Gemini contains settings for the Gemini worker backend.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Worker selects the language-model backend used by the agents and router.
type Worker struct {
	Backend              string `toml:"backend"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	RetrievalBudgetChars int    `toml:"retrieval_budget_chars"`
}

// Transcription selects and configures the transcription backend.
type Transcription struct {
	Backend        string `toml:"backend"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	ResponseFormat string `toml:"response_format"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// WhisperX configures the local WhisperX backend.
type WhisperX struct {
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
	Diarize     bool   `toml:"diarize"`
	MinSpeakers int    `toml:"min_speakers"`
	MaxSpeakers int    `toml:"max_speakers"`
}

// Triage contains router settings.
type Triage struct {
	// Assessor is "llm" or "keyword".
	Assessor string `toml:"assessor"`
}

// Agents points at an optional agent catalog override.
type Agents struct {
	CatalogPath string `toml:"catalog_path"`
}

// API contains HTTP server settings.
type API struct {
	Bind         string `toml:"bind"`
	Token        string `toml:"token"`
	MaxUploadMiB int    `toml:"max_upload_mib"`
}

// Watch configures the audio inbox watcher.
type Watch struct {
	InboxDir      string   `toml:"inbox_dir"`
	Extensions    []string `toml:"extensions"`
	MaxConcurrent int      `toml:"max_concurrent"`
	SettleMillis  int      `toml:"settle_millis"`
	AutoTriage    bool     `toml:"auto_triage"`
}

// Mail contains SMTP delivery settings.
type Mail struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	From      string `toml:"from"`
	DefaultTo string `toml:"default_to"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Triage         bool   `toml:"triage"`
	Ingest         bool   `toml:"ingest"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format          string            `toml:"format"`
	Level           string            `toml:"level"`
	RetentionDays   int               `toml:"retention_days"`
	ComponentLevels map[string]string `toml:"component_levels"`
}

// Config encapsulates all configuration values for huddle.
//
// Configuration sections by subsystem:
//   - Paths: transcript store, catalog, agenda blob, work and log directories
//   - LLM / Gemini / Worker: language-model backends and per-call limits
//   - Transcription / WhisperX: transcription backends
//   - Triage / Agents: router assessor and agent catalog override
//   - API / Watch: HTTP server and audio inbox
//   - Mail / Notifications: outbound delivery of results
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Gemini        Gemini        `toml:"gemini"`
	Worker        Worker        `toml:"worker"`
	Transcription Transcription `toml:"transcription"`
	WhisperX      WhisperX      `toml:"whisperx"`
	Triage        Triage        `toml:"triage"`
	Agents        Agents        `toml:"agents"`
	API           API           `toml:"api"`
	Watch         Watch         `toml:"watch"`
	Mail          Mail          `toml:"mail"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("huddle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the store, agenda, and logger write into.
// The watch inbox is created only when configured.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.TranscriptsDir,
		c.Paths.WorkDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.CatalogPath),
		filepath.Dir(c.Paths.AgendaFile),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Watch.InboxDir) != "" {
		if err := os.MkdirAll(c.Watch.InboxDir, 0o755); err != nil {
			return fmt.Errorf("create watch inbox %q: %w", c.Watch.InboxDir, err)
		}
	}
	return nil
}

// WorkerTimeout returns the per-call language-model deadline.
func (c *Config) WorkerTimeout() time.Duration {
	return secondsOrDefault(c.Worker.TimeoutSeconds, defaultWorkerTimeoutSeconds)
}

// TranscriptionTimeout returns the per-call transcription deadline.
func (c *Config) TranscriptionTimeout() time.Duration {
	return secondsOrDefault(c.Transcription.TimeoutSeconds, defaultTranscriptionTimeoutSeconds)
}

// LockPath returns the single-instance lock file used by `huddle serve`.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "huddle.lock")
}

// PDFToTextBinary returns the executable used for agenda PDF extraction.
func (c *Config) PDFToTextBinary() string {
	return "pdftotext"
}

func secondsOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the OpenRouter connection settings shared by the agents,
// the router, and preflight.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	MaxAttempts    int
}

// GetLLM returns the shared LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		MaxAttempts:    c.LLM.MaxAttempts,
	}
}

// WorkerConfigured reports whether the selected worker backend has credentials.
func (c *Config) WorkerConfigured() bool {
	switch c.Worker.Backend {
	case WorkerBackendGemini:
		return strings.TrimSpace(c.Gemini.APIKey) != ""
	default:
		return strings.TrimSpace(c.LLM.APIKey) != ""
	}
}
