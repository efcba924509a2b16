package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"huddle/internal/config"
	"huddle/internal/deps"
	"huddle/internal/services/gemini"
	"huddle/internal/services/llm"
)

const (
	workerCheckTimeout   = 30 * time.Second
	endpointCheckTimeout = 5 * time.Second
)

// HealthChecker is implemented by worker backends that can verify their
// credentials with a cheap call.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckWorker runs checker.HealthCheck under a 30-second deadline.
func CheckWorker(ctx context.Context, name string, checker HealthChecker) Result {
	if checker == nil {
		return Result{Name: name, Detail: "not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, workerCheckTimeout)
	defer cancel()
	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeWorkerError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckWorkerFromConfig builds the selected worker backend with a single
// attempt (no retries) and health-checks it.
func CheckWorkerFromConfig(ctx context.Context, cfg *config.Config) Result {
	switch cfg.Worker.Backend {
	case config.WorkerBackendGemini:
		const name = "Gemini worker"
		client, err := gemini.NewClient(gemini.FromConfig(cfg))
		if err != nil {
			return Result{Name: name, Detail: err.Error()}
		}
		return CheckWorker(ctx, name, client)
	default:
		const name = "OpenRouter worker"
		llmCfg := cfg.GetLLM()
		if llmCfg.APIKey == "" {
			return Result{Name: name, Detail: "API key missing"}
		}
		client := llm.NewClient(llm.FromConfig(llmCfg), llm.WithRetryMaxAttempts(1))
		return CheckWorker(ctx, name, client)
	}
}

// CheckTranscriptionFromConfig verifies the selected transcription backend is
// usable: credentials and a reachable endpoint for the API backend, the uvx
// and ffmpeg binaries for WhisperX.
func CheckTranscriptionFromConfig(ctx context.Context, cfg *config.Config) Result {
	if cfg.Transcription.Backend == config.TranscriptionBackendWhisperX {
		const name = "WhisperX transcription"
		if missing := deps.MissingRequired(deps.CheckBinaries(whisperXRequirements())); len(missing) > 0 {
			return Result{Name: name, Detail: missing[0].Detail}
		}
		return Result{Name: name, Passed: true, Detail: "uvx and ffmpeg available"}
	}
	const name = "Transcription API"
	if strings.TrimSpace(cfg.Transcription.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return CheckEndpoint(ctx, name, cfg.Transcription.BaseURL)
}

// CheckEndpoint verifies that the host behind rawURL accepts TCP connections.
func CheckEndpoint(ctx context.Context, name, rawURL string) Result {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", rawURL)}
	}
	host := parsed.Host
	if parsed.Port() == "" {
		port := "443"
		if parsed.Scheme == "http" {
			port = "80"
		}
		host = net.JoinHostPort(parsed.Hostname(), port)
	}
	dialCtx, cancel := context.WithTimeout(ctx, endpointCheckTimeout)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both `huddle serve` and `huddle doctor` use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement
	if cfg.Transcription.Backend == config.TranscriptionBackendWhisperX {
		requirements = append(requirements, whisperXRequirements()...)
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "pdftotext",
		Command:     cfg.PDFToTextBinary(),
		Description: "Imports agenda text from PDF files",
		Optional:    true,
	})
	return deps.CheckBinaries(requirements)
}

func whisperXRequirements() []deps.Requirement {
	return []deps.Requirement{
		{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Required for WhisperX-driven transcription",
		},
		{
			Name:        "FFmpeg",
			Command:     deps.ResolveFFmpegPath(),
			Description: "Converts meeting audio before WhisperX runs",
		},
	}
}

// summarizeWorkerError produces a human-readable summary for health check failures.
func summarizeWorkerError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
