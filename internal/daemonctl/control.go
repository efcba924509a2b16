package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"huddle/internal/api"
	"huddle/internal/config"
	"huddle/internal/preflight"
)

// PIDFileName is written to the log directory by a running server.
const PIDFileName = "huddle.pid"

// ErrServerNotRunning indicates neither the health endpoint nor the pid file
// point at a live server.
var ErrServerNotRunning = errors.New("huddle server not running")

// LaunchOptions controls detached server launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures server start orchestration state.
type StartResult struct {
	State   StartState
	PID     int
	Message string
}

// StopResult captures server stop outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// StatusSnapshot describes the server as seen from a separate process.
type StatusSnapshot struct {
	Running      bool
	PID          int
	Address      string
	Health       *api.HealthResponse
	Dependencies []api.DependencyStatus
}

// PIDPath returns the pid file location for cfg.
func PIDPath(cfg *config.Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, PIDFileName)
}

// Launch starts a detached `huddle serve` process and returns its pid.
func Launch(executablePath string, opts LaunchOptions) (int, error) {
	if strings.TrimSpace(executablePath) == "" {
		return 0, fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"serve"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return 0, fmt.Errorf("launch server: %w", err)
	}
	pid := proc.Process.Pid
	return pid, proc.Process.Release()
}

// Client queries a running server over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the server configured in cfg.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: baseURL(cfg.API.Bind),
		token:   cfg.API.Token,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Address reports the base URL the client talks to.
func (c *Client) Address() string {
	return c.baseURL
}

// Health fetches /api/health. deep requests a full preflight run.
func (c *Client) Health(ctx context.Context, deep bool) (*api.HealthResponse, error) {
	url := c.baseURL + "/api/health"
	if deep {
		url += "?deep=1"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned %s", resp.Status)
	}
	var payload api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &payload, nil
}

// WaitForHealthy polls the health endpoint until it answers or timeout passes.
func WaitForHealthy(ctx context.Context, client *Client, timeout time.Duration) (*api.HealthResponse, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		health, err := client.Health(ctx, false)
		if err == nil {
			return health, nil
		}
		lastErr = err
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("server did not become healthy within %s: %w", timeout, lastErr)
}

// EnsureStarted launches the server unless one already answers health checks.
func EnsureStarted(ctx context.Context, cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client := NewClient(cfg)
	if health, err := client.Health(ctx, false); err == nil {
		return StartResult{
			State:   StartStateAlreadyRunning,
			PID:     health.PID,
			Message: "Huddle server is already running",
		}, nil
	}

	pid, err := Launch(executablePath, opts)
	if err != nil {
		return StartResult{}, err
	}
	health, err := WaitForHealthy(ctx, client, waitTimeout)
	if err != nil {
		return StartResult{}, fmt.Errorf("%w (see %s)", err, filepath.Join(cfg.Paths.LogDir, "huddle.log"))
	}
	if health.PID > 0 {
		pid = health.PID
	}
	return StartResult{
		State:   StartStateStarted,
		PID:     pid,
		Message: "Huddle server started",
	}, nil
}

// ReadPID parses a pid file. A missing file yields ErrServerNotRunning.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrServerNotRunning
		}
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q is malformed", path)
	}
	return pid, nil
}

// ProcessAlive reports whether pid refers to a live process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Stop sends SIGTERM to the server and SIGKILL if it outlives gracePeriod.
func Stop(ctx context.Context, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pidPath := PIDPath(cfg)
	pid, err := ReadPID(pidPath)
	if err != nil {
		return StopResult{}, err
	}
	if !ProcessAlive(pid) {
		_ = os.Remove(pidPath)
		return StopResult{}, ErrServerNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal server process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if waitForExit(ctx, pid, gracePeriod) {
		_ = os.Remove(pidPath)
		return result, nil
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("kill server process %d: %w", pid, err)
	}
	result.ForcedKill = true
	_ = os.Remove(pidPath)
	_ = os.Remove(cfg.LockPath())
	return result, nil
}

// Status combines the health endpoint with pid file state. When the server
// is down, dependency availability is probed locally.
func Status(ctx context.Context, cfg *config.Config) StatusSnapshot {
	client := NewClient(cfg)
	snapshot := StatusSnapshot{Address: client.Address()}
	if health, err := client.Health(ctx, false); err == nil {
		snapshot.Running = true
		snapshot.PID = health.PID
		snapshot.Health = health
		snapshot.Dependencies = health.Dependencies
		return snapshot
	}
	if pid, err := ReadPID(PIDPath(cfg)); err == nil && ProcessAlive(pid) {
		// Process is up but the API is not answering (still starting, or wedged).
		snapshot.Running = true
		snapshot.PID = pid
	}
	snapshot.Dependencies = api.FromDependencies(preflight.CheckSystemDeps(cfg))
	return snapshot
}

func waitForExit(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return !ProcessAlive(pid)
		case <-time.After(100 * time.Millisecond):
		}
	}
	return !ProcessAlive(pid)
}

func baseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
