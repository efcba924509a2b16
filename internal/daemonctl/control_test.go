package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"huddle/internal/api"
	"huddle/internal/testsupport"
)

func healthServer(t *testing.T, token string, pid int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			http.NotFound(w, r)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", PID: pid, Worker: "openrouter"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7480": "http://127.0.0.1:7480",
		"0.0.0.0:9000":   "http://127.0.0.1:9000",
		":8080":          "http://127.0.0.1:8080",
		"[::]:8080":      "http://127.0.0.1:8080",
		"example:1":      "http://example:1",
	}
	for bind, want := range cases {
		if got := baseURL(bind); got != want {
			t.Errorf("baseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestClientHealthSendsToken(t *testing.T) {
	srv := healthServer(t, "secret", 4242)
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = strings.TrimPrefix(srv.URL, "http://")

	if _, err := NewClient(cfg).Health(context.Background(), false); err == nil {
		t.Fatal("expected unauthorized health check to fail")
	}

	cfg.API.Token = "secret"
	health, err := NewClient(cfg).Health(context.Background(), false)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.PID != 4242 || health.Status != "ok" {
		t.Fatalf("unexpected health payload: %+v", health)
	}
}

func TestEnsureStartedDetectsRunningServer(t *testing.T) {
	srv := healthServer(t, "", 77)
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = strings.TrimPrefix(srv.URL, "http://")

	result, err := EnsureStarted(context.Background(), cfg, "/nonexistent/huddle", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning || result.PID != 77 {
		t.Fatalf("unexpected start result: %+v", result)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if _, err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected empty executable path to fail")
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadPID(filepath.Join(dir, "missing.pid")); !errors.Is(err, ErrServerNotRunning) {
		t.Fatalf("expected ErrServerNotRunning, got %v", err)
	}

	bad := filepath.Join(dir, "bad.pid")
	if err := os.WriteFile(bad, []byte("nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(bad); err == nil {
		t.Fatal("expected malformed pid to fail")
	}

	good := filepath.Join(dir, "good.pid")
	if err := os.WriteFile(good, []byte("123\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pid, err := ReadPID(good)
	if err != nil || pid != 123 {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}
}

func TestStopWithoutPIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := Stop(context.Background(), cfg, time.Second); !errors.Is(err, ErrServerNotRunning) {
		t.Fatalf("expected ErrServerNotRunning, got %v", err)
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	sleepPath, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(sleepPath, "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	// Reap the child so the liveness probe does not see a zombie.
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-done
	})

	pidPath := PIDPath(cfg)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(cmd.Process.Pid)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Stop(context.Background(), cfg, 5*time.Second)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if result.PID != cmd.Process.Pid || result.ForcedKill {
		t.Fatalf("unexpected stop result: %+v", result)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process still running after Stop")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestStatusOfflineFallsBackToLocalDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = "127.0.0.1:1"

	snapshot := Status(context.Background(), cfg)
	if snapshot.Running {
		t.Fatal("expected server reported as stopped")
	}
	if snapshot.Health != nil {
		t.Fatal("expected no health payload")
	}
	if len(snapshot.Dependencies) == 0 {
		t.Fatal("expected locally probed dependencies")
	}
}

func TestStatusReportsRunningServer(t *testing.T) {
	srv := healthServer(t, "", 31)
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = strings.TrimPrefix(srv.URL, "http://")

	snapshot := Status(context.Background(), cfg)
	if !snapshot.Running || snapshot.PID != 31 || snapshot.Health == nil {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}
