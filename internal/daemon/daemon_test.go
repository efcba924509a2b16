package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"huddle/internal/api"
	"huddle/internal/app"
	"huddle/internal/config"
	"huddle/internal/testsupport"
)

func buildDaemon(t *testing.T, cfg *config.Config, worker *testsupport.FakeWorker) (*Daemon, *app.App) {
	t.Helper()
	a, err := app.Build(cfg, nil,
		app.WithWorker(worker),
		app.WithBackend(&testsupport.FakeBackend{Response: []byte(`{"text":"Let's wrap up, thanks everyone"}`)}),
		app.WithNotifier(&testsupport.RecordingNotifier{}),
	)
	if err != nil {
		t.Fatalf("app.Build: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	d, err := New(cfg, a, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, a
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := buildDaemon(t, cfg, testsupport.NewFakeWorker())

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if !status.Running || status.ListenAddr == "" || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status %+v", status)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to report stopped")
	}
	if d.ListenAddr() != "" {
		t.Fatalf("expected listener to be released, got %q", d.ListenAddr())
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, a := buildDaemon(t, cfg, testsupport.NewFakeWorker())
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := New(cfg, a, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("Start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonServesHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	d, _ := buildDaemon(t, cfg, testsupport.NewFakeWorker(`{"summary":"Wrapped up."}`))
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	base := "http://" + d.ListenAddr()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/api/transcripts/text", strings.NewReader(`{"text":"Let's wrap up","source":"http"}`))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("POST text: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var ingest api.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ingest.Reference == "" {
		t.Fatal("expected a reference")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TranscriptsDir, ingest.Reference+".txt")); err != nil {
		t.Fatalf("expected transcript file on disk: %v", err)
	}
}

func TestDaemonWatchesInbox(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInbox())
	d, a := buildDaemon(t, cfg, testsupport.NewFakeWorker())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Status().Watching != cfg.Watch.InboxDir {
		t.Fatalf("expected watcher on %s, got %q", cfg.Watch.InboxDir, d.Status().Watching)
	}
	testsupport.WriteAudio(t, filepath.Join(cfg.Watch.InboxDir, "standup.wav"))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := a.Transcripts.List(context.Background(), 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(entries) == 1 {
			if entries[0].Source != "standup.wav" {
				t.Fatalf("unexpected source %q", entries[0].Source)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("inbox audio was not ingested")
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d, _ := buildDaemon(t, testsupport.NewConfig(t), testsupport.NewFakeWorker())
	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result sent=%v message=%q err=%v", sent, message, err)
	}
}
