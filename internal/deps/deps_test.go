package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[0].Path != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Path)
	}
}

func TestCheckUnconfiguredCommand(t *testing.T) {
	status := Check(Requirement{Name: "pdftotext", Command: "  "})
	if status.Available || status.Detail != "command not configured" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "uvx", Available: false},
		{Name: "pdftotext", Available: false, Optional: true},
		{Name: "FFmpeg", Available: true},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "uvx" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}

func TestResolveFFmpegPathOverride(t *testing.T) {
	tmp := t.TempDir()
	ffmpegPath := filepath.Join(tmp, executableName("ffmpeg-custom"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	t.Setenv(FFmpegEnv, ffmpegPath)
	t.Setenv("PATH", "")

	if got := ResolveFFmpegPath(); got != ffmpegPath {
		t.Fatalf("expected override %q, got %q", ffmpegPath, got)
	}
}

func TestResolveFFmpegPathIgnoresNonExecutableOverride(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	tmp := t.TempDir()
	notExec := filepath.Join(tmp, "ffmpeg.txt")
	if err := os.WriteFile(notExec, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv(FFmpegEnv, notExec)
	t.Setenv("PATH", "")

	if got := ResolveFFmpegPath(); got != "ffmpeg" {
		t.Fatalf("expected bare command fallback, got %q", got)
	}
}

func TestResolveFFmpegPathFromPATH(t *testing.T) {
	binDir := t.TempDir()
	ffmpegPath := filepath.Join(binDir, executableName("ffmpeg"))
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(ffmpegPath, script, 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	t.Setenv(FFmpegEnv, "")
	t.Setenv("PATH", binDir)

	if got := ResolveFFmpegPath(); got != ffmpegPath {
		t.Fatalf("expected PATH lookup %q, got %q", ffmpegPath, got)
	}
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
