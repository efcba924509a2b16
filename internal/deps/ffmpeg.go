package deps

import (
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// FFmpegEnv overrides the ffmpeg binary used for audio conversion.
const FFmpegEnv = "HUDDLE_FFMPEG"

// ResolveFFmpegPath returns the ffmpeg binary the WhisperX backend should run.
// An executable named by HUDDLE_FFMPEG wins over the PATH lookup. When neither
// resolves, the bare command name is returned so the failure surfaces at run time.
func ResolveFFmpegPath() string {
	if override := strings.TrimSpace(os.Getenv(FFmpegEnv)); override != "" {
		if info, err := os.Stat(override); err == nil && isExecutable(info) {
			return override
		}
	}
	if resolved, err := exec.LookPath("ffmpeg"); err == nil {
		return resolved
	}
	return "ffmpeg"
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
