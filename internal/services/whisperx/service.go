package whisperx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"huddle/internal/language"
	"huddle/internal/transcript"
)

// CommandError reports a failed external tool invocation.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Detail returns the tool output, which is what an operator needs to see.
func (e *CommandError) Detail() string {
	lines := strings.Split(strings.TrimSpace(e.Output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// Transcribe implements transcript.Backend. The audio is written into a
// scratch directory under WorkDir, which is removed afterwards.
func (s *Service) Transcribe(ctx context.Context, audio []byte) ([]byte, error) {
	if len(audio) == 0 {
		return nil, errors.New("whisperx: audio payload is empty")
	}
	if s.cfg.WorkDir != "" {
		if err := os.MkdirAll(s.cfg.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("whisperx: ensure work dir: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(s.cfg.WorkDir, "whisperx-*")
	if err != nil {
		return nil, fmt.Errorf("whisperx: create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	source := filepath.Join(scratch, "input"+transcript.AudioExtension(audio))
	if err := os.WriteFile(source, audio, 0o644); err != nil {
		return nil, fmt.Errorf("whisperx: write audio: %w", err)
	}
	wav := filepath.Join(scratch, "meeting.wav")
	if err := s.run(ctx, s.ffmpegBinary, buildFFmpegArgs(source, wav)...); err != nil {
		return nil, err
	}
	if err := s.run(ctx, UVXCommand, s.buildArgs(wav, scratch)...); err != nil {
		return nil, err
	}

	output, err := os.ReadFile(filepath.Join(scratch, "meeting.json"))
	if err != nil {
		return nil, fmt.Errorf("whisperx: read output: %w", err)
	}
	return output, nil
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	// Force legacy behavior so bundled WhisperX binaries can load checkpoints safely.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", name, ctxErr)
		}
		return &CommandError{Command: name, Output: strings.TrimSpace(string(output)), Err: err}
	}
	return nil
}

func buildFFmpegArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if s.cfg.HFToken != "" && (vadMethod == VADMethodPyannote || s.cfg.Diarize) {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if s.cfg.Diarize {
		args = append(args, "--diarize")
		if s.cfg.MinSpeakers > 0 {
			args = append(args, "--min_speakers", strconv.Itoa(s.cfg.MinSpeakers))
		}
		if s.cfg.MaxSpeakers > 0 {
			args = append(args, "--max_speakers", strconv.Itoa(s.cfg.MaxSpeakers))
		}
	}

	if lang := language.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}
