package whisperx

import (
	"huddle/internal/config"
)

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v3-turbo").
	Model string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD and diarization.
	HFToken string
	// Diarize asks WhisperX to attach speaker labels to segments.
	Diarize     bool
	MinSpeakers int
	MaxSpeakers int
	// Language is a BCP 47 tag or ISO code; empty lets WhisperX detect it.
	Language string
	// WorkDir holds per-call scratch directories.
	WorkDir string
}

// FromConfig maps the [whisperx] and [transcription] sections onto Config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Model:       cfg.WhisperX.Model,
		CUDAEnabled: cfg.WhisperX.CUDAEnabled,
		VADMethod:   cfg.WhisperX.VADMethod,
		HFToken:     cfg.WhisperX.HFToken,
		Diarize:     cfg.WhisperX.Diarize,
		MinSpeakers: cfg.WhisperX.MinSpeakers,
		MaxSpeakers: cfg.WhisperX.MaxSpeakers,
		Language:    cfg.Transcription.Language,
		WorkDir:     cfg.Paths.WorkDir,
	}
}

// WhisperX configuration constants.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "10"
	BestOf            = "10"
	Temperature       = "0.0"
	Patience          = "1.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)
