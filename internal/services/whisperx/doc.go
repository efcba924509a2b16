// Package whisperx is the local transcription backend. It runs WhisperX
// through uvx on a scratch copy of the audio and returns WhisperX's JSON
// output unchanged, speaker labels included when diarization is enabled.
//
// Input audio is first converted to mono 16kHz WAV with ffmpeg. Both tools
// run as single-shot subprocesses; a failure surfaces as *CommandError whose
// Detail carries the tool's trimmed output.
package whisperx
