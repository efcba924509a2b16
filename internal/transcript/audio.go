package transcript

import "bytes"

// AudioExtension guesses a file extension from the audio container's magic
// bytes. Unknown containers get ".bin"; ffmpeg probes the content anyway.
func AudioExtension(audio []byte) string {
	switch {
	case len(audio) >= 12 && bytes.HasPrefix(audio, []byte("RIFF")) && bytes.Equal(audio[8:12], []byte("WAVE")):
		return ".wav"
	case bytes.HasPrefix(audio, []byte("ID3")), len(audio) >= 2 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0:
		return ".mp3"
	case bytes.HasPrefix(audio, []byte("OggS")):
		return ".ogg"
	case bytes.HasPrefix(audio, []byte("fLaC")):
		return ".flac"
	case len(audio) >= 8 && bytes.Equal(audio[4:8], []byte("ftyp")):
		return ".m4a"
	case bytes.HasPrefix(audio, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return ".webm"
	default:
		return ".bin"
	}
}
