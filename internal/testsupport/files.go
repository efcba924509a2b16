package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WAV returns a mono 16 kHz 16-bit PCM file containing ms milliseconds of
// silence. Transcription fakes never decode it, but the header is valid so
// format sniffing and ffmpeg both accept it.
func WAV(ms int) []byte {
	const (
		sampleRate    = 16000
		bitsPerSample = 16
		channels      = 1
	)
	dataLen := uint32(max(ms, 0) * sampleRate / 1000 * bitsPerSample / 8)
	buf := make([]byte, 44+int(dataLen))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataLen)
	copy(buf[8:16], "WAVEfmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[32:34], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataLen)
	return buf
}

// WriteAudio writes a short WAV fixture to path, creating parent directories.
func WriteAudio(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, WAV(250), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
