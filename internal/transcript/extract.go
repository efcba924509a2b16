package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Shape records how a transcript's text was obtained.
type Shape string

const (
	ShapeFlat      Shape = "flat"
	ShapeSegmented Shape = "segmented"
	// ShapeRaw marks a transcript persisted as the serialized backend response
	// because no known shape was recognized.
	ShapeRaw Shape = "raw"
	// ShapeText marks text supplied directly rather than transcribed.
	ShapeText Shape = "text"
)

// ErrUnrecognizedShape reports a backend response with neither flat text nor
// usable segments.
var ErrUnrecognizedShape = errors.New("unrecognized transcription response shape")

type response struct {
	Text       *string   `json:"text"`
	Segments   []segment `json:"segments"`
	Utterances []segment `json:"utterances"`
}

type segment struct {
	Speaker json.RawMessage `json:"speaker"`
	Text    string          `json:"text"`
	Start   *float64        `json:"start,omitempty"`
	End     *float64        `json:"end,omitempty"`
}

// Extract renders a transcription response as plain text.
//
// Speaker-tagged segments (under "segments" or "utterances") are joined one
// per line as "Speaker <id>: <text>" in their original order and take
// precedence over a flat "text" field. Without speakers the flat text wins,
// and a bare segment list is joined with spaces.
func Extract(raw []byte) (string, Shape, error) {
	var resp response
	if err := json.Unmarshal(bytes.TrimSpace(raw), &resp); err != nil {
		return "", "", ErrUnrecognizedShape
	}
	segments := resp.Segments
	if len(segments) == 0 {
		segments = resp.Utterances
	}
	if hasSpeakers(segments) {
		if text := joinSpeakerLines(segments); text != "" {
			return text, ShapeSegmented, nil
		}
	}
	if resp.Text != nil {
		if text := strings.TrimSpace(*resp.Text); text != "" {
			return text, ShapeFlat, nil
		}
	}
	if len(segments) > 0 {
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			if text := strings.TrimSpace(seg.Text); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " "), ShapeSegmented, nil
		}
	}
	return "", "", ErrUnrecognizedShape
}

// SerializeRaw returns the stored form of an unrecognized response: compacted
// JSON when it parses, otherwise the bytes as received.
func SerializeRaw(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(raw)); err == nil {
		return buf.String()
	}
	return string(raw)
}

func hasSpeakers(segments []segment) bool {
	for _, seg := range segments {
		if speakerLabel(seg.Speaker) != "" {
			return true
		}
	}
	return false
}

func joinSpeakerLines(segments []segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		label := speakerLabel(seg.Speaker)
		if label == "" {
			label = "?"
		}
		lines = append(lines, "Speaker "+label+": "+text)
	}
	return strings.Join(lines, "\n")
}

// speakerLabel accepts string or numeric speaker ids and shortens the
// "SPEAKER_00" form used by pyannote-based diarizers to "00".
func speakerLabel(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var label string
	if err := json.Unmarshal(trimmed, &label); err != nil {
		var number json.Number
		if err := json.Unmarshal(trimmed, &number); err != nil {
			return ""
		}
		label = number.String()
	}
	label = strings.TrimSpace(label)
	upper := strings.ToUpper(label)
	for _, prefix := range []string{"SPEAKER_", "SPEAKER "} {
		if strings.HasPrefix(upper, prefix) && len(label) > len(prefix) {
			return strings.TrimSpace(label[len(prefix):])
		}
	}
	return label
}
