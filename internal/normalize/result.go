package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// SentinelText is the narrative returned when nothing usable could be extracted.
const SentinelText = "could not extract result"

// Kind tags a Result.
type Kind int

const (
	KindNarrative Kind = iota
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindNarrative:
		return "narrative"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Result is the normalized form of one worker response. Structured results
// carry Fields; narrative results carry Text.
type Result struct {
	Kind   Kind              `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
	Text   string            `json:"text,omitempty"`
}

// Structured builds a structured result. The map is copied.
func Structured(fields map[string]string) Result {
	copied := make(map[string]string, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return Result{Kind: KindStructured, Fields: copied}
}

// Narrative builds a narrative result.
func Narrative(text string) Result {
	return Result{Kind: KindNarrative, Text: text}
}

// Sentinel returns the narrative used when no usable content was produced.
func Sentinel() Result {
	return Narrative(SentinelText)
}

// IsSentinel reports whether r is the sentinel result.
func (r Result) IsSentinel() bool {
	return r.Kind == KindNarrative && r.Text == SentinelText
}

// Equal reports whether two results carry the same tag and content.
func (r Result) Equal(other Result) bool {
	if r.Kind != other.Kind || r.Text != other.Text || len(r.Fields) != len(other.Fields) {
		return false
	}
	for key, value := range r.Fields {
		if otherValue, ok := other.Fields[key]; !ok || otherValue != value {
			return false
		}
	}
	return true
}

// String renders the result for humans: the narrative text, or the fields in
// key order (a single field renders as its bare value).
func (r Result) String() string {
	if r.Kind != KindStructured {
		return r.Text
	}
	if len(r.Fields) == 1 {
		for _, value := range r.Fields {
			return value
		}
	}
	keys := make([]string, 0, len(r.Fields))
	for key := range r.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+": "+r.Fields[key])
	}
	return strings.Join(lines, "\n")
}

// Decode copies structured fields into target, matching json struct tags.
func (r Result) Decode(target any) error {
	if r.Kind != KindStructured {
		return errors.New("normalize: decode: result is narrative")
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("normalize: decode: %w", err)
	}
	if err := decoder.Decode(r.Fields); err != nil {
		return fmt.Errorf("normalize: decode: %w", err)
	}
	return nil
}

var errTrailingData = errors.New("normalize: trailing data after JSON value")
