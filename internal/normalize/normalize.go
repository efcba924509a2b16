package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// minNarrativeRunes is the shortest cleaned text accepted as narrative.
const minNarrativeRunes = 10

// errorTokens reject narrative text when they open it.
var errorTokens = map[string]struct{}{
	"error":     {},
	"exception": {},
	"traceback": {},
	"fatal":     {},
}

// statusTokens read as ordinary prose ("Failed to reach item 3") and only
// count as errors in the "failed: ..." status form.
var statusTokens = map[string]struct{}{
	"failed":  {},
	"invalid": {},
}

// Normalize maps raw worker output onto a Result for the expected shape:
//
//  1. fences are stripped (Clean);
//  2. structured shapes parse the text as JSON, directly or from the first
//     object embedded in prose, and validate it against the shape schema;
//  3. a valid payload yields Structured; a parsed payload missing the expected
//     field yields Structured with the cleaned text as that field's value;
//  4. otherwise text that is long enough and does not open with an error
//     token yields Narrative, and anything else the Sentinel.
func Normalize(raw string, shape Shape) Result {
	cleaned := Clean(raw)
	if spec, ok := structuredShapes[shape]; ok {
		if payload, parsed := parseJSON(cleaned); parsed {
			return structuredResult(spec, payload, cleaned)
		}
	}
	return narrativeResult(cleaned)
}

func structuredResult(spec structuredShape, payload any, cleaned string) Result {
	object, isObject := payload.(map[string]any)
	if isObject && spec.schema.Validate(payload) == nil {
		fields := make(map[string]string, len(spec.fields))
		for _, name := range spec.fields {
			if value, ok := object[name].(string); ok {
				fields[name] = strings.TrimSpace(value)
			}
		}
		return Structured(fields)
	}
	return Structured(map[string]string{spec.primary: cleaned})
}

func narrativeResult(cleaned string) Result {
	if utf8.RuneCountInString(cleaned) < minNarrativeRunes || startsWithErrorToken(cleaned) {
		return Sentinel()
	}
	return Narrative(cleaned)
}

func startsWithErrorToken(text string) bool {
	word := strings.TrimLeftFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	rest := ""
	if end := strings.IndexFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }); end >= 0 {
		word, rest = word[:end], word[end:]
	}
	word = cases.Fold().String(word)
	if _, found := errorTokens[word]; found {
		return true
	}
	_, found := statusTokens[word]
	return found && strings.HasPrefix(rest, ":")
}

// parseJSON decodes text directly, then falls back to the outermost {...}
// span the way fenced or chatty model replies are usually shaped. Only an
// object is accepted from the fallback.
func parseJSON(text string) (any, bool) {
	if text == "" {
		return nil, false
	}
	if value, err := decodeJSON(text); err == nil {
		return value, true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	value, err := decodeJSON(text[start : end+1])
	if err != nil {
		return nil, false
	}
	if _, ok := value.(map[string]any); !ok {
		return nil, false
	}
	return value, true
}

func decodeJSON(text string) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, errTrailingData
	}
	return value, nil
}

// DecodeObject cleans raw output and decodes the JSON object it carries,
// either directly or embedded in surrounding prose. Numbers decode as
// json.Number.
func DecodeObject(raw string) (map[string]any, bool) {
	value, ok := parseJSON(Clean(raw))
	if !ok {
		return nil, false
	}
	object, ok := value.(map[string]any)
	return object, ok
}
