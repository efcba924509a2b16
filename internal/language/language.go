package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2 string
	alt3  string // bibliographic ISO 639-2 code, where it differs
	word  string
}

// Languages commonly spoken in meetings, plus the spellings people type for them.
var languages = []entry{
	{"en", "", "english"},
	{"es", "", "spanish"},
	{"fr", "fre", "french"},
	{"de", "ger", "german"},
	{"it", "", "italian"},
	{"pt", "", "portuguese"},
	{"ja", "", "japanese"},
	{"ko", "", "korean"},
	{"zh", "chi", "chinese"},
	{"ru", "", "russian"},
	{"ar", "", "arabic"},
	{"hi", "", "hindi"},
	{"nl", "dut", "dutch"},
	{"pl", "", "polish"},
	{"sv", "", "swedish"},
	{"da", "", "danish"},
	{"no", "", "norwegian"},
	{"fi", "", "finnish"},
}

var aliases = func() map[string]string {
	m := make(map[string]string, len(languages)*2)
	for _, e := range languages {
		m[e.word] = e.code2
		if e.alt3 != "" {
			m[e.alt3] = e.code2
		}
	}
	return m
}()

// ToISO2 reduces code to a two-letter ISO 639-1 code. It returns "" for
// empty or unrecognized input, and for languages with no two-letter code.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if mapped, ok := aliases[code]; ok {
		return mapped
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	iso := base.String()
	if len(iso) != 2 {
		return ""
	}
	return iso
}

// Valid reports whether code is empty (auto-detect) or normalizes to a
// two-letter code.
func Valid(code string) bool {
	return strings.TrimSpace(code) == "" || ToISO2(code) != ""
}

// DisplayName returns the English name of code, "Auto-detect" for empty
// input, or the uppercased input when it is not recognized.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Auto-detect"
	}
	iso := ToISO2(trimmed)
	if iso == "" {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(xlanguage.Make(iso)); name != "" {
		return name
	}
	return strings.ToUpper(iso)
}
