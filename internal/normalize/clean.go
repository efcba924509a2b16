package normalize

import "strings"

const fence = "```"

// Clean strips code-fence wrappers from raw worker output until nothing more
// can be removed. Either delimiter may be missing. The opening fence tag is
// matched case-insensitively.
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		next := stripFence(text)
		if next == text {
			return text
		}
		text = next
	}
}

func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, fence) {
		trimmed = stripOpeningTag(trimmed[len(fence):])
	}
	if strings.HasSuffix(trimmed, fence) {
		trimmed = trimmed[:len(trimmed)-len(fence)]
	}
	return strings.TrimSpace(trimmed)
}

// stripOpeningTag removes the language tag that may follow an opening fence.
// A tag is only consumed when it sits alone on the fence line, or when it is
// "json" directly followed by the payload.
func stripOpeningTag(body string) string {
	line, rest, hasNewline := strings.Cut(body, "\n")
	tag := strings.TrimSpace(line)
	if hasNewline && (tag == "" || isFenceTag(tag)) {
		return rest
	}
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		remainder := body[4:]
		if remainder == "" || strings.ContainsAny(remainder[:1], " \t\r\n{[") {
			return remainder
		}
	}
	return body
}

func isFenceTag(tag string) bool {
	if len(tag) > 32 {
		return false
	}
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '+', r == '.':
		default:
			return false
		}
	}
	return true
}
