package ai

import (
	"errors"
	"regexp"
	"strings"
)

// PlaceholderPrompt is the substitution marker in stored prompt templates.
const PlaceholderPrompt = "{{prompt}}"

var dataURLPattern = regexp.MustCompile(`^data:(image/\w+);base64,(.+)$`)

// ErrInvalidImageData is returned for image payloads that are not
// base64 data URLs. Adapters check this before any network call.
var ErrInvalidImageData = errors.New("invalid image data format")

// ParseDataURL splits a data:<mime>;base64,<data> URL into its MIME type
// and raw base64 payload.
func ParseDataURL(imageData string) (mimeType, base64Data string, err error) {
	m := dataURLPattern.FindStringSubmatch(imageData)
	if m == nil {
		return "", "", ErrInvalidImageData
	}
	return m[1], m[2], nil
}

// RenderTemplate substitutes the user prompt into a stored template.
func RenderTemplate(template, prompt string) string {
	return strings.ReplaceAll(template, PlaceholderPrompt, prompt)
}

// ExtractFirstJSONObject returns the first balanced {...} substring of
// free text. Vendors without a native JSON output mode wrap the payload in
// prose or markdown fences; this is the parsing fallback.
func ExtractFirstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
