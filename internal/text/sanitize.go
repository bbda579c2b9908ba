package text

import (
	"strings"
	"unicode"
)

// Sanitize normalizes a generated reply before it is stored as a message:
// a leading "[timestamp] NAME:" or "speaker:" label is dropped, line endings become LF,
// invisible and control characters are removed, trailing spaces are trimmed and
// runs of blank lines collapse to one. Leading indentation is kept so markdown
// lists and code blocks survive.
func Sanitize(input, speaker string) (string, error) {
	s := timestampPrefixRegex.ReplaceAllString(input, "")
	s = stripSpeaker(s, speaker)

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = unicodeReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	s = strings.Join(lines, "\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")

	// Trim blank lines around the text but keep the first line's indentation.
	s = strings.Trim(s, "\n")
	if strings.TrimSpace(s) == "" {
		return "", ErrEmpty
	}
	return s, nil
}

// stripSpeaker removes "speaker:" or "speaker：" (full-width colon) at the start of s.
func stripSpeaker(s, speaker string) string {
	if speaker == "" {
		return s
	}
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	rest, ok := strings.CutPrefix(trimmed, speaker)
	if !ok {
		return s
	}
	for _, colon := range []string{":", "："} {
		if after, ok := strings.CutPrefix(rest, colon); ok {
			return strings.TrimLeftFunc(after, unicode.IsSpace)
		}
	}
	return s
}
