// Package text cleans generated bot replies and fits conversation history into a token budget.
package text

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmpty is returned when nothing is left after sanitizing.
var ErrEmpty = errors.New("text is empty after sanitizing")

var (
	// controlCharsRegex matches ASCII control characters except tab and newline.
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	multipleNewlinesRegex = regexp.MustCompile(`\n{3,}`)

	// timestampPrefixRegex matches "[2025-03-06T22:30:11+01:00] NAME:" at the start of a reply.
	timestampPrefixRegex = regexp.MustCompile(`^\s*\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})\]\s+[^:\n]*:\s*`)

	unicodeReplacer = strings.NewReplacer(
		// invisible format and direction marks
		"\u2060", "",
		"\uFEFF", "",
		"\u00AD", "",
		"\u200E", "",
		"\u200F", "",
		"\u2061", "",
		"\u2062", "",
		"\u2063", "",
		"\u2064", "",
		"\u200B", "",
		"\u200C", "",

		"\u2028", "\n",
		"\u2029", "\n\n",
		"\u205F", " ",
		"\u2009", " ",
		"\u200A", " ",
		"\u202F", " ",
		"\u00A0", " ",
	)
)
