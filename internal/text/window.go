package text

import (
	"unicode/utf8"

	"github.com/edgard/chatdesk/internal/database"
)

// messageOverhead approximates the tokens each turn costs beyond its content.
const messageOverhead = 4

// EstimateTokens is a rough token count: about four ASCII characters per token,
// and one token per rune for everything else (CJK text in practice).
func EstimateTokens(s string) int {
	ascii, other := 0, 0
	for _, r := range s {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			other++
		}
	}
	return other + (ascii+3)/4
}

// Window selects the most recent messages that fit in MaxTokens.
type Window struct {
	MaxTokens int
}

// Select returns the longest suffix of messages whose estimated size fits the budget,
// in chronological order. A non-positive MaxTokens disables the limit.
func (w Window) Select(messages []database.Message) []database.Message {
	if w.MaxTokens <= 0 {
		return messages
	}

	used := 0
	first := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		cost := EstimateTokens(messages[i].Content) + messageOverhead
		if used+cost > w.MaxTokens {
			break
		}
		used += cost
		first = i
	}
	return messages[first:]
}
