package text_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/text"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		speaker string
		want    string
		wantErr error
	}{
		{name: "plain", input: "你好啊", want: "你好啊"},
		{name: "speaker label", input: "张三: 在的", speaker: "张三", want: "在的"},
		{name: "full width colon", input: "张三：在的", speaker: "张三", want: "在的"},
		{name: "speaker without colon kept", input: "张三丰来了", speaker: "张三", want: "张三丰来了"},
		{name: "timestamp prefix", input: "[2025-03-06T22:30:11+01:00] BOT: hi", want: "hi"},
		{name: "crlf and blank lines", input: "a\r\n\r\n\r\n\r\nb", want: "a\n\nb"},
		{name: "invisible chars", input: "he\u200Bllo\uFEFF", want: "hello"},
		{name: "control chars", input: "a\x07b", want: "a b"},
		{name: "markdown indentation kept", input: "- item\n  - nested   \n", want: "- item\n  - nested"},
		{name: "whitespace only", input: " \n\t ", wantErr: text.ErrEmpty},
		{name: "label only", input: "张三:", speaker: "张三", wantErr: text.ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := text.Sanitize(tt.input, tt.speaker)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Sanitize() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Sanitize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWindowSelect(t *testing.T) {
	t.Parallel()

	history := []database.Message{
		{ID: 1, Content: strings.Repeat("x", 400)},
		{ID: 2, Content: "你好"},
		{ID: 3, Content: "在吗"},
	}

	tests := []struct {
		name    string
		max     int
		wantIDs []int64
	}{
		{name: "unlimited", max: 0, wantIDs: []int64{1, 2, 3}},
		{name: "drops oldest", max: 20, wantIDs: []int64{2, 3}},
		{name: "only newest", max: 6, wantIDs: []int64{3}},
		{name: "nothing fits", max: 3, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := text.Window{MaxTokens: tt.max}.Select(history)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Select() returned %d messages, want %d", len(got), len(tt.wantIDs))
			}
			for i, m := range got {
				if m.ID != tt.wantIDs[i] {
					t.Errorf("Select()[%d].ID = %d, want %d", i, m.ID, tt.wantIDs[i])
				}
			}
		})
	}
}
