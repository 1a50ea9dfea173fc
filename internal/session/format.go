package session

import (
	"fmt"
	"strings"

	"prompt-debugger/internal/history"
)

const (
	DefaultViewSize = 5

	EmptyHistoryText      = "No history yet."
	MultipleResponsesText = "[Multiple Responses]"
)

// FormatHistory renders records (newest first) labelled total, total-1, ...
// Each entry is followed by a blank line.
func FormatHistory(recent []history.Record, total int) string {
	if total == 0 || len(recent) == 0 {
		return EmptyHistoryText
	}
	var b strings.Builder
	for i, rec := range recent {
		fmt.Fprintf(&b, "🔹 Prompt %d [%s]:\n%s\n→ %s\n\n", total-i, rec.Model, rec.Prompt, ResponseText(rec.Response))
	}
	return b.String()
}

// ResponseText flattens a response to one value; comparisons cannot be and
// render as a placeholder.
func ResponseText(r history.Response) string {
	switch v := r.(type) {
	case history.SingleResponse:
		return v.Text
	case history.CompareResponse:
		return MultipleResponsesText
	default:
		return ""
	}
}
