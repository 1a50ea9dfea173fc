package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"prompt-debugger/internal/storage"
)

// DailyStats aggregates one day of recorded interactions.
type DailyStats struct {
	Date              string                `json:"date"`
	TotalInteractions int                   `json:"total_interactions"`
	SingleCalls       int                   `json:"single_calls"`
	Comparisons       int                   `json:"comparisons"`
	TotalTokens       int                   `json:"total_tokens"`
	ModelStats        map[string]ModelStats `json:"model_stats"`
}

// ModelStats is per-model call and token accounting.
type ModelStats struct {
	Model            string `json:"model"`
	Calls            int    `json:"calls"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// compareTag mirrors history.BothModels; analytics reads raw events only.
const compareTag = "both"

// AnalyzeDailyLogs aggregates events whose timestamp falls on targetDate's
// calendar day in targetDate's location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:       startOfDay.Format("2006-01-02"),
		ModelStats: make(map[string]ModelStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.Prompt == "" {
			continue
		}

		stats.TotalInteractions++
		if event.Model == compareTag {
			stats.Comparisons++
		} else {
			stats.SingleCalls++
		}

		for model, u := range event.Usage {
			ms, ok := stats.ModelStats[model]
			if !ok {
				ms = ModelStats{Model: model}
			}
			ms.Calls++
			ms.PromptTokens += u.PromptTokens
			ms.CompletionTokens += u.CompletionTokens
			ms.TotalTokens += u.TotalTokens
			stats.ModelStats[model] = ms
			stats.TotalTokens += u.TotalTokens
		}
	}

	return stats
}

// GenerateReportSummary renders the stats as plain text.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Token usage for %s:\n", ds.Date)
	fmt.Fprintf(&b, "- Interactions: %d (%d single, %d comparisons)\n", ds.TotalInteractions, ds.SingleCalls, ds.Comparisons)
	fmt.Fprintf(&b, "- Total tokens: %d\n", ds.TotalTokens)

	if len(ds.ModelStats) == 0 {
		return b.String()
	}
	models := make([]string, 0, len(ds.ModelStats))
	for m := range ds.ModelStats {
		models = append(models, m)
	}
	sort.Strings(models)

	b.WriteString("\nBy model:\n")
	for _, m := range models {
		ms := ds.ModelStats[m]
		fmt.Fprintf(&b, "- %s: %d calls, prompt %d, completion %d, total %d\n",
			m, ms.Calls, ms.PromptTokens, ms.CompletionTokens, ms.TotalTokens)
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
