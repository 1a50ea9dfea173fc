package storage

import "time"

// Usage is the provider-reported token accounting of one model call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Event represents one successful interaction: a single-model answer or a
// comparison. Responses and Usage are keyed by model id; a single-model
// event has exactly one key, equal to Model.
// Events are expected to be appended in chronological order.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Prompt    string            `json:"prompt"`
	Model     string            `json:"model"`
	Responses map[string]string `json:"responses"`
	Usage     map[string]Usage  `json:"usage"`
}

// Recorder abstracts persistence of interaction events.
// LoadInteractions should return events in chronological order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
