package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "log.jsonl")
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}

	ev1 := Event{
		ID: "1", Timestamp: time.Unix(1, 0).UTC(), Prompt: "hi", Model: "gpt-4",
		Responses: map[string]string{"gpt-4": "hello"},
		Usage:     map[string]Usage{"gpt-4": {PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}},
	}
	ev2 := Event{
		ID: "2", Timestamp: time.Unix(2, 0).UTC(), Prompt: "foo", Model: "both",
		Responses: map[string]string{"gpt-3.5-turbo": "bar", "gpt-4": "baz"},
	}
	if err := rec.AppendInteraction(ev1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := rec.AppendInteraction(ev2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	events, err := rec.LoadInteractions()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2, got %d", len(events))
	}
	if events[0].ID != "1" || events[1].ID != "2" {
		t.Fatalf("order mismatch: %+v", events)
	}
	if events[0].Usage["gpt-4"].TotalTokens != 3 {
		t.Fatalf("usage lost: %+v", events[0].Usage)
	}
	if events[1].Responses["gpt-4"] != "baz" {
		t.Fatalf("responses lost: %+v", events[1].Responses)
	}

	// ensure file exists and non-empty
	st, err := os.Stat(p)
	if err != nil || st.Size() == 0 {
		t.Fatalf("file not written")
	}
}

func TestFileRecorder_SkipsCorruptLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "log.jsonl")
	if err := os.WriteFile(p, []byte("not json\n\n{\"id\":\"ok\",\"prompt\":\"p\"}\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}
	events, err := rec.LoadInteractions()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 1 || events[0].ID != "ok" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
