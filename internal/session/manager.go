package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"prompt-debugger/internal/history"
	"prompt-debugger/internal/llm"
	"prompt-debugger/internal/storage"
)

// Caller is the model-call surface the manager drives.
type Caller interface {
	Call(ctx context.Context, prompt, model string) (llm.Response, error)
}

type Manager struct {
	caller    Caller
	store     *history.Store
	primary   string
	secondary string
	viewSize  int
	recorder  storage.Recorder
	logger    *slog.Logger
}

type Option func(*Manager)

// WithRecorder also appends every successful interaction to rec.
func WithRecorder(rec storage.Recorder) Option {
	return func(m *Manager) { m.recorder = rec }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithViewSize sets how many records History renders.
func WithViewSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.viewSize = n
		}
	}
}

// New returns a manager comparing primary against secondary. primary is
// also the default model for single prompts. It panics if the two models are
// the same, since a comparison record must hold one answer per model.
func New(caller Caller, store *history.Store, primary, secondary string, opts ...Option) *Manager {
	if primary == secondary {
		panic(fmt.Sprintf("session: primary and secondary model are both %q", primary))
	}
	m := &Manager{
		caller:    caller,
		store:     store,
		primary:   primary,
		secondary: secondary,
		viewSize:  DefaultViewSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Usage is the token accounting of one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func usageOf(r llm.Response) Usage {
	return Usage{PromptTokens: r.PromptTokens, CompletionTokens: r.CompletionTokens, TotalTokens: r.TotalTokens}
}

// SingleResult holds the answer and token summary shown to a user. On
// failure Answer is "Error: <message>", Tokens is empty and Err is set.
type SingleResult struct {
	Answer string
	Tokens string
	Usage  Usage
	Err    *llm.Error
}

// CompareResult is all-or-nothing: on failure AnswerA carries the error text
// and the other three fields are empty.
type CompareResult struct {
	ModelA  string
	AnswerA string
	TokensA string
	ModelB  string
	AnswerB string
	TokensB string
	Usage   map[string]Usage
	Err     *llm.Error
}

func (m *Manager) Models() []string { return []string{m.primary, m.secondary} }

func (m *Manager) DefaultModel() string { return m.primary }

func (m *Manager) IsModelAllowed(model string) bool {
	return model == m.primary || model == m.secondary
}

func (m *Manager) Store() *history.Store { return m.store }

// Single sends prompt to one model. A record is appended only on success.
func (m *Manager) Single(ctx context.Context, prompt, model string) SingleResult {
	resp, err := m.caller.Call(ctx, prompt, model)
	if err != nil {
		le := llm.AsError(model, err)
		m.logger.Warn("model call failed",
			slog.String("model", model),
			slog.String("kind", string(le.Kind)),
			slog.String("error", le.Message))
		return SingleResult{Answer: errorText(le), Err: le}
	}

	m.store.Append(history.NewSingle(prompt, model, resp.Content))
	u := usageOf(resp)
	m.logger.Info("model call succeeded",
		slog.String("model", model),
		slog.Int("prompt_tokens", u.PromptTokens),
		slog.Int("completion_tokens", u.CompletionTokens),
		slog.Int("total_tokens", u.TotalTokens))
	m.record(prompt, model, map[string]string{model: resp.Content}, map[string]Usage{model: u})

	return SingleResult{Answer: resp.Content, Tokens: SingleTokenSummary(u), Usage: u}
}

// Compare sends prompt to the primary then the secondary model. The first
// failure ends the comparison: the second call is not issued, any answer
// already received is discarded, and nothing is appended.
func (m *Manager) Compare(ctx context.Context, prompt string) CompareResult {
	models := m.Models()
	answers := make(map[string]string, len(models))
	usage := make(map[string]Usage, len(models))
	for _, model := range models {
		resp, err := m.caller.Call(ctx, prompt, model)
		if err != nil {
			le := llm.AsError(model, err)
			m.logger.Warn("compare aborted",
				slog.String("model", model),
				slog.String("kind", string(le.Kind)),
				slog.String("error", le.Message))
			return CompareResult{AnswerA: errorText(le), Err: le}
		}
		answers[model] = resp.Content
		usage[model] = usageOf(resp)
	}

	m.store.Append(history.NewCompare(prompt, answers))
	m.logger.Info("compare succeeded",
		slog.String("model_a", m.primary),
		slog.Int("total_tokens_a", usage[m.primary].TotalTokens),
		slog.String("model_b", m.secondary),
		slog.Int("total_tokens_b", usage[m.secondary].TotalTokens))
	m.record(prompt, history.BothModels, answers, usage)

	return CompareResult{
		ModelA:  m.primary,
		AnswerA: answers[m.primary],
		TokensA: CompareTokenSummary(usage[m.primary]),
		ModelB:  m.secondary,
		AnswerB: answers[m.secondary],
		TokensB: CompareTokenSummary(usage[m.secondary]),
		Usage:   usage,
	}
}

// Replay returns the prompt and model of the record shown at displayIndex
// (0 is the newest). Comparison records report the default model.
func (m *Manager) Replay(displayIndex int) (string, string, error) {
	rec, err := m.store.ByDisplayIndex(displayIndex)
	if err != nil {
		return "", "", err
	}
	model := rec.Model
	if model == history.BothModels {
		model = m.primary
	}
	return rec.Prompt, model, nil
}

// History renders the most recent records.
func (m *Manager) History() string {
	recent, total := m.store.Recent(m.viewSize)
	return FormatHistory(recent, total)
}

// Records returns up to viewSize records, newest first, and the total count.
func (m *Manager) Records() ([]history.Record, int) {
	return m.store.Recent(m.viewSize)
}

// Estimate counts prompt tokens locally; no request is made and nothing is
// recorded.
func (m *Manager) Estimate(prompt, model string) (int, error) {
	if !m.IsModelAllowed(model) {
		return 0, fmt.Errorf("model %q is not one of %v", model, m.Models())
	}
	return llm.EstimateTokens(model, prompt)
}

func (m *Manager) record(prompt, model string, responses map[string]string, usage map[string]Usage) {
	if m.recorder == nil {
		return
	}
	ev := storage.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Prompt:    prompt,
		Model:     model,
		Responses: responses,
		Usage:     make(map[string]storage.Usage, len(usage)),
	}
	for k, u := range usage {
		ev.Usage[k] = storage.Usage(u)
	}
	if err := m.recorder.AppendInteraction(ev); err != nil {
		m.logger.Error("failed to record interaction", slog.String("error", err.Error()))
	}
}

func errorText(err error) string { return "Error: " + err.Error() }

// SingleTokenSummary formats usage for the single-model view.
func SingleTokenSummary(u Usage) string {
	return fmt.Sprintf("Prompt Tokens: %d, Completion Tokens: %d, Total: %d", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

// CompareTokenSummary formats usage for one side of a comparison.
func CompareTokenSummary(u Usage) string {
	return fmt.Sprintf("Prompt: %d, Completion: %d, Total: %d", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}
