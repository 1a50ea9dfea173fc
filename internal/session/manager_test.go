package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt-debugger/internal/history"
	"prompt-debugger/internal/llm"
	"prompt-debugger/internal/storage"
)

const (
	modelA = "gpt-3.5-turbo"
	modelB = "gpt-4"
)

type fakeCaller struct {
	responses map[string]llm.Response
	errs      map[string]error
	calls     []string
}

func (f *fakeCaller) Call(ctx context.Context, prompt, model string) (llm.Response, error) {
	f.calls = append(f.calls, model)
	if err, ok := f.errs[model]; ok {
		return llm.Response{}, err
	}
	r, ok := f.responses[model]
	if !ok {
		return llm.Response{}, fmt.Errorf("no scripted response for %s", model)
	}
	if r.Content == "" {
		r.Content = model + " says " + prompt
	}
	r.Model = model
	return r, nil
}

func okCaller() *fakeCaller {
	return &fakeCaller{responses: map[string]llm.Response{
		modelA: {PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		modelB: {PromptTokens: 11, CompletionTokens: 21, TotalTokens: 32},
	}}
}

type memRecorder struct {
	events []storage.Event
	err    error
}

func (m *memRecorder) AppendInteraction(ev storage.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memRecorder) LoadInteractions() ([]storage.Event, error) { return m.events, nil }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newManager(c Caller, opts ...Option) *Manager {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(c, history.NewStore(0), modelA, modelB, opts...)
}

func TestSingle_Success(t *testing.T) {
	rec := &memRecorder{}
	m := newManager(okCaller(), WithRecorder(rec))

	res := m.Single(context.Background(), "hello", modelB)
	require.Nil(t, res.Err)
	assert.Equal(t, "gpt-4 says hello", res.Answer)
	assert.Equal(t, "Prompt Tokens: 11, Completion Tokens: 21, Total: 32", res.Tokens)

	all := m.Store().All()
	require.Len(t, all, 1)
	assert.Equal(t, "hello", all[0].Prompt)
	assert.Equal(t, modelB, all[0].Model)
	assert.Equal(t, history.SingleResponse{Text: "gpt-4 says hello"}, all[0].Response)

	require.Len(t, rec.events, 1)
	assert.Equal(t, modelB, rec.events[0].Model)
	assert.NotEmpty(t, rec.events[0].ID)
	assert.Equal(t, 32, rec.events[0].Usage[modelB].TotalTokens)
}

func TestSingle_FailureLeavesHistoryUnchanged(t *testing.T) {
	c := okCaller()
	c.errs = map[string]error{modelA: &llm.Error{Model: modelA, Kind: llm.KindAuth, Message: "invalid api key"}}
	rec := &memRecorder{}
	m := newManager(c, WithRecorder(rec))

	res := m.Single(context.Background(), "hello", modelA)
	require.NotNil(t, res.Err)
	assert.Equal(t, llm.KindAuth, res.Err.Kind)
	assert.Equal(t, "Error: invalid api key", res.Answer)
	assert.Empty(t, res.Tokens)
	assert.Equal(t, 0, m.Store().Len())
	assert.Empty(t, rec.events)
}

func TestSingle_PlainErrorIsWrapped(t *testing.T) {
	c := okCaller()
	c.errs = map[string]error{modelA: errors.New("connection refused")}
	m := newManager(c)

	res := m.Single(context.Background(), "x", modelA)
	require.NotNil(t, res.Err)
	assert.Equal(t, "Error: connection refused", res.Answer)
}

func TestCompare_Success(t *testing.T) {
	c := okCaller()
	rec := &memRecorder{}
	m := newManager(c, WithRecorder(rec))

	res := m.Compare(context.Background(), "hi")
	require.Nil(t, res.Err)
	assert.Equal(t, []string{modelA, modelB}, c.calls)
	assert.Equal(t, "gpt-3.5-turbo says hi", res.AnswerA)
	assert.Equal(t, "Prompt: 10, Completion: 20, Total: 30", res.TokensA)
	assert.Equal(t, "gpt-4 says hi", res.AnswerB)
	assert.Equal(t, "Prompt: 11, Completion: 21, Total: 32", res.TokensB)

	all := m.Store().All()
	require.Len(t, all, 1)
	assert.Equal(t, history.BothModels, all[0].Model)
	cr, ok := all[0].Response.(history.CompareResponse)
	require.True(t, ok)
	assert.Len(t, cr.Answers, 2)
	assert.Contains(t, cr.Answers, modelA)
	assert.Contains(t, cr.Answers, modelB)

	require.Len(t, rec.events, 1)
	assert.Equal(t, history.BothModels, rec.events[0].Model)
	assert.Len(t, rec.events[0].Usage, 2)
}

func TestCompare_SecondFailsDiscardsFirst(t *testing.T) {
	c := okCaller()
	c.errs = map[string]error{modelB: &llm.Error{Model: modelB, Kind: llm.KindQuota, Message: "quota exceeded"}}
	m := newManager(c)

	res := m.Compare(context.Background(), "hi")
	require.NotNil(t, res.Err)
	assert.Equal(t, []string{modelA, modelB}, c.calls)
	assert.Equal(t, "Error: quota exceeded", res.AnswerA)
	assert.Empty(t, res.TokensA)
	assert.Empty(t, res.AnswerB)
	assert.Empty(t, res.TokensB)
	assert.Equal(t, 0, m.Store().Len())
}

func TestCompare_FirstFailsSkipsSecond(t *testing.T) {
	c := okCaller()
	c.errs = map[string]error{modelA: errors.New("timeout")}
	m := newManager(c)

	res := m.Compare(context.Background(), "hi")
	require.NotNil(t, res.Err)
	assert.Equal(t, []string{modelA}, c.calls)
	assert.Equal(t, "Error: timeout", res.AnswerA)
	assert.Equal(t, 0, m.Store().Len())
}

func TestFailuresAreIdempotentOnHistory(t *testing.T) {
	c := okCaller()
	m := newManager(c)
	m.Single(context.Background(), "kept", modelA)

	c.errs = map[string]error{modelA: errors.New("down"), modelB: errors.New("down")}
	for i := 0; i < 3; i++ {
		m.Single(context.Background(), "x", modelA)
		m.Single(context.Background(), "x", modelB)
		m.Compare(context.Background(), "x")
	}
	assert.Equal(t, 1, m.Store().Len())
}

func TestRecorderFailureDoesNotFailCall(t *testing.T) {
	m := newManager(okCaller(), WithRecorder(&memRecorder{err: errors.New("disk full")}))
	res := m.Single(context.Background(), "x", modelA)
	require.Nil(t, res.Err)
	assert.Equal(t, 1, m.Store().Len())
}

func seedABC(t *testing.T, m *Manager) {
	t.Helper()
	for _, p := range []string{"A", "B", "C"} {
		res := m.Single(context.Background(), p, modelA)
		require.Nil(t, res.Err)
	}
}

func TestHistory_NewestFirstWithCountdownLabels(t *testing.T) {
	m := newManager(okCaller())
	assert.Equal(t, EmptyHistoryText, m.History())

	seedABC(t, m)
	out := m.History()
	c := strings.Index(out, "🔹 Prompt 3 [gpt-3.5-turbo]:\nC\n")
	b := strings.Index(out, "🔹 Prompt 2 [gpt-3.5-turbo]:\nB\n")
	a := strings.Index(out, "🔹 Prompt 1 [gpt-3.5-turbo]:\nA\n")
	require.True(t, c >= 0 && b >= 0 && a >= 0, "missing entries in %q", out)
	assert.True(t, c < b && b < a, "wrong order in %q", out)
}

func TestHistory_AtMostViewSizeEntries(t *testing.T) {
	m := newManager(okCaller())
	for i := 1; i <= 8; i++ {
		m.Single(context.Background(), fmt.Sprintf("p%d", i), modelA)
	}
	out := m.History()
	assert.Equal(t, 5, strings.Count(out, "🔹 Prompt "))
	assert.True(t, strings.HasPrefix(out, "🔹 Prompt 8 "))
	assert.Contains(t, out, "🔹 Prompt 4 ")
	assert.NotContains(t, out, "🔹 Prompt 3 ")

	recs, total := m.Records()
	assert.Equal(t, 8, total)
	assert.Len(t, recs, 5)

	m2 := newManager(okCaller(), WithViewSize(2))
	seedABC(t, m2)
	assert.Equal(t, 2, strings.Count(m2.History(), "🔹 Prompt "))
}

func TestReplay(t *testing.T) {
	m := newManager(okCaller())
	seedABC(t, m)

	prompt, model, err := m.Replay(0)
	require.NoError(t, err)
	assert.Equal(t, "C", prompt)
	assert.Equal(t, modelA, model)

	prompt, _, err = m.Replay(2)
	require.NoError(t, err)
	assert.Equal(t, "A", prompt)

	_, _, err = m.Replay(3)
	assert.ErrorIs(t, err, history.ErrIndexOutOfRange)
	_, _, err = m.Replay(-1)
	assert.ErrorIs(t, err, history.ErrIndexOutOfRange)
}

func TestReplay_CompareMapsToDefaultModel(t *testing.T) {
	m := newManager(okCaller())
	m.Single(context.Background(), "single", modelB)
	m.Compare(context.Background(), "both please")

	prompt, model, err := m.Replay(0)
	require.NoError(t, err)
	assert.Equal(t, "both please", prompt)
	assert.Equal(t, modelA, model)
	assert.NotEqual(t, history.BothModels, model)

	_, model, err = m.Replay(1)
	require.NoError(t, err)
	assert.Equal(t, modelB, model)
}

func TestEstimate(t *testing.T) {
	m := newManager(okCaller())
	n, err := m.Estimate("how many tokens is this?", modelA)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Equal(t, 0, m.Store().Len())

	_, err = m.Estimate("x", "gpt-2")
	assert.Error(t, err)
}

func TestModels(t *testing.T) {
	m := newManager(okCaller())
	assert.Equal(t, []string{modelA, modelB}, m.Models())
	assert.Equal(t, modelA, m.DefaultModel())
	assert.True(t, m.IsModelAllowed(modelB))
	assert.False(t, m.IsModelAllowed(history.BothModels))
}

func TestNew_RejectsIdenticalModels(t *testing.T) {
	assert.Panics(t, func() {
		New(okCaller(), history.NewStore(0), modelA, modelA)
	})
}
