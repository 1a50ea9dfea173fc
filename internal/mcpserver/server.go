// Package mcpserver exposes the prompt session as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"prompt-debugger/internal/history"
	"prompt-debugger/internal/session"
)

// Sessions is the session manager surface exposed as tools.
type Sessions interface {
	Single(ctx context.Context, prompt, model string) session.SingleResult
	Compare(ctx context.Context, prompt string) session.CompareResult
	Replay(displayIndex int) (string, string, error)
	History() string
	Models() []string
	DefaultModel() string
	IsModelAllowed(model string) bool
	Estimate(prompt, model string) (int, error)
}

type AskParams struct {
	Prompt string `json:"prompt" mcp:"prompt text sent to the model as-is"`
	Model  string `json:"model,omitempty" mcp:"model id; defaults to the primary model"`
}

type CompareParams struct {
	Prompt string `json:"prompt" mcp:"prompt text sent to both models"`
}

type HistoryParams struct{}

type ReplayParams struct {
	Index int `json:"index" mcp:"0-based position in prompt_history, 0 is the newest"`
}

type EstimateParams struct {
	Prompt string `json:"prompt" mcp:"prompt text to count"`
	Model  string `json:"model,omitempty" mcp:"model id whose tokenizer is used; defaults to the primary model"`
}

type Server struct {
	sessions Sessions
	logger   *slog.Logger
}

func New(sessions Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{sessions: sessions, logger: logger}
}

// MCPServer returns an MCP server with every tool registered.
func (s *Server) MCPServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "prompt-debugger",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_model",
		Description: "Sends a prompt to one model and returns its answer with token usage. Available models: " + strings.Join(s.sessions.Models(), ", "),
	}, s.Ask)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "compare_models",
		Description: "Sends a prompt to both models in turn and returns both answers. Fails as a whole if either call fails.",
	}, s.Compare)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "prompt_history",
		Description: "Shows the most recent prompts, newest first.",
	}, s.History)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "replay_prompt",
		Description: "Returns the prompt and model of a history entry so it can be sent again.",
	}, s.Replay)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "estimate_tokens",
		Description: "Counts prompt tokens locally without calling a model.",
	}, s.Estimate)

	return server
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, version string) error {
	return s.MCPServer(version).Run(ctx, mcp.NewStdioTransport())
}

func (s *Server) Ask(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[AskParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Prompt) == "" {
		return toolError("prompt must not be empty"), nil
	}
	model := args.Model
	if model == "" {
		model = s.sessions.DefaultModel()
	}
	if !s.sessions.IsModelAllowed(model) {
		return toolError(fmt.Sprintf("unknown model %q, available: %s", model, strings.Join(s.sessions.Models(), ", "))), nil
	}

	res := s.sessions.Single(ctx, args.Prompt, model)
	if res.Err != nil {
		return toolError(res.Answer), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: res.Answer},
			&mcp.TextContent{Text: res.Tokens},
		},
		Meta: map[string]any{
			"model":             model,
			"prompt_tokens":     res.Usage.PromptTokens,
			"completion_tokens": res.Usage.CompletionTokens,
			"total_tokens":      res.Usage.TotalTokens,
		},
	}, nil
}

func (s *Server) Compare(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[CompareParams]) (*mcp.CallToolResultFor[any], error) {
	if strings.TrimSpace(params.Arguments.Prompt) == "" {
		return toolError("prompt must not be empty"), nil
	}
	res := s.sessions.Compare(ctx, params.Arguments.Prompt)
	if res.Err != nil {
		return toolError(res.AnswerA), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("[%s]\n%s\n%s", res.ModelA, res.AnswerA, res.TokensA)},
			&mcp.TextContent{Text: fmt.Sprintf("[%s]\n%s\n%s", res.ModelB, res.AnswerB, res.TokensB)},
		},
	}, nil
}

func (s *Server) History(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[HistoryParams]) (*mcp.CallToolResultFor[any], error) {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: s.sessions.History()}},
	}, nil
}

func (s *Server) Replay(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ReplayParams]) (*mcp.CallToolResultFor[any], error) {
	prompt, model, err := s.sessions.Replay(params.Arguments.Index)
	if errors.Is(err, history.ErrIndexOutOfRange) {
		return toolError(fmt.Sprintf("no history entry at index %d", params.Arguments.Index)), nil
	}
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: prompt}},
		Meta:    map[string]any{"model": model},
	}, nil
}

func (s *Server) Estimate(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[EstimateParams]) (*mcp.CallToolResultFor[any], error) {
	model := params.Arguments.Model
	if model == "" {
		model = s.sessions.DefaultModel()
	}
	n, err := s.sessions.Estimate(params.Arguments.Prompt, model)
	if err != nil {
		return toolError(err.Error()), nil
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d prompt tokens on %s", n, model)}},
		Meta:    map[string]any{"model": model, "prompt_tokens": n},
	}, nil
}

func toolError(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
