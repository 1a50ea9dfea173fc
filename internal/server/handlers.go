package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"prompt-debugger/internal/history"
	"prompt-debugger/internal/llm"
	"prompt-debugger/internal/session"
)

const maxBodyBytes = 4 << 20

type promptRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type singleResponse struct {
	Model  string         `json:"model"`
	Answer string         `json:"answer"`
	Tokens string         `json:"tokens"`
	Usage  *session.Usage `json:"usage,omitempty"`
	Error  *errorBody     `json:"error,omitempty"`
}

type compareResponse struct {
	ModelA  string                   `json:"model_a,omitempty"`
	AnswerA string                   `json:"answer_a"`
	TokensA string                   `json:"tokens_a"`
	ModelB  string                   `json:"model_b,omitempty"`
	AnswerB string                   `json:"answer_b"`
	TokensB string                   `json:"tokens_b"`
	Usage   map[string]session.Usage `json:"usage,omitempty"`
	Error   *errorBody               `json:"error,omitempty"`
}

type recordView struct {
	DisplayIndex int               `json:"display_index"`
	Label        int               `json:"label"`
	Prompt       string            `json:"prompt"`
	Model        string            `json:"model"`
	Response     string            `json:"response,omitempty"`
	Responses    map[string]string `json:"responses,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type historyResponse struct {
	Total   int          `json:"total"`
	Text    string       `json:"text"`
	Records []recordView `json:"records"`
}

type replayResponse struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  s.sessions.Models(),
		"default": s.sessions.DefaultModel(),
	})
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePrompt(w, r)
	if !ok {
		return
	}
	if req.Model == "" {
		req.Model = s.sessions.DefaultModel()
	}
	if !s.sessions.IsModelAllowed(req.Model) {
		writeError(w, http.StatusBadRequest, "unknown_model", "model must be one of "+strings.Join(s.sessions.Models(), ", "))
		return
	}

	res := s.sessions.Single(r.Context(), req.Prompt, req.Model)
	out := singleResponse{Model: req.Model, Answer: res.Answer, Tokens: res.Tokens}
	if res.Err != nil {
		out.Error = llmErrorBody(res.Err)
		writeJSON(w, statusForLLMError(res.Err), out)
		return
	}
	out.Usage = &res.Usage
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePrompt(w, r)
	if !ok {
		return
	}

	res := s.sessions.Compare(r.Context(), req.Prompt)
	out := compareResponse{
		ModelA: res.ModelA, AnswerA: res.AnswerA, TokensA: res.TokensA,
		ModelB: res.ModelB, AnswerB: res.AnswerB, TokensB: res.TokensB,
		Usage: res.Usage,
	}
	if res.Err != nil {
		out.Error = llmErrorBody(res.Err)
		writeJSON(w, statusForLLMError(res.Err), out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePrompt(w, r)
	if !ok {
		return
	}
	if req.Model == "" {
		req.Model = s.sessions.DefaultModel()
	}
	if !s.sessions.IsModelAllowed(req.Model) {
		writeError(w, http.StatusBadRequest, "unknown_model", "model must be one of "+strings.Join(s.sessions.Models(), ", "))
		return
	}
	n, err := s.sessions.Estimate(req.Prompt, req.Model)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "estimate_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"model": req.Model, "prompt_tokens": n})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	recent, total := s.sessions.Records()
	views := make([]recordView, 0, len(recent))
	for i, rec := range recent {
		v := recordView{
			DisplayIndex: i,
			Label:        total - i,
			Prompt:       rec.Prompt,
			Model:        rec.Model,
			CreatedAt:    rec.CreatedAt,
		}
		switch resp := rec.Response.(type) {
		case history.SingleResponse:
			v.Response = resp.Text
		case history.CompareResponse:
			v.Responses = resp.Answers
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Total:   total,
		Text:    session.FormatHistory(recent, total),
		Records: views,
	})
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return
	}
	prompt, model, err := s.sessions.Replay(idx)
	if errors.Is(err, history.ErrIndexOutOfRange) {
		writeError(w, http.StatusNotFound, "index_out_of_range", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "replay_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, replayResponse{Prompt: prompt, Model: model})
}

func (s *Server) decodePrompt(w http.ResponseWriter, r *http.Request) (promptRequest, bool) {
	var req promptRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON: "+err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "empty_prompt", "prompt must not be empty")
		return req, false
	}
	return req, true
}

func llmErrorBody(err *llm.Error) *errorBody {
	return &errorBody{Kind: string(err.Kind), Message: err.Message}
}

func statusForLLMError(err *llm.Error) int {
	switch err.Kind {
	case llm.KindUnknownModel:
		return http.StatusBadRequest
	case llm.KindCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]errorBody{"error": {Kind: kind, Message: msg}})
}
