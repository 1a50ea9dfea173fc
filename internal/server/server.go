package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"prompt-debugger/internal/history"
	"prompt-debugger/internal/session"
)

// Sessions is the session manager surface the HTTP API exposes.
type Sessions interface {
	Single(ctx context.Context, prompt, model string) session.SingleResult
	Compare(ctx context.Context, prompt string) session.CompareResult
	Replay(displayIndex int) (string, string, error)
	Records() ([]history.Record, int)
	Models() []string
	DefaultModel() string
	IsModelAllowed(model string) bool
	Estimate(prompt, model string) (int, error)
}

type Server struct {
	Router   *chi.Mux
	Addr     string
	sessions Sessions
	logger   *slog.Logger
	http     *http.Server
}

func New(addr string, sessions Sessions, logger *slog.Logger, timeout time.Duration) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(TimeoutMiddleware(timeout))

	s := &Server{
		Router:   r,
		Addr:     addr,
		sessions: sessions,
		logger:   logger,
	}
	s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.Router.Get("/healthz", s.handleHealth)
	s.Router.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Post("/prompts", s.handleSingle)
		r.Post("/compare", s.handleCompare)
		r.Post("/estimate", s.handleEstimate)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{index}", s.handleReplay)
	})
}

// Start blocks until the server stops; http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.String("addr", s.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
