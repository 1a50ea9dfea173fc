// Package app wires configuration into a ready session manager.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"prompt-debugger/internal/analytics"
	"prompt-debugger/internal/config"
	"prompt-debugger/internal/history"
	"prompt-debugger/internal/llm"
	"prompt-debugger/internal/scheduler"
	"prompt-debugger/internal/session"
	"prompt-debugger/internal/storage"
)

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Manager  *session.Manager
	Recorder storage.Recorder
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *config.Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.String("error", err.Error()))
	}
	return config.New()
}

// NewLogger writes JSON to w at the configured level and makes it the default.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return logger
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	factory := llm.NewFactory(cfg)
	providers := cfg.ModelProviders()
	adapter, err := factory.CreateAdapter(providers)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm clients: %w", err)
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithViewSize(cfg.HistoryViewSize),
	}

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			logger.Warn("interaction log disabled", slog.String("path", cfg.LogFilePath), slog.String("error", err.Error()))
		} else {
			rec = fr
			opts = append(opts, session.WithRecorder(fr))
			logger.Info("interaction log enabled", slog.String("path", fr.Path()))
		}
	}

	store := history.NewStore(cfg.HistoryCapacity)
	mgr := session.New(adapter, store, cfg.PrimaryModel, cfg.SecondaryModel, opts...)

	logger.Info("session manager ready",
		slog.String("primary_model", cfg.PrimaryModel),
		slog.String("primary_provider", string(providers[cfg.PrimaryModel])),
		slog.String("secondary_model", cfg.SecondaryModel),
		slog.String("secondary_provider", string(providers[cfg.SecondaryModel])),
		slog.Int("history_capacity", store.Capacity()))

	return &App{Config: cfg, Logger: logger, Manager: mgr, Recorder: rec}, nil
}

// StartUsageReports schedules the daily token usage report. It returns nil
// when reporting is disabled or there is no interaction log to read.
func (a *App) StartUsageReports() (*scheduler.Scheduler, error) {
	if a.Config.UsageReportSchedule == "" || a.Recorder == nil {
		return nil, nil
	}
	s := scheduler.New(a.Config.UsageReportSchedule, a.Logger)
	s.SetReportFunction(a.ReportUsage)
	if err := s.Start(); err != nil {
		return nil, fmt.Errorf("start usage reports: %w", err)
	}
	return s, nil
}

// ReportUsage logs today's (UTC) token usage from the interaction log.
func (a *App) ReportUsage(ctx context.Context) error {
	if a.Recorder == nil {
		return nil
	}
	events, err := a.Recorder.LoadInteractions()
	if err != nil {
		return fmt.Errorf("load interactions: %w", err)
	}
	stats := analytics.AnalyzeDailyLogs(events, time.Now().UTC())
	a.Logger.InfoContext(ctx, "daily usage report",
		slog.String("date", stats.Date),
		slog.Int("interactions", stats.TotalInteractions),
		slog.Int("total_tokens", stats.TotalTokens),
		slog.String("summary", stats.GenerateReportSummary()))
	return nil
}
