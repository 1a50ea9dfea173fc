package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prompt-debugger/internal/app"
	"prompt-debugger/internal/server"
)

func main() {
	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg, os.Stdout)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to init app", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reports, err := a.StartUsageReports()
	if err != nil {
		logger.Warn("usage reports disabled", slog.String("error", err.Error()))
	}

	srv := server.New(cfg.HTTPAddr, a.Manager, logger, cfg.RequestTimeout)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}

	if reports != nil {
		reports.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}
