package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"prompt-debugger/internal/app"
	"prompt-debugger/internal/telegram"
)

func main() {
	cfg := app.LoadConfig()
	logger := app.NewLogger(cfg, os.Stdout)

	if cfg.TelegramBotToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to init app", slog.String("error", err.Error()))
		os.Exit(1)
	}

	reports, err := a.StartUsageReports()
	if err != nil {
		logger.Warn("usage reports disabled", slog.String("error", err.Error()))
	}
	if reports != nil {
		defer reports.Stop()
	}

	bot, err := telegram.New(cfg.TelegramBotToken, a.Manager, logger)
	if err != nil {
		logger.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot.Start(ctx)
	logger.Info("bot stopped")
}
