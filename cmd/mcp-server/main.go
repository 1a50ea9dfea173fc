package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"prompt-debugger/internal/app"
	"prompt-debugger/internal/mcpserver"
)

const version = "1.0.0"

func main() {
	cfg := app.LoadConfig()
	// stdout carries the MCP protocol
	logger := app.NewLogger(cfg, os.Stderr)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to init app", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting MCP server over stdio", slog.String("version", version))
	if err := mcpserver.New(a.Manager, logger).Run(ctx, version); err != nil && ctx.Err() == nil {
		logger.Error("mcp server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
