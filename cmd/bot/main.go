package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chillcoin/internal/infrastructure"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := infrastructure.Bootstrap(ctx, logger)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	logger.Info("chillcoin bot starting")
	if err := app.Run(ctx); err != nil {
		logger.Error("app stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("chillcoin bot stopped")
}
