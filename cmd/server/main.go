package main

import (
	"context"
	"log/slog"
	"os"

	"epas/internal/app/server"
	"epas/internal/platform/config"
)

func main() {
	cfg := config.Load()

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	slog.Info("appraisal server listening", "addr", cfg.Addr, "environment", cfg.Environment)
	if err := app.Run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
