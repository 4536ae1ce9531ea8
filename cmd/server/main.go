package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kdimtricp/deepguard/internal/config"
	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("DEEPGUARD_CONFIG"))
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatal("Invalid environment:", err)
	}

	closeLog, err := logger.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer closeLog()

	srv, err := server.New(cfg)
	if err != nil {
		logger.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
