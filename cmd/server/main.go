// Package main is the entry point for the image feed companion server.
//
// Configuration comes from the environment; a .env file in the working
// directory is loaded first if present. See internal/config for the
// variables and their defaults.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/sakif/image-feed/internal/config"
	"github.com/sakif/image-feed/internal/server"
)

func main() {
	// A missing .env is normal outside development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	if envErr != nil {
		logger.Debug("no .env file loaded", slog.String("reason", envErr.Error()))
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		logger.Warn("ACCESS_KEY or SECRET_KEY not set, login will fail")
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
