package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"devblog/internal/auth"
	"devblog/internal/config"
	"devblog/internal/domain"
	"devblog/internal/events"
	"devblog/internal/httpserver"
	"devblog/internal/metrics"
	"devblog/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up repository (implements the user, post, and comment stores)
	repo, err := sqlite.NewRepository(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("connected to database", "path", cfg.DatabasePath)

	authSvc := auth.NewService(repo, []byte(cfg.JWTSecret), cfg.TokenTTL)
	hub := events.NewHub(logger)
	m := metrics.New()

	posts := domain.NewPostService(repo, repo, logger)
	engagement := domain.NewEngagementService(repo, repo, repo, hub, logger)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start the background orphan comment sweep
	go engagement.StartOrphanSweep(ctx, cfg.SweepInterval)

	// Start the HTTP server
	server := httpserver.NewServer(cfg, authSvc, posts, engagement, hub, m, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
