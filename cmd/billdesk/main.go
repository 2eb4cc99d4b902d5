// Package main запускает HTTP-сервер сервиса выставления счетов.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/billdesk/internal/config"
	"github.com/mmeshcher/billdesk/internal/handler"
	"github.com/mmeshcher/billdesk/internal/middleware"
	"github.com/mmeshcher/billdesk/internal/repository"
	"github.com/mmeshcher/billdesk/internal/service"
)

func openRepository(cfg *config.Config) (service.Repository, string, error) {
	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		return repo, "postgres", err
	}
	repo, err := repository.NewBoltRepository(cfg.ArchivePath)
	return repo, "bolt", err
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, backend, err := openRepository(cfg)
	if err != nil {
		sugar.Fatalw("archive initialization error", "backend", backend, "error", err.Error())
	}
	sugar.Infow("archive opened", "backend", backend)

	svc := service.NewService(repo, logger, service.WithSnapshotBeforeArchive(cfg.SnapshotBeforeArchive))
	defer svc.Close()

	auth := middleware.NewSessionAuth(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, auth)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting billdesk server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка сервера)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}
