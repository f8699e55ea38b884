// dashboard serves the staff dashboard shell: the session API and role-guarded pages.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"staff-dashboard/internal/app"
	"staff-dashboard/internal/config"
	"staff-dashboard/internal/policy/engine"
	"staff-dashboard/internal/server"
	"staff-dashboard/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "dashboard:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	routes, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		_ = a.Close(context.Background())
		return fmt.Errorf("route policy: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewServer(a.Manager, routes, a.Checks, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Resolve the stored session in the background; guarded pages wait for it.
	go func() {
		snap := a.Manager.RefreshSession(ctx)
		logger.Info("session resolved",
			zap.Bool("authenticated", snap.IsAuthenticated),
			zap.Bool("stale", snap.Stale),
			zap.String("role", string(snap.Role())))
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", zap.String("addr", cfg.HTTPAddr), zap.String("session_store", cfg.SessionStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = a.Close(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Let in-flight async session events finish before the providers shut down.
	time.Sleep(telemetry.ShutdownDrainDuration)
	return a.Close(shutdownCtx)
}
