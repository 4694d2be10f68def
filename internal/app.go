package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkrett/shuttle/config"
	"github.com/mkrett/shuttle/internal/service"
	"github.com/mkrett/shuttle/internal/transport"
)

// Start wires the process: config, logger, service, HTTP server and sweeper.
// It returns once everything is running; shutdown is driven by signals.
func Start() error {
	cfg := config.GetConfig()
	SetupLogger(cfg)

	svc, err := service.NewService(cfg)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	e, err := transport.NewEcho(svc)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	go svc.RunSweeper(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	go func() {
		if err := e.Start(addr); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		stop()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
		os.Exit(0)
	}()

	slog.Info("server started", "addr", addr, "objectstore", cfg.Objectstore.Type)

	return nil
}

func SetupLogger(cfg *config.Config) {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Log.AddSource,
	}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
