package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/api"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/config"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/coordinator"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/logging"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/modes"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/store"
	"github.com/Trafexofive/gemini-web-wrapper-overhaul/internal/upstream"
)

// backend is what the server needs from an upstream connection.
type backend interface {
	upstream.Conversation
	upstream.HealthChecker
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bridge:", err)
		os.Exit(1)
	}
}

func run() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logger
	logger, logCloser := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		JSON:       cfg.LogFormat == "json",
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	defer logCloser.Close()

	// Modes
	registry, err := modes.Load(cfg.DefaultMode, cfg.ModesDir)
	if err != nil {
		return fmt.Errorf("load modes: %w", err)
	}
	logger.Info("modes loaded", "count", len(registry.List()), "default", registry.Default(), "dir", cfg.ModesDir)

	// SQLite
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Stores
	sessionStore := store.NewSessionStore(db, registry)
	messageStore := store.NewMessageStore(db)

	// The upstream conversation starts fresh on every boot, so no stored
	// session has had its prompt delivered to it yet.
	reset, err := sessionStore.ResetPromptDelivered()
	if err != nil {
		return fmt.Errorf("reset prompt flags: %w", err)
	}
	logger.Info("session flags reset", "sessions", reset)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Upstream
	conv := connectUpstream(ctx, cfg, logger)

	coord := coordinator.New(sessionStore, messageStore, registry, conv, logger)

	// Router
	router := api.NewRouter(db, coord, registry, conv, api.Options{
		APIKey:           cfg.APIKey,
		Model:            cfg.Model(),
		Backend:          cfg.UpstreamBackend,
		UpstreamTimeout:  cfg.UpstreamTimeout,
		CompletionsRPS:   cfg.CompletionsRPS,
		CompletionsBurst: cfg.CompletionsBurst,
		StaticDir:        cfg.StaticDir,
	}, logger)

	// Server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Completions may wait for the lock and then for the upstream.
		WriteTimeout: cfg.UpstreamTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("bridge server starting", "addr", addr, "backend", cfg.UpstreamBackend, "model", cfg.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

// connectUpstream opens the configured backend. A failure is logged and
// replaced by a backend that reports upstream_unavailable, so the server still
// serves sessions and history.
func connectUpstream(ctx context.Context, cfg *config.Config, logger *slog.Logger) backend {
	switch cfg.UpstreamBackend {
	case config.BackendOllama:
		o := upstream.NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel)
		checkCtx, cancel := context.WithTimeout(ctx, cfg.UpstreamInitTimeout)
		defer cancel()
		if err := o.HealthCheck(checkCtx); err != nil {
			logger.Warn("ollama not available at startup, will retry on first use", "url", cfg.OllamaBaseURL, "error", err)
		} else {
			logger.Info("ollama connected", "url", cfg.OllamaBaseURL, "model", o.Model())
		}
		return o
	default:
		initCtx, cancel := context.WithTimeout(ctx, cfg.UpstreamInitTimeout)
		defer cancel()
		g, err := upstream.NewGenAI(initCtx, cfg.GeminiAPIKey, cfg.ModelName)
		if err != nil {
			logger.Warn("gemini client unavailable, completions will fail until restart", "error", err)
			return upstream.Unavailable{Err: err}
		}
		logger.Info("gemini conversation opened", "model", g.Model())
		return g
	}
}
