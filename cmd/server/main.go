package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/platform/config"
	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/progress"
	"github.com/p-n-ai/pai-progress/internal/realtime"
	"github.com/p-n-ai/pai-progress/internal/registry"
	"github.com/p-n-ai/pai-progress/internal/suggest"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	svc, hub, ready, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		slog.Error("failed to build progress service", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	mux := newMux(svc, hub, ready)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// buildService wires the store, registry, suggestion provider, and realtime
// hub from configuration. ready probes the database when one is configured, so
// /readyz reports unavailable if the store's backing connection is gone. The
// returned cleanup closes any opened connections.
func buildService(ctx context.Context, cfg *config.Config) (*progress.Service, *realtime.Hub, func(context.Context) error, func(), error) {
	cleanup := func() {}
	var ready func(context.Context) error

	var store progress.Store = progress.NewMemoryStore(cfg.Progress.TotalChapters)
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect database: %w", err)
		}
		pgStore, err := progress.NewPostgresStore(db.Pool, cfg.Progress.TotalChapters)
		if err != nil {
			db.Close()
			return nil, nil, nil, nil, err
		}
		store = pgStore
		ready = db.HealthCheck
		cleanup = db.Close
		slog.Info("using postgres store")
	} else {
		slog.Info("using in-memory store")
	}

	reg, err := registry.Load(cfg.Progress.RoadmapPath)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, fmt.Errorf("load skill registry: %w", err)
	}

	var suggester suggest.Provider
	if cfg.HasAIProvider() {
		opts := []suggest.AIOption{suggest.WithModel(cfg.AI.Model)}
		if cfg.AI.BaseURL != "" {
			opts = append(opts, suggest.WithBaseURL(cfg.AI.BaseURL))
		}
		suggester = suggest.NewAIProvider(cfg.AI.APIKey, opts...)

		if cfg.Cache.URL != "" {
			c, err := cache.New(ctx, cfg.Cache.URL)
			if err != nil {
				slog.Warn("suggestion cache unavailable, continuing without it", "error", err)
			} else {
				suggester = suggest.NewCachedProvider(suggester, c.Client, cfg.Cache.SuggestionTTL)
				prev := cleanup
				cleanup = func() { c.Close(); prev() }
			}
		}
		slog.Info("AI suggestions enabled", "model", cfg.AI.Model)
	} else {
		slog.Info("AI suggestions disabled, serving fallback set")
	}

	hub := realtime.NewHub()
	svc := progress.NewService(progress.ServiceConfig{
		Store:          store,
		Registry:       reg,
		Suggester:      suggester,
		Hub:            hub,
		SuggestTimeout: cfg.Progress.SuggestTimeout,
	})
	return svc, hub, ready, cleanup, nil
}
