package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bakeyeon/sentiment-translator/internal/adapter/httpserver"
	"github.com/bakeyeon/sentiment-translator/internal/adapter/metrics"
	"github.com/bakeyeon/sentiment-translator/internal/adapter/openai"
	"github.com/bakeyeon/sentiment-translator/internal/adapter/redis"
	"github.com/bakeyeon/sentiment-translator/internal/domain"
	"github.com/bakeyeon/sentiment-translator/internal/pipeline"
	"github.com/bakeyeon/sentiment-translator/internal/platform/config"
	"github.com/bakeyeon/sentiment-translator/internal/platform/logging"
	"github.com/bakeyeon/sentiment-translator/internal/session"
	"github.com/bakeyeon/sentiment-translator/internal/ws"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupProvider builds the analysis chain: OpenAI at the bottom, an optional
// Redis cache in the middle, metrics on top.
func setupProvider(cfg *config.Config, registry *prometheus.Registry) (domain.AnalysisProvider, []httpserver.HealthCheck) {
	var provider domain.AnalysisProvider = openai.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	var healthChecks []httpserver.HealthCheck

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := redis.NewClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		store := metrics.NewInstrumentedStore(redis.NewStore(client), metrics.NewCacheMetrics(registry))
		provider = redis.NewCachingProvider(provider, store)

		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}

	provider = metrics.NewInstrumentedProvider(provider, metrics.NewProviderMetrics(registry))
	return provider, healthChecks
}

func runGracefulShutdown(srv *httpserver.Server, sessions *session.Manager, hub *ws.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		sessions.Stop()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	registry := metrics.NewRegistry()

	provider, healthChecks := setupProvider(cfg, registry)

	hub := ws.NewHub()
	sink := metrics.NewInstrumentedSink(hub, metrics.NewPipelineMetrics(registry))

	factory := func(id uuid.UUID) *pipeline.Orchestrator {
		return pipeline.NewOrchestrator(id, provider, sink, clock)
	}

	// Expired sessions drop their retained snapshot and phase tracking.
	onExpire := func(id uuid.UUID) {
		hub.Forget(id)
		sink.Forget(id)
	}
	sessions := session.NewManager(factory, clock, cfg.SessionTTL, onExpire)
	metrics.RegisterSessionGauge(registry, sessions.Count)

	srv := httpserver.NewServer(cfg, sessions, hub, registry, healthChecks)

	done := runGracefulShutdown(srv, sessions, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
