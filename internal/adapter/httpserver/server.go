// Package httpserver exposes the translation pipeline over REST and
// WebSocket.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bakeyeon/sentiment-translator/internal/adapter/metrics"
	"github.com/bakeyeon/sentiment-translator/internal/platform/config"
	"github.com/bakeyeon/sentiment-translator/internal/session"
	"github.com/bakeyeon/sentiment-translator/internal/ws"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config

	sessions *session.Manager
	hub      *ws.Hub

	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics
	wsMetrics   *metrics.WebSocketMetrics

	upgrader websocket.Upgrader

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, sessions *session.Manager, hub *ws.Hub, registry *prometheus.Registry, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		sessions:     sessions,
		hub:          hub,
		registry:     registry,
		httpMetrics:  metrics.NewHTTPMetrics(registry),
		wsMetrics:    metrics.NewWebSocketMetrics(registry),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}
	srv.upgrader = websocket.Upgrader{
		CheckOrigin: newCheckOrigin(cfg.AllowedOrigins, cfg.AppEnv != "production"),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
