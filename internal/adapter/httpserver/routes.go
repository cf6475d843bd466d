package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bakeyeon/sentiment-translator/internal/adapter/metrics"
	apperrors "github.com/bakeyeon/sentiment-translator/internal/errors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(apperrors.Middleware(func(errType apperrors.ErrorType) {
		s.httpMetrics.ErrorsTotal.WithLabelValues(string(errType)).Inc()
	}))
	s.echo.Use(s.httpMetrics.Middleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.registry)))

	api := s.echo.Group("/api", newRateLimiter(20, 40))
	api.POST("/sessions", s.handleCreateSession)
	api.GET("/languages", s.handleListLanguages)
	api.GET("/sessions/:id/state", s.handleGetState)
	api.PUT("/sessions/:id/text", s.handleUpdateText)
	api.POST("/sessions/:id/translate", s.handleTranslate)
	api.POST("/sessions/:id/suggestion/append", s.handleAppendGlyph)

	s.echo.GET("/ws/:id", s.handleWebSocket)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("Request", attrs...)
			return nil
		},
	})
}
