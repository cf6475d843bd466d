package httpserver

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	apperrors "github.com/bakeyeon/sentiment-translator/internal/errors"
)

// handleWebSocket upgrades the connection and streams pipeline snapshots for
// the session until the client disconnects.
func (s *Server) handleWebSocket(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid session id")
	}

	// Validate the session before upgrading; also refreshes its idle timer.
	if _, err := s.sessions.Get(id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return apperrors.NotFoundError("session not found").WithField("session_id", id.String())
		}
		return apperrors.InternalError("session lookup failed", err)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		slog.Warn("WebSocket upgrade failed", "session_id", id.String(), "error", err)
		return nil
	}

	if err := s.hub.Register(id, conn); err != nil {
		return nil
	}

	s.wsMetrics.ConnectionsTotal.Inc()
	s.wsMetrics.ActiveConnections.Inc()

	// Read loop to detect disconnects; clients never send payloads.
	go func() {
		defer func() {
			s.hub.Unregister(id, conn)
			s.wsMetrics.ActiveConnections.Dec()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
