package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	apperrors "github.com/bakeyeon/sentiment-translator/internal/errors"
	"github.com/bakeyeon/sentiment-translator/internal/pipeline"
)

const maxTextLength = 2000

type createSessionResponse struct {
	SessionID string            `json:"session_id"`
	State     pipeline.Snapshot `json:"state"`
}

type updateTextRequest struct {
	Text string `json:"text"`
}

type translateRequest struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type appendGlyphRequest struct {
	Glyph string `json:"glyph"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	id, orch := s.sessions.Create()

	resp := createSessionResponse{
		SessionID: id.String(),
		State:     orch.Snapshot(),
	}
	if err := c.JSON(http.StatusCreated, resp); err != nil {
		return fmt.Errorf("failed to write session response: %w", err)
	}
	return nil
}

func (s *Server) handleListLanguages(c echo.Context) error {
	if err := c.JSON(http.StatusOK, domain.SupportedLanguages()); err != nil {
		return fmt.Errorf("failed to write language response: %w", err)
	}
	return nil
}

func (s *Server) handleGetState(c echo.Context) error {
	orch, err := s.lookupSession(c)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, orch.Snapshot()); err != nil {
		return fmt.Errorf("failed to write state response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateText(c echo.Context) error {
	orch, err := s.lookupSession(c)
	if err != nil {
		return err
	}

	var req updateTextRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if len(req.Text) > maxTextLength {
		return apperrors.ValidationError("text too long").WithField("max_length", maxTextLength)
	}

	orch.OnTextChanged(req.Text)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleTranslate(c echo.Context) error {
	orch, err := s.lookupSession(c)
	if err != nil {
		return err
	}

	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if domain.LanguageName(req.SourceLang) == "" {
		return apperrors.ValidationError("unsupported source language").WithField("source_lang", req.SourceLang)
	}
	if domain.LanguageName(req.TargetLang) == "" {
		return apperrors.ValidationError("unsupported target language").WithField("target_lang", req.TargetLang)
	}
	if req.SourceLang == req.TargetLang {
		return apperrors.ValidationError("source and target language must differ")
	}

	orch.Translate(req.SourceLang, req.TargetLang)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleAppendGlyph(c echo.Context) error {
	orch, err := s.lookupSession(c)
	if err != nil {
		return err
	}

	var req appendGlyphRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if strings.TrimSpace(req.Glyph) == "" {
		return apperrors.ValidationError("glyph must not be empty")
	}

	orch.AppendSuggestedGlyph(req.Glyph)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) lookupSession(c echo.Context) (*pipeline.Orchestrator, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, apperrors.ValidationError("invalid session id")
	}

	orch, err := s.sessions.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, apperrors.NotFoundError("session not found").WithField("session_id", id.String())
		}
		return nil, apperrors.InternalError("session lookup failed", err)
	}
	return orch, nil
}
