package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/bakeyeon/sentiment-translator/internal/platform/correlation"
)

// correlationMiddleware tags each request context with a correlation ID so
// log lines from the same request can be grouped.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
