package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"jsonrelay/internal/model"
)

// ErrorHandler renders errors that escape handlers and middleware (router
// 404/405, body limit, rate limit, panics) in the proxy error envelope.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	logger = logger.With("component", "error_handler")
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			msg = httpErrorMessage(he)
		}

		if status >= 500 {
			logger.Error("unhandled error", "err", err, "path", c.Request().URL.Path)
		}

		if werr := writeEnvelope(c, status, msg, ""); werr != nil {
			logger.Error("write error response", "err", werr)
		}
	}
}

// writeEnvelope writes the error envelope. HEAD responses carry no body.
func writeEnvelope(c echo.Context, status int, msg, details string) error {
	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSONPretty(status, model.ErrorEnvelope{
		Error:   msg,
		Details: details,
		Message: proxyErrorMessage,
	}, "  ")
}

func httpErrorMessage(he *echo.HTTPError) string {
	if s, ok := he.Message.(string); ok {
		return s
	}
	return fmt.Sprint(he.Message)
}
