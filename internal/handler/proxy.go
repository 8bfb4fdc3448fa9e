package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"jsonrelay/internal/client"
	"jsonrelay/internal/model"
	"jsonrelay/internal/router"
	"jsonrelay/internal/service"
)

// proxyErrorMessage is the fixed "message" field of every error envelope.
const proxyErrorMessage = "Proxy server error"

// userinfoPattern matches credentials embedded in URLs inside error messages.
var userinfoPattern = regexp.MustCompile(`(?i)(https?://)[^/@\s"]+@`)

// ProxyHandler forwards requests of the form /{type}/{path} to the upstream.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle forwards the request upstream and writes the normalized JSON reply.
// CORS headers are already on the response; see middleware.CORS.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:    req.Context(),
		Method: req.Method,
		Path:   req.URL.EscapedPath(),
		Header: req.Header,
		Body:   req.Body,
	}

	out, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Blob(out.StatusCode, echo.MIMEApplicationJSON, out.Body)
}

// mapError converts a forwarding error into a JSON response. Client-caused
// errors map to 4xx; everything between relay and upstream maps to 502.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	path := c.Request().URL.Path

	var bad *service.BadResponseError
	if errors.As(err, &bad) {
		h.logger.Warn("invalid upstream response",
			"path", path,
			"upstream_status", bad.Status,
			"body_bytes", len(bad.Raw),
		)
		return c.JSONPretty(http.StatusBadGateway, model.InvalidResponseBody{
			Error:   "Invalid server response",
			Details: bad.Raw,
			Status:  bad.Status,
		}, "  ")
	}

	status, msg := classify(err)
	details := sanitizeError(err)
	if status >= 500 {
		h.logger.Error("proxy error", "err", details, "path", path, "status", status)
	} else {
		h.logger.Info("rejected request", "err", details, "path", path, "status", status)
	}

	return writeEnvelope(c, status, msg, details)
}

// classify picks the status and client-facing error message for err.
func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, httpErrorMessage(he)
	}

	switch {
	case errors.Is(err, router.ErrInvalidRoute):
		return http.StatusBadRequest, "Invalid URL format. Expected /{type}/{path}"
	case errors.Is(err, router.ErrUnknownDiscriminator):
		return http.StatusNotFound, "Unknown route type"
	case errors.Is(err, service.ErrBodyParse):
		return http.StatusBadRequest, "Failed to parse request body"
	case errors.Is(err, client.ErrResponseTooLarge):
		return http.StatusBadGateway, "upstream response too large"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway, "upstream request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusBadGateway, "client disconnected"
	}

	var upErr *service.UpstreamError
	if errors.As(err, &upErr) {
		return http.StatusBadGateway, "upstream unreachable"
	}

	return http.StatusBadGateway, "upstream request failed"
}

// sanitizeError redacts URL credentials from error messages.
func sanitizeError(err error) string {
	return userinfoPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]@")
}
