// Package service implements the core forwarding and response normalization.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"jsonrelay/internal/client"
	"jsonrelay/internal/metrics"
	"jsonrelay/internal/model"
	"jsonrelay/internal/router"
)

const userAgent = "jsonrelay/1.0"

// ProxyService resolves, forwards and normalizes a single request.
// It keeps no per-request state; concurrent calls share nothing mutable.
type ProxyService struct {
	router  *router.Router
	client  *client.UpstreamClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyService creates a ProxyService. The metrics parameter may be nil.
func NewProxyService(r *router.Router, c *client.UpstreamClient, logger *slog.Logger, m *metrics.Metrics) *ProxyService {
	return &ProxyService{
		router:  r,
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		metrics: m,
	}
}

// queryBody is the GET body sent when the path carries a query segment.
type queryBody struct {
	Query string `json:"query"`
}

// Forward routes pr, issues exactly one upstream call and normalizes the reply.
//
// Errors: router.ErrInvalidRoute, router.ErrUnknownDiscriminator, ErrBodyParse,
// *UpstreamError and *BadResponseError.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.OutboundResponse, error) {
	target, err := s.router.Resolve(pr.Method, pr.Path)
	if err != nil {
		return nil, err
	}

	body, err := buildBody(pr, target)
	if err != nil {
		return nil, err
	}

	upstreamURL := target.URL()
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", userAgent)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"discriminator", target.Discriminator,
		"url", upstreamURL,
		"body_bytes", len(body),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	resp, err := s.client.Send(pr.Ctx, target.Discriminator, pr.Method, upstreamURL, header, reader)
	if err != nil {
		return nil, &UpstreamError{URL: upstreamURL, Err: err}
	}

	s.logger.Debug("upstream response",
		"discriminator", target.Discriminator,
		"status", resp.StatusCode,
		"body_bytes", len(resp.Body),
	)

	// A HEAD reply has no body to validate; only the status is relayed.
	if pr.Method == http.MethodHead {
		return &model.OutboundResponse{StatusCode: outboundStatus(resp.StatusCode)}, nil
	}

	out, err := Normalize(resp)
	if err != nil && s.metrics != nil {
		s.metrics.UpstreamInvalidResponses.WithLabelValues(target.Discriminator).Inc()
	}
	return out, err
}

// buildBody returns the outbound body: compacted JSON for POST, a query
// object for GET with a query segment, nil otherwise.
func buildBody(pr *model.ProxyRequest, target model.RouteTarget) ([]byte, error) {
	switch {
	case pr.Method == http.MethodPost:
		if pr.Body == nil {
			return nil, fmt.Errorf("%w: empty body", ErrBodyParse)
		}
		raw, err := io.ReadAll(pr.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBodyParse, err)
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBodyParse, err)
		}
		return buf.Bytes(), nil
	case target.HasQuery:
		b, err := json.Marshal(queryBody{Query: target.Query})
		if err != nil {
			return nil, fmt.Errorf("encode query body: %w", err)
		}
		return b, nil
	default:
		return nil, nil
	}
}
