// Package model defines shared types for the relay.
package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ProxyRequest represents an inbound request to be forwarded upstream.
type ProxyRequest struct {
	Ctx    context.Context
	Method string
	Path   string
	Header http.Header
	Body   io.Reader
}

// RouteTarget is the upstream destination resolved from an inbound path.
type RouteTarget struct {
	Discriminator string
	Host          string // scheme://host, without port
	Port          int
	SubPath       string // remaining segments joined with "/", no leading slash
	Query         string // trailing query segment; empty unless query segments are enabled
	HasQuery      bool
}

// URL returns the full upstream URL: host, port and sub-path concatenated.
func (t RouteTarget) URL() string {
	return fmt.Sprintf("%s:%d/%s", t.Host, t.Port, t.SubPath)
}

// UpstreamResponse is the fully read upstream reply.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// OutboundResponse is what the relay writes back to the caller.
// Body is already serialized, pretty-printed JSON.
type OutboundResponse struct {
	StatusCode int
	Body       []byte
}

// ErrorEnvelope is the JSON body returned for every proxy-side failure.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Message string `json:"message"`
}

// InvalidResponseBody is returned when the upstream body is not JSON.
type InvalidResponseBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Status  int    `json:"status"`
}
