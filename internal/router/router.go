// Package router maps inbound paths of the form /{type}/{rest...} to upstream URLs.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"jsonrelay/internal/model"
)

var (
	// ErrInvalidRoute is returned when the type segment or the remainder is missing.
	ErrInvalidRoute = errors.New("invalid URL format, expected /{type}/{path}")

	// ErrUnknownDiscriminator is returned when the type segment names no configured backend.
	ErrUnknownDiscriminator = errors.New("unknown route type")
)

// Router resolves route targets from a static discriminator-to-port table.
// It holds no mutable state and is safe for concurrent use.
type Router struct {
	host         string
	ports        map[string]int
	querySegment bool
}

// New creates a Router. host is scheme://host without a port; ports maps each
// discriminator to its upstream port. When querySegment is set, a GET whose
// path has at least three segments carries its last segment as a query value.
func New(host string, ports map[string]int, querySegment bool) *Router {
	p := make(map[string]int, len(ports))
	for k, v := range ports {
		p[k] = v
	}
	return &Router{
		host:         strings.TrimSuffix(host, "/"),
		ports:        p,
		querySegment: querySegment,
	}
}

// Resolve derives the upstream target for method and path. path is expected in
// its escaped form; segments are forwarded as-is.
func (r *Router) Resolve(method, path string) (model.RouteTarget, error) {
	segments := splitPath(path)
	if len(segments) < 2 {
		return model.RouteTarget{}, fmt.Errorf("%w: %q", ErrInvalidRoute, path)
	}

	discriminator, rest := segments[0], segments[1:]
	port, ok := r.ports[discriminator]
	if !ok {
		return model.RouteTarget{}, fmt.Errorf("%w: %q", ErrUnknownDiscriminator, discriminator)
	}

	target := model.RouteTarget{
		Discriminator: discriminator,
		Host:          r.host,
		Port:          port,
	}
	if r.querySegment && method == http.MethodGet && len(rest) >= 2 {
		q, err := url.PathUnescape(rest[len(rest)-1])
		if err != nil {
			return model.RouteTarget{}, fmt.Errorf("%w: bad query segment: %w", ErrInvalidRoute, err)
		}
		target.Query = q
		target.HasQuery = true
		rest = rest[:len(rest)-1]
	}
	target.SubPath = strings.Join(rest, "/")
	return target, nil
}

// Discriminators returns the recognized discriminators in sorted order.
func (r *Router) Discriminators() []string {
	names := make([]string, 0, len(r.ports))
	for name := range r.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// splitPath returns the non-empty segments of path.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
