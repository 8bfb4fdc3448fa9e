// Package cors implements the origin allow-list and the CORS response headers.
package cors

import "net/http"

// Static header values sent on every response.
const (
	AllowMethods = "GET,HEAD,POST,OPTIONS"
	AllowHeaders = "Content-Type"
	MaxAge       = "86400"
)

// Policy is an immutable set of allowed origins. Matching is exact; there is no
// wildcard or pattern support.
type Policy struct {
	origins map[string]struct{}
}

// NewPolicy builds a Policy from an allow-list of origins.
func NewPolicy(origins []string) *Policy {
	set := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return &Policy{origins: set}
}

// IsOriginAllowed reports whether origin is a non-empty member of the allow-list.
func (p *Policy) IsOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := p.origins[origin]
	return ok
}

// Headers returns the CORS headers for a request carrying origin.
// Access-Control-Allow-Origin is present only when origin is allowed.
func (p *Policy) Headers(origin string) http.Header {
	h := make(http.Header, 4)
	p.Apply(h, origin)
	return h
}

// Apply sets the CORS headers for origin on h. A disallowed origin removes any
// Access-Control-Allow-Origin already present.
func (p *Policy) Apply(h http.Header, origin string) {
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
	h.Set("Access-Control-Max-Age", MaxAge)
	if p.IsOriginAllowed(origin) {
		h.Set("Access-Control-Allow-Origin", origin)
	} else {
		h.Del("Access-Control-Allow-Origin")
	}
}
