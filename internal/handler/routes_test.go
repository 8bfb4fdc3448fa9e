package handler

import (
	"net/http"
	"strings"
	"testing"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	up := newUpstreamStub(t, http.StatusOK, `{"ok":true}`)
	e := newTestEcho(t, testConfig(t, up.srv.URL))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", "", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", "", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"GET /twitter/users/1", http.MethodGet, "/twitter/users/1", "", http.StatusOK},
		{"HEAD /twitter/users/1", http.MethodHead, "/twitter/users/1", "", http.StatusOK},
		{"POST /discourse/posts", http.MethodPost, "/discourse/posts", `{"a":1}`, http.StatusOK},
		{"OPTIONS anywhere", http.MethodOptions, "/anything/at/all", "", http.StatusOK},
		{"GET / is an invalid route", http.MethodGet, "/", "", http.StatusBadRequest},
		{"DELETE not allowed", http.MethodDelete, "/twitter/users/1", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != testOrigin {
				t.Errorf("Allow-Origin missing on %s %s", tt.method, tt.path)
			}
		})
	}
}

func TestRegisterRoutes_MetricsExposition(t *testing.T) {
	up := newUpstreamStub(t, http.StatusOK, `{"ok":true}`)
	e := newTestEcho(t, testConfig(t, up.srv.URL))

	do(e, http.MethodGet, "/twitter/users/1", "")
	rec := do(e, http.MethodGet, "/metrics", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	for _, want := range []string{
		"jsonrelay_http_requests_total",
		`jsonrelay_upstream_responses_total{discriminator="twitter",status_code="200"} 1`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	up := newUpstreamStub(t, http.StatusOK, `{"ok":true}`)
	cfg := testConfig(t, up.srv.URL)
	cfg.Metrics.Enabled = false
	e := newTestEcho(t, cfg)

	// Without the metrics route, /metrics falls through to the proxy and
	// fails routing (no rest segment).
	rec := do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
