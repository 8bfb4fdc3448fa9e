package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"jsonrelay/internal/config"
	"jsonrelay/internal/metrics"
)

func testConfig(timeout int) *config.Config {
	return &config.Config{
		Upstream: config.UpstreamConfig{
			TimeoutSeconds:   timeout,
			IdleConnections:  10,
			MaxResponseBytes: 1024,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpstreamClient_Send(t *testing.T) {
	var gotMethod, gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	m := metrics.New("twitter")
	c := NewUpstreamClient(testConfig(10), discardLogger(), m)

	header := http.Header{"Content-Type": {"application/json"}}
	resp, err := c.Send(context.Background(), "twitter", http.MethodPost, srv.URL+"/test", header, strings.NewReader(`{"a":1}`))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if string(resp.Body) != `{"status":"ok"}` {
		t.Errorf("body = %q, want %q", resp.Body, `{"status":"ok"}`)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("upstream method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("upstream Content-Type = %q, want application/json", gotContentType)
	}
	if gotBody != `{"a":1}` {
		t.Errorf("upstream body = %q, want %q", gotBody, `{"a":1}`)
	}
	if got := testutil.ToFloat64(m.UpstreamResponses.WithLabelValues("twitter", "201")); got != 1 {
		t.Errorf("upstream responses{twitter,201} = %v, want 1", got)
	}
}

func TestUpstreamClient_Send_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close() // closed socket: connection refused

	m := metrics.New("twitter")
	c := NewUpstreamClient(testConfig(1), discardLogger(), m)

	_, err := c.Send(context.Background(), "twitter", http.MethodGet, addr+"/x", http.Header{}, nil)
	if err == nil {
		t.Fatal("Send() expected error for unreachable host, got nil")
	}
	if got := testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("twitter")); got != 1 {
		t.Errorf("upstream errors = %v, want 1", got)
	}
}

func TestUpstreamClient_Send_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate a slow upstream; the request should be canceled before this completes.
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewUpstreamClient(testConfig(30), discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Send(ctx, "twitter", http.MethodGet, srv.URL+"/slow", http.Header{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
}

func TestUpstreamClient_Send_ResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	c := NewUpstreamClient(testConfig(10), discardLogger(), nil)

	_, err := c.Send(context.Background(), "twitter", http.MethodGet, srv.URL, http.Header{}, nil)
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("Send() error = %v, want ErrResponseTooLarge", err)
	}
}
