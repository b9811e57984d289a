package infra

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHTTPServerShutdownBeforeStart(t *testing.T) {
	cfg := &Config{Port: "0", HTTPReadTimeout: time.Second, HTTPWriteTimeout: time.Second, HTTPIdleTimeout: time.Second}
	srv := NewHTTPServer(cfg, http.NotFoundHandler(), zerolog.Nop())
	if srv.Addr() != ":0" {
		t.Fatalf("Addr() = %q", srv.Addr())
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() after shutdown = %v, want nil", err)
	}
}

func TestNilHTTPServerIsInert(t *testing.T) {
	var srv HTTPServer
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
