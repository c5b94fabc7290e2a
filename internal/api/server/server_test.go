package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/remiblancher/provider-conformance/internal/config"
)

func TestF_Server_ServeAndShutdown(t *testing.T) {
	cfg := config.Default().Server
	cfg.ShutdownTimeout = 2 * time.Second
	s := New(cfg, "test")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestU_Server_StartupInfo(t *testing.T) {
	cfg := config.Default().Server
	cfg.Host = "127.0.0.1"
	cfg.Port = 9999

	var buf bytes.Buffer
	New(cfg, "1.0").PrintStartupInfo(&buf)
	for _, want := range []string{"http://127.0.0.1:9999", "/api/v1/runs", "Version:  1.0"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("startup info missing %q", want)
		}
	}
}
