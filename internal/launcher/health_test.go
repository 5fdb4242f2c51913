package launcher

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func serveHealth(t *testing.T, status int) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
	go http.Serve(ln, mux)

	return ln.Addr().(*net.TCPAddr).Port
}

func TestWaitReadyHealthy(t *testing.T) {
	port := serveHealth(t, http.StatusOK)

	if err := WaitReady(context.Background(), port, 5*time.Second); err != nil {
		t.Errorf("WaitReady failed against healthy service: %v", err)
	}
}

func TestWaitReadyTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	start := time.Now()
	if err := WaitReady(context.Background(), port, time.Second); err == nil {
		t.Error("expected timeout error for dead port")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("WaitReady took too long to give up: %s", elapsed)
	}
}

func TestWaitReadyBecomesHealthy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	go func() {
		time.Sleep(300 * time.Millisecond)
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		http.Serve(ln, mux)
	}()

	if err := WaitReady(context.Background(), port, 10*time.Second); err != nil {
		t.Errorf("WaitReady should succeed once the service comes up: %v", err)
	}
}
