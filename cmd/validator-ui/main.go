// Package main runs the validator web UI service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldstone/navctl/internal/config"
	"github.com/fieldstone/navctl/internal/logging"
	"github.com/fieldstone/navctl/internal/webui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.UIPort, "listen port")
	apiURL := flag.String("api-url", cfg.APIBaseURL(cfg.APIPort), "base URL of the validator API")
	flag.Parse()

	logging.Init(cfg.LogLevel, cfg.LogFormat)

	srv, err := webui.NewServer(*port, *apiURL, slog.Default())
	if err != nil {
		slog.Error("failed to build ui server", "error", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		close(done)
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
}
