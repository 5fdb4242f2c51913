// Package main runs the validator API service.
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
	"github.com/fieldstone/navctl/internal/creds"
	"github.com/fieldstone/navctl/internal/logging"
	"github.com/fieldstone/navctl/internal/server"
	"github.com/fieldstone/navctl/internal/usps"
	"github.com/fieldstone/navctl/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.APIPort, "listen port")
	flag.Parse()

	logging.Init(cfg.LogLevel, cfg.LogFormat)

	// Credentials come from the launcher's environment, or directly from
	// the credential files when running standalone. No prompting here.
	resolver := creds.NewResolver(cfg.CredFile, cfg.SecretsFile, slog.Default())
	resolution := resolver.Resolve()
	if !resolution.Available {
		slog.Warn("no usps credentials, address validation disabled")
	}

	uspsClient := usps.NewClient(resolution.Pair.ClientID, resolution.Pair.ClientSecret)
	names := validate.NewNameValidator(cfg.DictDir(), slog.Default())
	service := validate.NewService(names, uspsClient, slog.Default())

	srv := server.NewServer(*port, service, slog.Default())

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
