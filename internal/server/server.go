// Package server exposes the validation service over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldstone/navctl/internal/validate"
)

// Server is the validator API server.
type Server struct {
	echo      *echo.Echo
	service   *validate.Service
	logger    *slog.Logger
	port      int
	startTime time.Time
}

// NewServer builds the API server around a validation service.
func NewServer(port int, service *validate.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	srv := &Server{
		echo:      e,
		service:   service,
		logger:    logger,
		port:      port,
		startTime: time.Now(),
	}
	srv.registerRoutes()

	return srv
}

// requestLogger tags each request with an id and logs it through slog.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := uuid.NewString()
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("request",
				"request_id", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/status", s.handleStatus)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/api/v1/validate-names", s.handleValidateNames)
	s.echo.POST("/api/v1/validate-address", s.handleValidateAddress)
	s.echo.POST("/api/v1/validate-complete", s.handleValidateComplete)
	s.echo.POST("/api/v1/upload-csv", s.handleUploadCSV)
	s.echo.GET("/api/v1/example", s.handleExample)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting validator api", "port", s.port)
	return s.echo.Start(fmt.Sprintf(":%d", s.port))
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
