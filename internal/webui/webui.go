// Package webui serves the operator-facing web front end. It renders a small
// form UI and proxies validation requests to the API service, so the browser
// never talks to USPS directly.
package webui

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fieldstone/navctl/internal/usps"
	"github.com/fieldstone/navctl/internal/validate"
)

//go:embed templates/*.html
var templateFS embed.FS

const apiTimeout = 20 * time.Second

// Server is the web UI server.
type Server struct {
	echo       *echo.Echo
	logger     *slog.Logger
	apiURL     string
	httpClient *http.Client
	tmpl       *template.Template
	port       int
}

// NewServer builds the UI server. apiURL is the base URL of the validator
// API, e.g. http://127.0.0.1:8000.
func NewServer(port int, apiURL string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	srv := &Server{
		echo:       e,
		logger:     logger,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: apiTimeout},
		tmpl:       tmpl,
		port:       port,
	}

	e.GET("/health", srv.handleHealth)
	e.GET("/", srv.handleIndex)
	e.POST("/validate-name", srv.handleValidateName)
	e.POST("/validate-address", srv.handleValidateAddress)

	return srv, nil
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting validator ui", "port", s.port, "api_url", s.apiURL)
	return s.echo.Start(fmt.Sprintf(":%d", s.port))
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// pageData feeds the index template.
type pageData struct {
	APIAvailable     bool
	AddressAvailable bool
	NameResult       *validate.RecordResult
	AddressResult    *validate.AddressOutcome
	Error            string
}

func (s *Server) handleIndex(c echo.Context) error {
	return s.render(c, s.statusData(c.Request().Context()))
}

func (s *Server) statusData(ctx context.Context) pageData {
	var data pageData

	var status validate.ServiceStatus
	if err := s.apiGet(ctx, "/status", &status); err != nil {
		s.logger.Warn("api status check failed", "error", err)
		return data
	}
	data.APIAvailable = true
	data.AddressAvailable = status.AddressValidationAvailable
	return data
}

func (s *Server) handleValidateName(c echo.Context) error {
	data := s.statusData(c.Request().Context())

	fullName := c.FormValue("full_name")
	if fullName == "" {
		data.Error = "Enter a name to validate"
		return s.render(c, data)
	}

	req := validate.BatchRequest{
		Records: []validate.NameRecord{{
			UniqueID: "ui-1",
			Name:     fullName,
			ParseInd: "Y",
		}},
	}

	var resp validate.BatchResponse
	if err := s.apiPost(c.Request().Context(), "/api/v1/validate-names", req, &resp); err != nil {
		data.Error = "Validation API is not reachable"
		s.logger.Error("name validation proxy failed", "error", err)
		return s.render(c, data)
	}
	if len(resp.Results) > 0 {
		data.NameResult = &resp.Results[0]
	}
	return s.render(c, data)
}

func (s *Server) handleValidateAddress(c echo.Context) error {
	data := s.statusData(c.Request().Context())

	addr := usps.Address{
		StreetAddress: c.FormValue("street_address"),
		City:          c.FormValue("city"),
		State:         c.FormValue("state"),
		ZIPCode:       c.FormValue("zip_code"),
	}

	var outcome validate.AddressOutcome
	if err := s.apiPost(c.Request().Context(), "/api/v1/validate-address", addr, &outcome); err != nil {
		data.Error = "Address validation is not available"
		s.logger.Error("address validation proxy failed", "error", err)
		return s.render(c, data)
	}
	data.AddressResult = &outcome
	return s.render(c, data)
}

func (s *Server) render(c echo.Context, data pageData) error {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "template error")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) apiGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+path, nil)
	if err != nil {
		return err
	}
	return s.doJSON(req, out)
}

func (s *Server) apiPost(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.doJSON(req, out)
}

func (s *Server) doJSON(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api returned status %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}
