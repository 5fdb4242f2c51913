package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldstone/navctl/internal/usps"
	"github.com/fieldstone/navctl/internal/validate"
	"github.com/fieldstone/navctl/internal/version"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version.Get().Version,
		"uptime":    time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.service.Status())
}

func (s *Server) handleValidateNames(c echo.Context) error {
	var req validate.BatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Records) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "records required")
	}

	resp := s.service.ProcessRecords(req.Records)
	s.logger.Info("name validation processed", "records", len(req.Records))
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleValidateAddress(c echo.Context) error {
	if !s.service.AddressValidationAvailable() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "USPS API not configured")
	}

	var addr usps.Address
	if err := c.Bind(&addr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outcome := s.service.ValidateAddress(c.Request().Context(), addr)
	return c.JSON(http.StatusOK, outcome)
}

// completeRequest is the body of a combined name+address validation.
type completeRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZIPCode       string `json:"zip_code"`
}

func (s *Server) handleValidateComplete(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result := s.service.ValidateCompleteRecord(c.Request().Context(), req.FirstName, req.LastName, usps.Address{
		StreetAddress: req.StreetAddress,
		City:          req.City,
		State:         req.State,
		ZIPCode:       req.ZIPCode,
	})
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleUploadCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		return echo.NewHTTPError(http.StatusBadRequest, "File must be CSV format")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read file")
	}
	defer f.Close()

	s.logger.Info("csv uploaded", "filename", fileHeader.Filename)

	resp, err := s.service.ProcessCSV(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExample(c echo.Context) error {
	return c.JSON(http.StatusOK, validate.BatchRequest{
		Records: []validate.NameRecord{
			{UniqueID: "001", Name: "John Michael Smith", PartyType: "I", ParseInd: "Y"},
			{UniqueID: "002", Name: "TechCorp Solutions LLC", PartyType: "O", ParseInd: "N"},
			{UniqueID: "003", Name: "Mary Johnson-Williams", Gender: "F", ParseInd: "Y"},
		},
	})
}
