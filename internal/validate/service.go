package validate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fieldstone/navctl/internal/metrics"
	"github.com/fieldstone/navctl/internal/usps"
)

// AddressValidator is the upstream address check the service depends on.
// *usps.Client satisfies it.
type AddressValidator interface {
	Configured() bool
	ValidateAddress(ctx context.Context, addr usps.Address) (*usps.Result, error)
}

// Service combines name and address validation.
type Service struct {
	names   *NameValidator
	address AddressValidator
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewService wires the validators together. address may be an unconfigured
// client; address operations then report unavailability in-band.
func NewService(names *NameValidator, address AddressValidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		names:   names,
		address: address,
		clock:   clockwork.NewRealClock(),
		logger:  logger,
	}
}

// AddressValidationAvailable reports whether USPS credentials are present.
func (s *Service) AddressValidationAvailable() bool {
	return s.address != nil && s.address.Configured()
}

// Status reports the service capabilities.
func (s *Service) Status() ServiceStatus {
	return ServiceStatus{
		NameValidationAvailable:    true,
		AddressValidationAvailable: s.AddressValidationAvailable(),
		APIVersion:                 APIVersion,
		Timestamp:                  s.clock.Now().Format(time.RFC3339),
	}
}

// ProcessRecords validates a batch of name records.
func (s *Service) ProcessRecords(records []NameRecord) BatchResponse {
	start := s.clock.Now()
	s.logger.Info("processing name records", "count", len(records))

	results := make([]RecordResult, 0, len(records))
	successful := 0
	for _, record := range records {
		result := s.processRecord(record)
		results = append(results, result)
		if result.ValidationStatus != "error" {
			successful++
		}
		metrics.ValidationsTotal.WithLabelValues("name", result.ValidationStatus).Inc()
	}
	metrics.BatchRecordsTotal.Add(float64(len(records)))
	metrics.ValidationDuration.WithLabelValues("name").Observe(s.clock.Since(start).Seconds())

	return BatchResponse{
		Status:           "success",
		ProcessedCount:   len(results),
		SuccessfulCount:  successful,
		Results:          results,
		ProcessingTimeMS: s.clock.Since(start).Milliseconds(),
		Timestamp:        s.clock.Now().Format(time.RFC3339),
	}
}

func (s *Service) processRecord(record NameRecord) RecordResult {
	name := strings.TrimSpace(record.Name)
	result := RecordResult{
		UniqueID:         record.UniqueID,
		Name:             name,
		Gender:           strings.TrimSpace(record.Gender),
		PartyType:        strings.TrimSpace(record.PartyType),
		ParseIndicator:   strings.TrimSpace(record.ParseInd),
		ValidationStatus: "valid",
		Analysis:         RecordAnalysis{PredictionMethod: "none"},
		Errors:           []string{},
		Warnings:         []string{},
	}

	if s.names.IsOrganization(name) {
		result.PartyType = "O"
		result.Gender = ""
		result.ParseIndicator = "N"
		result.ParsedComponents = ParsedComponents{OrganizationName: name}
		result.ConfidenceScore = 0.92
		result.Analysis = RecordAnalysis{
			DictionaryLookupUsed: true,
			FallbackUsed:         true,
			PredictionMethod:     "organization_detection_ai",
		}
	} else {
		result.PartyType = "I"

		if up := strings.ToUpper(result.ParseIndicator); up == "Y" || up == "" {
			parsed := s.names.ParseFullName(name)
			result.ParseIndicator = "Y"
			result.ParsedComponents = ParsedComponents{
				FirstName:  parsed.FirstName,
				LastName:   parsed.LastName,
				MiddleName: parsed.MiddleName,
			}

			if parsed.FirstName != "" || parsed.LastName != "" {
				check := s.names.Validate(parsed.FirstName, parsed.LastName)
				if !check.Valid {
					result.ValidationStatus = "warning"
				}
				result.ConfidenceScore = check.Confidence
				result.Warnings = append(result.Warnings, check.Warnings...)

				firstInDict := check.Analysis.FirstName.FoundInDictionary
				lastInDict := check.Analysis.LastName.FoundInDictionary
				result.Analysis = RecordAnalysis{
					DictionaryLookupUsed:  firstInDict || lastInDict,
					FallbackUsed:          !(firstInDict && lastInDict),
					PredictionMethod:      predictionMethod(firstInDict || lastInDict),
					FirstNameInDictionary: firstInDict,
					LastNameInDictionary:  lastInDict,
				}
			} else {
				result.ValidationStatus = "invalid"
				result.Errors = append(result.Errors, "Could not parse name into valid components")
				result.ConfidenceScore = 0.2
			}

			if result.Gender == "" && parsed.FirstName != "" {
				if predicted := s.names.PredictGender(parsed.FirstName); predicted != "" {
					result.Gender = predicted
					result.Suggestions.GenderPrediction = predicted
					result.Analysis.GenderPredictionMethod = "dictionary_first_ai_fallback"
				}
			}
		} else {
			result.ParseIndicator = "N"
			result.ConfidenceScore = 0.6
		}
	}

	if strings.TrimSpace(record.PartyType) == "" {
		result.Suggestions.PartyTypePrediction = result.PartyType
	}

	return result
}

func predictionMethod(dictionaryHit bool) string {
	if dictionaryHit {
		return "hybrid_dictionary_ai"
	}
	return "pure_ai"
}

// ValidateAddress runs a USPS check and folds errors into the outcome, so
// callers always get a report they can render.
func (s *Service) ValidateAddress(ctx context.Context, addr usps.Address) AddressOutcome {
	start := s.clock.Now()
	defer func() {
		metrics.ValidationDuration.WithLabelValues("address").Observe(s.clock.Since(start).Seconds())
	}()

	result, err := s.address.ValidateAddress(ctx, addr)
	if err != nil {
		metrics.ValidationsTotal.WithLabelValues("address", "error").Inc()
		return AddressOutcome{Error: addressErrorMessage(err)}
	}

	metrics.ValidationsTotal.WithLabelValues("address", "valid").Inc()
	return AddressOutcome{
		Success:      true,
		Valid:        result.Valid,
		Deliverable:  result.Deliverable,
		Standardized: &result.Standardized,
		Metadata:     &result.Metadata,
		Confidence:   result.Confidence,
	}
}

func addressErrorMessage(err error) string {
	switch {
	case errors.Is(err, usps.ErrNotConfigured):
		return "USPS API not configured"
	case errors.Is(err, usps.ErrInvalidAddress):
		return "Invalid address format"
	case errors.Is(err, usps.ErrAddressNotFound):
		return "Address not found"
	case errors.Is(err, usps.ErrUnavailable):
		return "USPS API temporarily unavailable"
	default:
		return "Validation request failed"
	}
}

// ValidateCompleteRecord checks a name and an address together. The record is
// valid overall only when the name checks out and the address is deliverable.
func (s *Service) ValidateCompleteRecord(ctx context.Context, firstName, lastName string, addr usps.Address) CompleteResult {
	start := s.clock.Now()

	nameResult := s.names.Validate(firstName, lastName)
	addressResult := s.ValidateAddress(ctx, addr)

	result := CompleteResult{
		Timestamp:         start.Format(time.RFC3339),
		NameResult:        nameResult,
		AddressResult:     addressResult,
		OverallValid:      nameResult.Valid && addressResult.Deliverable,
		OverallConfidence: (nameResult.Confidence + addressResult.Confidence) / 2,
		Errors:            []string{},
		Warnings:          []string{},
	}
	result.ProcessingTimeMS = s.clock.Since(start).Milliseconds()

	metrics.ValidationsTotal.WithLabelValues("complete", completeStatus(result.OverallValid)).Inc()
	return result
}

func completeStatus(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// csvNameColumns are the header names accepted for the full-name column.
var csvNameColumns = []string{"name", "full_name", "fullname"}

// ProcessCSV reads a CSV with a header row and validates each row's name.
// Rows with an empty name are skipped.
func (s *Service) ProcessCSV(r io.Reader) (CSVResponse, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return CSVResponse{}, fmt.Errorf("reading csv header: %w", err)
	}

	nameCol := -1
	for i, col := range header {
		for _, candidate := range csvNameColumns {
			if strings.EqualFold(strings.TrimSpace(col), candidate) {
				nameCol = i
				break
			}
		}
		if nameCol >= 0 {
			break
		}
	}
	if nameCol < 0 {
		return CSVResponse{
			Error: fmt.Sprintf("Name column not found. Available columns: %s", strings.Join(header, ", ")),
		}, nil
	}

	response := CSVResponse{Success: true, Results: []CSVRowResult{}}
	rowNumber := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return CSVResponse{}, fmt.Errorf("reading csv row %d: %w", rowNumber+1, err)
		}
		rowNumber++
		response.TotalRecords++

		if nameCol >= len(row) {
			continue
		}
		fullName := strings.TrimSpace(row[nameCol])
		if fullName == "" {
			continue
		}

		parsed := s.names.ParseFullName(fullName)
		if parsed.FirstName == "" && parsed.LastName == "" {
			continue
		}

		check := s.names.Validate(parsed.FirstName, parsed.LastName)
		response.Results = append(response.Results, CSVRowResult{
			RowNumber:    rowNumber,
			OriginalName: fullName,
			FirstName:    parsed.FirstName,
			LastName:     parsed.LastName,
			MiddleName:   parsed.MiddleName,
			Valid:        check.Valid,
			Confidence:   check.Confidence,
		})
		if check.Valid {
			response.SuccessfulValidations++
		}
	}

	response.ProcessedRecords = len(response.Results)
	if response.ProcessedRecords > 0 {
		response.SuccessRate = float64(response.SuccessfulValidations) / float64(response.ProcessedRecords)
	}
	metrics.BatchRecordsTotal.Add(float64(response.ProcessedRecords))

	s.logger.Info("processed csv upload",
		"total", response.TotalRecords, "processed", response.ProcessedRecords)
	return response, nil
}
