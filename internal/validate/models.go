package validate

import "github.com/fieldstone/navctl/internal/usps"

// APIVersion is reported by the status endpoint.
const APIVersion = "2.0.0"

// NameRecord is one record of a batch validation request.
type NameRecord struct {
	UniqueID  string `json:"uniqueid"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	PartyType string `json:"party_type"`
	ParseInd  string `json:"parseInd"`
}

// BatchRequest is the body of a batch name validation call.
type BatchRequest struct {
	Records []NameRecord `json:"records"`
}

// ParsedComponents are the name parts extracted from a record.
type ParsedComponents struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	MiddleName       string `json:"middle_name"`
	OrganizationName string `json:"organization_name"`
}

// Suggestions carry predicted values the caller did not supply.
type Suggestions struct {
	NameSuggestions     []string `json:"name_suggestions"`
	GenderPrediction    string   `json:"gender_prediction"`
	PartyTypePrediction string   `json:"party_type_prediction"`
}

// RecordAnalysis describes how a record's predictions were made: whether the
// dictionaries contributed, and which heuristic path produced the result.
type RecordAnalysis struct {
	DictionaryLookupUsed   bool   `json:"dictionary_lookup_used"`
	FallbackUsed           bool   `json:"ai_fallback_used"`
	PredictionMethod       string `json:"prediction_method"`
	FirstNameInDictionary  bool   `json:"first_name_in_dictionary"`
	LastNameInDictionary   bool   `json:"last_name_in_dictionary"`
	GenderPredictionMethod string `json:"gender_prediction_method,omitempty"`
}

// RecordResult is the validation outcome for one record.
type RecordResult struct {
	UniqueID         string           `json:"uniqueid"`
	Name             string           `json:"name"`
	Gender           string           `json:"gender"`
	PartyType        string           `json:"party_type"`
	ParseIndicator   string           `json:"parse_indicator"`
	ValidationStatus string           `json:"validation_status"`
	ConfidenceScore  float64          `json:"confidence_score"`
	ParsedComponents ParsedComponents `json:"parsed_components"`
	Suggestions      Suggestions      `json:"suggestions"`
	Analysis         RecordAnalysis   `json:"ai_analysis"`
	Errors           []string         `json:"errors"`
	Warnings         []string         `json:"warnings"`
}

// BatchResponse is the result of a batch name validation call.
type BatchResponse struct {
	Status           string         `json:"status"`
	ProcessedCount   int            `json:"processed_count"`
	SuccessfulCount  int            `json:"successful_count"`
	Results          []RecordResult `json:"results"`
	ProcessingTimeMS int64          `json:"processing_time_ms"`
	Timestamp        string         `json:"timestamp"`
}

// AddressOutcome wraps a USPS result together with the request disposition,
// so unconfigured or failed lookups are reported in-band rather than as
// transport errors.
type AddressOutcome struct {
	Success      bool               `json:"success"`
	Valid        bool               `json:"valid"`
	Deliverable  bool               `json:"deliverable"`
	Standardized *usps.Standardized `json:"standardized,omitempty"`
	Metadata     *usps.Metadata     `json:"metadata,omitempty"`
	Confidence   float64            `json:"confidence"`
	Error        string             `json:"error,omitempty"`
}

// CompleteResult combines a name check and an address check for one record.
type CompleteResult struct {
	Timestamp         string         `json:"timestamp"`
	NameResult        NameCheck      `json:"name_result"`
	AddressResult     AddressOutcome `json:"address_result"`
	OverallValid      bool           `json:"overall_valid"`
	OverallConfidence float64        `json:"overall_confidence"`
	ProcessingTimeMS  int64          `json:"processing_time_ms"`
	Errors            []string       `json:"errors"`
	Warnings          []string       `json:"warnings"`
}

// CSVRowResult is one processed row of an uploaded CSV.
type CSVRowResult struct {
	RowNumber    int     `json:"row_number"`
	OriginalName string  `json:"original_name"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	MiddleName   string  `json:"middle_name"`
	Valid        bool    `json:"valid"`
	Confidence   float64 `json:"confidence"`
}

// CSVResponse summarizes a batch CSV upload.
type CSVResponse struct {
	Success               bool           `json:"success"`
	TotalRecords          int            `json:"total_records"`
	ProcessedRecords      int            `json:"processed_records"`
	SuccessfulValidations int            `json:"successful_validations"`
	SuccessRate           float64        `json:"success_rate"`
	Results               []CSVRowResult `json:"results"`
	Error                 string         `json:"error,omitempty"`
}

// ServiceStatus reports which validation capabilities are live.
type ServiceStatus struct {
	NameValidationAvailable    bool   `json:"name_validation_available"`
	AddressValidationAvailable bool   `json:"address_validation_available"`
	APIVersion                 string `json:"api_version"`
	Timestamp                  string `json:"timestamp"`
}
