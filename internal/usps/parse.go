package usps

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Unit designators that end a street line: "Apt 4B", "Suite 200", "#12",
// plus bare trailing unit tokens like "4B".
var unitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+(apartment|apt|suite|ste|unit|#)\s*\.?\s*([a-z0-9\-]+)$`),
	regexp.MustCompile(`(?i)\s+([0-9]+[a-z]{1,2})$`),
	regexp.MustCompile(`(?i)\s+#([a-z0-9\-]+)$`),
}

// SplitUnit separates a street line into the main street and a trailing
// apartment/suite designator. The unit is empty when none is present.
func SplitUnit(address string) (street, unit string) {
	address = strings.Join(strings.Fields(address), " ")
	if address == "" {
		return "", ""
	}

	for _, pattern := range unitPatterns {
		loc := pattern.FindStringIndex(address)
		if loc == nil {
			continue
		}
		return strings.TrimSpace(address[:loc[0]]), strings.TrimSpace(address[loc[0]:])
	}
	return address, ""
}

// addressResponse mirrors the USPS Addresses 3.0 response document.
type addressResponse struct {
	Address *struct {
		StreetAddress    string `json:"streetAddress"`
		SecondaryAddress string `json:"secondaryAddress"`
		City             string `json:"city"`
		State            string `json:"state"`
		ZIPCode          string `json:"ZIPCode"`
		ZIPPlus4         string `json:"ZIPPlus4"`
	} `json:"address"`
	AdditionalInfo struct {
		DPVConfirmation      string `json:"DPVConfirmation"`
		Business             string `json:"business"`
		Vacant               string `json:"vacant"`
		CentralDeliveryPoint string `json:"centralDeliveryPoint"`
		CarrierRoute         string `json:"carrierRoute"`
		DeliveryPoint        string `json:"deliveryPoint"`
	} `json:"additionalInfo"`
}

// parseResult interprets a 200 response. DPV confirmation Y (deliverable) or
// D (deliverable, missing secondary) counts as deliverable.
func parseResult(body []byte) (*Result, error) {
	var doc addressResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("usps: decoding validation response: %w", err)
	}
	if doc.Address == nil {
		return nil, errors.New("usps: no address data in response")
	}

	deliverable := doc.AdditionalInfo.DPVConfirmation == "Y" || doc.AdditionalInfo.DPVConfirmation == "D"

	street := doc.Address.StreetAddress
	if doc.Address.SecondaryAddress != "" {
		street += " " + doc.Address.SecondaryAddress
	}
	zip := doc.Address.ZIPCode
	if doc.Address.ZIPPlus4 != "" {
		zip += "-" + doc.Address.ZIPPlus4
	}

	confidence := 0.3
	if deliverable {
		confidence = 0.95
	}

	return &Result{
		Valid:       deliverable,
		Deliverable: deliverable,
		Standardized: Standardized{
			StreetAddress: strings.TrimSpace(street),
			City:          doc.Address.City,
			State:         doc.Address.State,
			ZIPCode:       zip,
		},
		Metadata: Metadata{
			Business:        doc.AdditionalInfo.Business == "Y",
			Vacant:          doc.AdditionalInfo.Vacant == "Y",
			Centralized:     doc.AdditionalInfo.CentralDeliveryPoint == "Y",
			CarrierRoute:    doc.AdditionalInfo.CarrierRoute,
			DeliveryPoint:   doc.AdditionalInfo.DeliveryPoint,
			DPVConfirmation: doc.AdditionalInfo.DPVConfirmation,
		},
		Confidence: confidence,
		Method:     "usps_api_v3",
	}, nil
}
