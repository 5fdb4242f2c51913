package usps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitUnit(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		street string
		unit   string
	}{
		{"no unit", "123 Main St", "123 Main St", ""},
		{"apt keyword", "123 Main St Apt 4B", "123 Main St", "Apt 4B"},
		{"suite keyword", "500 Oak Ave Suite 200", "500 Oak Ave", "Suite 200"},
		{"ste with dot", "500 Oak Ave Ste. 200", "500 Oak Ave", "Ste. 200"},
		{"hash", "77 Pine Rd #12", "77 Pine Rd", "#12"},
		{"bare unit token", "9 Elm St 4B", "9 Elm St", "4B"},
		{"extra whitespace", "  123   Main  St ", "123 Main St", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			street, unit := SplitUnit(tt.input)
			assert.Equal(t, tt.street, street)
			assert.Equal(t, tt.unit, unit)
		})
	}
}

func TestParseResult_Deliverable(t *testing.T) {
	body := []byte(`{
		"address": {
			"streetAddress": "123 MAIN ST",
			"secondaryAddress": "APT 4B",
			"city": "SPRINGFIELD",
			"state": "IL",
			"ZIPCode": "62704",
			"ZIPPlus4": "1234"
		},
		"additionalInfo": {
			"DPVConfirmation": "Y",
			"business": "N",
			"vacant": "N",
			"carrierRoute": "C012"
		}
	}`)

	result, err := parseResult(body)
	require.NoError(t, err)

	assert.True(t, result.Deliverable)
	assert.True(t, result.Valid)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "123 MAIN ST APT 4B", result.Standardized.StreetAddress)
	assert.Equal(t, "62704-1234", result.Standardized.ZIPCode)
	assert.Equal(t, "C012", result.Metadata.CarrierRoute)
	assert.False(t, result.Metadata.Business)
}

func TestParseResult_NotDeliverable(t *testing.T) {
	body := []byte(`{
		"address": {"streetAddress": "1 NOWHERE LN", "city": "X", "state": "TX", "ZIPCode": "75001"},
		"additionalInfo": {"DPVConfirmation": "N"}
	}`)

	result, err := parseResult(body)
	require.NoError(t, err)

	assert.False(t, result.Deliverable)
	assert.Equal(t, 0.3, result.Confidence)
}

func TestParseResult_MissingSecondary(t *testing.T) {
	// DPV "D" means deliverable but missing a secondary line.
	body := []byte(`{
		"address": {"streetAddress": "200 ELM ST", "city": "X", "state": "TX", "ZIPCode": "75001"},
		"additionalInfo": {"DPVConfirmation": "D"}
	}`)

	result, err := parseResult(body)
	require.NoError(t, err)
	assert.True(t, result.Deliverable)
}

func TestParseResult_NoAddress(t *testing.T) {
	_, err := parseResult([]byte(`{}`))
	assert.Error(t, err)
}

func newTestServer(t *testing.T, tokenCalls *atomic.Int32, dpv string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v3/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		assert.Equal(t, "addresses", r.FormValue("scope"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/addresses/v3/address", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"address": map[string]any{
				"streetAddress": q.Get("streetAddress"),
				"city":          q.Get("city"),
				"state":         q.Get("state"),
				"ZIPCode":       q.Get("ZIPCode"),
			},
			"additionalInfo": map[string]any{"DPVConfirmation": dpv},
		})
	})
	return httptest.NewServer(mux)
}

func testClient(server *httptest.Server, clock clockwork.Clock) *Client {
	return NewClient("id", "secret",
		WithEndpoints(server.URL+"/oauth2/v3/token", server.URL+"/addresses/v3/address"),
		WithClock(clock),
	)
}

func TestAccessToken_Cached(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newTestServer(t, &tokenCalls, "Y")
	defer server.Close()

	clock := clockwork.NewFakeClock()
	client := testClient(server, clock)

	tok1, err := client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok1)

	// Within the expiry window the cached token is reused.
	clock.Advance(30 * time.Minute)
	_, err = client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenCalls.Load())

	// Past the early-refresh threshold a new token is fetched.
	clock.Advance(26 * time.Minute)
	_, err = client.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestAccessToken_NotConfigured(t *testing.T) {
	client := NewClient("", "")
	_, err := client.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestValidateAddress_Deliverable(t *testing.T) {
	var tokenCalls atomic.Int32
	server := newTestServer(t, &tokenCalls, "Y")
	defer server.Close()

	client := testClient(server, clockwork.NewRealClock())

	result, err := client.ValidateAddress(context.Background(), Address{
		StreetAddress: "123 Main St Apt 4B",
		City:          "Springfield",
		State:         "il",
		ZIPCode:       "62704-1234",
	})
	require.NoError(t, err)

	assert.True(t, result.Deliverable)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "usps_api_v3", result.Method)
	// Components are uppercased and the ZIP trimmed to five digits.
	assert.Equal(t, "123 MAIN ST", result.Standardized.StreetAddress)
	assert.Equal(t, "62704", result.Standardized.ZIPCode)
}

func TestValidateAddress_MissingFields(t *testing.T) {
	client := NewClient("id", "secret")

	_, err := client.ValidateAddress(context.Background(), Address{City: "Springfield"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "street_address")
	assert.Contains(t, err.Error(), "zip_code")
	assert.NotContains(t, err.Error(), " city")
}

func TestValidateAddress_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/address", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient("id", "secret",
		WithEndpoints(server.URL+"/token", server.URL+"/address"))

	_, err := client.ValidateAddress(context.Background(), Address{
		StreetAddress: "1 Nowhere Ln", City: "X", State: "TX", ZIPCode: "75001",
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestValidateAddress_InvalidFormat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/address", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient("id", "secret",
		WithEndpoints(server.URL+"/token", server.URL+"/address"))

	_, err := client.ValidateAddress(context.Background(), Address{
		StreetAddress: "???", City: "X", State: "TX", ZIPCode: "75001",
	})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestValidateAddress_BreakerOpensAfterUpstreamErrors(t *testing.T) {
	var addressCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/address", func(w http.ResponseWriter, _ *http.Request) {
		addressCalls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient("id", "secret",
		WithEndpoints(server.URL+"/token", server.URL+"/address"))

	addr := Address{StreetAddress: "123 Main St", City: "X", State: "TX", ZIPCode: "75001"}

	// Five consecutive upstream failures trip the breaker.
	for i := 0; i < 5; i++ {
		_, err := client.ValidateAddress(context.Background(), addr)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	// The next call fails fast without reaching the upstream.
	_, err := client.ValidateAddress(context.Background(), addr)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(5), addressCalls.Load())
}

func TestValidateAddress_NotConfigured(t *testing.T) {
	client := NewClient("", "")
	_, err := client.ValidateAddress(context.Background(), Address{
		StreetAddress: "123 Main St", City: "X", State: "TX", ZIPCode: "75001",
	})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
