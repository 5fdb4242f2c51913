// Package usps is a client for the USPS Addresses 3.0 API. It handles OAuth2
// client-credentials auth with a cached access token, and protects the
// upstream with a circuit breaker so a flapping USPS outage fails fast
// instead of stacking up 15-second timeouts.
package usps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"

	"github.com/fieldstone/navctl/internal/metrics"
)

const (
	// DefaultAuthURL is the USPS OAuth2 token endpoint.
	DefaultAuthURL = "https://apis.usps.com/oauth2/v3/token"
	// DefaultValidateURL is the USPS address standardization endpoint.
	DefaultValidateURL = "https://apis.usps.com/addresses/v3/address"

	// tokenEarlyRefresh renews the cached token this long before its actual
	// expiry so in-flight requests never carry a token about to lapse.
	tokenEarlyRefresh = 5 * time.Minute

	requestTimeout = 15 * time.Second
)

var (
	// ErrNotConfigured means no credential pair was supplied.
	ErrNotConfigured = errors.New("usps: api not configured")
	// ErrUnavailable means the circuit breaker is open.
	ErrUnavailable = errors.New("usps: api unavailable")
	// ErrInvalidAddress means USPS rejected the address format.
	ErrInvalidAddress = errors.New("usps: invalid address format")
	// ErrAddressNotFound means USPS has no record of the address.
	ErrAddressNotFound = errors.New("usps: address not found")
)

// Address is the input to validation. All four fields are required.
type Address struct {
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZIPCode       string `json:"zip_code"`
}

// Standardized is the USPS-normalized form of an address.
type Standardized struct {
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZIPCode       string `json:"zip_code"`
}

// Metadata carries delivery-point details from the USPS response.
type Metadata struct {
	Business        bool   `json:"business"`
	Vacant          bool   `json:"vacant"`
	Centralized     bool   `json:"centralized"`
	CarrierRoute    string `json:"carrier_route"`
	DeliveryPoint   string `json:"delivery_point"`
	DPVConfirmation string `json:"dpv_confirmation"`
}

// Result is the outcome of a successful validation call.
type Result struct {
	Valid        bool         `json:"valid"`
	Deliverable  bool         `json:"deliverable"`
	Standardized Standardized `json:"standardized"`
	Metadata     Metadata     `json:"metadata"`
	Confidence   float64      `json:"confidence"`
	Method       string       `json:"validation_method"`
}

// Client talks to the USPS API. Safe for concurrent use.
type Client struct {
	clientID     string
	clientSecret string
	authURL      string
	validateURL  string
	httpClient   *http.Client
	clock        clockwork.Clock
	logger       *slog.Logger
	cb           circuitbreaker.CircuitBreaker[any]

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces the wall clock, for testing token expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithEndpoints overrides the USPS endpoints, for testing against a local
// server.
func WithEndpoints(authURL, validateURL string) Option {
	return func(c *Client) {
		c.authURL = authURL
		c.validateURL = validateURL
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a USPS client. An empty credential pair yields a client
// whose calls return ErrNotConfigured, which callers surface as "validation
// disabled" rather than a failure.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      DefaultAuthURL,
		validateURL:  DefaultValidateURL,
		httpClient:   &http.Client{Timeout: requestTimeout},
		clock:        clockwork.NewRealClock(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.cb = circuitbreaker.Builder[any]().
		WithFailureRateThreshold(60, 5, 10*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			c.logger.Warn("circuit breaker state changed",
				"component", "usps",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues("usps", e.NewState.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues("usps").Set(stateToFloat(e.NewState))
		}).
		Build()

	return c
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// Configured reports whether a credential pair is present.
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// AccessToken returns a valid bearer token, fetching one if the cache is
// empty or within the early-refresh window of expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.clock.Now().Before(c.tokenExpiry.Add(-tokenEarlyRefresh)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", "addresses")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("usps: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.USPSRequestsTotal.WithLabelValues("token", "error").Inc()
		return "", fmt.Errorf("usps: token request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.USPSRequestDuration.WithLabelValues("token").Observe(c.clock.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("usps: reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.USPSRequestsTotal.WithLabelValues("token", "error").Inc()
		c.logger.Error("usps auth failed", "status", resp.StatusCode)
		return "", fmt.Errorf("usps: auth failed with status %d", resp.StatusCode)
	}
	metrics.USPSRequestsTotal.WithLabelValues("token", "ok").Inc()

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("usps: decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("usps: token response missing access_token")
	}
	if payload.ExpiresIn == 0 {
		payload.ExpiresIn = 3600
	}

	c.token = payload.AccessToken
	c.tokenExpiry = c.clock.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.logger.Info("usps token obtained", "expires_in", payload.ExpiresIn)

	return c.token, nil
}

// ValidateAddress standardizes an address and reports deliverability.
func (c *Client) ValidateAddress(ctx context.Context, addr Address) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	street := strings.TrimSpace(addr.StreetAddress)
	city := strings.TrimSpace(addr.City)
	state := strings.ToUpper(strings.TrimSpace(addr.State))
	zip := strings.TrimSpace(addr.ZIPCode)

	var missing []string
	if street == "" {
		missing = append(missing, "street_address")
	}
	if city == "" {
		missing = append(missing, "city")
	}
	if state == "" {
		missing = append(missing, "state")
	}
	if zip == "" {
		missing = append(missing, "zip_code")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("usps: missing required fields: %s", strings.Join(missing, ", "))
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	mainStreet, unit := SplitUnit(street)
	if len(zip) > 5 {
		zip = zip[:5]
	}

	query := url.Values{}
	query.Set("streetAddress", strings.ToUpper(mainStreet))
	query.Set("city", strings.ToUpper(city))
	query.Set("state", state)
	query.Set("ZIPCode", zip)
	if unit != "" {
		query.Set("secondaryAddress", strings.ToUpper(unit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.validateURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("usps: building validation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if !c.cb.TryAcquirePermit() {
		metrics.USPSRequestsTotal.WithLabelValues("address", "rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, circuitbreaker.ErrOpen)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.cb.RecordError(err)
		metrics.USPSRequestsTotal.WithLabelValues("address", "error").Inc()
		return nil, fmt.Errorf("usps: validation request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.USPSRequestDuration.WithLabelValues("address").Observe(c.clock.Since(start).Seconds())

	// App-level rejections (bad address, not found) are not upstream
	// failures and must not trip the breaker.
	switch resp.StatusCode {
	case http.StatusOK:
		c.cb.RecordSuccess()
	case http.StatusBadRequest:
		c.cb.RecordSuccess()
		metrics.USPSRequestsTotal.WithLabelValues("address", "invalid").Inc()
		return nil, ErrInvalidAddress
	case http.StatusNotFound:
		c.cb.RecordSuccess()
		metrics.USPSRequestsTotal.WithLabelValues("address", "not_found").Inc()
		return nil, ErrAddressNotFound
	default:
		err := fmt.Errorf("usps: api error: HTTP %d", resp.StatusCode)
		c.cb.RecordError(err)
		metrics.USPSRequestsTotal.WithLabelValues("address", "error").Inc()
		return nil, err
	}
	metrics.USPSRequestsTotal.WithLabelValues("address", "ok").Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("usps: reading validation response: %w", err)
	}

	return parseResult(body)
}

// State returns the circuit breaker state, for status reporting.
func (c *Client) State() circuitbreaker.State {
	return c.cb.State()
}
