package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Validation metrics
var (
	// ValidationsTotal tracks validation requests by kind (name/address/complete) and status
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validator_validations_total",
			Help: "Total validation requests by kind and status",
		},
		[]string{"kind", "status"},
	)

	// ValidationDuration tracks validation latency in seconds
	ValidationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "validator_validation_duration_seconds",
			Help:    "Validation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	// BatchRecordsTotal counts records processed through batch endpoints
	BatchRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "validator_batch_records_total",
			Help: "Total records processed through batch validation",
		},
	)
)

// USPS client metrics
var (
	// USPSRequestsTotal tracks upstream USPS API calls by endpoint and status
	USPSRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usps_requests_total",
			Help: "Total USPS API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// USPSRequestDuration tracks upstream USPS API latency in seconds
	USPSRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "usps_request_duration_seconds",
			Help:    "USPS API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"endpoint"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)
