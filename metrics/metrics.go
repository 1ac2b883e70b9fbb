// Package metrics exposes Prometheus instrumentation for the credential
// service and a standalone metrics listener, kept off the API port.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	// Operation outcomes by operation (issue, verify, revoke) and result
	// (ok, invalid_document, store_auth, store_unavailable,
	// content_unavailable, not_ready, not_found, unauthorized, error).
	OperationOutcome *prometheus.CounterVec

	// End-to-end operation latency by operation.
	OperationLatency *prometheus.HistogramVec

	// Gateway fetch attempts by endpoint template and result (hit, miss).
	GatewayAttempts *prometheus.CounterVec

	// Store uploads by backend name and result (ok, error, unavailable).
	StoreUploads *prometheus.CounterVec
}

// New creates and registers the service metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		OperationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credential_registry_operations_total",
			Help: "Credential operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credential_registry_operation_duration_seconds",
			Help:    "End-to-end duration of credential operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),

		GatewayAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credential_registry_gateway_attempts_total",
			Help: "Content retrieval attempts by gateway and result",
		}, []string{"gateway", "result"}),

		StoreUploads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "credential_registry_store_uploads_total",
			Help: "Content store uploads by backend and result",
		}, []string{"store", "result"}),
	}
}

// RecordOperation records one operation's outcome and duration.
func (m *Metrics) RecordOperation(operation, outcome string, d time.Duration) {
	if m != nil {
		m.OperationOutcome.WithLabelValues(operation, outcome).Inc()
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// RecordGatewayAttempt records one gateway fetch attempt.
func (m *Metrics) RecordGatewayAttempt(gateway, result string) {
	if m != nil {
		m.GatewayAttempts.WithLabelValues(gateway, result).Inc()
	}
}

// RecordStoreUpload records one upload against a store backend.
func (m *Metrics) RecordStoreUpload(store, result string) {
	if m != nil {
		m.StoreUploads.WithLabelValues(store, result).Inc()
	}
}

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// NewServer creates a metrics server bound to addr, serving /metrics from the
// default registry.
func NewServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving scrapes until Shutdown or failure.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
