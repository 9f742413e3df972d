package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgcore_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orgcore_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authorizeDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgcore_authorize_decisions_total",
		Help: "Authorization decisions by outcome and deny reason",
	}, []string{"outcome", "reason"})

	scopeResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orgcore_scope_resolution_duration_seconds",
		Help:    "Duration of accessible-tenant-set resolution",
		Buckets: prometheus.DefBuckets,
	})

	cascadeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgcore_cascade_operations_total",
		Help: "Tenant mutation operations by kind and result",
	}, []string{"operation", "result"})

	integrityFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgcore_hierarchy_integrity_faults_total",
		Help: "Hierarchy corruption findings (cycles, broken parent chains)",
	}, []string{"kind"})

	tenantCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orgcore_tenants",
		Help: "Number of tenant records seen by the last integrity scan",
	})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthorizeDecision counts an authorization decision. reason is empty
// for allowed decisions.
func ObserveAuthorizeDecision(outcome, reason string) {
	authorizeDecisions.WithLabelValues(outcome, reason).Inc()
}

// ObserveScopeResolution records the duration of one accessible-set resolution.
func ObserveScopeResolution(duration time.Duration) {
	scopeResolutionDuration.Observe(duration.Seconds())
}

// ObserveCascadeOperation counts a tenant mutation by kind and result.
func ObserveCascadeOperation(operation, result string) {
	cascadeOperations.WithLabelValues(operation, result).Inc()
}

// ObserveIntegrityFault counts a hierarchy corruption finding.
func ObserveIntegrityFault(kind string) {
	integrityFaults.WithLabelValues(kind).Inc()
}

// SetTenantCount records the tenant population seen by an integrity scan.
func SetTenantCount(count int) {
	if count < 0 {
		count = 0
	}
	tenantCount.Set(float64(count))
}
