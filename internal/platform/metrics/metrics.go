package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the party registry.
type Metrics struct {
	BuildsRun        prometheus.Counter
	BuildDuration    prometheus.Histogram
	ScanErrors       prometheus.Counter
	OverridesSkipped prometheus.Counter
	Groups           prometheus.Gauge
	Appearances      prometheus.Gauge
	AuditEvents      *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers against an explicit registerer so tests can isolate.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BuildsRun: factory.NewCounter(prometheus.CounterOpts{
			Name: "party_registry_builds_total",
			Help: "Total number of registry rebuilds run",
		}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "party_registry_build_duration_seconds",
			Help:    "Wall time of full registry rebuilds",
			Buckets: prometheus.DefBuckets,
		}),
		ScanErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "party_registry_scan_errors_total",
			Help: "Transaction records skipped due to read or validation errors",
		}),
		OverridesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "party_registry_overrides_skipped_total",
			Help: "Stored overrides skipped during replay because their groups no longer exist",
		}),
		Groups: factory.NewGauge(prometheus.GaugeOpts{
			Name: "party_registry_groups",
			Help: "Party groups in the last built registry",
		}),
		Appearances: factory.NewGauge(prometheus.GaugeOpts{
			Name: "party_registry_appearances",
			Help: "Appearances scanned in the last build",
		}),
		AuditEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "party_registry_audit_events_total",
			Help: "Audit log entries emitted, by action",
		}, []string{"action"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "party_registry_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}
