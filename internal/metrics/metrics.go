package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan outcomes.
const (
	ScanRecorded       = "recorded"
	ScanDuplicate      = "already_attended"
	ScanInvalidPayload = "invalid_payload"
	ScanNotFound       = "not_found"
	ScanError          = "error"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	Registrations prometheus.Counter
	Scans         *prometheus.CounterVec
	ScanDuration  prometheus.Histogram
	Notifications *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registrations: factory.NewCounter(prometheus.CounterOpts{
			Name: "yep_registrations_total",
			Help: "Total number of participants registered",
		}),
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yep_attendance_scans_total",
			Help: "Attendance scans by outcome",
		}, []string{"outcome"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "yep_attendance_scan_duration_seconds",
			Help:    "Duration of attendance scan processing",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "yep_notifications_total",
			Help: "Notifications sent by kind and result",
		}, []string{"kind", "result"}),
		gatherer: reg,
	}
}

// IncrementRegistrations records a successful registration.
func (m *Metrics) IncrementRegistrations() {
	m.Registrations.Inc()
}

// ObserveScan records the outcome of a scan. Call with time.Now() at the
// start of the scan.
func (m *Metrics) ObserveScan(outcome string, start time.Time) {
	m.Scans.WithLabelValues(outcome).Inc()
	m.ScanDuration.Observe(time.Since(start).Seconds())
}

// ObserveNotifications adds a batch (or a single send) to the counters.
func (m *Metrics) ObserveNotifications(kind string, sent, failed int) {
	m.Notifications.WithLabelValues(kind, "sent").Add(float64(sent))
	m.Notifications.WithLabelValues(kind, "failed").Add(float64(failed))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
