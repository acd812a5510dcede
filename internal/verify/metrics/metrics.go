package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Stage latencies by pipeline stage
	StageLatency *prometheus.HistogramVec

	// Verification outcomes by decision
	Outcomes *prometheus.CounterVec

	// QR decodes by preprocessing variant that succeeded
	QRDecodeMethod *prometheus.CounterVec

	// BNRS lookups by outcome status
	RegistryLookups *prometheus.CounterVec

	// Overall pipeline latency
	VerifyLatency prometheus.Histogram
}

// New creates a new Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permitgate_verify_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"stage"}), // stage: "quality", "evidence", "registry"

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "permitgate_verify_outcomes_total",
			Help: "Total verification outcomes by decision",
		}, []string{"decision"}), // decision: "accepted", "rejected", "pending"

		QRDecodeMethod: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "permitgate_qr_decodes_total",
			Help: "Successful QR decodes by preprocessing variant",
		}, []string{"method"}),

		RegistryLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "permitgate_registry_lookups_total",
			Help: "BNRS registry lookups by outcome",
		}, []string{"status"}),

		VerifyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "permitgate_verify_duration_seconds",
			Help:    "Duration of full permit verification including registry lookup",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
	}
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementOutcome records a verification decision.
func (m *Metrics) IncrementOutcome(decision string) {
	if m != nil {
		m.Outcomes.WithLabelValues(decision).Inc()
	}
}

// IncrementQRDecode records which preprocessing variant decoded the QR.
func (m *Metrics) IncrementQRDecode(method string) {
	if m != nil {
		m.QRDecodeMethod.WithLabelValues(method).Inc()
	}
}

// IncrementRegistryLookup records a BNRS lookup outcome.
func (m *Metrics) IncrementRegistryLookup(status string) {
	if m != nil {
		m.RegistryLookups.WithLabelValues(status).Inc()
	}
}

// ObserveVerify records the total pipeline duration.
func (m *Metrics) ObserveVerify(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}
