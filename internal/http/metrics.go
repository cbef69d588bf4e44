package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service counters. Each server carries its own registry so
// multiple instances (and tests) never fight over the global one.
type Metrics struct {
	registry *prometheus.Registry

	SharesTotal      *prometheus.CounterVec
	LookupsTotal     *prometheus.CounterVec
	DuplicatesTotal  prometheus.Counter
	RateLimitedTotal prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	ProcessingTime   *prometheus.HistogramVec
	JournalSize      prometheus.Gauge
	SessionActive    prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SharesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songmoment_shares_total",
				Help: "Total number of share intents processed, by outcome",
			},
			[]string{"outcome"},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songmoment_lookups_total",
				Help: "Total number of song lookups, by source service and result",
			},
			[]string{"service", "status"},
		),
		DuplicatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "songmoment_duplicate_shares_total",
				Help: "Total number of duplicate share intents rejected",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "songmoment_rate_limited_shares_total",
				Help: "Total number of share intents rejected by the flood gate",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songmoment_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		ProcessingTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "songmoment_request_duration_seconds",
				Help:    "Time spent handling requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler"},
		),
		JournalSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "songmoment_journal_moments",
				Help: "Current number of moments in the journal",
			},
		),
		SessionActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "songmoment_session_active",
				Help: "Whether a journaling session is currently active",
			},
		),
	}

	m.registry.MustRegister(
		m.SharesTotal,
		m.LookupsTotal,
		m.DuplicatesTotal,
		m.RateLimitedTotal,
		m.ErrorsTotal,
		m.ProcessingTime,
		m.JournalSize,
		m.SessionActive,
	)

	return m
}

func (m *Metrics) recordShare(outcome string) {
	m.SharesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordLookup(service, status string) {
	m.LookupsTotal.WithLabelValues(service, status).Inc()
}

func (m *Metrics) recordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func (m *Metrics) recordDuration(handler string, duration time.Duration) {
	m.ProcessingTime.WithLabelValues(handler).Observe(duration.Seconds())
}

func (m *Metrics) setSessionActive(active bool) {
	if active {
		m.SessionActive.Set(1)
	} else {
		m.SessionActive.Set(0)
	}
}
