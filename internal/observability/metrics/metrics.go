package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Module provides the metrics registry and component metric sets.
var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(NewProcessorMetrics),
	fx.Provide(NewProviderMetrics),
)

func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	return registry
}

// ProcessorMetrics captures duty-job processor health signals.
type ProcessorMetrics struct {
	jobsProcessed *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	ticksSkipped  prometheus.Counter
	batchSize     prometheus.Histogram
	sweepDeleted  prometheus.Counter
}

func NewProcessorMetrics(registry *prometheus.Registry) *ProcessorMetrics {
	m := &ProcessorMetrics{
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dutyjob_processed_total",
			Help: "Duty calculation jobs finished, by terminal status.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dutyjob_duration_seconds",
			Help:    "Time from claim to terminal state per job.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 180, 300},
		}),
		ticksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dutyjob_ticks_skipped_total",
			Help: "Processor ticks skipped because the previous tick was still running.",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dutyjob_batch_size",
			Help:    "Pending jobs claimed per processing tick.",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 10},
		}),
		sweepDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dutyjob_sweep_deleted_total",
			Help: "Expired completed jobs removed by the cleanup sweep.",
		}),
	}
	registry.MustRegister(m.jobsProcessed, m.jobDuration, m.ticksSkipped, m.batchSize, m.sweepDeleted)
	return m
}

func (m *ProcessorMetrics) IncProcessed(status string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(status).Inc()
}

func (m *ProcessorMetrics) ObserveJobDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.Observe(d.Seconds())
}

func (m *ProcessorMetrics) IncTickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}

func (m *ProcessorMetrics) ObserveBatchSize(n int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

func (m *ProcessorMetrics) AddSweepDeleted(n int64) {
	if m == nil {
		return
	}
	m.sweepDeleted.Add(float64(n))
}

// ProviderMetrics counts quote attempts per provider and outcome.
type ProviderMetrics struct {
	quotes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePanic   = "panic"
)

func NewProviderMetrics(registry *prometheus.Registry) *ProviderMetrics {
	m := &ProviderMetrics{
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dutyquote_attempts_total",
			Help: "Provider quote attempts by outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dutyquote_duration_seconds",
			Help:    "Provider quote latency.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 180},
		}, []string{"provider"}),
	}
	registry.MustRegister(m.quotes, m.duration)
	return m
}

func (m *ProviderMetrics) IncQuote(provider, outcome string) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(provider, outcome).Inc()
}

func (m *ProviderMetrics) ObserveQuoteDuration(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(provider).Observe(d.Seconds())
}
