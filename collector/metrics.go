package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics метрики сбора для Prometheus
type Metrics struct {
	registry      *prometheus.Registry
	chunks        *prometheus.CounterVec
	rows          *prometheus.CounterVec
	upserted      *prometheus.CounterVec
	chunkDuration *prometheus.HistogramVec
	matched       prometheus.Gauge
	unmatched     prometheus.Gauge
}

// NewMetrics создает метрики в собственном реестре
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrostat",
			Name:      "chunks_total",
			Help:      "Value queries processed, by product group and status.",
		}, []string{"group", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrostat",
			Name:      "rows_total",
			Help:      "Rows seen in value documents, by product group and outcome.",
		}, []string{"group", "outcome"}),
		upserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrostat",
			Name:      "observations_upserted_total",
			Help:      "Observations written to the store.",
		}, []string{"group"}),
		chunkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agrostat",
			Name:      "chunk_duration_seconds",
			Help:      "Time spent fetching, extracting and storing one value query.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"group"}),
		matched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agrostat",
			Name:      "municipalities_matched",
			Help:      "Branch municipalities resolved in the last run.",
		}),
		unmatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agrostat",
			Name:      "municipalities_unmatched",
			Help:      "Branch municipalities left without a code in the last run.",
		}),
	}

	m.registry.MustRegister(
		m.chunks, m.rows, m.upserted, m.chunkDuration, m.matched, m.unmatched,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry реестр для экспорта через promhttp
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) chunkDone(group, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(group, status).Inc()
	m.chunkDuration.WithLabelValues(group).Observe(d.Seconds())
}

func (m *Metrics) rowsSeen(group, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rows.WithLabelValues(group, outcome).Add(float64(n))
}

func (m *Metrics) upsertedRows(group string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.upserted.WithLabelValues(group).Add(float64(n))
}

// SetMatching фиксирует результат последнего сопоставления
func (m *Metrics) SetMatching(matched, unmatched int) {
	if m == nil {
		return
	}
	m.matched.Set(float64(matched))
	m.unmatched.Set(float64(unmatched))
}
