package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// StockMetrics records counts and latency of stock operations.
type StockMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewStockMetrics registers the stock operation metrics on the provided registerer.
// A nil registerer yields a recorder that drops everything.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_operation_duration_seconds",
		Help:    "Duration of stock operations in seconds, lock wait included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_operations_total",
		Help: "Stock operations by outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration, total)
	return &StockMetrics{
		duration: duration,
		total:    total,
	}
}

// Observe records one finished operation.
func (m *StockMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	operation = normalizeLabel(operation)
	m.total.WithLabelValues(operation, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
