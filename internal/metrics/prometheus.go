// Package metrics exposes Prometheus collectors for credential and rating
// operations.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as the "operation" label.
const (
	OpRegister     = "register"
	OpAuthenticate = "authenticate"
	OpUpsert       = "upsert"
	OpRatingsFor   = "ratings_for"
	OpAllRatings   = "all_ratings"
	OpExport       = "export"
)

// Outcome values used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeNoMatch   = "no_match"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Manager owns the collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewManager registers the collectors on the configured registry
// (prometheus.DefaultRegisterer unless overridden).
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ratingkeeper",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)

	m.operations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "operations_total",
		Help:      "Total number of store operations by outcome",
	}, []string{"operation", "outcome"})

	m.operationDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "operation_duration_seconds",
		Help:      "Store operation latency in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	return m
}

// Observe records one finished operation.
func (m *Manager) Observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Since is a shorthand for Observe(operation, outcome, time.Since(start)).
func (m *Manager) Since(operation, outcome string, start time.Time) {
	m.Observe(operation, outcome, time.Since(start))
}

// OperationCounts gathers ratingkeeper_operations_total from g and returns
// the counts keyed "operation/outcome".
func OperationCounts(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "_operations_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var op, outcome string
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "operation":
					op = lp.GetValue()
				case "outcome":
					outcome = lp.GetValue()
				}
			}
			out[op+"/"+outcome] += m.GetCounter().GetValue()
		}
	}
	return out, nil
}
