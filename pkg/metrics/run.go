// Package metrics records pipeline run metrics and pushes them to a
// Pushgateway when one is configured. Batch runs are short-lived, so push
// is the only delivery path; everything is a no-op without a gateway URL.
package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/clientpulse/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RunMetrics records metadata for one pipeline run.
type RunMetrics struct {
	stageDuration *prometheus.HistogramVec
	ordersTotal   prometheus.Counter
	ordersSkipped prometheus.Counter
	customers     prometheus.Gauge
	pusher        *push.Pusher
}

// NewRunMetrics registers the run metrics on a private registry. A nil
// receiver or an empty gateway URL disables pushing but keeps recording
// cheap and safe.
func NewRunMetrics(cfg config.MetricsConfig) *RunMetrics {
	registry := prometheus.NewRegistry()

	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "run_stage_duration_seconds",
		Help:    "Duration of pipeline stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	ordersTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "run_orders_total",
		Help: "Order records received by the aggregator.",
	})
	ordersSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "run_orders_skipped",
		Help: "Malformed order records skipped by the aggregator.",
	})
	customers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "run_customers",
		Help: "Customers present in the emitted master table.",
	})
	registry.MustRegister(stageDuration, ordersTotal, ordersSkipped, customers)

	var pusher *push.Pusher
	if url := strings.TrimSpace(cfg.PushgatewayURL); url != "" {
		pusher = push.New(url, cfg.JobName).Gatherer(registry)
	}

	return &RunMetrics{
		stageDuration: stageDuration,
		ordersTotal:   ordersTotal,
		ordersSkipped: ordersSkipped,
		customers:     customers,
		pusher:        pusher,
	}
}

// ObserveStage records the duration for the named pipeline stage.
func (m *RunMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// AddOrders counts order records received by the aggregator.
func (m *RunMetrics) AddOrders(n int) {
	if m == nil || m.ordersTotal == nil {
		return
	}
	m.ordersTotal.Add(float64(n))
}

// AddSkipped counts malformed records the aggregator skipped.
func (m *RunMetrics) AddSkipped(n int) {
	if m == nil || m.ordersSkipped == nil {
		return
	}
	m.ordersSkipped.Add(float64(n))
}

// SetCustomers records the emitted customer count.
func (m *RunMetrics) SetCustomers(n int) {
	if m == nil || m.customers == nil {
		return
	}
	m.customers.Set(float64(n))
}

// Push delivers the collected metrics to the gateway, if one is configured.
func (m *RunMetrics) Push(ctx context.Context) error {
	if m == nil || m.pusher == nil {
		return nil
	}
	return m.pusher.PushContext(ctx)
}

func normalizeLabel(stage string) string {
	if stage == "" {
		return "unknown"
	}
	return stage
}
