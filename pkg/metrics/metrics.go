// Package metrics exposes Prometheus collectors for every subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's Prometheus collectors. The eventbus figures
// are gauges because they mirror the bus's own cumulative counters, sampled
// once per timer tick.
type Metrics struct {
	EventsPublished prometheus.Gauge
	EventsProcessed prometheus.Gauge
	EventsDropped   prometheus.Gauge

	OrdersSent      prometheus.Counter
	OrdersFilled    prometheus.Counter
	OrdersRejected  prometheus.Counter
	OrdersCancelled prometheus.Counter
	TradesReceived  prometheus.Counter

	ActiveStrategies  prometheus.Gauge
	HedgeOrdersSent   prometheus.Counter
	MetricsRefreshDur prometheus.Histogram
}

// New registers the engine collectors against reg and returns them. Pass
// prometheus.NewRegistry() in tests to avoid global-registry collisions.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsPublished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionrunner", Subsystem: "eventbus", Name: "events_published_total",
			Help: "Events enqueued onto the bus.",
		}),
		EventsProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionrunner", Subsystem: "eventbus", Name: "events_processed_total",
			Help: "Events fully dispatched to handlers.",
		}),
		EventsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionrunner", Subsystem: "eventbus", Name: "events_dropped_total",
			Help: "Events dropped after the bus closed.",
		}),
		OrdersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionrunner", Subsystem: "oms", Name: "orders_sent_total",
			Help: "Orders originated by strategies.",
		}),
		OrdersFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionrunner", Subsystem: "oms", Name: "orders_filled_total",
			Help: "Orders reaching ALLTRADED.",
		}),
		OrdersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionrunner", Subsystem: "oms", Name: "orders_rejected_total",
			Help: "Orders reaching REJECTED.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionrunner", Subsystem: "oms", Name: "orders_cancelled_total",
			Help: "Orders reaching CANCELLED.",
		}),
		TradesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionrunner", Subsystem: "oms", Name: "trades_received_total",
			Help: "Fill executions received from the venue.",
		}),
		ActiveStrategies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "optionrunner", Subsystem: "strategy", Name: "active_strategies",
			Help: "Live strategy instances.",
		}),
		HedgeOrdersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "optionrunner", Subsystem: "hedge", Name: "orders_sent_total",
			Help: "Hedge orders emitted by the delta-band controller.",
		}),
		MetricsRefreshDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "optionrunner", Subsystem: "position", Name: "metrics_refresh_seconds",
			Help:    "Duration of the per-timer holding metrics refresh.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.EventsPublished, m.EventsProcessed, m.EventsDropped,
		m.OrdersSent, m.OrdersFilled, m.OrdersRejected, m.OrdersCancelled,
		m.TradesReceived, m.ActiveStrategies, m.HedgeOrdersSent, m.MetricsRefreshDur,
	)
	return m
}
