package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the monitoring service.
type Metrics struct {
	ReadingsGenerated  *prometheus.CounterVec // labels: region
	UpdatesPublished   prometheus.Counter
	SubscribersActive  prometheus.Gauge
	SubscribersDropped prometheus.Counter

	Notifications *prometheus.CounterVec // labels: channel={email,sms}, outcome={sent,error,dry_run}
	MonitorTicks  prometheus.Counter
}

// NewMetrics creates and registers all collectors with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting registers collectors against a throwaway
// registry so repeated construction in tests does not panic.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReadingsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gw_monitor",
			Name:      "readings_generated_total",
			Help:      "Synthetic readings appended to the series store, by region.",
		}, []string{"region"}),
		UpdatesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_monitor",
			Name:      "updates_published_total",
			Help:      "Reading updates fanned out to subscribers.",
		}),
		SubscribersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gw_monitor",
			Name:      "subscribers_active",
			Help:      "Currently connected push subscribers.",
		}),
		SubscribersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_monitor",
			Name:      "subscribers_dropped_total",
			Help:      "Subscribers removed because delivery failed or stalled.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gw_monitor",
			Name:      "notifications_total",
			Help:      "Threshold notifications by channel and outcome.",
		}, []string{"channel", "outcome"}),
		MonitorTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gw_monitor",
			Name:      "monitor_ticks_total",
			Help:      "Threshold evaluation passes completed.",
		}),
	}

	reg.MustRegister(
		m.ReadingsGenerated,
		m.UpdatesPublished,
		m.SubscribersActive,
		m.SubscribersDropped,
		m.Notifications,
		m.MonitorTicks,
	)
	return m
}
