package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for the conversation flow.
type BotMetrics struct {
	turnsTotal     *prometheus.CounterVec
	bookingsTotal  prometheus.Counter
	webhookLatency prometheus.Histogram
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zapagenda",
			Subsystem: "bot",
			Name:      "turns_total",
			Help:      "Total processed inbound turns",
		}, []string{"state", "outcome"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zapagenda",
			Subsystem: "bot",
			Name:      "bookings_total",
			Help:      "Total appointments committed through the bot",
		}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "zapagenda",
			Subsystem: "bot",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsTotal, m.webhookLatency)
	return m
}

func (m *BotMetrics) ObserveTurn(state, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state, outcome).Inc()
}

func (m *BotMetrics) ObserveBooking() {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
}

func (m *BotMetrics) ObserveWebhookLatency(seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.Observe(seconds)
}
