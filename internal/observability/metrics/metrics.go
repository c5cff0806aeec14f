package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for booking conversations.
type DialogueMetrics struct {
	turnsTotal       *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
	queueTotal       *prometheus.CounterVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Total processed turns by starting stage and classified intent",
		}, []string{"stage", "intent"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "dialogue",
			Name:      "transitions_total",
			Help:      "Total stage transitions",
		}, []string{"from", "to"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "dialogue",
			Name:      "bookings_total",
			Help:      "Booking and cancellation outcomes",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of turn processing, including the session lock wait",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		queueTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "turns",
			Name:      "queue_messages_total",
			Help:      "Queued turn messages by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.transitionsTotal, m.bookingsTotal, m.turnLatency, m.queueTotal)
	return m
}

func (m *DialogueMetrics) ObserveTurn(stage, intent string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage, intent).Inc()
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

// ObserveTransition counts stage changes. Turns that stay in place are not counted.
func (m *DialogueMetrics) ObserveTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

// ObserveBooking counts outcomes such as "booked", "conflict", "cancelled".
func (m *DialogueMetrics) ObserveBooking(outcome string) {
	if m == nil || outcome == "" {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *DialogueMetrics) ObserveQueue(status string) {
	if m == nil {
		return
	}
	m.queueTotal.WithLabelValues(status).Inc()
}
