package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for appointment transitions, encounters and the notification feed.
type Metrics struct {
	transitionsTotal      *prometheus.CounterVec
	encounterStartsTotal  *prometheus.CounterVec
	notificationMutations *prometheus.CounterVec
	feedUnread            prometheus.Histogram
	httpDuration          *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment status transition attempts by target status and outcome",
		}, []string{"to", "outcome"}),
		encounterStartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "encounter",
			Name:      "starts_total",
			Help:      "Encounter start attempts by outcome",
		}, []string{"outcome"}),
		notificationMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notification",
			Name:      "mutations_total",
			Help:      "Notification read/archive mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		feedUnread: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "notification",
			Name:      "feed_unread",
			Help:      "Unread badge count per rendered feed",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.encounterStartsTotal, m.notificationMutations, m.feedUnread, m.httpDuration)
	return m
}

func (m *Metrics) ObserveTransition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(to, outcome).Inc()
}

func (m *Metrics) ObserveEncounterStart(outcome string) {
	if m == nil {
		return
	}
	m.encounterStartsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveNotificationMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.notificationMutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveFeedUnread(n int) {
	if m == nil {
		return
	}
	m.feedUnread.Observe(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}
