// Package metrics exposes Prometheus metrics for the practice engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every metric of the service. A nil *Manager is valid and
// records nothing.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	itemsSelected  *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	levelEstimates prometheus.Histogram
	remindersSent  prometheus.Counter
	itemsImported  prometheus.Counter
}

// Option configures a Manager
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers the metrics on reg instead of the default registerer
func WithRegistry(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// NewManager creates and registers all metrics
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "korbot",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.itemsSelected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "items_selected_total",
		Help:      "Items handed out for practice, by selection tier",
	}, []string{"tier"})
	m.outcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "outcomes_recorded_total",
		Help:      "Practice outcomes recorded, by encounter kind",
	}, []string{"kind"})
	m.levelEstimates = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "level_estimate",
		Help:      "Distribution of estimated TOPIK levels",
		Buckets:   prometheus.LinearBuckets(1, 0.5, 11),
	})
	m.remindersSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "reminders_sent_total",
		Help:      "Due-item reminders delivered to students",
	})
	m.itemsImported = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "items_imported_total",
		Help:      "Items added to the shared catalogue",
	})
	return m
}

// ItemSelected counts one item picked by tier
func (m *Manager) ItemSelected(tier string) {
	if m == nil {
		return
	}
	m.itemsSelected.WithLabelValues(tier).Inc()
}

// OutcomeRecorded counts one recorded outcome of the given kind
func (m *Manager) OutcomeRecorded(kind string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind).Inc()
}

// LevelEstimated observes a level estimate
func (m *Manager) LevelEstimated(level float64) {
	if m == nil {
		return
	}
	m.levelEstimates.Observe(level)
}

// ReminderSent counts a delivered reminder
func (m *Manager) ReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}

// ItemsImported adds n imported items
func (m *Manager) ItemsImported(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsImported.Add(float64(n))
}
