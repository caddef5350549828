package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments of the premium and reminder flows.
type Metrics struct {
	PurchaseOutcomes    *prometheus.CounterVec
	RestoreOutcomes     *prometheus.CounterVec
	EntitlementUpdates  *prometheus.CounterVec
	ContentResolutions  *prometheus.CounterVec
	NotificationsFired  *prometheus.CounterVec
	WebhookEvents       *prometheus.CounterVec
	PersistenceFailures prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registered on the default registry.
func Get() *Metrics {
	once.Do(func() {
		instance = New(prometheus.DefaultRegisterer)
	})
	return instance
}

// New builds the instruments and registers them on reg (nil skips registration).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PurchaseOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodsnap",
			Subsystem: "premium",
			Name:      "purchase_total",
			Help:      "Purchase attempts by outcome",
		}, []string{"outcome"}),
		RestoreOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodsnap",
			Subsystem: "premium",
			Name:      "restore_total",
			Help:      "Restore attempts by outcome",
		}, []string{"outcome"}),
		EntitlementUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodsnap",
			Subsystem: "premium",
			Name:      "entitlement_updates_total",
			Help:      "Entitlement state changes by source and trigger",
		}, []string{"source", "trigger"}),
		ContentResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodsnap",
			Subsystem: "reminders",
			Name:      "content_resolutions_total",
			Help:      "Smart notification content resolutions by origin",
		}, []string{"meal", "origin"}),
		NotificationsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodsnap",
			Subsystem: "reminders",
			Name:      "notifications_fired_total",
			Help:      "Dispatched local notifications by delivery result",
		}, []string{"result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "foodsnap",
			Subsystem: "premium",
			Name:      "webhook_events_total",
			Help:      "Subscription backend webhook events by type",
		}, []string{"type"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "foodsnap",
			Name:      "persistence_failures_total",
			Help:      "Failed writes to persisted storage",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.PurchaseOutcomes,
			m.RestoreOutcomes,
			m.EntitlementUpdates,
			m.ContentResolutions,
			m.NotificationsFired,
			m.WebhookEvents,
			m.PersistenceFailures,
		)
	}
	return m
}
