package identity

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector records identity telemetry. The notification service and
// the activity stream feed it; callers expose the registry however they serve
// metrics.
type MetricsCollector struct {
	loginSuccess       prometheus.Counter
	loginFailure       prometheus.Counter
	reviews            *prometheus.CounterVec
	provisioned        prometheus.Counter
	resetDeliveryFails prometheus.Counter
	gateDenials        *prometheus.CounterVec
	notificationCounts *prometheus.GaugeVec
}

// NewMetricsCollector builds the collector and registers every metric on reg.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	c := &MetricsCollector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_login_success_total",
			Help: "Successful sign-ins.",
		}),
		loginFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_login_failure_total",
			Help: "Failed sign-in attempts.",
		}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_application_reviews_total",
			Help: "Application reviews by decision.",
		}, []string{"decision"}),
		provisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_accounts_provisioned_total",
			Help: "Accounts created by promotion or direct provisioning.",
		}),
		resetDeliveryFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identity_reset_delivery_failures_total",
			Help: "Credential reset deliveries that failed.",
		}),
		gateDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_gate_denials_total",
			Help: "Gate denials by reason.",
		}, []string{"reason"}),
		notificationCounts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "identity_notification_count",
			Help: "Current notification count per category.",
		}, []string{"category"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFailure,
		c.reviews,
		c.provisioned,
		c.resetDeliveryFails,
		c.gateDenials,
		c.notificationCounts,
	)

	return c
}

// RecordGateDenial counts a denied gate decision. Initializing and allowed
// decisions are ignored.
func (c *MetricsCollector) RecordGateDenial(decision Decision) {
	if c == nil || !decision.Denied() {
		return
	}
	c.gateDenials.WithLabelValues(string(decision.Reason)).Inc()
}

// SetNotificationCount mirrors the notification service's count for one category.
func (c *MetricsCollector) SetNotificationCount(category string, count int) {
	if c == nil {
		return
	}
	c.notificationCounts.WithLabelValues(category).Set(float64(count))
}

// Sink returns an ActivitySink that feeds the collector from the activity
// stream, so wiring it into the session manager and review handler is enough
// to populate the counters.
func (c *MetricsCollector) Sink() ActivitySink {
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		if c == nil {
			return nil
		}

		switch event.EventType {
		case ActivityEventLoginSuccess:
			c.loginSuccess.Inc()
		case ActivityEventLoginFailure:
			c.loginFailure.Inc()
		case ActivityEventApplicationApproved:
			c.reviews.WithLabelValues(string(ApplicationStatusApproved)).Inc()
		case ActivityEventApplicationRejected:
			c.reviews.WithLabelValues(string(ApplicationStatusRejected)).Inc()
		case ActivityEventAccountProvisioned:
			c.provisioned.Inc()
		case ActivityEventResetDeliveryFailed:
			c.resetDeliveryFails.Inc()
		}

		return nil
	})
}

// MultiActivitySink fans one event out to every sink, returning the first
// error after all sinks ran.
func MultiActivitySink(sinks ...ActivitySink) ActivitySink {
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		var first error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
