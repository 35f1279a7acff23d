package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Webhook holds the Prometheus collectors for account updater deliveries.
type Webhook struct {
	registry *prometheus.Registry

	DeliveriesTotal    *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	CardsUpdatedTotal  prometheus.Counter
}

// NewWebhook creates the collectors on a private registry, together with the
// Go runtime and process collectors.
func NewWebhook() *Webhook {
	m := &Webhook{
		registry: prometheus.NewRegistry(),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "account_updater_deliveries_total",
				Help: "Total number of account updater deliveries by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		ProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "account_updater_processing_duration_seconds",
				Help:    "Duration of account updater delivery processing",
				Buckets: prometheus.DefBuckets,
			},
		),
		CardsUpdatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "account_updater_cards_updated_total",
				Help: "Total number of card rows changed by account updater events",
			},
		),
	}

	m.registry.MustRegister(
		m.DeliveriesTotal,
		m.ProcessingDuration,
		m.CardsUpdatedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveDelivery records one handled delivery.
func (m *Webhook) ObserveDelivery(outcome, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(outcome, reason).Inc()
	m.ProcessingDuration.Observe(elapsed.Seconds())
	if outcome == "updated" {
		m.CardsUpdatedTotal.Inc()
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Webhook) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
