package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ecomdemo/cardsync/app/repository"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics/counter"
)

const statsWindow = 24 * time.Hour

// AdminWebhookController exposes delivery bookkeeping to operators.
type AdminWebhookController struct {
	deliveries repository.WebhookDeliveryRepository
	tracker    *counter.Tracker
}

func NewAdminWebhookController(deliveries repository.WebhookDeliveryRepository, tracker *counter.Tracker) *AdminWebhookController {
	return &AdminWebhookController{deliveries: deliveries, tracker: tracker}
}

// HandleUnmatched lists the unmatched inbox, newest first.
func (a *AdminWebhookController) HandleUnmatched(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := a.tracker.RecentUnmatched(ctx, limit)
	if err != nil {
		fiberlog.Errorf("read unmatched inbox: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "cache_unavailable", "message": "Unmatched inbox unavailable"})
	}
	return c.JSON(fiber.Map{"count": len(events), "events": events})
}

// HandleStats combines the lifetime Redis counters with audit log counts of
// the last 24 hours.
func (a *AdminWebhookController) HandleStats(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lifetime, err := a.tracker.Outcomes(ctx)
	if err != nil {
		fiberlog.Warnf("read outcome counters: %v", err)
		lifetime = map[string]int64{}
	}
	recent, err := a.deliveries.CountByOutcomeSince(time.Now().Add(-statsWindow))
	if err != nil {
		fiberlog.Errorf("count deliveries: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load delivery stats"})
	}
	return c.JSON(fiber.Map{
		"lifetime":     lifetime,
		"last_24h":     recent,
		"generated_at": time.Now().UTC(),
	})
}

// HandleDeliveries lists audit rows, optionally filtered by ?outcome=.
func (a *AdminWebhookController) HandleDeliveries(c *fiber.Ctx) error {
	rows, err := a.deliveries.ListRecent(c.Query("outcome"), c.QueryInt("limit", 50))
	if err != nil {
		fiberlog.Errorf("list deliveries: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load deliveries"})
	}
	return c.JSON(fiber.Map{"count": len(rows), "deliveries": rows})
}
