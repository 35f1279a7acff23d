package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ecomdemo/cardsync/app/controllers"
	"github.com/ecomdemo/cardsync/internal/pkg/constants"
)

const webhookRateLimit = 120

type WebhookRouter struct {
	webhooks *controllers.WebhookController
	storage  fiber.Storage
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	limit := limiter.New(limiter.Config{
		Max:        webhookRateLimit,
		Expiration: time.Minute,
		Storage:    h.storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"status": "rejected", "detail": "rate_limited"})
		},
	})

	// both paths are served by the same handler
	app.Post(constants.WebhookCardUpdatedRoute, limit, h.webhooks.HandleAccountUpdaterWebhook)
	app.Post(constants.WebhookAccountUpdaterRoute, limit, h.webhooks.HandleAccountUpdaterWebhook)
}

func NewWebhookRouter(webhooks *controllers.WebhookController, storage fiber.Storage) *WebhookRouter {
	return &WebhookRouter{webhooks: webhooks, storage: storage}
}
