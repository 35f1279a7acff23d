package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"gorm.io/gorm"

	"github.com/ecomdemo/cardsync/app/controllers"
	"github.com/ecomdemo/cardsync/internal/pkg/config"
	"github.com/ecomdemo/cardsync/internal/pkg/constants"
	"github.com/ecomdemo/cardsync/internal/pkg/database"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics"
	"github.com/ecomdemo/cardsync/internal/pkg/middleware"
)

// HttpRouter serves health, metrics and the operator endpoints.
type HttpRouter struct {
	admin   *controllers.AdminWebhookController
	auth    config.AdminConfig
	metrics *metrics.Webhook
	db      *gorm.DB
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, h.health)

	// fiber metrics
	app.Get(constants.MetricsRoute, middleware.AdminBasicAuth(h.auth), monitor.New())
	if h.metrics != nil {
		app.Get(constants.PrometheusMetricsRoute, middleware.AdminBasicAuth(h.auth), h.metrics.Handler())
	}

	h.registerAdminRoutes(app)
}

func NewHttpRouter(admin *controllers.AdminWebhookController, auth config.AdminConfig, m *metrics.Webhook, db *gorm.DB) *HttpRouter {
	return &HttpRouter{admin: admin, auth: auth, metrics: m, db: db}
}

func (h HttpRouter) health(c *fiber.Ctx) error {
	if h.db != nil {
		if err := database.Ping(h.db); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": err.Error()})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
