package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecomdemo/cardsync/internal/pkg/constants"
	"github.com/ecomdemo/cardsync/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group(constants.AdminPrefix, middleware.AdminBasicAuth(h.auth), middleware.RequireAdmin)

	// Account updater bookkeeping
	adminGroup.Get("/webhooks/unmatched", h.admin.HandleUnmatched)
	adminGroup.Get("/webhooks/stats", h.admin.HandleStats)
	adminGroup.Get("/webhooks/deliveries", h.admin.HandleDeliveries)
}
