package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecomdemo/cardsync/app/controllers"
	"github.com/ecomdemo/cardsync/app/repository"
	apiv1 "github.com/ecomdemo/cardsync/internal/api/v1"
	"github.com/ecomdemo/cardsync/internal/pkg/accountupdater"
	"github.com/ecomdemo/cardsync/internal/pkg/config"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics"
	"github.com/ecomdemo/cardsync/internal/pkg/metrics/counter"
	"gorm.io/gorm"
)

// Router installs one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies is everything the routers need. Tracker, Metrics and
// LimiterStorage may be nil.
type Dependencies struct {
	Config         *config.Config
	DB             *gorm.DB
	Repositories   *repository.Factory
	Reconciler     controllers.WebhookReconciler
	Verifier       *accountupdater.SignatureVerifier
	Tracker        *counter.Tracker
	Metrics        *metrics.Webhook
	LimiterStorage fiber.Storage
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	webhooks := controllers.NewWebhookController(deps.Reconciler, deps.Verifier, deps.Tracker, deps.Metrics)
	cards := controllers.NewCardController(deps.Repositories.GetCardRepository())
	admin := controllers.NewAdminWebhookController(deps.Repositories.GetWebhookDeliveryRepository(), deps.Tracker)

	// Webhooks first so the /api/v1 limiter and key auth never see them.
	setup(app,
		NewWebhookRouter(webhooks, deps.LimiterStorage),
		NewApiRouter(apiv1.NewAPIServer(cards), deps.Repositories.GetUserRepository(), deps.LimiterStorage),
		NewHttpRouter(admin, deps.Config.Admin, deps.Metrics, deps.DB),
	)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
