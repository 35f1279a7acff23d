package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ecomdemo/cardsync/app/repository"
	apiv1 "github.com/ecomdemo/cardsync/internal/api/v1"
	"github.com/ecomdemo/cardsync/internal/pkg/constants"
	"github.com/ecomdemo/cardsync/internal/pkg/middleware"
)

const apiRateLimit = 60

type ApiRouter struct {
	server  *apiv1.APIServer
	users   repository.UserRepository
	storage fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// API v1 routes
	v1 := app.Group(constants.APIV1Prefix, limiter.New(limiter.Config{
		Max:        apiRateLimit,
		Expiration: time.Minute,
		Storage:    h.storage,
	}))
	v1.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	apiv1.RegisterHandlers(v1, h.server,
		apiv1.MiddlewareFunc(middleware.APIKeyAuthMiddleware(h.users)),
		apiv1.MiddlewareFunc(middleware.RequireAPIAuth),
	)
}

func NewApiRouter(server *apiv1.APIServer, users repository.UserRepository, storage fiber.Storage) *ApiRouter {
	return &ApiRouter{server: server, users: users, storage: storage}
}
