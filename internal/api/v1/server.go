package apiv1

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface represents all server handlers of public/docs/v1/openapi.yml.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /user/cards)
	ListUserCards(c *fiber.Ctx) error
	// (POST /user/cards)
	CreateUserCard(c *fiber.Ctx) error
	// (GET /user/cards/{id})
	GetUserCard(c *fiber.Ctx, id int) error
	// (PUT /user/cards/{id})
	UpdateUserCard(c *fiber.Ctx, id int) error
	// (DELETE /user/cards/{id})
	DeleteUserCard(c *fiber.Ctx, id int) error
	// (PUT /user/cards/{id}/default)
	SetDefaultUserCard(c *fiber.Ctx, id int) error
}

// ServerInterfaceWrapper converts fiber contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// MiddlewareFunc runs before the handlers of a protected operation.
type MiddlewareFunc fiber.Handler

func (siw *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return siw.Handler.GetPing(c)
}

func (siw *ServerInterfaceWrapper) ListUserCards(c *fiber.Ctx) error {
	return siw.Handler.ListUserCards(c)
}

func (siw *ServerInterfaceWrapper) CreateUserCard(c *fiber.Ctx) error {
	return siw.Handler.CreateUserCard(c)
}

func (siw *ServerInterfaceWrapper) GetUserCard(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return siw.Handler.GetUserCard(c, id)
}

func (siw *ServerInterfaceWrapper) UpdateUserCard(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return siw.Handler.UpdateUserCard(c, id)
}

func (siw *ServerInterfaceWrapper) DeleteUserCard(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return siw.Handler.DeleteUserCard(c, id)
}

func (siw *ServerInterfaceWrapper) SetDefaultUserCard(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	return siw.Handler.SetDefaultUserCard(c, id)
}

func pathID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid format for parameter id")
	}
	return id, nil
}

// RegisterHandlers mounts the operations on router. auth guards every
// operation below /user.
func RegisterHandlers(router fiber.Router, si ServerInterface, auth ...MiddlewareFunc) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.Get("/ping", wrapper.GetPing)

	user := router.Group("/user")
	for _, m := range auth {
		user.Use(fiber.Handler(m))
	}
	user.Get("/cards", wrapper.ListUserCards)
	user.Post("/cards", wrapper.CreateUserCard)
	user.Get("/cards/:id", wrapper.GetUserCard)
	user.Put("/cards/:id", wrapper.UpdateUserCard)
	user.Delete("/cards/:id", wrapper.DeleteUserCard)
	user.Put("/cards/:id/default", wrapper.SetDefaultUserCard)
}
