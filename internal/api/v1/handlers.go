package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ecomdemo/cardsync/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct {
	cards *controllers.CardController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cards *controllers.CardController) *APIServer {
	return &APIServer{cards: cards}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// ListUserCards returns the cards of the API key owner.
func (s *APIServer) ListUserCards(c *fiber.Ctx) error {
	return s.cards.HandleListCards(c)
}

// CreateUserCard saves a new card for the API key owner.
func (s *APIServer) CreateUserCard(c *fiber.Ctx) error {
	return s.cards.HandleCreateCard(c)
}

// The controllers read the id from the route params; the wrapper already
// validated it.

func (s *APIServer) GetUserCard(c *fiber.Ctx, id int) error {
	return s.cards.HandleGetCard(c)
}

func (s *APIServer) UpdateUserCard(c *fiber.Ctx, id int) error {
	return s.cards.HandleUpdateCard(c)
}

func (s *APIServer) DeleteUserCard(c *fiber.Ctx, id int) error {
	return s.cards.HandleDeleteCard(c)
}

func (s *APIServer) SetDefaultUserCard(c *fiber.Ctx, id int) error {
	return s.cards.HandleSetDefaultCard(c)
}
