package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ecomdemo/cardsync/app/models"
	"github.com/ecomdemo/cardsync/app/repository"
	"github.com/ecomdemo/cardsync/internal/pkg/accountupdater"
	"github.com/ecomdemo/cardsync/internal/pkg/usercontext"
	"github.com/ecomdemo/cardsync/internal/pkg/utils"
)

// CreateCardRequest is the storefront payload for saving a card. The card
// number and CVV are validated and then discarded.
type CreateCardRequest struct {
	CardNumber     string `json:"card_number" validate:"required"`
	ExpiryDate     string `json:"expiry_date" validate:"required"`
	CVV            string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	CardholderName string `json:"cardholder_name" validate:"required,min=3,max=100"`
	IsDefault      bool   `json:"is_default"`
}

// UpdateCardRequest carries the editable fields; nil means unchanged.
type UpdateCardRequest struct {
	ExpiryDate     *string `json:"expiry_date"`
	CardholderName *string `json:"cardholder_name" validate:"omitempty,min=3,max=100"`
	IsDefault      *bool   `json:"is_default"`
}

// CardController serves the saved-card API for the authenticated user.
type CardController struct {
	cards    repository.CardRepository
	validate *validator.Validate
}

func NewCardController(cards repository.CardRepository) *CardController {
	return &CardController{cards: cards, validate: validator.New()}
}

// HandleListCards returns all cards of the user, default first.
func (cc *CardController) HandleListCards(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	cards, err := cc.cards.ListByUserID(userID)
	if err != nil {
		fiberlog.Errorf("list cards for user %d: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load cards"})
	}
	if cards == nil {
		cards = []models.Card{}
	}
	return c.Status(fiber.StatusOK).JSON(cards)
}

// HandleGetCard returns one card of the user.
func (cc *CardController) HandleGetCard(c *fiber.Ctx) error {
	id, ok := cardIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid card id"})
	}
	card, err := cc.cards.GetByIDForUser(id, usercontext.GetUserID(c))
	if err != nil {
		return cardLookupError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(card)
}

// HandleCreateCard validates the card details and stores brand, last four
// and canonical expiry.
func (cc *CardController) HandleCreateCard(c *fiber.Ctx) error {
	var req CreateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}

	errs := map[string]string{}
	if err := cc.validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs[jsonFieldName(fe.Field())] = "invalid " + jsonFieldName(fe.Field())
			}
		}
	}
	number, err := utils.ParseCardNumber(req.CardNumber)
	if err != nil {
		errs["card_number"] = err.Error()
	}
	expiry, expErr := canonicalCardExpiry(req.ExpiryDate)
	if expErr != nil {
		errs["expiry_date"] = expErr.Error()
	}
	if len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "errors": errs})
	}

	card := &models.Card{
		UserID:         usercontext.GetUserID(c),
		CardType:       number.Brand,
		LastFour:       number.LastFour,
		ExpiryDate:     expiry,
		CardholderName: strings.TrimSpace(req.CardholderName),
		IsDefault:      req.IsDefault,
		Status:         models.CardStatusActive,
	}
	if err := card.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	if err := cc.cards.Create(card); err != nil {
		fiberlog.Errorf("create card for user %d: %v", card.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to save card"})
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

// HandleUpdateCard changes expiry, cardholder name or the default flag.
func (cc *CardController) HandleUpdateCard(c *fiber.Ctx) error {
	id, ok := cardIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid card id"})
	}
	var req UpdateCardRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}
	if err := cc.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "errors": fiber.Map{"cardholder_name": "invalid cardholder_name"}})
	}

	card, err := cc.cards.GetByIDForUser(id, usercontext.GetUserID(c))
	if err != nil {
		return cardLookupError(c, err)
	}

	changed := false
	if req.ExpiryDate != nil {
		expiry, err := canonicalCardExpiry(*req.ExpiryDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "errors": fiber.Map{"expiry_date": err.Error()}})
		}
		card.ExpiryDate = expiry
		changed = true
	}
	if req.CardholderName != nil {
		card.CardholderName = strings.TrimSpace(*req.CardholderName)
		changed = true
	}
	makeDefault := req.IsDefault != nil && *req.IsDefault && !card.IsDefault
	if !changed && !makeDefault {
		return c.Status(fiber.StatusOK).JSON(card)
	}

	if err := cc.cards.Update(card, makeDefault); err != nil {
		return cardLookupError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(card)
}

// HandleSetDefaultCard makes the card the user's default.
func (cc *CardController) HandleSetDefaultCard(c *fiber.Ctx) error {
	id, ok := cardIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid card id"})
	}
	card, err := cc.cards.SetDefault(id, usercontext.GetUserID(c))
	if err != nil {
		return cardLookupError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(card)
}

// HandleDeleteCard removes the card.
func (cc *CardController) HandleDeleteCard(c *fiber.Ctx) error {
	id, ok := cardIDParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid card id"})
	}
	if err := cc.cards.Delete(id, usercontext.GetUserID(c)); err != nil {
		return cardLookupError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Card deleted successfully"})
}

func cardIDParam(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func cardLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Card not found"})
	}
	fiberlog.Errorf("card operation failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Card operation failed"})
}

// canonicalCardExpiry accepts MM/YY or MM/YYYY and returns MM/YYYY.
func canonicalCardExpiry(raw string) (string, error) {
	if err := utils.ValidateCardExpiry(raw); err != nil {
		return "", err
	}
	expiry, err := accountupdater.NormalizeExpiryString(raw)
	if err != nil {
		return "", utils.ErrInvalidExpiry
	}
	return expiry, nil
}

func jsonFieldName(field string) string {
	switch field {
	case "CardNumber":
		return "card_number"
	case "ExpiryDate":
		return "expiry_date"
	case "CVV":
		return "cvv"
	case "CardholderName":
		return "cardholder_name"
	default:
		return strings.ToLower(field)
	}
}
