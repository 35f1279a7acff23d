package repository

import (
	"time"

	"github.com/ecomdemo/cardsync/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
}

// CardRepository defines the storefront operations on saved cards. Every
// method is scoped to the owning user; a card of another user is reported
// as gorm.ErrRecordNotFound.
type CardRepository interface {
	ListByUserID(userID uint) ([]models.Card, error)
	GetByIDForUser(id, userID uint) (*models.Card, error)
	Create(card *models.Card) error
	Update(card *models.Card, makeDefault bool) error
	SetDefault(id, userID uint) (*models.Card, error)
	Delete(id, userID uint) error
}

// WebhookDeliveryRepository reads the delivery audit log.
type WebhookDeliveryRepository interface {
	ListRecent(outcome string, limit int) ([]models.WebhookDelivery, error)
	CountByOutcomeSince(since time.Time) (map[string]int64, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User            UserRepository
	Card            CardRepository
	WebhookDelivery WebhookDeliveryRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		Card:            NewCardRepository(db),
		WebhookDelivery: NewWebhookDeliveryRepository(db),
	}
}
