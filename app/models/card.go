package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	CardStatusActive  = "active"
	CardStatusUpdated = "updated"
	CardStatusClosed  = "closed"
)

// Card is a saved payment card. Only display data is stored; the full card
// number never reaches the database.
type Card struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id" validate:"required"`
	SubscriptionID *string   `gorm:"type:varchar(100);uniqueIndex:ux_cards_subscription_id;default:null" json:"subscription_id,omitempty"`
	CardType       string    `gorm:"type:varchar(50)" json:"card_type" validate:"max=50"`
	LastFour       string    `gorm:"type:varchar(4);not null" json:"last_four" validate:"required,len=4,numeric"`
	ExpiryDate     string    `gorm:"type:varchar(7);not null" json:"expiry_date" validate:"required,len=7"`
	CardholderName string    `gorm:"type:varchar(100);not null" json:"cardholder_name" validate:"required,min=3,max=100"`
	IsDefault      bool      `gorm:"not null;default:false" json:"is_default"`
	Status         string    `gorm:"type:varchar(16);not null;default:'active';index" json:"status" validate:"oneof=active updated closed"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Card) Validate() error {
	v := validator.New()

	return v.Struct(c)
}

// HasSubscription reports whether the card is enrolled in the account updater.
func (c *Card) HasSubscription() bool {
	return c.SubscriptionID != nil && *c.SubscriptionID != ""
}

// IsClosed reports whether the issuer closed the account behind the card.
func (c *Card) IsClosed() bool {
	return c.Status == CardStatusClosed
}
