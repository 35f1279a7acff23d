// Package testutil provides an in-memory card store and fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecomdemo/cardsync/app/models"
	"github.com/ecomdemo/cardsync/internal/pkg/database"
)

var dbCounter atomic.Int64

// NewDB opens a private in-memory SQLite database with the service schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	// a named shared-cache DSN keeps every pooled connection on the same database
	dsn := fmt.Sprintf("file:cardsync_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts an active user.
func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email, Status: models.STATUS_ACTIVE}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateUserWithAPIKey inserts an active user and returns the raw API key.
func CreateUserWithAPIKey(t *testing.T, db *gorm.DB, email string) (*models.User, string) {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email, Status: models.STATUS_ACTIVE}
	raw, err := user.RotateAPIKey()
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)
	return user, raw
}

// CardOption customizes a fixture card.
type CardOption func(*models.Card)

func WithSubscription(id string) CardOption {
	return func(c *models.Card) { c.SubscriptionID = StrPtr(id) }
}

func WithLastFour(lastFour string) CardOption {
	return func(c *models.Card) { c.LastFour = lastFour }
}

func WithExpiry(expiry string) CardOption {
	return func(c *models.Card) { c.ExpiryDate = expiry }
}

func WithStatus(status string) CardOption {
	return func(c *models.Card) { c.Status = status }
}

func AsDefault() CardOption {
	return func(c *models.Card) { c.IsDefault = true }
}

// CreateCard inserts a card for userID. Defaults describe an active Visa
// ending in 4242 that expires 01/2027.
func CreateCard(t *testing.T, db *gorm.DB, userID uint, opts ...CardOption) *models.Card {
	t.Helper()
	card := &models.Card{
		UserID:         userID,
		CardType:       "Visa",
		LastFour:       "4242",
		ExpiryDate:     "01/2027",
		CardholderName: "Jane Doe",
		Status:         models.CardStatusActive,
	}
	for _, opt := range opts {
		opt(card)
	}
	require.NoError(t, db.Create(card).Error)
	return card
}

// ReloadCard reads the current row for id.
func ReloadCard(t *testing.T, db *gorm.DB, id uint) models.Card {
	t.Helper()
	var card models.Card
	require.NoError(t, db.First(&card, id).Error)
	return card
}

// AllCards returns every card ordered by id.
func AllCards(t *testing.T, db *gorm.DB) []models.Card {
	t.Helper()
	var cards []models.Card
	require.NoError(t, db.Order("id ASC").Find(&cards).Error)
	return cards
}

func StrPtr(s string) *string {
	return &s
}
