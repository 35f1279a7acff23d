package accountupdater

import (
	"context"

	"github.com/ecomdemo/cardsync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the reconciler. Reads made
// through the repository handed to Transaction lock the rows they return.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Repository) error) error
	FindCardBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Card, error)
	ListCardsByUserID(ctx context.Context, userID uint) ([]models.Card, error)
	UpdateCard(ctx context.Context, cardID uint, update CardUpdate) error
	CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a reconciler repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) FindCardBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Card, error) {
	var card models.Card
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subscription_id = ?", subscriptionID).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *gormRepository) ListCardsByUserID(ctx context.Context, userID uint) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&cards).Error
	return cards, err
}

func (r *gormRepository) UpdateCard(ctx context.Context, cardID uint, update CardUpdate) error {
	updates := map[string]interface{}{
		"updated_at": update.UpdatedAt,
	}
	if update.ExpiryDate != nil {
		updates["expiry_date"] = *update.ExpiryDate
	}
	if update.Status != nil {
		updates["status"] = *update.Status
	}
	if update.SubscriptionID != nil {
		updates["subscription_id"] = *update.SubscriptionID
	}

	tx := r.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", cardID).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gormRepository) CreateDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}
