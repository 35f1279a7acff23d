package repository

import (
	"errors"

	"github.com/ecomdemo/cardsync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cardRepository implements the CardRepository interface
type cardRepository struct {
	db *gorm.DB
}

// NewCardRepository creates a new card repository instance
func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

// ListByUserID returns the user's cards, default card first.
func (r *cardRepository) ListByUserID(userID uint) ([]models.Card, error) {
	var cards []models.Card
	err := r.db.Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("id ASC").
		Find(&cards).Error
	return cards, err
}

// GetByIDForUser retrieves one card owned by userID
func (r *cardRepository) GetByIDForUser(id, userID uint) (*models.Card, error) {
	var card models.Card
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Create inserts card. The user's first card always becomes the default,
// and a new default card clears the flag on the others.
func (r *cardRepository) Create(card *models.Card) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Card{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", card.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			card.IsDefault = true
		}
		if card.IsDefault && count > 0 {
			if err := clearDefault(tx, card.UserID); err != nil {
				return err
			}
		}
		return tx.Create(card).Error
	})
}

// Update writes the editable display fields of card. makeDefault moves the
// default flag to this card in the same transaction.
func (r *cardRepository) Update(card *models.Card, makeDefault bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockCard(tx, card.ID, card.UserID); err != nil {
			return err
		}
		if makeDefault {
			if err := clearDefault(tx, card.UserID); err != nil {
				return err
			}
			card.IsDefault = true
		}
		return tx.Model(card).
			Select("cardholder_name", "expiry_date", "is_default", "updated_at").
			Updates(card).Error
	})
}

// SetDefault makes the card the user's only default card.
func (r *cardRepository) SetDefault(id, userID uint) (*models.Card, error) {
	var card *models.Card
	err := r.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockCard(tx, id, userID)
		if err != nil {
			return err
		}
		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(locked).Update("is_default", true).Error; err != nil {
			return err
		}
		locked.IsDefault = true
		card = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Delete removes the card. When it was the default, the user's oldest open
// card inherits the flag.
func (r *cardRepository) Delete(id, userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		card, err := lockCard(tx, id, userID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Card{}, card.ID).Error; err != nil {
			return err
		}
		if !card.IsDefault {
			return nil
		}

		var next models.Card
		err = tx.Where("user_id = ?", userID).
			Order("CASE WHEN status = 'closed' THEN 1 ELSE 0 END").
			Order("id ASC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_default", true).Error
	})
}

func lockCard(tx *gorm.DB, id, userID uint) (*models.Card, error) {
	var card models.Card
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func clearDefault(tx *gorm.DB, userID uint) error {
	return tx.Model(&models.Card{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}
