package repository

import (
	"strings"
	"time"

	"github.com/ecomdemo/cardsync/app/models"
	"gorm.io/gorm"
)

const maxDeliveryPage = 200

type webhookDeliveryRepository struct {
	db *gorm.DB
}

// NewWebhookDeliveryRepository creates a new delivery audit repository instance
func NewWebhookDeliveryRepository(db *gorm.DB) WebhookDeliveryRepository {
	return &webhookDeliveryRepository{db: db}
}

// ListRecent returns the newest deliveries, optionally filtered by outcome.
func (r *webhookDeliveryRepository) ListRecent(outcome string, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 || limit > maxDeliveryPage {
		limit = maxDeliveryPage
	}
	query := r.db.Order("id DESC").Limit(limit)
	if o := strings.TrimSpace(outcome); o != "" {
		query = query.Where("outcome = ?", o)
	}
	var rows []models.WebhookDelivery
	err := query.Find(&rows).Error
	return rows, err
}

// CountByOutcomeSince counts deliveries per outcome created at or after since.
func (r *webhookDeliveryRepository) CountByOutcomeSince(since time.Time) (map[string]int64, error) {
	type row struct {
		Outcome string
		Total   int64
	}
	var rows []row
	err := r.db.Model(&models.WebhookDelivery{}).
		Select("outcome, COUNT(*) AS total").
		Where("created_at >= ?", since).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.Total
	}
	return counts, nil
}
