package models

import "time"

const (
	MatchMethodSubscriptionID = "subscription_id"
	MatchMethodFallback       = "fallback"
)

// WebhookDelivery is the append-only audit trail of account updater
// deliveries. Replays get their own row; nothing is deduplicated here.
type WebhookDelivery struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TransmissionID  string    `gorm:"type:varchar(191);not null;default:'';index" json:"transmission_id"`
	EventType       string    `gorm:"type:varchar(100);not null;default:'';index" json:"event_type"`
	SubscriptionID  string    `gorm:"type:varchar(100);not null;default:'';index" json:"subscription_id"`
	SignatureValid  bool      `gorm:"default:false;index" json:"signature_valid"`
	Outcome         string    `gorm:"type:varchar(32);not null;index" json:"outcome"`
	Reason          string    `gorm:"type:varchar(64);not null;default:''" json:"reason"`
	MatchMethod     string    `gorm:"type:varchar(32);not null;default:''" json:"match_method"`
	CardID          *uint     `gorm:"index;default:null" json:"card_id,omitempty"`
	ProcessingError string    `gorm:"type:text" json:"processing_error"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
