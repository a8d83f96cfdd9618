package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PurchaseStatusCompleted = "completed"
	PurchaseStatusRefunded  = "refunded"
)

// Purchase records a completed one-time hook sale. Rows are created only by
// the settlement handler and are immutable afterwards except for status.
// The Stripe checkout session id carries the replay/idempotency guard.
type Purchase struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UUID                  string    `gorm:"type:char(36);not null;uniqueIndex" json:"uuid"`
	HookID                string    `gorm:"type:varchar(64);not null;index" json:"hook_id"`
	SellerID              string    `gorm:"type:varchar(64);not null;index" json:"seller_id"`
	BuyerID               string    `gorm:"type:varchar(64);not null;index" json:"buyer_id"`
	AmountCents           int64     `gorm:"not null" json:"amount_cents"`
	Currency              string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	LicenseType           string    `gorm:"type:varchar(20);not null;default:'non_exclusive'" json:"license_type"`
	LicenseKey            string    `gorm:"type:varchar(19);not null;uniqueIndex" json:"license_key"`
	StripeSessionID       string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_session_id"`
	StripePaymentIntentID string    `gorm:"type:varchar(191);default:''" json:"stripe_payment_intent_id"`
	Status                string    `gorm:"type:varchar(20);not null;default:'completed';index" json:"status"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the public identifier when none is set.
func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	return nil
}
