package models

import "time"

// Subscription tiers offered by the marketplace.
const (
	TierFree    = "free"
	TierPro     = "pro"
	TierPremium = "premium"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// SubscriptionPreference holds the per-user subscription tier derived from
// Stripe subscription events. One row per user; created/updated events upsert
// it, deleted events reset it to the free tier.
type SubscriptionPreference struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"user_id"`
	Tier                 string     `gorm:"type:varchar(20);not null;default:'free';index" json:"tier"`
	Status               string     `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	StripeCustomerID     string     `gorm:"type:varchar(191);default:''" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);default:''" json:"stripe_subscription_id"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
