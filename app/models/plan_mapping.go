package models

import "time"

// Payment provider constants used across settlement models.
const (
	ProviderStripe = "stripe"
)

// PlanMapping maps provider price references to subscription tiers so tier
// inference does not depend on raw unit amounts surviving price changes.
type PlanMapping struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Provider        string    `gorm:"type:varchar(20);not null;index:ux_plan_mappings_ref,unique,priority:1;index" json:"provider"`
	ProviderPriceRef string   `gorm:"type:varchar(191);not null;index:ux_plan_mappings_ref,unique,priority:2" json:"provider_price_ref"`
	Tier            string    `gorm:"type:varchar(20);not null;default:'free';index" json:"tier"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
