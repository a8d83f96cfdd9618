package models

import "time"

// License types a hook can be sold under.
const (
	LicenseTypeExclusive    = "exclusive"
	LicenseTypeNonExclusive = "non_exclusive"
)

// Hook is a purchasable music hook listed by a seller. The storefront owns the
// full listing; settlement only reads the identifiers and flips availability.
type Hook struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HookID      string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"hook_id"`
	SellerID    string    `gorm:"type:varchar(64);not null;index" json:"seller_id"`
	Title       string    `gorm:"type:varchar(200);default:''" json:"title"`
	PriceCents  int64     `gorm:"not null;default:0" json:"price_cents"`
	IsAvailable bool      `gorm:"not null;default:true;index" json:"is_available"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
