package models

import "time"

const (
	BeneficiarySeller   = "seller"
	BeneficiaryPlatform = "platform"
)

const (
	EarningStatusPending   = "pending"
	EarningStatusAvailable = "available"
	EarningStatusPaid      = "paid"
)

// Earning is a ledger entry attributing a share of a purchase to a
// beneficiary. Exactly two rows exist per purchase (seller + platform) and
// the unique (purchase_id, beneficiary_type) index enforces that under replay.
// Amounts never change after insert; only status moves, driven by payouts.
type Earning struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PurchaseID      uint      `gorm:"not null;index:ux_earnings_purchase_beneficiary,unique,priority:1" json:"purchase_id"`
	BeneficiaryType string    `gorm:"type:varchar(20);not null;index:ux_earnings_purchase_beneficiary,unique,priority:2" json:"beneficiary_type"`
	BeneficiaryID   string    `gorm:"type:varchar(64);not null;index" json:"beneficiary_id"`
	AmountCents     int64     `gorm:"not null" json:"amount_cents"`
	Currency        string    `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Status          string    `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	PaidAt          *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
