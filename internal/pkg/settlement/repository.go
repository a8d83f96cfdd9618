package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/hookbayhq/hookbay/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrLicenseKeyTaken signals that a freshly generated license key collided
// with an existing purchase. The service retries with a new key once.
var ErrLicenseKeyTaken = errors.New("license key already taken")

// Repository provides DB operations used by the settlement service.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	SettlePurchase(p *models.Purchase, earnings []models.Earning, delistHookID string) (bool, *models.Purchase, error)
	GetPurchaseByLicenseKey(key string) (*models.Purchase, error)
	FindActivePlanMapping(provider, priceRef string) (*models.PlanMapping, error)
	UpsertSubscriptionPreference(pref *models.SubscriptionPreference) error
	ResetSubscriptionToFree(userID string) error
	SellerEarningsSummary(sellerID string) (*EarningsSummary, error)
	MarkEarningsPaid(sellerID string, earningIDs []uint) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a settlement repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	updates := map[string]interface{}{
		"processing_error": processingError,
	}
	// Failed events keep processed_at NULL so provider redelivery re-runs them.
	if processingError == "" {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// SettlePurchase inserts the purchase, its two earning rows and the optional
// exclusivity delist in one transaction. The unique index on the checkout
// session id makes replays short-circuit: the insert is ignored and the
// previously settled purchase is returned with created=false.
func (r *gormRepository) SettlePurchase(p *models.Purchase, earnings []models.Earning, delistHookID string) (bool, *models.Purchase, error) {
	var settled models.Purchase
	created := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Insert was ignored: either this session is already settled or
			// the fresh license key collided with another purchase.
			err := tx.Where("stripe_session_id = ?", p.StripeSessionID).First(&settled).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrLicenseKeyTaken
				}
				return err
			}
			return nil
		}
		created = true
		settled = *p

		for i := range earnings {
			earnings[i].PurchaseID = p.ID
		}
		if err := tx.Create(&earnings).Error; err != nil {
			return err
		}

		if delistHookID != "" {
			res := tx.Model(&models.Hook{}).Where("hook_id = ?", delistHookID).Update("is_available", false)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("hook %q not found", delistHookID)
			}
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return created, &settled, nil
}

func (r *gormRepository) GetPurchaseByLicenseKey(key string) (*models.Purchase, error) {
	var p models.Purchase
	if err := r.db.Where("license_key = ?", key).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) FindActivePlanMapping(provider, priceRef string) (*models.PlanMapping, error) {
	var m models.PlanMapping
	err := r.db.
		Where("provider = ? AND provider_price_ref = ? AND is_active = ?", provider, priceRef, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) UpsertSubscriptionPreference(pref *models.SubscriptionPreference) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"tier",
			"status",
			"stripe_customer_id",
			"stripe_subscription_id",
			"current_period_end",
			"updated_at",
		}),
	}).Create(pref).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ?", pref.UserID).First(pref).Error
}

func (r *gormRepository) ResetSubscriptionToFree(userID string) error {
	// No-op when the user has no preference row yet.
	return r.db.Model(&models.SubscriptionPreference{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"tier":                   models.TierFree,
			"status":                 models.SubscriptionStatusCanceled,
			"stripe_subscription_id": "",
			"current_period_end":     nil,
		}).Error
}

func (r *gormRepository) SellerEarningsSummary(sellerID string) (*EarningsSummary, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.Model(&models.Earning{}).
		Select("status, COALESCE(SUM(amount_cents), 0) AS total").
		Where("beneficiary_type = ? AND beneficiary_id = ?", models.BeneficiarySeller, sellerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &EarningsSummary{SellerID: sellerID}
	for _, row := range rows {
		switch row.Status {
		case models.EarningStatusPending:
			summary.PendingCents = row.Total
		case models.EarningStatusAvailable:
			summary.AvailableCents = row.Total
		case models.EarningStatusPaid:
			summary.PaidCents = row.Total
		}
	}
	return summary, nil
}

func (r *gormRepository) MarkEarningsPaid(sellerID string, earningIDs []uint) (int64, error) {
	if len(earningIDs) == 0 {
		return 0, nil
	}
	now := time.Now()
	res := r.db.Model(&models.Earning{}).
		Where("beneficiary_type = ? AND beneficiary_id = ? AND id IN ? AND status = ?",
			models.BeneficiarySeller, sellerID, earningIDs, models.EarningStatusAvailable).
		Updates(map[string]interface{}{
			"status":  models.EarningStatusPaid,
			"paid_at": &now,
		})
	return res.RowsAffected, res.Error
}
