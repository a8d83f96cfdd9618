package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/hookbayhq/hookbay/app/models"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// Service turns verified Stripe webhook events into settlement state
// transitions: purchase + earnings split + license issuance for one-time
// payments, tier upserts for subscriptions. All money math is integer cents.
type Service struct {
	repo Repository
	cfg  Config
}

// NewService creates a settlement service from an injected repository.
func NewService(repo Repository, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// NewServiceFromDB creates a settlement service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, cfg Config) *Service {
	return NewService(NewRepository(db), cfg)
}

// ProcessEvent dispatches one verified event to the matching settlement
// transition. Unrecognized event types are acknowledged without state change.
func (s *Service) ProcessEvent(ctx context.Context, event *stripe.Event) (Outcome, error) {
	switch string(event.Type) {
	case "checkout.session.completed":
		in, err := ParseCheckoutSession(event.Data.Raw)
		if err != nil {
			return Outcome{}, err
		}
		if in.Mode != "payment" {
			// Subscription checkouts settle via customer.subscription events.
			return Outcome{Ignored: true}, nil
		}
		if _, _, err := s.SettlePurchase(ctx, in); err != nil {
			return Outcome{}, err
		}
		return Outcome{Handled: true}, nil

	case "customer.subscription.created", "customer.subscription.updated":
		in, err := ParseSubscription(event.Data.Raw)
		if err != nil {
			return Outcome{}, err
		}
		if _, err := s.SyncSubscription(ctx, in); err != nil {
			return Outcome{}, err
		}
		return Outcome{Handled: true}, nil

	case "customer.subscription.deleted":
		in, err := ParseSubscription(event.Data.Raw)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.CancelSubscription(ctx, in.UserID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Handled: true}, nil

	default:
		return Outcome{Ignored: true}, nil
	}
}

// SettlePurchase performs the one-time purchase transition: insert the
// purchase with a fresh license key, split the amount into the two earning
// rows, and delist the hook when the license is exclusive. Replays of an
// already settled session return the existing purchase with created=false.
func (s *Service) SettlePurchase(ctx context.Context, in CheckoutInput) (*models.Purchase, bool, error) {
	_ = ctx
	if in.SessionID == "" || in.HookID == "" || in.SellerID == "" || in.BuyerID == "" {
		return nil, false, errors.New("session_id, hook_id, seller and buyer are required")
	}

	licenseType := normalizeLicenseType(in.LicenseType)
	sellerCents, platformCents := SplitAmountCents(in.AmountCents, s.cfg.FeeBasisPoints)

	delistHookID := ""
	if licenseType == models.LicenseTypeExclusive {
		delistHookID = in.HookID
	}

	// Two attempts: a generated key may collide with an existing purchase,
	// in which case the insert is ignored and we retry with a fresh key.
	for attempt := 0; attempt < 2; attempt++ {
		key, err := GenerateLicenseKey()
		if err != nil {
			return nil, false, err
		}

		p := &models.Purchase{
			HookID:                in.HookID,
			SellerID:              in.SellerID,
			BuyerID:               in.BuyerID,
			AmountCents:           in.AmountCents,
			Currency:              in.Currency,
			LicenseType:           licenseType,
			LicenseKey:            key,
			StripeSessionID:       in.SessionID,
			StripePaymentIntentID: in.PaymentIntentID,
			Status:                models.PurchaseStatusCompleted,
		}
		earnings := []models.Earning{
			{
				BeneficiaryType: models.BeneficiarySeller,
				BeneficiaryID:   in.SellerID,
				AmountCents:     sellerCents,
				Currency:        in.Currency,
				Status:          models.EarningStatusAvailable,
			},
			{
				BeneficiaryType: models.BeneficiaryPlatform,
				BeneficiaryID:   s.cfg.PlatformAccountID,
				AmountCents:     platformCents,
				Currency:        in.Currency,
				Status:          models.EarningStatusAvailable,
			},
		}

		created, settled, err := s.repo.SettlePurchase(p, earnings, delistHookID)
		if errors.Is(err, ErrLicenseKeyTaken) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return settled, created, nil
	}
	return nil, false, ErrLicenseKeyTaken
}

// SyncSubscription upserts the per-user tier derived from a subscription
// created/updated event. The upsert is keyed by user id, so replays of the
// same event converge on the same row.
func (s *Service) SyncSubscription(ctx context.Context, in SubscriptionInput) (*models.SubscriptionPreference, error) {
	_ = ctx
	if strings.TrimSpace(in.UserID) == "" {
		return nil, errors.New("user_id is required")
	}

	tier, err := s.resolveTier(in.PriceRef, in.UnitAmount)
	if err != nil {
		return nil, err
	}

	pref := &models.SubscriptionPreference{
		UserID:               strings.TrimSpace(in.UserID),
		Tier:                 tier,
		Status:               normalizeSubscriptionStatus(in.Status),
		StripeCustomerID:     in.CustomerID,
		StripeSubscriptionID: in.SubscriptionID,
		CurrentPeriodEnd:     in.CurrentPeriodEnd,
	}
	if err := s.repo.UpsertSubscriptionPreference(pref); err != nil {
		return nil, err
	}
	return pref, nil
}

// CancelSubscription resets a user to the free tier. Deleted events always
// win regardless of the prior tier; a missing preference row is a no-op.
func (s *Service) CancelSubscription(ctx context.Context, userID string) error {
	_ = ctx
	if strings.TrimSpace(userID) == "" {
		return errors.New("user_id is required")
	}
	return s.repo.ResetSubscriptionToFree(strings.TrimSpace(userID))
}

// resolveTier prefers the configured price mapping and falls back to the
// legacy unit-amount match when no mapping row exists.
func (s *Service) resolveTier(priceRef string, unitAmount int64) (string, error) {
	ref := strings.TrimSpace(priceRef)
	if ref != "" {
		m, err := s.repo.FindActivePlanMapping(models.ProviderStripe, ref)
		if err == nil {
			return normalizeTier(m.Tier), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}
	return TierForUnitAmount(unitAmount), nil
}

// RecordWebhookEvent persists webhook payloads idempotently. Deliveries
// without a provider event id are keyed by a payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        models.ProviderStripe,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed records the handling result for a stored event.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// LookupLicense resolves a license key to its purchase.
func (s *Service) LookupLicense(ctx context.Context, key string) (*models.Purchase, error) {
	_ = ctx
	k := strings.ToUpper(strings.TrimSpace(key))
	if !IsLicenseKey(k) {
		return nil, errors.New("invalid license key format")
	}
	return s.repo.GetPurchaseByLicenseKey(k)
}

// SellerEarnings returns the seller's ledger totals grouped by status.
func (s *Service) SellerEarnings(ctx context.Context, sellerID string) (*EarningsSummary, error) {
	_ = ctx
	if strings.TrimSpace(sellerID) == "" {
		return nil, errors.New("seller_id is required")
	}
	return s.repo.SellerEarningsSummary(strings.TrimSpace(sellerID))
}

// MarkEarningsPaid transitions the given available earnings to paid and
// returns how many rows moved. Used by the payout process.
func (s *Service) MarkEarningsPaid(ctx context.Context, sellerID string, earningIDs []uint) (int64, error) {
	_ = ctx
	if strings.TrimSpace(sellerID) == "" {
		return 0, errors.New("seller_id is required")
	}
	return s.repo.MarkEarningsPaid(strings.TrimSpace(sellerID), earningIDs)
}
