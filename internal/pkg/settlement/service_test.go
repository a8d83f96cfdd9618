package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hookbayhq/hookbay/app/models"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository with the same conflict semantics as
// the GORM implementation.
type fakeRepo struct {
	nextID    uint
	events    map[string]*models.WebhookEvent
	purchases []*models.Purchase
	earnings  []models.Earning
	hooks     map[string]*models.Hook
	prefs     map[string]*models.SubscriptionPreference
	mappings  map[string]string // price ref -> tier
	calls     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events:   make(map[string]*models.WebhookEvent),
		hooks:    make(map[string]*models.Hook),
		prefs:    make(map[string]*models.SubscriptionPreference),
		mappings: make(map[string]string),
	}
}

func (r *fakeRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.calls++
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	event.ID = r.id()
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.calls++
	return nil
}

func (r *fakeRepo) SettlePurchase(p *models.Purchase, earnings []models.Earning, delistHookID string) (bool, *models.Purchase, error) {
	r.calls++
	for _, existing := range r.purchases {
		if existing.StripeSessionID == p.StripeSessionID {
			return false, existing, nil
		}
	}
	for _, existing := range r.purchases {
		if existing.LicenseKey == p.LicenseKey {
			return false, nil, ErrLicenseKeyTaken
		}
	}

	p.ID = r.id()
	r.purchases = append(r.purchases, p)
	for i := range earnings {
		earnings[i].PurchaseID = p.ID
		earnings[i].ID = r.id()
		r.earnings = append(r.earnings, earnings[i])
	}
	if delistHookID != "" {
		hook, ok := r.hooks[delistHookID]
		if !ok {
			return false, nil, fmt.Errorf("hook %q not found", delistHookID)
		}
		hook.IsAvailable = false
	}
	return true, p, nil
}

func (r *fakeRepo) GetPurchaseByLicenseKey(key string) (*models.Purchase, error) {
	r.calls++
	for _, p := range r.purchases {
		if p.LicenseKey == key {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) FindActivePlanMapping(provider, priceRef string) (*models.PlanMapping, error) {
	r.calls++
	if tier, ok := r.mappings[priceRef]; ok {
		return &models.PlanMapping{Provider: provider, ProviderPriceRef: priceRef, Tier: tier, IsActive: true}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) UpsertSubscriptionPreference(pref *models.SubscriptionPreference) error {
	r.calls++
	if existing, ok := r.prefs[pref.UserID]; ok {
		pref.ID = existing.ID
	} else {
		pref.ID = r.id()
	}
	stored := *pref
	r.prefs[pref.UserID] = &stored
	return nil
}

func (r *fakeRepo) ResetSubscriptionToFree(userID string) error {
	r.calls++
	pref, ok := r.prefs[userID]
	if !ok {
		return nil
	}
	pref.Tier = models.TierFree
	pref.Status = models.SubscriptionStatusCanceled
	pref.StripeSubscriptionID = ""
	pref.CurrentPeriodEnd = nil
	return nil
}

func (r *fakeRepo) SellerEarningsSummary(sellerID string) (*EarningsSummary, error) {
	r.calls++
	summary := &EarningsSummary{SellerID: sellerID}
	for _, e := range r.earnings {
		if e.BeneficiaryType != models.BeneficiarySeller || e.BeneficiaryID != sellerID {
			continue
		}
		switch e.Status {
		case models.EarningStatusPending:
			summary.PendingCents += e.AmountCents
		case models.EarningStatusAvailable:
			summary.AvailableCents += e.AmountCents
		case models.EarningStatusPaid:
			summary.PaidCents += e.AmountCents
		}
	}
	return summary, nil
}

func (r *fakeRepo) MarkEarningsPaid(sellerID string, earningIDs []uint) (int64, error) {
	r.calls++
	var moved int64
	for i := range r.earnings {
		e := &r.earnings[i]
		if e.BeneficiaryType != models.BeneficiarySeller || e.BeneficiaryID != sellerID {
			continue
		}
		if e.Status != models.EarningStatusAvailable {
			continue
		}
		for _, id := range earningIDs {
			if e.ID == id {
				e.Status = models.EarningStatusPaid
				moved++
			}
		}
	}
	return moved, nil
}

func testConfig() Config {
	return Config{FeeBasisPoints: 1000, PlatformAccountID: "platform"}
}

func checkoutInput() CheckoutInput {
	return CheckoutInput{
		SessionID:   "cs_test_1",
		Mode:        "payment",
		HookID:      "h1",
		SellerID:    "sellerA",
		BuyerID:     "buyerB",
		LicenseType: "exclusive",
		AmountCents: 2999,
		Currency:    "usd",
	}
}

func TestSettlePurchase_SplitsEarnings(t *testing.T) {
	repo := newFakeRepo()
	repo.hooks["h1"] = &models.Hook{HookID: "h1", SellerID: "sellerA", IsAvailable: true}
	svc := NewService(repo, testConfig())

	p, created, err := svc.SettlePurchase(context.Background(), checkoutInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected a freshly created purchase")
	}
	if p.AmountCents != 2999 || p.LicenseType != models.LicenseTypeExclusive {
		t.Fatalf("unexpected purchase: %+v", p)
	}
	if !IsLicenseKey(p.LicenseKey) {
		t.Fatalf("purchase carries malformed license key %q", p.LicenseKey)
	}

	if len(repo.earnings) != 2 {
		t.Fatalf("expected exactly two earning rows, got %d", len(repo.earnings))
	}
	var seller, platform *models.Earning
	for i := range repo.earnings {
		switch repo.earnings[i].BeneficiaryType {
		case models.BeneficiarySeller:
			seller = &repo.earnings[i]
		case models.BeneficiaryPlatform:
			platform = &repo.earnings[i]
		}
	}
	if seller == nil || platform == nil {
		t.Fatalf("missing beneficiary rows: %+v", repo.earnings)
	}
	if seller.AmountCents != 2699 || platform.AmountCents != 300 {
		t.Fatalf("unexpected split: seller=%d platform=%d", seller.AmountCents, platform.AmountCents)
	}
	if seller.AmountCents+platform.AmountCents != p.AmountCents {
		t.Fatalf("shares do not sum to purchase amount")
	}
	if seller.BeneficiaryID != "sellerA" || platform.BeneficiaryID != "platform" {
		t.Fatalf("unexpected beneficiaries: %+v %+v", seller, platform)
	}
	if seller.Status != models.EarningStatusAvailable || platform.Status != models.EarningStatusAvailable {
		t.Fatalf("expected both earnings available")
	}
	if seller.PurchaseID != p.ID || platform.PurchaseID != p.ID {
		t.Fatalf("earnings not linked to purchase %d", p.ID)
	}
}

func TestSettlePurchase_ExclusiveDelistsHook(t *testing.T) {
	repo := newFakeRepo()
	repo.hooks["h1"] = &models.Hook{HookID: "h1", IsAvailable: true}
	svc := NewService(repo, testConfig())

	if _, _, err := svc.SettlePurchase(context.Background(), checkoutInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.hooks["h1"].IsAvailable {
		t.Fatalf("exclusive purchase must delist the hook")
	}
}

func TestSettlePurchase_NonExclusiveKeepsHookListed(t *testing.T) {
	repo := newFakeRepo()
	repo.hooks["h1"] = &models.Hook{HookID: "h1", IsAvailable: true}
	svc := NewService(repo, testConfig())

	in := checkoutInput()
	in.LicenseType = "non_exclusive"
	if _, _, err := svc.SettlePurchase(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !repo.hooks["h1"].IsAvailable {
		t.Fatalf("non-exclusive purchase must not delist the hook")
	}
}

func TestSettlePurchase_ReplayIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.hooks["h1"] = &models.Hook{HookID: "h1", IsAvailable: true}
	svc := NewService(repo, testConfig())

	first, created, err := svc.SettlePurchase(context.Background(), checkoutInput())
	if err != nil || !created {
		t.Fatalf("first settlement failed: created=%v err=%v", created, err)
	}

	second, created, err := svc.SettlePurchase(context.Background(), checkoutInput())
	if err != nil {
		t.Fatalf("replay errored: %v", err)
	}
	if created {
		t.Fatalf("replay must not create a second purchase")
	}
	if second.LicenseKey != first.LicenseKey {
		t.Fatalf("replay re-issued a license key: %q vs %q", second.LicenseKey, first.LicenseKey)
	}
	if len(repo.purchases) != 1 {
		t.Fatalf("expected one purchase row, got %d", len(repo.purchases))
	}
	if len(repo.earnings) != 2 {
		t.Fatalf("expected two earning rows after replay, got %d", len(repo.earnings))
	}
}

func TestSettlePurchase_MissingHookFails(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())

	_, _, err := svc.SettlePurchase(context.Background(), checkoutInput())
	if err == nil {
		t.Fatalf("expected failure when the exclusive hook does not exist")
	}
}

func TestSyncSubscription_TierFromUnitAmount(t *testing.T) {
	tests := []struct {
		unitAmount int64
		want       string
	}{
		{unitAmount: 999, want: models.TierPro},
		{unitAmount: 2999, want: models.TierPremium},
		{unitAmount: 500, want: models.TierFree},
	}

	for _, tt := range tests {
		repo := newFakeRepo()
		svc := NewService(repo, testConfig())
		pref, err := svc.SyncSubscription(context.Background(), SubscriptionInput{
			UserID:         "u1",
			SubscriptionID: "sub_1",
			CustomerID:     "cus_1",
			UnitAmount:     tt.unitAmount,
			Status:         "active",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pref.Tier != tt.want {
			t.Fatalf("unit amount %d: tier = %q, want %q", tt.unitAmount, pref.Tier, tt.want)
		}
	}
}

func TestSyncSubscription_MappingBeatsUnitAmount(t *testing.T) {
	repo := newFakeRepo()
	repo.mappings["price_custom"] = models.TierPremium
	svc := NewService(repo, testConfig())

	pref, err := svc.SyncSubscription(context.Background(), SubscriptionInput{
		UserID:     "u1",
		PriceRef:   "price_custom",
		UnitAmount: 999, // would map to pro without the mapping row
		Status:     "active",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pref.Tier != models.TierPremium {
		t.Fatalf("mapping row must win, got tier %q", pref.Tier)
	}
}

func TestSyncSubscription_ReplayConverges(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())

	in := SubscriptionInput{UserID: "u1", SubscriptionID: "sub_1", UnitAmount: 999, Status: "active"}
	if _, err := svc.SyncSubscription(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SyncSubscription(context.Background(), in); err != nil {
		t.Fatalf("replay errored: %v", err)
	}
	if len(repo.prefs) != 1 {
		t.Fatalf("expected one preference row, got %d", len(repo.prefs))
	}
	if repo.prefs["u1"].Tier != models.TierPro {
		t.Fatalf("unexpected tier %q", repo.prefs["u1"].Tier)
	}
}

func TestCancelSubscription_ResetsToFree(t *testing.T) {
	repo := newFakeRepo()
	repo.prefs["u1"] = &models.SubscriptionPreference{
		ID:                   1,
		UserID:               "u1",
		Tier:                 models.TierPremium,
		Status:               models.SubscriptionStatusActive,
		StripeSubscriptionID: "sub_1",
	}
	svc := NewService(repo, testConfig())

	if err := svc.CancelSubscription(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pref := repo.prefs["u1"]
	if pref.Tier != models.TierFree || pref.Status != models.SubscriptionStatusCanceled {
		t.Fatalf("unexpected state after cancel: %+v", pref)
	}
	if pref.StripeSubscriptionID != "" {
		t.Fatalf("subscription id must be cleared, got %q", pref.StripeSubscriptionID)
	}
}

func TestCancelSubscription_NoRowIsNoop(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())
	if err := svc.CancelSubscription(context.Background(), "ghost"); err != nil {
		t.Fatalf("cancel without a row must not error: %v", err)
	}
}

func stripeEvent(eventType string, payload string) *stripe.Event {
	return &stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestProcessEvent_UnrecognizedTypeIsIgnored(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())

	outcome, err := svc.ProcessEvent(context.Background(), stripeEvent("invoice.paid", `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Ignored || outcome.Handled {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if repo.calls != 0 {
		t.Fatalf("ignored events must not touch persistence, saw %d calls", repo.calls)
	}
}

func TestProcessEvent_SubscriptionCheckoutIsIgnored(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())

	payload := `{"id":"cs_sub","mode":"subscription","amount_total":999,"metadata":{"hook_id":"h","user_id":"s","buyer_id":"b"}}`
	outcome, err := svc.ProcessEvent(context.Background(), stripeEvent("checkout.session.completed", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Ignored {
		t.Fatalf("subscription-mode checkout must be ignored, got %+v", outcome)
	}
}

func TestProcessEvent_CheckoutMissingMetadataFails(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())

	payload := `{"id":"cs_x","mode":"payment","amount_total":100,"metadata":{}}`
	if _, err := svc.ProcessEvent(context.Background(), stripeEvent("checkout.session.completed", payload)); err == nil {
		t.Fatalf("expected error for missing metadata")
	}
}

func TestProcessEvent_SubscriptionDeleted(t *testing.T) {
	repo := newFakeRepo()
	repo.prefs["u1"] = &models.SubscriptionPreference{ID: 1, UserID: "u1", Tier: models.TierPremium}
	svc := NewService(repo, testConfig())

	payload := `{"id":"sub_1","status":"canceled","metadata":{"user_id":"u1"}}`
	outcome, err := svc.ProcessEvent(context.Background(), stripeEvent("customer.subscription.deleted", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Handled {
		t.Fatalf("expected the event to be handled")
	}
	if repo.prefs["u1"].Tier != models.TierFree {
		t.Fatalf("expected free tier after delete, got %q", repo.prefs["u1"].Tier)
	}
}

func TestRecordWebhookEvent_Deduplicates(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())

	created, first, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		ProviderEventID: "evt_1",
		EventType:       "checkout.session.completed",
		PayloadJSON:     `{}`,
	})
	if err != nil || !created {
		t.Fatalf("first record failed: created=%v err=%v", created, err)
	}

	created, second, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		ProviderEventID: "evt_1",
		EventType:       "checkout.session.completed",
		PayloadJSON:     `{}`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatalf("duplicate delivery must not create a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate delivery must return the stored row")
	}
}

func TestRecordWebhookEvent_HashFallbackForMissingID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		EventType:   "checkout.session.completed",
		PayloadJSON: `{"a":1}`,
	})
	if err != nil || !created {
		t.Fatalf("record failed: created=%v err=%v", created, err)
	}
	if stored.ProviderEventID == "" {
		t.Fatalf("expected a derived event id")
	}
}

func TestMarkEarningsPaid(t *testing.T) {
	repo := newFakeRepo()
	repo.hooks["h1"] = &models.Hook{HookID: "h1", IsAvailable: true}
	svc := NewService(repo, testConfig())

	in := checkoutInput()
	in.LicenseType = "non_exclusive"
	if _, _, err := svc.SettlePurchase(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sellerEarningID uint
	for _, e := range repo.earnings {
		if e.BeneficiaryType == models.BeneficiarySeller {
			sellerEarningID = e.ID
		}
	}

	moved, err := svc.MarkEarningsPaid(context.Background(), "sellerA", []uint{sellerEarningID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected one earning moved, got %d", moved)
	}

	summary, err := svc.SellerEarnings(context.Background(), "sellerA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.PaidCents != 2699 || summary.AvailableCents != 0 {
		t.Fatalf("unexpected summary after payout: %+v", summary)
	}
}

func TestLookupLicense(t *testing.T) {
	repo := newFakeRepo()
	repo.hooks["h1"] = &models.Hook{HookID: "h1", IsAvailable: true}
	svc := NewService(repo, testConfig())

	p, _, err := svc.SettlePurchase(context.Background(), checkoutInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := svc.LookupLicense(context.Background(), p.LicenseKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.StripeSessionID != p.StripeSessionID {
		t.Fatalf("lookup returned the wrong purchase")
	}

	if _, err := svc.LookupLicense(context.Background(), "not-a-key"); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := svc.LookupLicense(context.Background(), "AAAA-BBBB-CCCC-DDDD"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", err)
	}
}
