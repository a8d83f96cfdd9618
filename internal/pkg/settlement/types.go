package settlement

import "time"

// CheckoutInput is the normalized one-time purchase extracted from a
// checkout.session.completed event.
type CheckoutInput struct {
	SessionID       string
	PaymentIntentID string
	Mode            string
	HookID          string
	SellerID        string
	BuyerID         string
	LicenseType     string
	AmountCents     int64
	Currency        string
}

// SubscriptionInput is the normalized subscription state extracted from a
// customer.subscription.* event.
type SubscriptionInput struct {
	UserID           string
	CustomerID       string
	SubscriptionID   string
	PriceRef         string
	UnitAmount       int64
	Status           string
	CurrentPeriodEnd *time.Time
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// EarningsSummary aggregates a seller's ledger by status.
type EarningsSummary struct {
	SellerID       string `json:"seller_id"`
	PendingCents   int64  `json:"pending_cents"`
	AvailableCents int64  `json:"available_cents"`
	PaidCents      int64  `json:"paid_cents"`
}

// Outcome tells the transport layer how a dispatched event was handled.
type Outcome struct {
	Handled bool
	Ignored bool
}
