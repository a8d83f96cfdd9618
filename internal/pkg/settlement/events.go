package settlement

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Local wire shapes for the slices of Stripe objects settlement reads.
// The SDK owns envelope verification; parsing the object payloads against
// small local structs keeps the required fields stable across SDK revisions.

type checkoutSessionPayload struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentIntent json.RawMessage   `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID               string            `json:"id"`
	Customer         json.RawMessage   `json:"customer"`
	Status           string            `json:"status"`
	CurrentPeriodEnd int64             `json:"current_period_end"`
	Metadata         map[string]string `json:"metadata"`
	Items            struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount int64  `json:"unit_amount"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// ParseCheckoutSession extracts the purchase input from a checkout session
// object. Metadata must carry hook_id, user_id (seller) and buyer_id.
func ParseCheckoutSession(raw []byte) (CheckoutInput, error) {
	var p checkoutSessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return CheckoutInput{}, fmt.Errorf("malformed checkout session payload: %w", err)
	}
	if strings.TrimSpace(p.ID) == "" {
		return CheckoutInput{}, fmt.Errorf("checkout session id is missing")
	}
	if p.AmountTotal < 0 {
		return CheckoutInput{}, fmt.Errorf("checkout session amount_total is negative")
	}

	in := CheckoutInput{
		SessionID:       p.ID,
		PaymentIntentID: idFromExpandable(p.PaymentIntent),
		Mode:            strings.ToLower(strings.TrimSpace(p.Mode)),
		AmountCents:     p.AmountTotal,
		Currency:        strings.ToLower(strings.TrimSpace(p.Currency)),
		LicenseType:     p.Metadata["license_type"],
	}
	if in.Currency == "" {
		in.Currency = "usd"
	}

	var err error
	if in.HookID, err = requiredMetadata(p.Metadata, "hook_id"); err != nil {
		return CheckoutInput{}, err
	}
	if in.SellerID, err = requiredMetadata(p.Metadata, "user_id"); err != nil {
		return CheckoutInput{}, err
	}
	if in.BuyerID, err = requiredMetadata(p.Metadata, "buyer_id"); err != nil {
		return CheckoutInput{}, err
	}
	return in, nil
}

// ParseSubscription extracts the subscription input from a subscription
// object. Metadata must carry user_id; price data is optional for deleted
// events, which only reset the tier.
func ParseSubscription(raw []byte) (SubscriptionInput, error) {
	var p subscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return SubscriptionInput{}, fmt.Errorf("malformed subscription payload: %w", err)
	}

	in := SubscriptionInput{
		SubscriptionID: strings.TrimSpace(p.ID),
		CustomerID:     idFromExpandable(p.Customer),
		Status:         p.Status,
	}

	var err error
	if in.UserID, err = requiredMetadata(p.Metadata, "user_id"); err != nil {
		return SubscriptionInput{}, err
	}
	if len(p.Items.Data) > 0 {
		in.PriceRef = strings.TrimSpace(p.Items.Data[0].Price.ID)
		in.UnitAmount = p.Items.Data[0].Price.UnitAmount
	}
	if p.CurrentPeriodEnd > 0 {
		t := time.Unix(p.CurrentPeriodEnd, 0).UTC()
		in.CurrentPeriodEnd = &t
	}
	return in, nil
}

func requiredMetadata(metadata map[string]string, key string) (string, error) {
	v := strings.TrimSpace(metadata[key])
	if v == "" {
		return "", fmt.Errorf("missing required metadata field %q", key)
	}
	return v, nil
}

// idFromExpandable reads a Stripe reference that may arrive either as a bare
// id string or as an expanded object with an "id" field.
func idFromExpandable(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}
