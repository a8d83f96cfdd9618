package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/hookbayhq/hookbay/internal/pkg/metrics/counter"
	"github.com/hookbayhq/hookbay/internal/pkg/settlement"
)

// WebhookController receives Stripe webhook deliveries. Signature
// verification is the authentication mechanism for this endpoint; nothing is
// parsed or persisted before it passes.
type WebhookController struct {
	svc    *settlement.Service
	secret string
}

// NewWebhookController creates a webhook controller bound to a settlement
// service and the configured Stripe signing secret.
func NewWebhookController(svc *settlement.Service, webhookSecret string) *WebhookController {
	return &WebhookController{svc: svc, secret: webhookSecret}
}

// HandleStripeWebhook processes one event end to end: verify the signature,
// record the delivery for dedupe, dispatch the settlement transition, store
// the result. Stripe retries on non-2xx responses.
func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	sigHeader := strings.TrimSpace(c.Get("Stripe-Signature"))

	event, err := webhook.ConstructEventWithOptions(rawBody, sigHeader, wc.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		_ = counter.AddFailed()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := wc.svc.RecordWebhookEvent(ctx, settlement.WebhookEventInput{
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		_ = counter.AddFailed()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created && stored.ProcessedAt != nil {
		_ = counter.AddDuplicate()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	// A stored but unprocessed event is a redelivery after a failure; the
	// transitions are idempotent, so it simply runs again.
	outcome, procErr := wc.svc.ProcessEvent(ctx, &event)
	if markErr := wc.svc.MarkWebhookProcessed(ctx, stored.ID, procErr); markErr != nil {
		log.Printf("failed to mark webhook event %d: %v", stored.ID, markErr)
	}
	if procErr != nil {
		_ = counter.AddFailed()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": procErr.Error()})
	}
	if outcome.Ignored {
		_ = counter.AddIgnored()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	_ = counter.AddProcessed()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}
