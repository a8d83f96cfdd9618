package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/hookbayhq/hookbay/app/controllers"
	"github.com/hookbayhq/hookbay/internal/pkg/database"
	"github.com/hookbayhq/hookbay/internal/pkg/env"
	"github.com/hookbayhq/hookbay/internal/pkg/settlement"
)

type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	wc := controllers.NewWebhookController(
		settlement.NewServiceFromDB(database.GetDB(), settlement.ConfigFromEnv()),
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)

	// CORS headers go out on every response including errors; the middleware
	// also answers the OPTIONS preflight.
	group := app.Group("/webhooks", cors.New())
	group.Post("/stripe", wc.HandleStripeWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
