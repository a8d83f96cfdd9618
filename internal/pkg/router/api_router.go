package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/hookbayhq/hookbay/app/controllers"
	"github.com/hookbayhq/hookbay/internal/pkg/database"
	"github.com/hookbayhq/hookbay/internal/pkg/middleware"
	"github.com/hookbayhq/hookbay/internal/pkg/settlement"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	svc := settlement.NewServiceFromDB(database.GetDB(), settlement.ConfigFromEnv())
	lc := controllers.NewLicenseController(svc)
	ec := controllers.NewEarningsController(svc)

	// API v1 routes
	v1 := api.Group("/v1")
	v1.Get("/licenses/:key", lc.HandleVerifyLicense)
	v1.Get("/sellers/:id/earnings", middleware.ServiceKeyMiddleware(), ec.HandleSellerEarnings)
	v1.Post("/payouts", middleware.ServiceKeyMiddleware(), ec.HandleMarkPayouts)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
