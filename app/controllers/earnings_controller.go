package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/hookbayhq/hookbay/internal/pkg/settlement"
)

var validate = validator.New()

// EarningsController exposes the ledger read side and the payout status
// transition used by the payout process.
type EarningsController struct {
	svc *settlement.Service
}

func NewEarningsController(svc *settlement.Service) *EarningsController {
	return &EarningsController{svc: svc}
}

// HandleSellerEarnings returns a seller's ledger totals grouped by status.
func (ec *EarningsController) HandleSellerEarnings(c *fiber.Ctx) error {
	sellerID := strings.TrimSpace(c.Params("id"))
	if sellerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "seller_id_required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := ec.svc.SellerEarnings(ctx, sellerID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "earnings_lookup_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

type payoutRequest struct {
	SellerID   string `json:"seller_id" validate:"required"`
	EarningIDs []uint `json:"earning_ids" validate:"required,min=1,dive,gt=0"`
}

// HandleMarkPayouts flips a batch of available seller earnings to paid.
// Amounts never change here; only the status moves.
func (ec *EarningsController) HandleMarkPayouts(c *fiber.Ctx) error {
	var req payoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	moved, err := ec.svc.MarkEarningsPaid(ctx, req.SellerID, req.EarningIDs)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payout_update_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"paid": moved})
}
