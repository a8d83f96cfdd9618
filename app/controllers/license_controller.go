package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hookbayhq/hookbay/internal/pkg/cache"
	"github.com/hookbayhq/hookbay/internal/pkg/settlement"
)

const licenseCacheTTL = time.Hour

// LicenseController serves external license verification lookups.
type LicenseController struct {
	svc *settlement.Service
}

func NewLicenseController(svc *settlement.Service) *LicenseController {
	return &LicenseController{svc: svc}
}

// HandleVerifyLicense resolves a license key to its purchase. Results are
// cached; purchases are immutable after settlement, so a stale entry can only
// lag on status, which this endpoint does not expose.
func (lc *LicenseController) HandleVerifyLicense(c *fiber.Ctx) error {
	key := strings.ToUpper(strings.TrimSpace(c.Params("key")))
	if !settlement.IsLicenseKey(key) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_license_key"})
	}

	cacheKey := "license:" + key
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).SendString(cached)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	purchase, err := lc.svc.LookupLicense(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "license_not_found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "license_lookup_failed"})
	}

	resp := fiber.Map{
		"valid":        true,
		"license_key":  purchase.LicenseKey,
		"hook_id":      purchase.HookID,
		"buyer_id":     purchase.BuyerID,
		"license_type": purchase.LicenseType,
		"purchased_at": purchase.CreatedAt,
	}
	if body, err := json.Marshal(resp); err == nil {
		_ = cache.Set(cacheKey, string(body), licenseCacheTTL)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
