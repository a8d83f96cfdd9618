package settlement

import (
	"strings"

	"github.com/hookbayhq/hookbay/app/models"
)

// Unit amounts of the legacy storefront prices, kept as a fallback when a
// subscription event references a price with no mapping row.
const (
	unitAmountPro     = 999
	unitAmountPremium = 2999
)

// TierForUnitAmount maps a raw Stripe unit amount (minor units) to a tier.
func TierForUnitAmount(unitAmount int64) string {
	switch unitAmount {
	case unitAmountPro:
		return models.TierPro
	case unitAmountPremium:
		return models.TierPremium
	default:
		return models.TierFree
	}
}

func normalizeTier(tier string) string {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case models.TierPro:
		return models.TierPro
	case models.TierPremium:
		return models.TierPremium
	default:
		return models.TierFree
	}
}

func normalizeLicenseType(licenseType string) string {
	if strings.ToLower(strings.TrimSpace(licenseType)) == models.LicenseTypeExclusive {
		return models.LicenseTypeExclusive
	}
	return models.LicenseTypeNonExclusive
}

func normalizeSubscriptionStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return models.SubscriptionStatusActive
	}
	return s
}
