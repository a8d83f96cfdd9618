package settlement

import (
	"strconv"

	"github.com/hookbayhq/hookbay/internal/pkg/env"
)

// Platform fee default: 10% expressed in basis points.
const defaultFeeBasisPoints = 1000

// Config carries the settlement knobs that must not live as hard-coded
// literals: the platform fee rate and the ledger account the fee is
// credited to.
type Config struct {
	FeeBasisPoints    int
	PlatformAccountID string
}

// ConfigFromEnv builds the settlement configuration from process environment.
func ConfigFromEnv() Config {
	fee := defaultFeeBasisPoints
	if raw := env.GetEnv("SETTLEMENT_FEE_BPS", ""); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 && v <= 10000 {
			fee = v
		}
	}
	return Config{
		FeeBasisPoints:    fee,
		PlatformAccountID: env.GetEnv("PLATFORM_ACCOUNT_ID", "platform"),
	}
}
