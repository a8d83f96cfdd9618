package settlement

// SplitAmountCents splits a gross amount into seller and platform shares.
// The platform fee is amount*feeBasisPoints/10000 rounded half to even; the
// seller keeps the remainder so both shares always sum to the amount exactly.
func SplitAmountCents(amountCents int64, feeBasisPoints int) (sellerCents, platformCents int64) {
	platformCents = roundHalfEven(amountCents*int64(feeBasisPoints), 10000)
	sellerCents = amountCents - platformCents
	return sellerCents, platformCents
}

// roundHalfEven divides numerator by denominator rounding half to even.
// Both arguments must be non-negative; amounts arrive as Stripe minor units.
func roundHalfEven(numerator, denominator int64) int64 {
	q := numerator / denominator
	r := numerator % denominator
	switch {
	case 2*r > denominator:
		q++
	case 2*r == denominator && q%2 != 0:
		q++
	}
	return q
}
