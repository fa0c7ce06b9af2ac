// Package pricing computes mission rewards from demand. Pure functions only;
// the ledger recomputes inline on every demand change so displayed prices are
// always consistent with the requestedBy set.
package pricing

import "math"

const (
	// DemandStep is the discount applied per request beyond the first,
	// as a fraction of the base reward.
	DemandStep = 0.1

	// FloorRatio bounds the discount: the reward never drops below this
	// fraction of the base reward.
	FloorRatio = 0.5
)

// CurrentReward returns the reward for a mission given its base reward and
// request count. Zero requests leave the base unchanged; each additional
// request beyond the first lowers the price by 10% of base, down to a hard
// floor of 50% of base. Both candidates are truncated (not rounded) before
// taking the max, matching the prices users already see.
func CurrentReward(base, requestCount int) int {
	if requestCount == 0 {
		return base
	}

	discounted := float64(base) * (1 - float64(requestCount-1)*DemandStep)
	minimum := float64(base) * FloorRatio

	floored := int(math.Floor(discounted))
	if floor := int(math.Floor(minimum)); floor > floored {
		return floor
	}
	return floored
}
