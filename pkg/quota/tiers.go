package quota

import "github.com/mockstack/mockstack/pkg/mockapi"

// Byte size units.
const (
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
)

var rateByTier = map[mockapi.Tier]int{
	mockapi.TierFree:     5,
	mockapi.TierPlus:     20,
	mockapi.TierPro:      100,
	mockapi.TierUltraPro: 500,
}

var dailyByTier = map[mockapi.Tier]int{
	mockapi.TierFree:     300,
	mockapi.TierPlus:     3000,
	mockapi.TierPro:      20000,
	mockapi.TierUltraPro: 200000,
}

var storageByTier = map[mockapi.Tier]int64{
	mockapi.TierFree:     10 * MiB,
	mockapi.TierPlus:     200 * MiB,
	mockapi.TierPro:      1 * GiB,
	mockapi.TierUltraPro: 5 * GiB,
}

// MaxRequestsPerSecond returns the per-second request cap for a tier.
// Unknown tiers fall back to the free tier caps.
func MaxRequestsPerSecond(t mockapi.Tier) int {
	if v, ok := rateByTier[t]; ok {
		return v
	}
	return rateByTier[mockapi.TierFree]
}

// DailyRequestLimit returns the rolling-24h request cap for a tier.
func DailyRequestLimit(t mockapi.Tier) int {
	if v, ok := dailyByTier[t]; ok {
		return v
	}
	return dailyByTier[mockapi.TierFree]
}

// StorageLimitBytes returns the cumulative storage cap for a tier.
func StorageLimitBytes(t mockapi.Tier) int64 {
	if v, ok := storageByTier[t]; ok {
		return v
	}
	return storageByTier[mockapi.TierFree]
}
