package tiers

// LoyaltyTier is one range of the aggregate loyalty-pass ladder, keyed by
// cumulative points rather than a metric category.
type LoyaltyTier struct {
	Title string
	Min   float64
	Max   float64
}

// LoyaltyTiers are evaluated in order, first match wins. The boundaries are
// inherited verbatim: 350 points fall in Silver (its range is checked first)
// and totals inside the 700..701 seam resolve via the fallback in
// LoyaltyTierFor.
var LoyaltyTiers = []LoyaltyTier{
	{Title: "Novice", Min: 0, Max: 50},
	{Title: "Bronze", Min: 51, Max: 150},
	{Title: "Silver", Min: 151, Max: 350},
	{Title: "Gold", Min: 350, Max: 700},
	{Title: "Platinum", Min: 701, Max: 1100},
	{Title: "Tungsten", Min: 1101, Max: 9_999_999_999_999},
}

// LoyaltyTierFor maps a cumulative point total onto the loyalty-pass tier
// title. The function is total: point sums that land between two ranges
// (fractional campaign points make that possible) resolve to the last tier
// whose minimum they clear, and anything else resolves to the lowest tier.
func LoyaltyTierFor(points float64) string {
	for _, tier := range LoyaltyTiers {
		if points >= tier.Min && points <= tier.Max {
			return tier.Title
		}
	}
	for i := len(LoyaltyTiers) - 1; i >= 0; i-- {
		if points >= LoyaltyTiers[i].Min {
			return LoyaltyTiers[i].Title
		}
	}
	return LoyaltyTiers[0].Title
}
