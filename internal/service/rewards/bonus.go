package rewards

import "math"

// BonusTier maps a minimum streak length to an earning multiplier.
type BonusTier struct {
	MinStreak  int     `json:"min_streak"`
	Multiplier float64 `json:"multiplier"`
}

// bonusTiers is ordered highest first; lookup picks the first tier the
// streak reaches. Only the highest applicable tier applies.
var bonusTiers = []BonusTier{
	{MinStreak: 30, Multiplier: 2.0},
	{MinStreak: 14, Multiplier: 1.5},
	{MinStreak: 7, Multiplier: 1.25},
	{MinStreak: 3, Multiplier: 1.1},
}

// BonusTiers returns the streak bonus table, highest tier first.
func BonusTiers() []BonusTier {
	tiers := make([]BonusTier, len(bonusTiers))
	copy(tiers, bonusTiers)
	return tiers
}

// StreakMultiplier returns the earning multiplier for a streak length.
// Streaks below the lowest tier earn at face value.
func StreakMultiplier(streak int) float64 {
	for _, tier := range bonusTiers {
		if streak >= tier.MinStreak {
			return tier.Multiplier
		}
	}
	return 1.0
}

// ApplyStreakBonus computes the total minutes earned for a base reward at
// the given streak. The total is floored to whole minutes; the bonus is the
// part above the base.
func ApplyStreakBonus(base, streak int) (total, bonus int) {
	if base <= 0 {
		return 0, 0
	}
	total = int(math.Floor(float64(base) * StreakMultiplier(streak)))
	return total, total - base
}
