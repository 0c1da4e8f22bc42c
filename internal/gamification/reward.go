package gamification

import (
	"github.com/shopspring/decimal"
)

// AutoCompoundBonus multiplies the displayed estimate when auto-compound is on.
var AutoCompoundBonus = decimal.RequireFromString("1.1")

var daysPerYear = decimal.NewFromInt(365)

// DisplayDailyReward is a rough per-day estimate shown next to a stake.
// It is presentation only; accrual goes through the staking engine.
func DisplayDailyReward(staked, apy decimal.Decimal, autoCompound bool) decimal.Decimal {
	if !staked.IsPositive() || !apy.IsPositive() {
		return decimal.Zero
	}
	daily := staked.Mul(apy).Div(hundred).Div(daysPerYear)
	if autoCompound {
		daily = daily.Mul(AutoCompoundBonus)
	}
	return daily.RoundFloor(2)
}
