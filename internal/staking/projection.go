package staking

import (
	"math"

	"tamv/internal/economy"

	"github.com/shopspring/decimal"
)

// Projection is a forward estimate of a stake's reward split.
type Projection struct {
	GrossReward decimal.Decimal `json:"gross_reward"`
	NetReward   decimal.Decimal `json:"net_reward"`
	FenixAmount decimal.Decimal `json:"fenix_amount"`
	InfraAmount decimal.Decimal `json:"infra_amount"`
}

// Project estimates the reward on amount over days. With auto-compound the
// reward is reinvested every compoundFrequencyHours; otherwise it is simple
// interest. The gross reward is split with the staking schedule.
func (e *Engine) Project(amount, apy decimal.Decimal, days int, autoCompound bool, compoundFrequencyHours int) (Projection, error) {
	if !amount.IsPositive() {
		return Projection{}, economy.Errorf(economy.KindInvalidAmount, "amount must be positive")
	}
	if days < 0 || apy.IsNegative() {
		return Projection{}, economy.Errorf(economy.KindInvalidAmount, "days and apy must not be negative")
	}

	var gross decimal.Decimal
	if autoCompound && compoundFrequencyHours > 0 {
		freq := float64(compoundFrequencyHours)
		periods := float64(days) * 24 / freq
		rate := apy.InexactFloat64() / 100 / 365 * freq / 24
		growth := math.Pow(1+rate, periods) - 1
		gross = amount.Mul(decimal.NewFromFloat(growth))
	} else {
		gross = amount.Mul(apy).Mul(decimal.NewFromInt(int64(days))).Div(decimal.NewFromInt(36500))
	}
	gross = gross.RoundFloor(rewardPlaces)

	s := e.Settle(gross)
	return Projection{
		GrossReward: s.Gross,
		NetReward:   s.User,
		FenixAmount: s.Fenix,
		InfraAmount: s.Infra,
	}, nil
}
