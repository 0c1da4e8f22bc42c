package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakingPool is created by an operator. Only TotalStaked changes as
// positions open and close.
type StakingPool struct {
	ID                     string          `db:"id" json:"id"`
	Name                   string          `db:"name" json:"name"`
	APRBase                decimal.Decimal `db:"apr_base" json:"apr_base"`
	APRMax                 decimal.Decimal `db:"apr_max" json:"apr_max"`
	APY                    decimal.Decimal `db:"apy" json:"apy"`
	TotalStaked            decimal.Decimal `db:"total_staked" json:"total_staked"`
	MinStake               decimal.Decimal `db:"min_stake" json:"min_stake"`
	LockDays               int             `db:"lock_days" json:"lock_days"`
	AutoCompoundEnabled    bool            `db:"auto_compound_enabled" json:"auto_compound_enabled"`
	CompoundFrequencyHours int             `db:"compound_frequency_hours" json:"compound_frequency_hours"`
	IsActive               bool            `db:"is_active" json:"is_active"`
	IsFeatured             bool            `db:"is_featured" json:"is_featured"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
}

// CurrentAPY is the operator APY clamped into [APRBase, APRMax]. A zero APY
// means the pool pays its base rate.
func (p *StakingPool) CurrentAPY() decimal.Decimal {
	apy := p.APY
	if apy.IsZero() {
		apy = p.APRBase
	}
	if apy.LessThan(p.APRBase) {
		apy = p.APRBase
	}
	if p.APRMax.IsPositive() && apy.GreaterThan(p.APRMax) {
		apy = p.APRMax
	}
	return apy
}

// PositionStatus - состояние позиции
type PositionStatus string

const (
	PositionActive PositionStatus = "active"
	PositionClosed PositionStatus = "closed"
)

// StakingPosition is a user's stake in a pool. LockedAPY is fixed at stake
// time.
type StakingPosition struct {
	ID               string          `db:"id" json:"id"`
	PoolID           string          `db:"pool_id" json:"pool_id"`
	UserID           string          `db:"user_id" json:"user_id"`
	StakedAmount     decimal.Decimal `db:"staked_amount" json:"staked_amount"`
	CompoundedAmount decimal.Decimal `db:"compounded_amount" json:"compounded_amount"`
	LockedAPY        decimal.Decimal `db:"locked_apy" json:"locked_apy"`
	AutoCompound     bool            `db:"auto_compound" json:"auto_compound"`
	StakedAt         time.Time       `db:"staked_at" json:"staked_at"`
	LastCompoundAt   time.Time       `db:"last_compound_at" json:"last_compound_at"`
	LockUntil        time.Time       `db:"lock_until" json:"lock_until"`
	TotalEarned      decimal.Decimal `db:"total_earned" json:"total_earned"`
	Status           PositionStatus  `db:"status" json:"status"`
	ClosedAt         *time.Time      `db:"closed_at" json:"closed_at,omitempty"`
}

// IsLocked reports whether the lock period is still running at now.
func (p *StakingPosition) IsLocked(now time.Time) bool {
	return !p.LockUntil.IsZero() && now.Before(p.LockUntil)
}

// Principal is staked plus compounded amount.
func (p *StakingPosition) Principal() decimal.Decimal {
	return p.StakedAmount.Add(p.CompoundedAmount)
}

// StakingReward is a settled reward row
type StakingReward struct {
	ID          string          `db:"id" json:"id"`
	PositionID  string          `db:"position_id" json:"position_id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Gross       decimal.Decimal `db:"gross" json:"gross"`
	UserAmount  decimal.Decimal `db:"user_amount" json:"user_amount"`
	FenixAmount decimal.Decimal `db:"fenix_amount" json:"fenix_amount"`
	InfraAmount decimal.Decimal `db:"infra_amount" json:"infra_amount"`
	Compounded  bool            `db:"compounded" json:"compounded"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
