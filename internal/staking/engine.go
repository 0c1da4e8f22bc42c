package staking

import (
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	day = 24 * time.Hour

	// precision of stored reward amounts
	rewardPlaces = 8
)

var (
	// DefaultEarlyExitPenalty is applied to the payout of a forced early unstake.
	DefaultEarlyExitPenalty = decimal.RequireFromString("0.10")

	daysPerYear = decimal.NewFromInt(365)
	nanosPerDay = decimal.NewFromInt(int64(day))
)

// Settlement is a gross reward split with the staking schedule. User is the
// part credited to the staker.
type Settlement struct {
	Gross decimal.Decimal `json:"gross"`
	User  decimal.Decimal `json:"user"`
	Fenix decimal.Decimal `json:"fenix"`
	Infra decimal.Decimal `json:"infra"`
}

// UnstakeResult is what closing a position pays out.
type UnstakeResult struct {
	Position  *domain.StakingPosition `json:"position"`
	Principal decimal.Decimal         `json:"principal"`
	Reward    Settlement              `json:"reward"`
	Penalty   decimal.Decimal         `json:"penalty"`
	Payout    decimal.Decimal         `json:"payout"`
	Early     bool                    `json:"early"`
}

// Engine implements the position lifecycle. It performs no I/O.
type Engine struct {
	dist    *economy.Distributor
	penalty decimal.Decimal
	newID   func() string
}

// NewEngine builds a staking engine. A nil dist uses the platform ratios and
// a zero penalty falls back to DefaultEarlyExitPenalty.
func NewEngine(dist *economy.Distributor, earlyExitPenalty decimal.Decimal) *Engine {
	if dist == nil {
		dist = economy.DefaultDistributor()
	}
	if earlyExitPenalty.IsZero() {
		earlyExitPenalty = DefaultEarlyExitPenalty
	}
	return &Engine{dist: dist, penalty: earlyExitPenalty, newID: uuid.NewString}
}

// SetIDFunc overrides position id generation.
func (e *Engine) SetIDFunc(newID func() string) {
	if newID == nil {
		newID = uuid.NewString
	}
	e.newID = newID
}

// Stake opens a position. The pool's current APY is snapshotted into the
// position and never changes afterwards.
func (e *Engine) Stake(pool *domain.StakingPool, userID string, amount decimal.Decimal, autoCompound bool, now time.Time) (*domain.StakingPosition, error) {
	if !pool.IsActive {
		return nil, economy.Errorf(economy.KindPoolInactive, "pool %s is not accepting stakes", pool.ID)
	}
	if !amount.IsPositive() {
		return nil, economy.Errorf(economy.KindInvalidAmount, "amount must be positive")
	}
	if amount.LessThan(pool.MinStake) {
		return nil, economy.Errorf(economy.KindBelowMinimum, "minimum stake is %s", pool.MinStake)
	}
	pos := &domain.StakingPosition{
		ID:               e.newID(),
		PoolID:           pool.ID,
		UserID:           userID,
		StakedAmount:     amount,
		CompoundedAmount: decimal.Zero,
		LockedAPY:        pool.CurrentAPY(),
		AutoCompound:     autoCompound && pool.AutoCompoundEnabled,
		StakedAt:         now,
		LastCompoundAt:   now,
		TotalEarned:      decimal.Zero,
		Status:           domain.PositionActive,
	}
	if pool.LockDays > 0 {
		pos.LockUntil = now.Add(time.Duration(pool.LockDays) * day)
	}
	return pos, nil
}

// PendingRewards is simple interest on staked+compounded since
// lastCompoundAt, with fractional days accruing proportionally.
func PendingRewards(staked, compounded, apy decimal.Decimal, lastCompoundAt, now time.Time) decimal.Decimal {
	elapsed := now.Sub(lastCompoundAt)
	if elapsed <= 0 || !apy.IsPositive() {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(elapsed)).Div(nanosPerDay)
	return staked.Add(compounded).
		Mul(apy).
		Mul(days).
		Div(decimal.NewFromInt(100)).
		Div(daysPerYear).
		RoundFloor(rewardPlaces)
}

// Pending returns the gross reward accrued by an active position.
func Pending(pos *domain.StakingPosition, now time.Time) decimal.Decimal {
	if pos.Status != domain.PositionActive {
		return decimal.Zero
	}
	return PendingRewards(pos.StakedAmount, pos.CompoundedAmount, pos.LockedAPY, pos.LastCompoundAt, now)
}

// Settle splits a gross reward with the staking schedule. Rewards too small
// to split settle to zero.
func (e *Engine) Settle(gross decimal.Decimal) Settlement {
	if !gross.IsPositive() {
		return Settlement{Gross: decimal.Zero, User: decimal.Zero, Fenix: decimal.Zero, Infra: decimal.Zero}
	}
	d, err := e.dist.Distribute(gross, economy.ScheduleStaking)
	if err != nil {
		return Settlement{Gross: gross, User: decimal.Zero, Fenix: decimal.Zero, Infra: decimal.Zero}
	}
	return Settlement{Gross: gross, User: d.CreatorShare, Fenix: d.ResilienceShare, Infra: d.KernelShare}
}

// DueForCompound reports whether an auto-compounding position has waited a
// full compounding interval.
func DueForCompound(pos *domain.StakingPosition, pool *domain.StakingPool, now time.Time) bool {
	if pos.Status != domain.PositionActive || !pos.AutoCompound || !pool.AutoCompoundEnabled {
		return false
	}
	if pool.CompoundFrequencyHours <= 0 {
		return false
	}
	return now.Sub(pos.LastCompoundAt) >= time.Duration(pool.CompoundFrequencyHours)*time.Hour
}

// Compoundable reports whether compounding pos now would credit the staker
// at least one cent. Dust positions keep accruing until they would.
func (e *Engine) Compoundable(pos *domain.StakingPosition, now time.Time) bool {
	return e.Settle(Pending(pos, now)).User.IsPositive()
}

// Compound settles pending rewards and reinvests the staker's share. The
// returned position has LastCompoundAt moved to now, so the same interval
// can never be credited twice as long as both fields are persisted together.
func (e *Engine) Compound(pos *domain.StakingPosition, now time.Time) (*domain.StakingPosition, Settlement, error) {
	if pos.Status != domain.PositionActive {
		return nil, Settlement{}, economy.Errorf(economy.KindPositionClosed, "position %s is closed", pos.ID)
	}
	s := e.Settle(Pending(pos, now))
	out := *pos
	out.CompoundedAmount = pos.CompoundedAmount.Add(s.User)
	out.TotalEarned = pos.TotalEarned.Add(s.User)
	out.LastCompoundAt = now
	return &out, s, nil
}

// Unstake closes a position after settling its pending rewards. While the
// lock runs it fails with PositionLocked unless forceEarly is set, in which
// case the penalty is taken from the whole payout.
func (e *Engine) Unstake(pos *domain.StakingPosition, forceEarly bool, now time.Time) (*UnstakeResult, error) {
	if pos.Status != domain.PositionActive {
		return nil, economy.Errorf(economy.KindPositionClosed, "position %s is closed", pos.ID)
	}
	locked := pos.IsLocked(now)
	if locked && !forceEarly {
		return nil, economy.Errorf(economy.KindPositionLocked, "locked until %s", pos.LockUntil.UTC().Format(time.RFC3339))
	}

	s := e.Settle(Pending(pos, now))
	principal := pos.Principal()
	payout := principal.Add(s.User)
	penalty := decimal.Zero
	if locked {
		penalty = economy.FloorCents(payout.Mul(e.penalty))
		payout = payout.Sub(penalty)
	}

	closedAt := now
	out := *pos
	out.Status = domain.PositionClosed
	out.TotalEarned = pos.TotalEarned.Add(s.User)
	out.LastCompoundAt = now
	out.ClosedAt = &closedAt

	return &UnstakeResult{
		Position:  &out,
		Principal: principal,
		Reward:    s,
		Penalty:   penalty,
		Payout:    payout,
		Early:     locked,
	}, nil
}

// ApplyStake returns pool with amount added to TotalStaked.
func ApplyStake(pool domain.StakingPool, amount decimal.Decimal) domain.StakingPool {
	pool.TotalStaked = pool.TotalStaked.Add(amount)
	return pool
}

// ApplyUnstake returns pool with amount removed from TotalStaked, never
// going below zero.
func ApplyUnstake(pool domain.StakingPool, amount decimal.Decimal) domain.StakingPool {
	pool.TotalStaked = economy.MaxZero(pool.TotalStaked.Sub(amount))
	return pool
}
