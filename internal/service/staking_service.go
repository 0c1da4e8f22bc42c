package service

import (
	"context"

	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/ledger"
	"tamv/internal/logger"
	"tamv/internal/repository"
	"tamv/internal/staking"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StakingService persists the staking lifecycle
type StakingService struct {
	db            *pgxpool.Pool
	engine        *staking.Engine
	builder       *ledger.Builder
	totals        *ledger.Totals
	profiles      *repository.ProfileRepository
	staking       *repository.StakingRepository
	transactions  *repository.TransactionRepository
	notifications *repository.NotificationRepository
	audit         *AuditService
	notifier      Notifier
	retry         RetryPolicy
	duePageSize   int
}

const defaultDuePageSize = 200

func NewStakingService(db *pgxpool.Pool, engine *staking.Engine, builder *ledger.Builder, totals *ledger.Totals, audit *AuditService, notifier Notifier) *StakingService {
	return &StakingService{
		db:            db,
		engine:        engine,
		builder:       builder,
		totals:        totals,
		profiles:      repository.NewProfileRepository(db),
		staking:       repository.NewStakingRepository(db),
		transactions:  repository.NewTransactionRepository(db),
		notifications: repository.NewNotificationRepository(db),
		audit:         audit,
		notifier:      orNoop(notifier),
		retry:         DefaultRetry,
		duePageSize:   defaultDuePageSize,
	}
}

// PositionView is a position with its live accrual.
type PositionView struct {
	*domain.StakingPosition
	PendingGross decimal.Decimal `json:"pending_gross"`
	PendingUser  decimal.Decimal `json:"pending_user"`
	Locked       bool            `json:"locked"`
}

// ListPools returns the active pools.
func (s *StakingService) ListPools(ctx context.Context) ([]*domain.StakingPool, error) {
	return s.staking.ListPools(ctx, true)
}

// ListPositions returns a user's positions with pending rewards at now.
func (s *StakingService) ListPositions(ctx context.Context, userID string) ([]PositionView, error) {
	positions, err := s.staking.ListPositions(ctx, userID)
	if err != nil {
		return nil, err
	}
	at := now()
	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		gross := staking.Pending(p, at)
		views = append(views, PositionView{
			StakingPosition: p,
			PendingGross:    gross,
			PendingUser:     s.engine.Settle(gross).User,
			Locked:          p.IsLocked(at),
		})
	}
	return views, nil
}

// Project estimates a stake's return without touching state.
func (s *StakingService) Project(amount, apy decimal.Decimal, days int, autoCompound bool, frequencyHours int) (staking.Projection, error) {
	return s.engine.Project(amount, apy, days, autoCompound, frequencyHours)
}

// Stake moves amount from the available balance into a new position.
func (s *StakingService) Stake(ctx context.Context, userID, poolID string, amount decimal.Decimal, autoCompound bool) (*domain.StakingPosition, error) {
	pos, err := withRetry(ctx, s.retry, "stake", func() (*domain.StakingPosition, error) {
		var out *domain.StakingPosition
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			pool, err := s.staking.GetPoolTx(ctx, tx, poolID)
			if err != nil {
				return err
			}
			out, err = s.engine.Stake(pool, userID, amount, autoCompound, now())
			if err != nil {
				return err
			}
			bal, err := s.profiles.BalanceTx(ctx, tx, userID)
			if err != nil {
				return err
			}
			if amount.GreaterThan(bal.Available) {
				return economy.Errorf(economy.KindInsufficientBalance, "need %s, available %s", amount, bal.Available)
			}

			next := bal
			next.Available = bal.Available.Sub(amount)
			next.Staked = bal.Staked.Add(amount)
			if err := s.profiles.SetBalanceIfMatch(ctx, tx, userID, bal, next); err != nil {
				return err
			}
			if err := s.staking.AddPoolTotal(ctx, tx, pool.ID, amount); err != nil {
				return err
			}
			if err := s.staking.CreatePositionWithTx(ctx, tx, out); err != nil {
				return err
			}
			return s.audit.LogWithTx(ctx, tx, userID, domain.AuditActionStake, domain.AuditCategoryStaking, map[string]interface{}{
				"position_id": out.ID,
				"pool_id":     pool.ID,
				"amount":      amount.String(),
				"apy":         out.LockedAPY.String(),
			})
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("position opened", "position_id", pos.ID, "pool_id", poolID, "amount", amount.String())
	return pos, nil
}

// Compound settles and reinvests a position's pending reward. A reward that
// rounds to nothing leaves the position untouched so the accrual keeps
// running.
func (s *StakingService) Compound(ctx context.Context, userID, positionID, trigger string) (*domain.StakingPosition, staking.Settlement, error) {
	type result struct {
		pos  *domain.StakingPosition
		set  staking.Settlement
		tx   *domain.Transaction
		note *domain.Notification
	}
	res, err := withRetry(ctx, s.retry, "compound", func() (result, error) {
		var r result
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			prev, err := s.staking.GetPositionTx(ctx, tx, positionID)
			if err != nil {
				return err
			}
			if userID != "" && prev.UserID != userID {
				return economy.Errorf(economy.KindNotFound, "position %s not found", positionID)
			}
			next, set, err := s.engine.Compound(prev, now())
			if err != nil {
				return err
			}
			if !set.User.IsPositive() {
				r = result{pos: prev, set: set}
				return nil
			}
			if err := s.staking.UpdatePositionIfUnchanged(ctx, tx, prev, next); err != nil {
				return err
			}
			if err := s.staking.AddPoolTotal(ctx, tx, prev.PoolID, set.User); err != nil {
				return err
			}
			if err := s.moveStaked(ctx, tx, prev.UserID, set.User, decimal.Zero); err != nil {
				return err
			}
			rtx, note, err := s.bookReward(ctx, tx, next, set, true)
			if err != nil {
				return err
			}
			if err := s.audit.LogWithTx(ctx, tx, prev.UserID, domain.AuditActionCompound, domain.AuditCategoryStaking, map[string]interface{}{
				"position_id": prev.ID,
				"gross":       set.Gross.String(),
				"user":        set.User.String(),
				"trigger":     trigger,
			}); err != nil {
				return err
			}
			r = result{pos: next, set: set, tx: rtx, note: note}
			return nil
		})
		return r, err
	})
	if err != nil {
		return nil, staking.Settlement{}, err
	}
	if res.tx != nil {
		recordTx(s.totals, res.tx)
		s.notifier.Notify(res.note)
		CompoundsTotal.WithLabelValues(trigger).Inc()
	}
	return res.pos, res.set, nil
}

// Unstake closes a position and pays out principal plus settled reward,
// minus the penalty when a locked position is forced out.
func (s *StakingService) Unstake(ctx context.Context, userID, positionID string, forceEarly bool) (*staking.UnstakeResult, error) {
	type result struct {
		out  *staking.UnstakeResult
		tx   *domain.Transaction
		note *domain.Notification
	}
	res, err := withRetry(ctx, s.retry, "unstake", func() (result, error) {
		var r result
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			prev, err := s.staking.GetPositionTx(ctx, tx, positionID)
			if err != nil {
				return err
			}
			if prev.UserID != userID {
				return economy.Errorf(economy.KindNotFound, "position %s not found", positionID)
			}
			out, err := s.engine.Unstake(prev, forceEarly, now())
			if err != nil {
				return err
			}
			if err := s.staking.UpdatePositionIfUnchanged(ctx, tx, prev, out.Position); err != nil {
				return err
			}
			if err := s.staking.AddPoolTotal(ctx, tx, prev.PoolID, out.Principal.Neg()); err != nil {
				return err
			}
			if err := s.moveStaked(ctx, tx, userID, out.Principal.Neg(), out.Payout); err != nil {
				return err
			}
			if out.Reward.User.IsPositive() {
				if r.tx, r.note, err = s.bookReward(ctx, tx, out.Position, out.Reward, false); err != nil {
					return err
				}
			}
			action := domain.AuditActionUnstake
			if out.Early {
				action = domain.AuditActionUnstakeEarly
			}
			r.out = out
			return s.audit.LogWithTx(ctx, tx, userID, action, domain.AuditCategoryStaking, map[string]interface{}{
				"position_id": prev.ID,
				"principal":   out.Principal.String(),
				"reward":      out.Reward.User.String(),
				"penalty":     out.Penalty.String(),
				"payout":      out.Payout.String(),
			})
		})
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if res.tx != nil {
		recordTx(s.totals, res.tx)
		s.notifier.Notify(res.note)
	}
	logger.WithContext(ctx).Info("position closed",
		"position_id", positionID, "payout", res.out.Payout.String(), "early", res.out.Early)
	return res.out, nil
}

// moveStaked shifts stakedDelta into the staked balance and credits
// availableDelta, as one conditional write.
func (s *StakingService) moveStaked(ctx context.Context, tx pgx.Tx, userID string, stakedDelta, availableDelta decimal.Decimal) error {
	bal, err := s.profiles.BalanceTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	next := bal
	next.Staked = economy.MaxZero(bal.Staked.Add(stakedDelta))
	next.Available = bal.Available.Add(availableDelta)
	return s.profiles.SetBalanceIfMatch(ctx, tx, userID, bal, next)
}

// bookReward appends the staking ledger entry, the reward row and the
// user's notification. The notification is pushed by the caller after commit.
func (s *StakingService) bookReward(ctx context.Context, tx pgx.Tx, pos *domain.StakingPosition, set staking.Settlement, compounded bool) (*domain.Transaction, *domain.Notification, error) {
	ref := pos.ID
	pending, err := s.builder.Create(domain.TxTypeStaking, set.Gross, "pool:"+pos.PoolID, pos.UserID, "staking reward", &ref)
	if err != nil {
		return nil, nil, err
	}
	done, err := s.builder.Finalize(pending)
	if err != nil {
		return nil, nil, err
	}
	if err := s.transactions.CreateWithTx(ctx, tx, done); err != nil {
		return nil, nil, err
	}
	if err := s.staking.CreateRewardWithTx(ctx, tx, &domain.StakingReward{
		ID:          uuid.NewString(),
		PositionID:  pos.ID,
		UserID:      pos.UserID,
		Gross:       set.Gross,
		UserAmount:  set.User,
		FenixAmount: set.Fenix,
		InfraAmount: set.Infra,
		Compounded:  compounded,
		CreatedAt:   done.Timestamp,
	}); err != nil {
		return nil, nil, err
	}
	note := newNotification(pos.UserID, domain.NotificationRewardCredited, "Staking reward credited", map[string]interface{}{
		"position_id": pos.ID,
		"amount":      set.User.String(),
		"compounded":  compounded,
	})
	if err := s.notifications.CreateWithTx(ctx, tx, note); err != nil {
		return nil, nil, err
	}
	return done, note, nil
}

// SetDuePageSize overrides how many due positions are read per page.
func (s *StakingService) SetDuePageSize(n int) {
	if n <= 0 {
		n = defaultDuePageSize
	}
	s.duePageSize = n
}

// CompoundDue settles every auto-compounding position that has waited a
// full interval. It pages through all due positions, so positions whose
// reward is still below one cent do not hold back the rest. Used by the
// background poller.
func (s *StakingService) CompoundDue(ctx context.Context) error {
	at := now()
	pools := map[string]*domain.StakingPool{}
	var compounded, dust, seen int
	var cursor repository.DueCursor
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.staking.DueForCompound(ctx, at, cursor, s.duePageSize)
		if err != nil {
			return err
		}
		seen += len(page)
		for _, pos := range page {
			pool, ok := pools[pos.PoolID]
			if !ok {
				if pool, err = s.staking.GetPool(ctx, pos.PoolID); err != nil {
					return err
				}
				pools[pos.PoolID] = pool
			}
			if !staking.DueForCompound(pos, pool, at) {
				continue
			}
			if !s.engine.Compoundable(pos, at) {
				dust++
				continue
			}
			if _, _, err := s.Compound(ctx, "", pos.ID, "auto"); err != nil {
				logger.Warn("auto-compound failed", "position_id", pos.ID, "error", err)
				continue
			}
			compounded++
		}
		if len(page) < s.duePageSize {
			break
		}
		cursor = cursor.Next(page)
	}
	if compounded > 0 || dust > 0 {
		logger.Info("auto-compound pass finished", "compounded", compounded, "below_cent", dust, "due", seen)
	}
	return nil
}
