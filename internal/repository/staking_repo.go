package repository

import (
	"context"
	"time"

	"tamv/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type StakingRepository struct {
	db *pgxpool.Pool
}

func NewStakingRepository(db *pgxpool.Pool) *StakingRepository {
	return &StakingRepository{db: db}
}

const poolColumns = `id, name, apr_base, apr_max, apy, total_staked, min_stake, lock_days,
		auto_compound_enabled, compound_frequency_hours, is_active, is_featured, created_at`

func scanPool(row pgx.Row) (*domain.StakingPool, error) {
	var p domain.StakingPool
	err := row.Scan(&p.ID, &p.Name, &p.APRBase, &p.APRMax, &p.APY, &p.TotalStaked, &p.MinStake, &p.LockDays,
		&p.AutoCompoundEnabled, &p.CompoundFrequencyHours, &p.IsActive, &p.IsFeatured, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPools returns pools, featured first.
func (r *StakingRepository) ListPools(ctx context.Context, activeOnly bool) ([]*domain.StakingPool, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+poolColumns+`
		 FROM staking_pools
		 WHERE is_active OR NOT $1
		 ORDER BY is_featured DESC, created_at`, activeOnly)
	if err != nil {
		return nil, classify("list pools", err)
	}
	defer rows.Close()

	var result []*domain.StakingPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, classify("scan pool", err)
		}
		result = append(result, p)
	}
	return result, classify("list pools", rows.Err())
}

// GetPool returns a pool by id.
func (r *StakingRepository) GetPool(ctx context.Context, id string) (*domain.StakingPool, error) {
	return getPool(ctx, r.db, id)
}

// GetPoolTx reads a pool inside tx.
func (r *StakingRepository) GetPoolTx(ctx context.Context, tx pgx.Tx, id string) (*domain.StakingPool, error) {
	return getPool(ctx, tx, id)
}

func getPool(ctx context.Context, q Querier, id string) (*domain.StakingPool, error) {
	p, err := scanPool(q.QueryRow(ctx, `SELECT `+poolColumns+` FROM staking_pools WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get pool", err)
	}
	return p, nil
}

// CreatePool inserts an operator-defined pool.
func (r *StakingRepository) CreatePool(ctx context.Context, p *domain.StakingPool) error {
	return classify("create pool", r.db.QueryRow(ctx,
		`INSERT INTO staking_pools (id, name, apr_base, apr_max, apy, min_stake, lock_days,
		        auto_compound_enabled, compound_frequency_hours, is_active, is_featured)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING total_staked, created_at`,
		p.ID, p.Name, p.APRBase, p.APRMax, p.APY, p.MinStake, p.LockDays,
		p.AutoCompoundEnabled, p.CompoundFrequencyHours, p.IsActive, p.IsFeatured,
	).Scan(&p.TotalStaked, &p.CreatedAt))
}

// AddPoolTotal shifts total_staked by delta in place, clamped at zero.
// Concurrent stakers only queue on the row lock, they never conflict.
func (r *StakingRepository) AddPoolTotal(ctx context.Context, tx pgx.Tx, poolID string, delta decimal.Decimal) error {
	tag, err := tx.Exec(ctx,
		`UPDATE staking_pools SET total_staked = GREATEST(total_staked + $2, 0) WHERE id = $1`,
		poolID, delta)
	if err == nil && tag.RowsAffected() == 0 {
		return classify("add pool total", pgx.ErrNoRows)
	}
	return classify("add pool total", err)
}

const positionColumns = `id, pool_id, user_id, staked_amount, compounded_amount, locked_apy, auto_compound,
		staked_at, last_compound_at, lock_until, total_earned, status, closed_at`

func scanPosition(row pgx.Row) (*domain.StakingPosition, error) {
	var (
		p         domain.StakingPosition
		lockUntil *time.Time
	)
	err := row.Scan(&p.ID, &p.PoolID, &p.UserID, &p.StakedAmount, &p.CompoundedAmount, &p.LockedAPY, &p.AutoCompound,
		&p.StakedAt, &p.LastCompoundAt, &lockUntil, &p.TotalEarned, &p.Status, &p.ClosedAt)
	if err != nil {
		return nil, err
	}
	if lockUntil != nil {
		p.LockUntil = *lockUntil
	}
	return &p, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// CreatePositionWithTx inserts a new position.
func (r *StakingRepository) CreatePositionWithTx(ctx context.Context, tx pgx.Tx, p *domain.StakingPosition) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO staking_positions (`+positionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.PoolID, p.UserID, p.StakedAmount, p.CompoundedAmount, p.LockedAPY, p.AutoCompound,
		p.StakedAt, p.LastCompoundAt, nullTime(p.LockUntil), p.TotalEarned, p.Status, p.ClosedAt,
	)
	return classify("create position", err)
}

// GetPosition returns a position by id.
func (r *StakingRepository) GetPosition(ctx context.Context, id string) (*domain.StakingPosition, error) {
	return getPosition(ctx, r.db, id)
}

// GetPositionTx reads a position inside tx.
func (r *StakingRepository) GetPositionTx(ctx context.Context, tx pgx.Tx, id string) (*domain.StakingPosition, error) {
	return getPosition(ctx, tx, id)
}

func getPosition(ctx context.Context, q Querier, id string) (*domain.StakingPosition, error) {
	p, err := scanPosition(q.QueryRow(ctx, `SELECT `+positionColumns+` FROM staking_positions WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get position", err)
	}
	return p, nil
}

// ListPositions returns a user's positions, newest first.
func (r *StakingRepository) ListPositions(ctx context.Context, userID string) ([]*domain.StakingPosition, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+positionColumns+`
		 FROM staking_positions
		 WHERE user_id = $1
		 ORDER BY staked_at DESC`, userID)
	if err != nil {
		return nil, classify("list positions", err)
	}
	defer rows.Close()
	return collectPositions(rows)
}

// DueCursor is the keyset position of the last row of a DueForCompound page.
// The zero value starts from the oldest position.
type DueCursor struct {
	LastCompoundAt time.Time
	ID             string
}

// Next returns the cursor after the last position of page.
func (c DueCursor) Next(page []*domain.StakingPosition) DueCursor {
	if len(page) == 0 {
		return c
	}
	last := page[len(page)-1]
	return DueCursor{LastCompoundAt: last.LastCompoundAt, ID: last.ID}
}

// DueForCompound returns one page of active auto-compounding positions whose
// last compound is older than their pool's compound frequency, ordered by
// (last_compound_at, id) after the cursor.
func (r *StakingRepository) DueForCompound(ctx context.Context, now time.Time, after DueCursor, limit int) ([]*domain.StakingPosition, error) {
	if limit <= 0 {
		limit = 100
	}
	var afterAt *time.Time
	if !after.LastCompoundAt.IsZero() {
		afterAt = &after.LastCompoundAt
	}
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.pool_id, p.user_id, p.staked_amount, p.compounded_amount, p.locked_apy, p.auto_compound,
		        p.staked_at, p.last_compound_at, p.lock_until, p.total_earned, p.status, p.closed_at
		 FROM staking_positions p
		 JOIN staking_pools sp ON sp.id = p.pool_id
		 WHERE p.status = $1
		   AND p.auto_compound
		   AND sp.auto_compound_enabled
		   AND p.last_compound_at <= $2::timestamptz - make_interval(hours => sp.compound_frequency_hours)
		   AND ($3::timestamptz IS NULL OR (p.last_compound_at, p.id) > ($3::timestamptz, $4::text))
		 ORDER BY p.last_compound_at, p.id
		 LIMIT $5`,
		domain.PositionActive, now, afterAt, after.ID, limit)
	if err != nil {
		return nil, classify("due positions", err)
	}
	defer rows.Close()
	return collectPositions(rows)
}

func collectPositions(rows pgx.Rows) ([]*domain.StakingPosition, error) {
	var result []*domain.StakingPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, classify("scan position", err)
		}
		result = append(result, p)
	}
	return result, classify("scan positions", rows.Err())
}

// UpdatePositionIfUnchanged writes next only if the stored row still has
// prev's status and last compound time. Crediting a compound and moving
// last_compound_at happen in this one statement, so an interval is never
// credited twice.
func (r *StakingRepository) UpdatePositionIfUnchanged(ctx context.Context, tx pgx.Tx, prev, next *domain.StakingPosition) error {
	tag, err := tx.Exec(ctx,
		`UPDATE staking_positions
		 SET compounded_amount = $2, last_compound_at = $3, total_earned = $4, status = $5, closed_at = $6
		 WHERE id = $1 AND status = $7 AND last_compound_at = $8`,
		next.ID, next.CompoundedAmount, next.LastCompoundAt, next.TotalEarned, next.Status, next.ClosedAt,
		prev.Status, prev.LastCompoundAt,
	)
	return expectOne("update position", tag, err)
}

// CreateRewardWithTx records a settled reward.
func (r *StakingRepository) CreateRewardWithTx(ctx context.Context, tx pgx.Tx, rw *domain.StakingReward) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO staking_rewards (id, position_id, user_id, gross, user_amount, fenix_amount, infra_amount, compounded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rw.ID, rw.PositionID, rw.UserID, rw.Gross, rw.UserAmount, rw.FenixAmount, rw.InfraAmount, rw.Compounded, rw.CreatedAt,
	)
	return classify("create reward", err)
}
