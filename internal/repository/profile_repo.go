package repository

import (
	"context"

	"tamv/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, username, display_name, balance, reputation, role, delegated_power, created_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(
		&p.ID,
		&p.Username,
		&p.DisplayName,
		&p.Balance,
		&p.Reputation,
		&p.Role,
		&p.DelegatedPower,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns a profile or economy.ErrNotFound.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return getProfile(ctx, r.db, id)
}

// GetByIDTx reads a profile inside tx.
func (r *ProfileRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id string) (*domain.Profile, error) {
	return getProfile(ctx, tx, id)
}

func getProfile(ctx context.Context, q Querier, id string) (*domain.Profile, error) {
	p, err := scanProfile(q.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get profile", err)
	}
	return p, nil
}

// Ensure creates the profile on first sight of a subject and returns the
// stored row.
func (r *ProfileRepository) Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	role := p.Role
	if role == "" {
		role = domain.RoleCitizen
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO profiles (id, username, display_name, balance, role)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Username, p.DisplayName, p.Balance, role,
	)
	if err != nil {
		return nil, classify("ensure profile", err)
	}
	return r.GetByID(ctx, p.ID)
}

// Balance returns the available, staked and pending funds of a user.
func (r *ProfileRepository) Balance(ctx context.Context, id string) (domain.Balance, error) {
	return getBalance(ctx, r.db, id)
}

// BalanceTx reads the balance inside tx. The read is a plain snapshot; the
// write goes through SetBalanceIfMatch.
func (r *ProfileRepository) BalanceTx(ctx context.Context, tx pgx.Tx, id string) (domain.Balance, error) {
	return getBalance(ctx, tx, id)
}

func getBalance(ctx context.Context, q Querier, id string) (domain.Balance, error) {
	var b domain.Balance
	err := q.QueryRow(ctx,
		`SELECT balance, staked_balance, pending_balance FROM profiles WHERE id = $1`, id,
	).Scan(&b.Available, &b.Staked, &b.Pending)
	if err != nil {
		return domain.Balance{}, classify("get balance", err)
	}
	return b, nil
}

// SetBalanceIfMatch writes next only if the stored balance still equals
// expected. A mismatch returns economy.ErrConflict.
func (r *ProfileRepository) SetBalanceIfMatch(ctx context.Context, tx pgx.Tx, id string, expected, next domain.Balance) error {
	tag, err := tx.Exec(ctx,
		`UPDATE profiles
		 SET balance = $2, staked_balance = $3, pending_balance = $4
		 WHERE id = $1 AND balance = $5 AND staked_balance = $6 AND pending_balance = $7`,
		id, next.Available, next.Staked, next.Pending,
		expected.Available, expected.Staked, expected.Pending,
	)
	return expectOne("set balance", tag, err)
}

// Credit adds amount to the available balance. Credits commute, so no
// precondition is needed.
func (r *ProfileRepository) Credit(ctx context.Context, tx pgx.Tx, id string, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx,
		`UPDATE profiles SET balance = balance + $2 WHERE id = $1`, id, amount)
	if err != nil {
		return classify("credit", err)
	}
	if tag.RowsAffected() == 0 {
		return classify("credit", pgx.ErrNoRows)
	}
	return nil
}

// AddReputation adds points to a user's reputation.
func (r *ProfileRepository) AddReputation(ctx context.Context, tx pgx.Tx, id string, points int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE profiles SET reputation = reputation + $2 WHERE id = $1`, id, points)
	return classify("add reputation", err)
}

// TopByReputation returns profiles ordered by reputation, ties by creation.
func (r *ProfileRepository) TopByReputation(ctx context.Context, limit int) ([]*domain.Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 ORDER BY reputation DESC, created_at ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, classify("top profiles", err)
	}
	defer rows.Close()

	var result []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, classify("scan profile", err)
		}
		result = append(result, p)
	}
	return result, classify("top profiles", rows.Err())
}

// VotingBase is what voting power is computed from.
type VotingBase struct {
	UserID     string
	Stake      decimal.Decimal
	Delegated  decimal.Decimal
	Reputation int64
	Role       domain.Role
}

// VotingBases returns every profile holding stake or delegated power.
func (r *ProfileRepository) VotingBases(ctx context.Context) ([]VotingBase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, staked_balance, delegated_power, reputation, role
		 FROM profiles
		 WHERE staked_balance + delegated_power > 0`)
	if err != nil {
		return nil, classify("voting bases", err)
	}
	defer rows.Close()

	var result []VotingBase
	for rows.Next() {
		var b VotingBase
		if err := rows.Scan(&b.UserID, &b.Stake, &b.Delegated, &b.Reputation, &b.Role); err != nil {
			return nil, classify("scan voting base", err)
		}
		result = append(result, b)
	}
	return result, classify("voting bases", rows.Err())
}

// Release returns escrowed funds from pending to available.
func (r *ProfileRepository) Release(ctx context.Context, tx pgx.Tx, id string, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx,
		`UPDATE profiles
		 SET balance = balance + $2, pending_balance = pending_balance - $2
		 WHERE id = $1`, id, amount)
	return classify("release escrow", err)
}

// CapturePending removes escrowed funds that are being paid out.
func (r *ProfileRepository) CapturePending(ctx context.Context, tx pgx.Tx, id string, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx,
		`UPDATE profiles SET pending_balance = pending_balance - $2 WHERE id = $1`, id, amount)
	if err != nil {
		return classify("capture escrow", err)
	}
	if tag.RowsAffected() == 0 {
		return classify("capture escrow", pgx.ErrNoRows)
	}
	return nil
}
