package repository

import (
	"context"
	"encoding/json"
	"errors"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type AchievementRepository struct {
	db *pgxpool.Pool
}

func NewAchievementRepository(db *pgxpool.Pool) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// metricQueries maps requirement metrics to the counter queries that feed
// them. Only these names are accepted.
var metricQueries = map[string]string{
	"tips_sent":    `SELECT COUNT(*) FROM transactions WHERE type = 'tip' AND status = 'completed' AND from_user = $1`,
	"tips_amount":  `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'tip' AND status = 'completed' AND from_user = $1`,
	"purchases":    `SELECT COUNT(*) FROM transactions WHERE type = 'purchase' AND status = 'completed' AND from_user = $1`,
	"bids_placed":  `SELECT COUNT(*) FROM bids WHERE bidder_id = $1`,
	"votes_cast":   `SELECT COUNT(*) FROM votes WHERE voter_id = $1`,
	"total_staked": `SELECT staked_balance FROM profiles WHERE id = $1`,
	"reputation":   `SELECT reputation FROM profiles WHERE id = $1`,
}

// KnownMetric reports whether metric can be evaluated.
func KnownMetric(metric string) bool {
	_, ok := metricQueries[metric]
	return ok
}

// MetricValue evaluates a requirement counter for a user.
func (r *AchievementRepository) MetricValue(ctx context.Context, userID, metric string) (decimal.Decimal, error) {
	q, ok := metricQueries[metric]
	if !ok {
		return decimal.Zero, economy.Errorf(economy.KindNotFound, "unknown metric %q", metric)
	}
	var v decimal.Decimal
	if err := r.db.QueryRow(ctx, q, userID).Scan(&v); err != nil {
		return decimal.Zero, classify("metric "+metric, err)
	}
	return v, nil
}

func scanAchievement(row pgx.Row) (*domain.Achievement, error) {
	var (
		a      domain.Achievement
		reqRaw []byte
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Description, &reqRaw, &a.RewardMSR, &a.ReputationPoints, &a.IsActive); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reqRaw, &a.Requirement); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActive возвращает все активные достижения
func (r *AchievementRepository) GetActive(ctx context.Context) ([]*domain.Achievement, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, requirement, reward_msr, reputation_points, is_active
		 FROM achievements
		 WHERE is_active = true
		 ORDER BY id`)
	if err != nil {
		return nil, classify("list achievements", err)
	}
	defer rows.Close()

	var result []*domain.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, classify("scan achievement", err)
		}
		result = append(result, a)
	}
	return result, classify("list achievements", rows.Err())
}

// GetByID возвращает достижение по ID
func (r *AchievementRepository) GetByID(ctx context.Context, id string) (*domain.Achievement, error) {
	a, err := scanAchievement(r.db.QueryRow(ctx,
		`SELECT id, title, description, requirement, reward_msr, reputation_points, is_active
		 FROM achievements WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get achievement", err)
	}
	return a, nil
}

// Create inserts an achievement template.
func (r *AchievementRepository) Create(ctx context.Context, a *domain.Achievement) error {
	req, err := json.Marshal(a.Requirement)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO achievements (id, title, description, requirement, reward_msr, reputation_points, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		a.ID, a.Title, a.Description, req, a.RewardMSR, a.ReputationPoints, a.IsActive)
	return classify("create achievement", err)
}

const progressColumns = `user_id, achievement_id, current_value, progress, unlocked, claimed, unlocked_at, claimed_at`

func scanProgress(row pgx.Row) (*domain.UserProgress, error) {
	var p domain.UserProgress
	if err := row.Scan(&p.UserID, &p.AchievementID, &p.CurrentValue, &p.Progress, &p.Unlocked, &p.Claimed, &p.UnlockedAt, &p.ClaimedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetUserProgress возвращает прогресс пользователя по всем достижениям
func (r *AchievementRepository) GetUserProgress(ctx context.Context, userID string) ([]*domain.UserProgress, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+progressColumns+` FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, classify("list progress", err)
	}
	defer rows.Close()

	var result []*domain.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, classify("scan progress", err)
		}
		result = append(result, p)
	}
	return result, classify("list progress", rows.Err())
}

// GetProgressTx returns the stored progress row or nil when there is none.
func (r *AchievementRepository) GetProgressTx(ctx context.Context, tx pgx.Tx, userID, achievementID string) (*domain.UserProgress, error) {
	p, err := scanProgress(tx.QueryRow(ctx,
		`SELECT `+progressColumns+`
		 FROM user_achievements
		 WHERE user_id = $1 AND achievement_id = $2`, userID, achievementID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get progress", err)
	}
	return p, nil
}

// SaveProgressWithTx upserts progress. Unlocked and claimed flags only ever
// move from false to true.
func (r *AchievementRepository) SaveProgressWithTx(ctx context.Context, tx pgx.Tx, p *domain.UserProgress) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO user_achievements (`+progressColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id, achievement_id) DO UPDATE SET
		     current_value = EXCLUDED.current_value,
		     progress      = EXCLUDED.progress,
		     unlocked      = user_achievements.unlocked OR EXCLUDED.unlocked,
		     claimed       = user_achievements.claimed OR EXCLUDED.claimed,
		     unlocked_at   = COALESCE(user_achievements.unlocked_at, EXCLUDED.unlocked_at),
		     claimed_at    = COALESCE(user_achievements.claimed_at, EXCLUDED.claimed_at)`,
		p.UserID, p.AchievementID, p.CurrentValue, p.Progress, p.Unlocked, p.Claimed, p.UnlockedAt, p.ClaimedAt,
	)
	return classify("save progress", err)
}

// MarkClaimedWithTx flips claimed once. A second claim gets economy.ErrConflict.
func (r *AchievementRepository) MarkClaimedWithTx(ctx context.Context, tx pgx.Tx, p *domain.UserProgress) error {
	tag, err := tx.Exec(ctx,
		`UPDATE user_achievements
		 SET claimed = true, claimed_at = $3
		 WHERE user_id = $1 AND achievement_id = $2 AND unlocked AND NOT claimed`,
		p.UserID, p.AchievementID, p.ClaimedAt,
	)
	return expectOne("claim achievement", tag, err)
}
