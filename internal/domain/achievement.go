package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequirementType - что именно считается для достижения
type RequirementType string

const (
	RequirementCount     RequirementType = "count"
	RequirementAmount    RequirementType = "amount"
	RequirementStreak    RequirementType = "streak"
	RequirementThreshold RequirementType = "threshold"
)

// Requirement describes the goal of an achievement. Metric names the counter
// the caller supplies (e.g. "tips_sent", "total_staked").
type Requirement struct {
	Type   RequirementType `json:"type"`
	Target decimal.Decimal `json:"target"`
	Metric string          `json:"metric"`
}

// Achievement - шаблон достижения
type Achievement struct {
	ID               string          `db:"id" json:"id"`
	Title            string          `db:"title" json:"title"`
	Description      string          `db:"description" json:"description"`
	Requirement      Requirement     `db:"requirement" json:"requirement"`
	RewardMSR        decimal.Decimal `db:"reward_msr" json:"reward_msr"`
	ReputationPoints int64           `db:"reputation_points" json:"reputation_points"`
	IsActive         bool            `db:"is_active" json:"is_active"`
}

// UserProgress - прогресс пользователя по достижению
type UserProgress struct {
	UserID        string          `db:"user_id" json:"user_id"`
	AchievementID string          `db:"achievement_id" json:"achievement_id"`
	CurrentValue  decimal.Decimal `db:"current_value" json:"current_value"`
	Progress      decimal.Decimal `db:"progress" json:"progress"`
	Unlocked      bool            `db:"unlocked" json:"unlocked"`
	Claimed       bool            `db:"claimed" json:"claimed"`
	UnlockedAt    *time.Time      `db:"unlocked_at" json:"unlocked_at,omitempty"`
	ClaimedAt     *time.Time      `db:"claimed_at" json:"claimed_at,omitempty"`
}

// CanClaim проверяет, можно ли забрать награду
func (p *UserProgress) CanClaim() bool {
	return p.Unlocked && !p.Claimed
}
