package gamification

import (
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Progress is the result of evaluating an achievement against a counter.
type Progress struct {
	Unlocked bool            `json:"unlocked"`
	Percent  decimal.Decimal `json:"progress"`
}

// Evaluate computes progress = min(100, current/target*100) and unlocked =
// current >= target. A non-positive target is unlocked immediately.
func Evaluate(a *domain.Achievement, current decimal.Decimal) Progress {
	target := a.Requirement.Target
	if !target.IsPositive() {
		return Progress{Unlocked: true, Percent: hundred}
	}
	pct := current.Mul(hundred).Div(target).Round(2)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return Progress{Unlocked: current.GreaterThanOrEqual(target), Percent: pct}
}

// CheckProgress applies a new counter value to the stored progress. An
// unlock is never revoked, even if current later drops. prev may be nil for
// a user without a row. The bool reports a fresh unlock.
func CheckProgress(a *domain.Achievement, prev *domain.UserProgress, userID string, current decimal.Decimal, now time.Time) (*domain.UserProgress, bool) {
	next := domain.UserProgress{UserID: userID, AchievementID: a.ID}
	if prev != nil {
		next = *prev
	}
	eval := Evaluate(a, current)
	next.CurrentValue = current
	next.Progress = eval.Percent

	if next.Unlocked {
		next.Progress = hundred
		return &next, false
	}
	if !eval.Unlocked {
		return &next, false
	}
	at := now
	next.Unlocked = true
	next.UnlockedAt = &at
	return &next, true
}

// Claim marks an unlocked achievement as claimed.
func Claim(p *domain.UserProgress, now time.Time) (*domain.UserProgress, error) {
	if !p.Unlocked {
		return nil, economy.Errorf(economy.KindInvalidTransition, "achievement %s is not unlocked", p.AchievementID)
	}
	if p.Claimed {
		return nil, economy.Errorf(economy.KindInvalidTransition, "achievement %s already claimed", p.AchievementID)
	}
	next := *p
	at := now
	next.Claimed = true
	next.ClaimedAt = &at
	return &next, nil
}
