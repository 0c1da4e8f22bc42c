package service

import (
	"context"

	"tamv/internal/cache"
	"tamv/internal/domain"
	"tamv/internal/economy"
	"tamv/internal/gamification"
	"tamv/internal/logger"
	"tamv/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AchievementSource is the from_user of achievement reward transactions.
const AchievementSource = "system:achievements"

// AchievementService tracks achievement progress, reputation and the
// leaderboard
type AchievementService struct {
	db            *pgxpool.Pool
	wallet        *WalletService
	achievements  *repository.AchievementRepository
	profiles      *repository.ProfileRepository
	notifications *repository.NotificationRepository
	leaderboard   *cache.Leaderboard
	levels        *gamification.LevelTable
	audit         *AuditService
	notifier      Notifier
	retry         RetryPolicy
}

// NewAchievementService creates the service. A nil levels table means the
// built-in one.
func NewAchievementService(db *pgxpool.Pool, wallet *WalletService, leaderboard *cache.Leaderboard, levels *gamification.LevelTable, audit *AuditService, notifier Notifier) *AchievementService {
	if levels == nil {
		levels = gamification.DefaultLevelTable()
	}
	return &AchievementService{
		db:            db,
		wallet:        wallet,
		achievements:  repository.NewAchievementRepository(db),
		profiles:      repository.NewProfileRepository(db),
		notifications: repository.NewNotificationRepository(db),
		leaderboard:   leaderboard,
		levels:        levels,
		audit:         audit,
		notifier:      orNoop(notifier),
		retry:         DefaultRetry,
	}
}

// AchievementView pairs a template with the user's progress.
type AchievementView struct {
	*domain.Achievement
	Progress *domain.UserProgress `json:"progress,omitempty"`
}

// ReputationView is a user's score and level.
type ReputationView struct {
	Score     int64                      `json:"score"`
	Formatted string                     `json:"formatted"`
	Level     gamification.LevelProgress `json:"level"`
}

// List returns every active achievement with the user's stored progress.
func (s *AchievementService) List(ctx context.Context, userID string) ([]AchievementView, error) {
	all, err := s.achievements.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	progress, err := s.achievements.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.UserProgress, len(progress))
	for _, p := range progress {
		byID[p.AchievementID] = p
	}
	views := make([]AchievementView, 0, len(all))
	for _, a := range all {
		views = append(views, AchievementView{Achievement: a, Progress: byID[a.ID]})
	}
	return views, nil
}

// Refresh re-evaluates every active achievement against the user's
// counters and notifies fresh unlocks.
func (s *AchievementService) Refresh(ctx context.Context, userID string) ([]AchievementView, error) {
	all, err := s.achievements.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]AchievementView, 0, len(all))
	for _, a := range all {
		if !repository.KnownMetric(a.Requirement.Metric) {
			logger.Warn("achievement has unknown metric", "achievement_id", a.ID, "metric", a.Requirement.Metric)
			continue
		}
		current, err := s.achievements.MetricValue(ctx, userID, a.Requirement.Metric)
		if err != nil {
			return nil, err
		}
		p, err := s.refreshOne(ctx, userID, a, current)
		if err != nil {
			return nil, err
		}
		views = append(views, AchievementView{Achievement: a, Progress: p})
	}
	return views, nil
}

func (s *AchievementService) refreshOne(ctx context.Context, userID string, a *domain.Achievement, current economy.Amount) (*domain.UserProgress, error) {
	var note *domain.Notification
	p, err := withRetry(ctx, s.retry, "achievement_progress", func() (*domain.UserProgress, error) {
		note = nil
		var out *domain.UserProgress
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			prev, err := s.achievements.GetProgressTx(ctx, tx, userID, a.ID)
			if err != nil {
				return err
			}
			next, fresh := gamification.CheckProgress(a, prev, userID, current, now())
			if err := s.achievements.SaveProgressWithTx(ctx, tx, next); err != nil {
				return err
			}
			out = next
			if !fresh {
				return nil
			}
			note = newNotification(userID, domain.NotificationAchievement, "Achievement unlocked: "+a.Title, map[string]interface{}{
				"achievement_id": a.ID,
				"reward_msr":     a.RewardMSR.String(),
			})
			return s.notifications.CreateWithTx(ctx, tx, note)
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	if note != nil {
		s.notifier.Notify(note)
		logger.WithContext(ctx).Info("achievement unlocked", "user_id", userID, "achievement_id", a.ID)
	}
	return p, nil
}

// Claim pays an unlocked achievement's MSR reward and reputation points.
// Each achievement can be claimed once.
func (s *AchievementService) Claim(ctx context.Context, userID, achievementID string) (*domain.UserProgress, error) {
	a, err := s.achievements.GetByID(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	type result struct {
		progress *domain.UserProgress
		tx       *domain.Transaction
	}
	res, err := withRetry(ctx, s.retry, "claim", func() (result, error) {
		var r result
		err := inTx(ctx, s.db, func(tx pgx.Tx) error {
			prev, err := s.achievements.GetProgressTx(ctx, tx, userID, achievementID)
			if err != nil {
				return err
			}
			if prev == nil {
				return economy.Errorf(economy.KindInvalidTransition, "achievement %s is not unlocked", achievementID)
			}
			claimed, err := gamification.Claim(prev, now())
			if err != nil {
				return err
			}
			if err := s.achievements.MarkClaimedWithTx(ctx, tx, claimed); err != nil {
				return err
			}
			if a.RewardMSR.IsPositive() {
				ref := a.ID
				if r.tx, err = s.wallet.settleWithTx(ctx, tx, domain.TxTypeReward, AchievementSource, userID, a.RewardMSR, "achievement "+a.Title, &ref); err != nil {
					return err
				}
			}
			if a.ReputationPoints != 0 {
				if err := s.profiles.AddReputation(ctx, tx, userID, a.ReputationPoints); err != nil {
					return err
				}
			}
			r.progress = claimed
			return s.audit.LogWithTx(ctx, tx, userID, domain.AuditActionClaim, domain.AuditCategoryAchievement, map[string]interface{}{
				"achievement_id":    a.ID,
				"reward_msr":        a.RewardMSR.String(),
				"reputation_points": a.ReputationPoints,
			})
		})
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if res.tx != nil {
		s.wallet.record(res.tx)
	}
	if a.ReputationPoints != 0 {
		if err := s.leaderboard.Invalidate(ctx); err != nil {
			logger.Warn("leaderboard cache invalidate failed", "error", err)
		}
	}
	logger.WithContext(ctx).Info("achievement claimed", "user_id", userID, "achievement_id", achievementID)
	return res.progress, nil
}

// Leaderboard returns the top profiles by reputation.
func (s *AchievementService) Leaderboard(ctx context.Context, limit int) ([]gamification.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if cached, ok := s.leaderboard.Get(ctx, limit); ok {
		return cached, nil
	}
	top, err := s.profiles.TopByReputation(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]gamification.Entry, 0, len(top))
	for _, p := range top {
		name := p.DisplayName
		if name == "" {
			name = p.Username
		}
		entries = append(entries, gamification.Entry{UserID: p.ID, DisplayName: name, Score: p.Reputation})
	}
	ranked := gamification.Rank(entries)
	if err := s.leaderboard.Set(ctx, limit, ranked); err != nil {
		logger.Warn("leaderboard cache write failed", "error", err)
	}
	return ranked, nil
}

// Reputation returns a user's score and level progress.
func (s *AchievementService) Reputation(ctx context.Context, userID string) (ReputationView, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return ReputationView{}, err
	}
	return ReputationView{
		Score:     p.Reputation,
		Formatted: gamification.FormatScore(p.Reputation),
		Level:     s.levels.NextLevel(p.Reputation),
	}, nil
}
