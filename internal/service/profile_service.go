package service

import (
	"context"

	"tamv/internal/domain"
	"tamv/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProfileService exposes the caller's profile and notification feed.
type ProfileService struct {
	profiles      *repository.ProfileRepository
	notifications *repository.NotificationRepository
}

func NewProfileService(db *pgxpool.Pool) *ProfileService {
	return &ProfileService{
		profiles:      repository.NewProfileRepository(db),
		notifications: repository.NewNotificationRepository(db),
	}
}

// Ensure creates the profile for a subject seen for the first time.
func (s *ProfileService) Ensure(ctx context.Context, userID string) error {
	_, err := s.profiles.Ensure(ctx, &domain.Profile{ID: userID, Username: userID, Balance: decimal.Zero})
	return err
}

// Get returns a profile with its balance split.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, domain.Balance, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Balance{}, err
	}
	bal, err := s.profiles.Balance(ctx, userID)
	if err != nil {
		return nil, domain.Balance{}, err
	}
	return p, bal, nil
}

func (s *ProfileService) Notifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	return s.notifications.GetByUserID(ctx, userID, limit)
}

func (s *ProfileService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}
