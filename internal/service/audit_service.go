package service

import (
	"context"

	"tamv/internal/domain"
	"tamv/internal/logger"
	"tamv/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditService handles audit logging
type AuditService struct {
	repo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{
		repo: repository.NewAuditRepository(db),
	}
}

type requestInfoKey struct{}

// RequestInfo carries client details into audit rows.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// WithRequestInfo attaches client details to ctx.
func WithRequestInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, RequestInfo{IP: ip, UserAgent: userAgent})
}

func entry(ctx context.Context, userID, action, category string, details map[string]interface{}) *domain.AuditLog {
	log := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		log.IP = info.IP
		log.UserAgent = info.UserAgent
	}
	return log
}

// Log creates a new audit log entry outside any transaction. Failures are
// logged, not returned.
func (s *AuditService) Log(ctx context.Context, userID, action, category string, details map[string]interface{}) {
	if err := s.repo.Create(ctx, entry(ctx, userID, action, category, details)); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogWithTx writes the entry in tx so it commits with the change it records.
func (s *AuditService) LogWithTx(ctx context.Context, tx pgx.Tx, userID, action, category string, details map[string]interface{}) error {
	return s.repo.CreateWithTx(ctx, tx, entry(ctx, userID, action, category, details))
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}

// GetLogsByCategory returns a user's logs of one category
func (s *AuditService) GetLogsByCategory(ctx context.Context, userID, category string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByCategory(ctx, userID, category, limit)
}
