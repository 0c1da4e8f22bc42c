package repository

import (
	"context"
	"encoding/json"

	"tamv/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertAudit = `
	INSERT INTO audit_logs (user_id, action, category, details, ip, user_agent)
	VALUES ($1, $2, $3, $4, $5, $6)`

func auditArgs(log *domain.AuditLog) []any {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil || log.Details == nil {
		detailsJSON = []byte("{}")
	}
	return []any{log.UserID, log.Action, log.Category, detailsJSON, log.IP, log.UserAgent}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	_, err := r.db.Exec(ctx, insertAudit, auditArgs(log)...)
	return classify("insert audit", err)
}

// CreateWithTx inserts a new audit log entry within a transaction, so the
// entry commits or rolls back with the change it describes
func (r *AuditRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, log *domain.AuditLog) error {
	_, err := tx.Exec(ctx, insertAudit, auditArgs(log)...)
	return classify("insert audit", err)
}

// GetByUserID returns audit logs for a user
func (r *AuditRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, action, category, details, ip, user_agent, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, classify("list audit", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

// GetByCategory returns a user's audit logs of one category
func (r *AuditRepository) GetByCategory(ctx context.Context, userID, category string, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, action, category, details, ip, user_agent, created_at
		FROM audit_logs
		WHERE user_id = $1 AND category = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, category, limit)
	if err != nil {
		return nil, classify("list audit", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&log.ID, &log.UserID, &log.Action, &log.Category, &detailsJSON, &log.IP, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, classify("scan audit", err)
		}
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			log.Details = make(map[string]interface{})
		}
		logs = append(logs, &log)
	}
	return logs, classify("list audit", rows.Err())
}
