package repository

import (
	"context"
	"encoding/json"

	"tamv/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository stores rows for the realtime channel
type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateWithTx inserts a notification within a transaction
func (r *NotificationRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	dataJSON, err := json.Marshal(n.Data)
	if err != nil || n.Data == nil {
		dataJSON = []byte("{}")
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO notifications (id, user_id, kind, title, body, data, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body, dataJSON, n.Read, n.CreatedAt,
	)
	return classify("create notification", err)
}

// GetByUserID returns a user's notifications, newest first
func (r *NotificationRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, kind, title, body, data, read, created_at
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, classify("list notifications", err)
	}
	defer rows.Close()

	var result []*domain.Notification
	for rows.Next() {
		var (
			n        domain.Notification
			dataJSON []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &dataJSON, &n.Read, &n.CreatedAt); err != nil {
			return nil, classify("scan notification", err)
		}
		if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
			n.Data = make(map[string]interface{})
		}
		result = append(result, &n)
	}
	return result, classify("list notifications", rows.Err())
}

// MarkRead flags a user's notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return classify("mark read", err)
	}
	if tag.RowsAffected() == 0 {
		return classify("mark read", pgx.ErrNoRows)
	}
	return nil
}
