package service

import (
	"tamv/internal/domain"

	"github.com/google/uuid"
)

// Notifier pushes committed notifications to connected clients.
type Notifier interface {
	Notify(n *domain.Notification)
}

type noopNotifier struct{}

func (noopNotifier) Notify(*domain.Notification) {}

func orNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

func newNotification(userID, kind, title string, data map[string]interface{}) *domain.Notification {
	return &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Data:      data,
		CreatedAt: now(),
	}
}
