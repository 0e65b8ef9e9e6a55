package contract

import (
	"context"
	"time"

	"member-portal-be/internal/model"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	FindByUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]model.Notification, int64, error)
	GetUnreadCount(ctx context.Context, userId uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, id, userId uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userId uuid.UUID) error
	Delete(ctx context.Context, id, userId uuid.UUID) error

	GetActiveTemplateByType(ctx context.Context, notifType string) (*model.NotificationTemplate, error)

	// HasRecentByType reports whether the user already received a
	// notification of the given type since the cutoff. Used as the
	// idempotency guard for expiry reminders.
	HasRecentByType(ctx context.Context, userId uuid.UUID, notifType string, since time.Time) (bool, error)
}
