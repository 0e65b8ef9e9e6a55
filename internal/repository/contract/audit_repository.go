package contract

import (
	"context"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/repository/specification"

	"github.com/google/uuid"
)

// IPActivity is a grouped count of audit rows per source IP.
type IPActivity struct {
	IpAddress string
	Count     int64
}

// UserActivity is a grouped count of audit rows per user.
type UserActivity struct {
	UserId uuid.UUID
	Count  int64
}

type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.AuditLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// Suspicious-activity groupings over a trailing window
	GroupFailedLoginsByIP(ctx context.Context, since time.Time, minCount int64) ([]IPActivity, error)
	GroupDataAccessByUser(ctx context.Context, since time.Time, minCount int64) ([]UserActivity, error)
	GroupOffHoursByUser(ctx context.Context, since time.Time, dayStartHour, dayEndHour int, minCount int64) ([]UserActivity, error)

	// Retention cleanup. Hard delete, irreversible.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
