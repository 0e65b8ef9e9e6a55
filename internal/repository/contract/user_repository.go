package contract

import (
	"context"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*model.User, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// Business specific
	GetUsersByRole(ctx context.Context, role string) ([]*model.User, error)
	UpdateMembership(ctx context.Context, userId uuid.UUID, tier model.MemberType, expiresAt *time.Time) error
	SetActive(ctx context.Context, userId uuid.UUID, active bool) error
	FindExpiringBetween(ctx context.Context, start, end time.Time) ([]*model.User, error)

	// Analytics
	CountActive(ctx context.Context) (int64, error)
	CountByMemberType(ctx context.Context) (map[model.MemberType]int64, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error)
}
