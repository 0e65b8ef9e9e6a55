package contract

import (
	"context"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/repository/specification"
)

type MembershipRepository interface {
	CreateRenewal(ctx context.Context, renewal *model.MembershipRenewal) error
	FindRenewals(ctx context.Context, specs ...specification.Specification) ([]*model.MembershipRenewal, error)

	// Config rows, read once at startup
	FindAllTiers(ctx context.Context) ([]model.MembershipTier, error)

	// Feedback
	CreateFeedback(ctx context.Context, feedback *model.MemberFeedback) error
	FindOneFeedback(ctx context.Context, specs ...specification.Specification) (*model.MemberFeedback, error)
	UpdateFeedback(ctx context.Context, feedback *model.MemberFeedback) error

	// Analytics
	CountRenewalsBetween(ctx context.Context, start, end time.Time) (int64, error)
	SumRenewalAmountBetween(ctx context.Context, start, end time.Time) (float64, error)
	GroupRenewalsByNewTier(ctx context.Context, start, end time.Time) (map[model.MemberType]int64, error)
}
