package contract

import (
	"context"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ReferralRepository interface {
	Create(ctx context.Context, referral *model.Referral) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*model.Referral, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.Referral, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// UpdateWhereStatus performs a conditional update: the row is only
	// touched if its status still matches expected. Returns false when the
	// guard failed (zero rows affected), which callers treat as a lost race
	// or an invalid transition.
	UpdateWhereStatus(ctx context.Context, id uuid.UUID, expected model.ReferralStatus, updates map[string]interface{}) (bool, error)

	// MarkPaidOut stamps paid_out_at and payout_id on the given commissions.
	MarkPaidOut(ctx context.Context, ids []uuid.UUID, payoutId uuid.UUID, paidAt time.Time) error

	// ReserveForPayout stamps payout_id on commissions that are PAID and
	// not yet claimed by another payout. Returns how many rows were
	// stamped, so the caller can detect a lost race.
	ReserveForPayout(ctx context.Context, ids []uuid.UUID, payoutId uuid.UUID) (int64, error)

	// ReleasePayoutReservation clears payout_id on commissions reserved by
	// the given payout, leaving already-disbursed rows untouched.
	ReleasePayoutReservation(ctx context.Context, payoutId uuid.UUID) error

	// Performance tier inputs
	CountByReferrerAndStatus(ctx context.Context, referrerId uuid.UUID, status model.ReferralStatus) (int64, error)
	SumCommissionByReferrerAndStatus(ctx context.Context, referrerId uuid.UUID, status model.ReferralStatus) (float64, error)

	// Config rows, read once at startup
	FindAllCommissionRules(ctx context.Context) ([]model.CommissionRule, error)

	// Payouts
	CreatePayout(ctx context.Context, payout *model.CommissionPayout) error
	FindOnePayout(ctx context.Context, specs ...specification.Specification) (*model.CommissionPayout, error)
	FindPayouts(ctx context.Context, specs ...specification.Specification) ([]*model.CommissionPayout, error)
	UpdatePayoutWhereStatus(ctx context.Context, id uuid.UUID, expected model.PayoutStatus, updates map[string]interface{}) (bool, error)

	// Analytics
	GroupByStatusBetween(ctx context.Context, start, end time.Time) (map[model.ReferralStatus]int64, error)
	SumCommissionBetween(ctx context.Context, start, end time.Time) (float64, error)
}
