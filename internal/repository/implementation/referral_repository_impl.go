package implementation

import (
	"context"
	"errors"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/repository/contract"
	"member-portal-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferralRepositoryImpl struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) contract.ReferralRepository {
	return &ReferralRepositoryImpl{db: db}
}

func (r *ReferralRepositoryImpl) applySpecs(db *gorm.DB, specs []specification.Specification) *gorm.DB {
	for _, s := range specs {
		db = s.Apply(db)
	}
	return db
}

func (r *ReferralRepositoryImpl) Create(ctx context.Context, referral *model.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *ReferralRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*model.Referral, error) {
	var referral model.Referral
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *ReferralRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.Referral, error) {
	var referrals []*model.Referral
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.Order("created_at DESC").Find(&referrals).Error
	return referrals, err
}

func (r *ReferralRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	db := r.applySpecs(r.db.WithContext(ctx).Model(&model.Referral{}), specs)
	err := db.Count(&count).Error
	return count, err
}

// UpdateWhereStatus is the optimistic-concurrency primitive for referral
// status transitions. The WHERE clause carries the expected status, so two
// concurrent transitions of the same row can never both succeed.
func (r *ReferralRepositoryImpl) UpdateWhereStatus(ctx context.Context, id uuid.UUID, expected model.ReferralStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ReferralRepositoryImpl) MarkPaidOut(ctx context.Context, ids []uuid.UUID, payoutId uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"paid_out_at": paidAt,
			"payout_id":   payoutId,
		}).Error
}

func (r *ReferralRepositoryImpl) ReserveForPayout(ctx context.Context, ids []uuid.UUID, payoutId uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("id IN ? AND status = ? AND payout_id IS NULL", ids, model.ReferralStatusPaid).
		Update("payout_id", payoutId)
	return result.RowsAffected, result.Error
}

func (r *ReferralRepositoryImpl) ReleasePayoutReservation(ctx context.Context, payoutId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("payout_id = ? AND paid_out_at IS NULL", payoutId).
		Update("payout_id", nil).Error
}

func (r *ReferralRepositoryImpl) CountByReferrerAndStatus(ctx context.Context, referrerId uuid.UUID, status model.ReferralStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("referrer_id = ? AND status = ?", referrerId, status).
		Count(&count).Error
	return count, err
}

func (r *ReferralRepositoryImpl) SumCommissionByReferrerAndStatus(ctx context.Context, referrerId uuid.UUID, status model.ReferralStatus) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("referrer_id = ? AND status = ?", referrerId, status).
		Select("COALESCE(SUM(commission), 0)").
		Scan(&total).Error
	return total, err
}

func (r *ReferralRepositoryImpl) FindAllCommissionRules(ctx context.Context) ([]model.CommissionRule, error) {
	var rules []model.CommissionRule
	err := r.db.WithContext(ctx).Find(&rules).Error
	return rules, err
}

func (r *ReferralRepositoryImpl) CreatePayout(ctx context.Context, payout *model.CommissionPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *ReferralRepositoryImpl) FindOnePayout(ctx context.Context, specs ...specification.Specification) (*model.CommissionPayout, error) {
	var payout model.CommissionPayout
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.First(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *ReferralRepositoryImpl) FindPayouts(ctx context.Context, specs ...specification.Specification) ([]*model.CommissionPayout, error) {
	var payouts []*model.CommissionPayout
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.Order("created_at DESC").Find(&payouts).Error
	return payouts, err
}

func (r *ReferralRepositoryImpl) UpdatePayoutWhereStatus(ctx context.Context, id uuid.UUID, expected model.PayoutStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.CommissionPayout{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ReferralRepositoryImpl) GroupByStatusBetween(ctx context.Context, start, end time.Time) (map[model.ReferralStatus]int64, error) {
	type row struct {
		Status model.ReferralStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Select("status, COUNT(*) AS total").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[model.ReferralStatus]int64, len(rows))
	for _, r := range rows {
		result[r.Status] = r.Total
	}
	return result, nil
}

func (r *ReferralRepositoryImpl) SumCommissionBetween(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.Referral{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Select("COALESCE(SUM(commission), 0)").
		Scan(&total).Error
	return total, err
}
