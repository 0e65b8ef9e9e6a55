package implementation

import (
	"context"
	"errors"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/repository/contract"
	"member-portal-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MembershipRepositoryImpl struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) contract.MembershipRepository {
	return &MembershipRepositoryImpl{db: db}
}

func (r *MembershipRepositoryImpl) applySpecs(db *gorm.DB, specs []specification.Specification) *gorm.DB {
	for _, s := range specs {
		db = s.Apply(db)
	}
	return db
}

func (r *MembershipRepositoryImpl) CreateRenewal(ctx context.Context, renewal *model.MembershipRenewal) error {
	return r.db.WithContext(ctx).Create(renewal).Error
}

func (r *MembershipRepositoryImpl) FindRenewals(ctx context.Context, specs ...specification.Specification) ([]*model.MembershipRenewal, error) {
	var renewals []*model.MembershipRenewal
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.Order("created_at DESC").Find(&renewals).Error
	return renewals, err
}

func (r *MembershipRepositoryImpl) FindAllTiers(ctx context.Context) ([]model.MembershipTier, error) {
	var tiers []model.MembershipTier
	err := r.db.WithContext(ctx).Order("ordinal ASC").Find(&tiers).Error
	return tiers, err
}

func (r *MembershipRepositoryImpl) CreateFeedback(ctx context.Context, feedback *model.MemberFeedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

func (r *MembershipRepositoryImpl) FindOneFeedback(ctx context.Context, specs ...specification.Specification) (*model.MemberFeedback, error) {
	var feedback model.MemberFeedback
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.First(&feedback).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &feedback, nil
}

func (r *MembershipRepositoryImpl) UpdateFeedback(ctx context.Context, feedback *model.MemberFeedback) error {
	return r.db.WithContext(ctx).Save(feedback).Error
}

func (r *MembershipRepositoryImpl) CountRenewalsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.MembershipRenewal{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}

func (r *MembershipRepositoryImpl) SumRenewalAmountBetween(ctx context.Context, start, end time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.MembershipRenewal{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Select("COALESCE(SUM(amount_paid), 0)").
		Scan(&total).Error
	return total, err
}

func (r *MembershipRepositoryImpl) GroupRenewalsByNewTier(ctx context.Context, start, end time.Time) (map[model.MemberType]int64, error) {
	type row struct {
		NewTier model.MemberType
		Total   int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.MembershipRenewal{}).
		Select("new_tier, COUNT(*) AS total").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("new_tier").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[model.MemberType]int64, len(rows))
	for _, r := range rows {
		result[r.NewTier] = r.Total
	}
	return result, nil
}
