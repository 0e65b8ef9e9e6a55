package implementation

import (
	"context"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/repository/contract"
	"member-portal-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AuditRepositoryImpl struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) contract.AuditRepository {
	return &AuditRepositoryImpl{db: db}
}

func (r *AuditRepositoryImpl) applySpecs(db *gorm.DB, specs []specification.Specification) *gorm.DB {
	for _, s := range specs {
		db = s.Apply(db)
	}
	return db
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.AuditLog, error) {
	var logs []*model.AuditLog
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.Order("created_at DESC").Find(&logs).Error
	return logs, err
}

func (r *AuditRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	db := r.applySpecs(r.db.WithContext(ctx).Model(&model.AuditLog{}), specs)
	err := db.Count(&count).Error
	return count, err
}

func (r *AuditRepositoryImpl) GroupFailedLoginsByIP(ctx context.Context, since time.Time, minCount int64) ([]contract.IPActivity, error) {
	var rows []contract.IPActivity
	err := r.db.WithContext(ctx).
		Model(&model.AuditLog{}).
		Select("ip_address, COUNT(*) AS count").
		Where("action = ? AND created_at >= ? AND ip_address <> ''", "LOGIN_FAILED", since).
		Group("ip_address").
		Having("COUNT(*) > ?", minCount).
		Scan(&rows).Error
	return rows, err
}

func (r *AuditRepositoryImpl) GroupDataAccessByUser(ctx context.Context, since time.Time, minCount int64) ([]contract.UserActivity, error) {
	var rows []contract.UserActivity
	err := r.db.WithContext(ctx).
		Model(&model.AuditLog{}).
		Select("user_id, COUNT(*) AS count").
		Where("action LIKE ? AND created_at >= ? AND user_id IS NOT NULL", "DATA_ACCESS%", since).
		Group("user_id").
		Having("COUNT(*) > ?", minCount).
		Scan(&rows).Error
	return rows, err
}

func (r *AuditRepositoryImpl) GroupOffHoursByUser(ctx context.Context, since time.Time, dayStartHour, dayEndHour int, minCount int64) ([]contract.UserActivity, error) {
	var rows []contract.UserActivity
	err := r.db.WithContext(ctx).
		Model(&model.AuditLog{}).
		Select("user_id, COUNT(*) AS count").
		Where("created_at >= ? AND user_id IS NOT NULL", since).
		Where("EXTRACT(HOUR FROM created_at) < ? OR EXTRACT(HOUR FROM created_at) >= ?", dayStartHour, dayEndHour).
		Group("user_id").
		Having("COUNT(*) > ?", minCount).
		Scan(&rows).Error
	return rows, err
}

func (r *AuditRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.AuditLog{})
	return result.RowsAffected, result.Error
}
