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

type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) applySpecs(db *gorm.DB, specs []specification.Specification) *gorm.DB {
	for _, s := range specs {
		db = s.Apply(db)
	}
	return db
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepositoryImpl) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *UserRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*model.User, error) {
	var user model.User
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.User, error) {
	var users []*model.User
	db := r.applySpecs(r.db.WithContext(ctx), specs)
	err := db.Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	db := r.applySpecs(r.db.WithContext(ctx).Model(&model.User{}), specs)
	err := db.Count(&count).Error
	return count, err
}

func (r *UserRepositoryImpl) GetUsersByRole(ctx context.Context, role string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role, true).
		Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) UpdateMembership(ctx context.Context, userId uuid.UUID, tier model.MemberType, expiresAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userId).
		Updates(map[string]interface{}{
			"member_type":           tier,
			"membership_expires_at": expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("user not found")
	}
	return nil
}

func (r *UserRepositoryImpl) SetActive(ctx context.Context, userId uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userId).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("user not found")
	}
	return nil
}

func (r *UserRepositoryImpl) FindExpiringBetween(ctx context.Context, start, end time.Time) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND membership_expires_at >= ? AND membership_expires_at < ?", true, start, end).
		Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("is_active = ?", true).
		Count(&count).Error
	return count, err
}

func (r *UserRepositoryImpl) CountByMemberType(ctx context.Context) (map[model.MemberType]int64, error) {
	type row struct {
		MemberType model.MemberType
		Total      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("member_type, COUNT(*) AS total").
		Group("member_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[model.MemberType]int64, len(rows))
	for _, r := range rows {
		result[r.MemberType] = r.Total
	}
	return result, nil
}

func (r *UserRepositoryImpl) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	return count, err
}
