package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByCode filters referrals by their unique code.
type ByCode struct {
	Code string
}

func (s ByCode) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("code = ?", s.Code)
}

// ByReferrerID filters referrals/payouts by the owning referrer.
type ByReferrerID struct {
	ReferrerID uuid.UUID
}

func (s ByReferrerID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("referrer_id = ?", s.ReferrerID)
}

// ByStatus filters rows by a status column value.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
