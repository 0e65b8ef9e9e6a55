package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActionContains matches audit actions by substring, case-insensitive.
type ActionContains struct {
	Action string
}

func (s ActionContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("action ILIKE ?", "%"+s.Action+"%")
}

// ByResource filters audit rows by resource name.
type ByResource struct {
	Resource string
}

func (s ByResource) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("resource = ?", s.Resource)
}

// ByResourceID filters audit rows by resource id.
type ByResourceID struct {
	ResourceID string
}

func (s ByResourceID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("resource_id = ?", s.ResourceID)
}

// ByActorID filters audit rows by acting user.
type ByActorID struct {
	UserID uuid.UUID
}

func (s ByActorID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
