package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberType string

const (
	MemberTypeRegular  MemberType = "REGULAR"
	MemberTypePremium  MemberType = "PREMIUM"
	MemberTypeLifetime MemberType = "LIFETIME"
	MemberTypeHonorary MemberType = "HONORARY"
)

type User struct {
	Id                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email               string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName            string         `gorm:"type:varchar(255);not null"`
	Phone               *string        `gorm:"type:varchar(30)"`
	Role                string         `gorm:"type:varchar(50);not null;default:'member'"`
	MemberType          MemberType     `gorm:"type:varchar(20);not null;default:'REGULAR';index"`
	MembershipExpiresAt *time.Time     `gorm:"index"` // nil = non-expiring
	EmailNotifications  bool           `gorm:"default:true"`
	SmsNotifications    bool           `gorm:"default:false"`
	PushNotifications   bool           `gorm:"default:true"`
	IsActive            bool           `gorm:"default:true;index"`
	CreatedAt           time.Time      `gorm:"autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime"`
	DeletedAt           gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
