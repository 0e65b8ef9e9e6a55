package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MembershipTier is a seeded, read-mostly config row. Rows are loaded once at
// startup into an immutable tier table; services never read this table per
// request.
type MembershipTier struct {
	ID             uint                        `gorm:"primaryKey;autoIncrement"`
	Name           MemberType                  `gorm:"type:varchar(20);unique;not null"`
	Ordinal        int                         `gorm:"not null"`
	Price          float64                     `gorm:"not null;default:0"`
	DurationMonths int                         `gorm:"not null;default:12"` // 0 = non-expiring
	Benefits       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt      time.Time                   `gorm:"default:CURRENT_TIMESTAMP"`
}

func (MembershipTier) TableName() string {
	return "membership_tiers"
}

type RenewalStatus string

const (
	RenewalStatusCompleted RenewalStatus = "COMPLETED"
)

// MembershipRenewal is an immutable historical record of a tier transition.
// Created once per upgrade or renewal, never mutated afterwards.
type MembershipRenewal struct {
	Id         uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     uuid.UUID     `gorm:"type:uuid;not null;index"`
	OldTier    MemberType    `gorm:"type:varchar(20);not null"`
	NewTier    MemberType    `gorm:"type:varchar(20);not null"`
	AmountPaid float64       `gorm:"not null"`
	ExpiresAt  *time.Time    ``
	PaymentRef *string       `gorm:"type:varchar(100)"`
	Status     RenewalStatus `gorm:"type:varchar(20);not null;default:'COMPLETED'"`
	CreatedAt  time.Time     `gorm:"autoCreateTime;index"`
}

func (MembershipRenewal) TableName() string {
	return "membership_renewals"
}

type FeedbackStatus string

const (
	FeedbackStatusNew      FeedbackStatus = "NEW"
	FeedbackStatusReviewed FeedbackStatus = "REVIEWED"
	FeedbackStatusResolved FeedbackStatus = "RESOLVED"
)

type MemberFeedback struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     *uuid.UUID     `gorm:"type:uuid;index"` // nil when submitted anonymously
	Category   string         `gorm:"type:varchar(50);not null"`
	Message    string         `gorm:"type:text;not null"`
	Status     FeedbackStatus `gorm:"type:varchar(20);not null;default:'NEW'"`
	AdminNotes *string        `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (MemberFeedback) TableName() string {
	return "member_feedback"
}
