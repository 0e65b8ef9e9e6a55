package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "PENDING"
	ReferralStatusConfirmed ReferralStatus = "CONFIRMED"
	ReferralStatusPaid      ReferralStatus = "PAID"
)

// Referral is one row per generated code. Status only ever moves forward:
// PENDING -> CONFIRMED -> PAID. Commission starts at 0 and is set exactly
// once when the sale is processed.
type Referral struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReferrerId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Code          string         `gorm:"type:varchar(32);uniqueIndex;not null"`
	ReferredEmail *string        `gorm:"type:varchar(255)"`
	Status        ReferralStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Commission    float64        `gorm:"not null;default:0"`
	ConfirmedAt   *time.Time     ``
	PaidOutAt     *time.Time     `` // stamped when a payout containing this commission is approved
	PayoutId      *uuid.UUID     `gorm:"type:uuid;index"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
}

func (Referral) TableName() string {
	return "referrals"
}

// CommissionRule is a seeded config row keyed by performance tier, loaded
// into an immutable rule table at startup.
type CommissionRule struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	Tier        string    `gorm:"type:varchar(20);unique;not null"` // TIER_1, TIER_2, TIER_3
	Percentage  float64   `gorm:"not null"`
	FlatAmount  float64   `gorm:"not null;default:0"`
	MinimumSale float64   `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (CommissionRule) TableName() string {
	return "commission_rules"
}

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "PENDING"
	PayoutStatusApproved PayoutStatus = "APPROVED"
	PayoutStatusRejected PayoutStatus = "REJECTED"
)

// CommissionPayout batches a set of referral commissions requested by a
// referrer. Commissions are stamped paid only when the payout is approved.
type CommissionPayout struct {
	Id             uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReferrerId     uuid.UUID                   `gorm:"type:uuid;not null;index"`
	ReferralIds    datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	TotalAmount    float64                     `gorm:"not null"`
	PaymentMethod  string                      `gorm:"type:varchar(50);not null"`
	PaymentDetails datatypes.JSON              `gorm:"type:jsonb"`
	Status         PayoutStatus                `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Notes          *string                     `gorm:"type:text"`
	ProcessedBy    *uuid.UUID                  `gorm:"type:uuid"`
	ProcessedAt    *time.Time                  ``
	CreatedAt      time.Time                   `gorm:"autoCreateTime"`
}

func (CommissionPayout) TableName() string {
	return "commission_payouts"
}
