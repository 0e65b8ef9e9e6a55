package dto

import (
	"time"

	"github.com/google/uuid"
)

type MembershipStatusResponse struct {
	UserId              uuid.UUID  `json:"user_id"`
	MemberType          string     `json:"member_type"`
	MembershipExpiresAt *time.Time `json:"membership_expires_at,omitempty"`
	IsActive            bool       `json:"is_active"`
	IsExpired           bool       `json:"is_expired"`
	DaysUntilExpiry     *int       `json:"days_until_expiry,omitempty"`
}

type UpgradeMembershipRequest struct {
	UserId          uuid.UUID `json:"user_id" validate:"required"`
	TargetTier      string    `json:"target_tier" validate:"required"`
	PromoCode       *string   `json:"promo_code,omitempty"`
	PaymentMethodId *string   `json:"payment_method_id,omitempty"`
}

type UpgradeMembershipResponse struct {
	OldTier    string     `json:"old_tier"`
	NewTier    string     `json:"new_tier"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	AmountPaid float64    `json:"amount_paid"`
	PaymentId  *string    `json:"payment_id,omitempty"`
}

type RenewMembershipRequest struct {
	UserId          uuid.UUID `json:"user_id" validate:"required"`
	Months          int       `json:"months" validate:"omitempty,min=1,max=60"`
	PaymentMethodId *string   `json:"payment_method_id,omitempty"`
	AutoRenew       bool      `json:"auto_renew"`
}

type RenewMembershipResponse struct {
	MemberType string     `json:"member_type"`
	Months     int        `json:"months"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	AmountPaid float64    `json:"amount_paid"`
	PaymentId  *string    `json:"payment_id,omitempty"`
}

// ExpiryCheckResult reports, per lookahead window in days, how many members
// were notified.
type ExpiryCheckResult struct {
	NotifiedByWindow  map[int]int `json:"notified_by_window"`
	SkippedDuplicates int         `json:"skipped_duplicates"`
}

type SubmitFeedbackRequest struct {
	UserId    uuid.UUID `json:"user_id" validate:"required"`
	Category  string    `json:"category" validate:"required"`
	Message   string    `json:"message" validate:"required"`
	Anonymous bool      `json:"anonymous"`
}

type FeedbackResponse struct {
	Id        uuid.UUID  `json:"id"`
	UserId    *uuid.UUID `json:"user_id,omitempty"`
	Category  string     `json:"category"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type ProcessFeedbackRequest struct {
	Status     string  `json:"status" validate:"required,oneof=REVIEWED RESOLVED"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

type MembershipAnalytics struct {
	Start          time.Time        `json:"start"`
	End            time.Time        `json:"end"`
	TotalMembers   int64            `json:"total_members"`
	ActiveMembers  int64            `json:"active_members"`
	NewMembers     int64            `json:"new_members"`
	MembersByTier  map[string]int64 `json:"members_by_tier"`
	Renewals       int64            `json:"renewals"`
	RenewalsByTier map[string]int64 `json:"renewals_by_tier"`
	Revenue        float64          `json:"revenue"`
}
