package dto

import (
	"time"

	"github.com/google/uuid"
)

type GenerateReferralCodeRequest struct {
	UserId     uuid.UUID `json:"user_id" validate:"required"`
	CustomCode *string   `json:"custom_code,omitempty" validate:"omitempty,alphanum,min=4,max=32"`
}

type GenerateReferralCodeResponse struct {
	ReferralId uuid.UUID `json:"referral_id"`
	Code       string    `json:"code"`
	Created    bool      `json:"created"`
}

type TrackReferralRequest struct {
	Code  string `json:"code" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type TrackReferralResponse struct {
	ReferralId uuid.UUID `json:"referral_id"`
	Status     string    `json:"status"`
}

type ProcessSaleRequest struct {
	ReferralId  uuid.UUID `json:"referral_id" validate:"required"`
	SaleAmount  float64   `json:"sale_amount" validate:"required,gt=0"`
	ProductType string    `json:"product_type" validate:"required"`
}

// ProcessSaleResult distinguishes a computed commission from the silent
// no-op taken when the sale is below the rule's minimum.
type ProcessSaleResult struct {
	Processed  bool    `json:"processed"`
	Tier       string  `json:"tier"`
	Commission float64 `json:"commission"`
}

type RequestPayoutRequest struct {
	ReferrerId     uuid.UUID              `json:"referrer_id" validate:"required"`
	CommissionIds  []uuid.UUID            `json:"commission_ids" validate:"required,min=1"`
	PaymentMethod  string                 `json:"payment_method" validate:"required"`
	PaymentDetails map[string]interface{} `json:"payment_details,omitempty"`
}

type PayoutResponse struct {
	PayoutId    uuid.UUID `json:"payout_id"`
	TotalAmount float64   `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProcessPayoutRequest struct {
	Approved bool    `json:"approved"`
	Notes    *string `json:"notes,omitempty"`
}

type ReferralStats struct {
	ReferrerId       uuid.UUID `json:"referrer_id"`
	TotalReferrals   int64     `json:"total_referrals"`
	Pending          int64     `json:"pending"`
	Confirmed        int64     `json:"confirmed"`
	Paid             int64     `json:"paid"`
	TotalCommission  float64   `json:"total_commission"`
	CurrentTier      string    `json:"current_tier"`
}

type ReferralAnalytics struct {
	Start           time.Time        `json:"start"`
	End             time.Time        `json:"end"`
	ByStatus        map[string]int64 `json:"by_status"`
	TotalReferrals  int64            `json:"total_referrals"`
	TotalCommission float64          `json:"total_commission"`
}
