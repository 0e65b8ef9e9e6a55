package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"member-portal-be/internal/dto"
	"member-portal-be/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReferralCodeIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)

	first, err := env.referral.GenerateReferralCode(ctx, &dto.GenerateReferralCodeRequest{UserId: referrer.Id})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Len(t, first.Code, referralCodeLength)
	for _, c := range first.Code {
		assert.Contains(t, referralCodeCharset, string(c))
	}

	// While a PENDING code exists, asking again returns it.
	second, err := env.referral.GenerateReferralCode(ctx, &dto.GenerateReferralCodeRequest{UserId: referrer.Id})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.ReferralId, second.ReferralId)
}

func TestGenerateReferralCodeCustom(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)

	custom := "partner22"
	res, err := env.referral.GenerateReferralCode(ctx, &dto.GenerateReferralCodeRequest{
		UserId:     referrer.Id,
		CustomCode: &custom,
	})
	require.NoError(t, err)
	assert.Equal(t, "PARTNER22", res.Code)

	// Same code from another referrer collides.
	other := env.addUser(model.MemberTypePremium)
	_, err = env.referral.GenerateReferralCode(ctx, &dto.GenerateReferralCodeRequest{
		UserId:     other.Id,
		CustomCode: &custom,
	})
	require.Error(t, err)
	assert.Equal(t, "referral code already taken", err.Error())
}

func TestTrackReferral(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)

	generated, err := env.referral.GenerateReferralCode(ctx, &dto.GenerateReferralCodeRequest{UserId: referrer.Id})
	require.NoError(t, err)

	// Codes match case-insensitively.
	res, err := env.referral.TrackReferral(ctx, &dto.TrackReferralRequest{
		Code:  strings.ToLower(generated.Code),
		Email: "john@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.ReferralStatusConfirmed), res.Status)

	stored := env.factory.uow.referrals.referrals[generated.ReferralId]
	require.NotNil(t, stored.ReferredEmail)
	assert.Equal(t, "john@example.com", *stored.ReferredEmail)
	assert.NotNil(t, stored.ConfirmedAt)

	// The referrer's email mentions the masked signup address only.
	require.Len(t, env.mailer.sent, 1)
	assert.Contains(t, env.mailer.sent[0].Body, "j***@example.com")
	assert.NotContains(t, env.mailer.sent[0].Body, "john@example.com")

	// Confirming twice loses.
	_, err = env.referral.TrackReferral(ctx, &dto.TrackReferralRequest{
		Code:  generated.Code,
		Email: "jane@example.com",
	})
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)

	_, err = env.referral.TrackReferral(ctx, &dto.TrackReferralRequest{
		Code:  "NOSUCH00",
		Email: "jane@example.com",
	})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"john@example.com", "j***@example.com"},
		{"a@b.co", "a***@b.co"},
		{"@example.com", "***"},
		{"not-an-email", "***"},
		{"", "***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskEmail(tt.email), tt.email)
	}
}

func confirmedReferral(env *testEnv, referrerId uuid.UUID) *model.Referral {
	now := time.Now()
	email := "buyer@example.com"
	return env.factory.uow.referrals.add(&model.Referral{
		ReferrerId:    referrerId,
		Code:          fmt.Sprintf("CODE%04d", len(env.factory.uow.referrals.referrals)),
		ReferredEmail: &email,
		Status:        model.ReferralStatusConfirmed,
		ConfirmedAt:   &now,
	})
}

func paidReferral(env *testEnv, referrerId uuid.UUID, commission float64) *model.Referral {
	referral := confirmedReferral(env, referrerId)
	referral.Status = model.ReferralStatusPaid
	referral.Commission = commission
	return referral
}

func TestProcessReferralSaleBelowMinimum(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)
	referral := confirmedReferral(env, referrer.Id)

	// TIER_1 requires a $50 sale; $40 is silently ignored.
	res, err := env.referral.ProcessReferralSale(ctx, &dto.ProcessSaleRequest{
		ReferralId:  referral.Id,
		SaleAmount:  40,
		ProductType: "membership",
	})
	require.NoError(t, err)
	assert.False(t, res.Processed)
	assert.Equal(t, ReferralTier1, res.Tier)
	assert.Zero(t, res.Commission)

	stored := env.factory.uow.referrals.referrals[referral.Id]
	assert.Equal(t, model.ReferralStatusConfirmed, stored.Status)
	assert.Zero(t, stored.Commission)
	assert.NotContains(t, env.auditActions(), "REFERRAL_SALE_PROCESSED")
}

func TestProcessReferralSaleCommission(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)
	referral := confirmedReferral(env, referrer.Id)

	// TIER_1: 5% of $1000, no flat amount.
	res, err := env.referral.ProcessReferralSale(ctx, &dto.ProcessSaleRequest{
		ReferralId:  referral.Id,
		SaleAmount:  1000,
		ProductType: "membership",
	})
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.InDelta(t, 50.0, res.Commission, 0.001)

	stored := env.factory.uow.referrals.referrals[referral.Id]
	assert.Equal(t, model.ReferralStatusPaid, stored.Status)
	assert.InDelta(t, 50.0, stored.Commission, 0.001)
	assert.Contains(t, env.auditActions(), "REFERRAL_SALE_PROCESSED")

	// Processing the same referral twice is rejected.
	_, err = env.referral.ProcessReferralSale(ctx, &dto.ProcessSaleRequest{
		ReferralId:  referral.Id,
		SaleAmount:  1000,
		ProductType: "membership",
	})
	require.Error(t, err)
	assert.Equal(t, "referral not confirmed", err.Error())
}

func TestProcessReferralSaleTierRates(t *testing.T) {
	tests := []struct {
		name           string
		paidSales      int
		commissionEach float64
		saleAmount     float64
		wantTier       string
		wantCommission float64
	}{
		{
			name:           "tier 1 default",
			saleAmount:     200,
			wantTier:       ReferralTier1,
			wantCommission: 10, // 5%
		},
		{
			name:           "tier 2 at five sales and 200 earned",
			paidSales:      5,
			commissionEach: 40,
			saleAmount:     200,
			wantTier:       ReferralTier2,
			wantCommission: 25, // 7.5% + $10
		},
		{
			name:           "tier 3 at ten sales and 500 earned",
			paidSales:      10,
			commissionEach: 50,
			saleAmount:     200,
			wantTier:       ReferralTier3,
			wantCommission: 45, // 10% + $25
		},
		{
			name:           "high sales but low earnings stays tier 2",
			paidSales:      12,
			commissionEach: 20,
			saleAmount:     200,
			wantTier:       ReferralTier2,
			wantCommission: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			referrer := env.addUser(model.MemberTypePremium)
			for i := 0; i < tt.paidSales; i++ {
				paidReferral(env, referrer.Id, tt.commissionEach)
			}
			referral := confirmedReferral(env, referrer.Id)

			res, err := env.referral.ProcessReferralSale(context.Background(), &dto.ProcessSaleRequest{
				ReferralId:  referral.Id,
				SaleAmount:  tt.saleAmount,
				ProductType: "membership",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTier, res.Tier)
			assert.InDelta(t, tt.wantCommission, res.Commission, 0.001)
		})
	}
}

func TestRequestPayoutMinimum(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)

	under := paidReferral(env, referrer.Id, 24.99)
	_, err := env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
		ReferrerId:    referrer.Id,
		CommissionIds: []uuid.UUID{under.Id},
		PaymentMethod: "ach",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the $25.00 minimum")

	exact := paidReferral(env, referrer.Id, 25.00)
	res, err := env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
		ReferrerId:    referrer.Id,
		CommissionIds: []uuid.UUID{exact.Id},
		PaymentMethod: "ach",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.PayoutStatusPending), res.Status)
	assert.InDelta(t, 25.0, res.TotalAmount, 0.001)
}

func TestRequestPayoutEligibility(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)
	other := env.addUser(model.MemberTypePremium)

	tests := []struct {
		name    string
		setup   func() uuid.UUID
		wantErr string
	}{
		{
			name:    "unknown commission",
			setup:   func() uuid.UUID { return uuid.New() },
			wantErr: "commission not found",
		},
		{
			name:    "someone else's commission",
			setup:   func() uuid.UUID { return paidReferral(env, other.Id, 100).Id },
			wantErr: "commission does not belong to referrer",
		},
		{
			name:    "not yet earned",
			setup:   func() uuid.UUID { return confirmedReferral(env, referrer.Id).Id },
			wantErr: "commission not eligible for payout",
		},
		{
			name: "already reserved by a pending payout",
			setup: func() uuid.UUID {
				referral := paidReferral(env, referrer.Id, 100)
				payoutId := uuid.New()
				referral.PayoutId = &payoutId
				return referral.Id
			},
			wantErr: "commission already in a pending payout",
		},
		{
			name: "already disbursed",
			setup: func() uuid.UUID {
				referral := paidReferral(env, referrer.Id, 100)
				payoutId := uuid.New()
				now := time.Now()
				referral.PayoutId = &payoutId
				referral.PaidOutAt = &now
				return referral.Id
			},
			wantErr: "commission already paid out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
				ReferrerId:    referrer.Id,
				CommissionIds: []uuid.UUID{tt.setup()},
				PaymentMethod: "ach",
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestProcessPayoutForwardOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)
	admin := env.addUser(model.MemberTypeRegular)
	admin.Role = AdminRole

	referral := paidReferral(env, referrer.Id, 100)
	requested, err := env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
		ReferrerId:    referrer.Id,
		CommissionIds: []uuid.UUID{referral.Id},
		PaymentMethod: "ach",
	})
	require.NoError(t, err)

	res, err := env.referral.ProcessPayout(ctx, requested.PayoutId, admin.Id, &dto.ProcessPayoutRequest{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, string(model.PayoutStatusApproved), res.Status)

	// Approval stamps the underlying commissions.
	stored := env.factory.uow.referrals.referrals[referral.Id]
	require.NotNil(t, stored.PayoutId)
	assert.Equal(t, requested.PayoutId, *stored.PayoutId)
	assert.NotNil(t, stored.PaidOutAt)

	// A processed payout can never flip again.
	_, err = env.referral.ProcessPayout(ctx, requested.PayoutId, admin.Id, &dto.ProcessPayoutRequest{Approved: false})
	require.Error(t, err)
	assert.Equal(t, "payout already processed", err.Error())
}

func TestProcessPayoutRejection(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)
	admin := env.addUser(model.MemberTypeRegular)
	admin.Role = AdminRole

	referral := paidReferral(env, referrer.Id, 100)
	requested, err := env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
		ReferrerId:    referrer.Id,
		CommissionIds: []uuid.UUID{referral.Id},
		PaymentMethod: "ach",
	})
	require.NoError(t, err)

	notes := "bank details missing"
	res, err := env.referral.ProcessPayout(ctx, requested.PayoutId, admin.Id, &dto.ProcessPayoutRequest{
		Approved: false,
		Notes:    &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.PayoutStatusRejected), res.Status)

	// Rejection releases the reservation so the commission can be
	// requested again.
	stored := env.factory.uow.referrals.referrals[referral.Id]
	assert.Nil(t, stored.PayoutId)
	assert.Nil(t, stored.PaidOutAt)

	again, err := env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
		ReferrerId:    referrer.Id,
		CommissionIds: []uuid.UUID{referral.Id},
		PaymentMethod: "ach",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.PayoutStatusPending), again.Status)
}

func TestRequestPayoutReservesCommissions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)

	referral := paidReferral(env, referrer.Id, 100)
	requested, err := env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
		ReferrerId:    referrer.Id,
		CommissionIds: []uuid.UUID{referral.Id},
		PaymentMethod: "ach",
	})
	require.NoError(t, err)

	// The commission is claimed while the payout is pending.
	stored := env.factory.uow.referrals.referrals[referral.Id]
	require.NotNil(t, stored.PayoutId)
	assert.Equal(t, requested.PayoutId, *stored.PayoutId)
	assert.Nil(t, stored.PaidOutAt)

	// A second request cannot include the same commission.
	_, err = env.referral.RequestPayout(ctx, &dto.RequestPayoutRequest{
		ReferrerId:    referrer.Id,
		CommissionIds: []uuid.UUID{referral.Id},
		PaymentMethod: "ach",
	})
	require.Error(t, err)
	assert.Equal(t, "commission already in a pending payout", err.Error())
}

func TestGetReferralStats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	referrer := env.addUser(model.MemberTypePremium)

	env.factory.uow.referrals.add(&model.Referral{ReferrerId: referrer.Id, Code: "PEND0001", Status: model.ReferralStatusPending})
	confirmedReferral(env, referrer.Id)
	paidReferral(env, referrer.Id, 60)
	paidReferral(env, referrer.Id, 40)

	stats, err := env.referral.GetReferralStats(ctx, referrer.Id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalReferrals)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Confirmed)
	assert.Equal(t, int64(2), stats.Paid)
	assert.InDelta(t, 100.0, stats.TotalCommission, 0.001)
	assert.Equal(t, ReferralTier1, stats.CurrentTier)
}
