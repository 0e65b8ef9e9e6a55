package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"member-portal-be/internal/dto"
	"member-portal-be/internal/model"
	"member-portal-be/internal/pkg/logger"
	"member-portal-be/internal/repository/contract"
	"member-portal-be/internal/repository/specification"
	"member-portal-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ReferralTier1 = "TIER_1"
	ReferralTier2 = "TIER_2"
	ReferralTier3 = "TIER_3"
)

const (
	referralCodeLength  = 8
	referralCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeGenerationTries = 10
	payoutMinimumAmount = 25.0
)

var (
	ErrInvalidCode     = errors.New("invalid code")
	ErrCodeAlreadyUsed = errors.New("already used")
)

type IReferralService interface {
	GenerateReferralCode(ctx context.Context, req *dto.GenerateReferralCodeRequest) (*dto.GenerateReferralCodeResponse, error)
	TrackReferral(ctx context.Context, req *dto.TrackReferralRequest) (*dto.TrackReferralResponse, error)
	ProcessReferralSale(ctx context.Context, req *dto.ProcessSaleRequest) (*dto.ProcessSaleResult, error)
	RequestPayout(ctx context.Context, req *dto.RequestPayoutRequest) (*dto.PayoutResponse, error)
	ProcessPayout(ctx context.Context, payoutId, adminUserId uuid.UUID, req *dto.ProcessPayoutRequest) (*dto.PayoutResponse, error)
	GetReferralStats(ctx context.Context, referrerId uuid.UUID) (*dto.ReferralStats, error)
	GetReferralAnalytics(ctx context.Context, start, end time.Time) (*dto.ReferralAnalytics, error)
}

type referralService struct {
	uowFactory   unitofwork.RepositoryFactory
	rules        *CommissionTable
	audit        IAuditService
	notification INotificationService
	logger       logger.ILogger
}

func NewReferralService(
	uowFactory unitofwork.RepositoryFactory,
	rules *CommissionTable,
	audit IAuditService,
	notification INotificationService,
	log logger.ILogger,
) IReferralService {
	return &referralService{
		uowFactory:   uowFactory,
		rules:        rules,
		audit:        audit,
		notification: notification,
		logger:       log,
	}
}

// GenerateReferralCode is idempotent while the referrer has a PENDING code:
// the existing code is returned instead of minting a second one.
func (s *referralService) GenerateReferralCode(ctx context.Context, req *dto.GenerateReferralCodeRequest) (*dto.GenerateReferralCodeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ReferralRepository()

	existing, err := repo.FindOne(ctx,
		specification.ByReferrerID{ReferrerID: req.UserId},
		specification.ByStatus{Status: string(model.ReferralStatusPending)},
	)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.GenerateReferralCodeResponse{
			ReferralId: existing.Id,
			Code:       existing.Code,
			Created:    false,
		}, nil
	}

	var code string
	if req.CustomCode != nil {
		code = strings.ToUpper(*req.CustomCode)
		taken, err := repo.FindOne(ctx, specification.ByCode{Code: code})
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, errors.New("referral code already taken")
		}
	} else {
		code, err = s.generateUniqueCode(ctx, repo)
		if err != nil {
			return nil, err
		}
	}

	referral := &model.Referral{
		ReferrerId: req.UserId,
		Code:       code,
		Status:     model.ReferralStatusPending,
	}
	if err := repo.Create(ctx, referral); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     &req.UserId,
		Action:     "REFERRAL_CODE_GENERATED",
		Resource:   "referral",
		ResourceId: strPtr(referral.Id.String()),
		NewData:    map[string]interface{}{"code": code},
	})

	return &dto.GenerateReferralCodeResponse{
		ReferralId: referral.Id,
		Code:       code,
		Created:    true,
	}, nil
}

func (s *referralService) generateUniqueCode(ctx context.Context, repo contract.ReferralRepository) (string, error) {
	for i := 0; i < codeGenerationTries; i++ {
		code, err := randomCode(referralCodeLength)
		if err != nil {
			return "", err
		}
		existing, err := repo.FindOne(ctx, specification.ByCode{Code: code})
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = referralCodeCharset[int(b)%len(referralCodeCharset)]
	}
	return string(out), nil
}

// TrackReferral confirms a code exactly once. The PENDING->CONFIRMED
// transition is a conditional update, so two concurrent signups on the same
// code can never both win.
func (s *referralService) TrackReferral(ctx context.Context, req *dto.TrackReferralRequest) (*dto.TrackReferralResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ReferralRepository()

	referral, err := repo.FindOne(ctx, specification.ByCode{Code: strings.ToUpper(req.Code)})
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrInvalidCode
	}
	if referral.Status != model.ReferralStatusPending {
		return nil, ErrCodeAlreadyUsed
	}

	now := time.Now()
	updated, err := repo.UpdateWhereStatus(ctx, referral.Id, model.ReferralStatusPending, map[string]interface{}{
		"status":         model.ReferralStatusConfirmed,
		"referred_email": req.Email,
		"confirmed_at":   now,
	})
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrCodeAlreadyUsed
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     &referral.ReferrerId,
		Action:     "REFERRAL_CONFIRMED",
		Resource:   "referral",
		ResourceId: strPtr(referral.Id.String()),
		NewData:    map[string]interface{}{"code": referral.Code},
	})
	s.notification.Send(ctx, &dto.SendNotificationRequest{
		UserId:  referral.ReferrerId,
		Type:    "REFERRAL_CONFIRMED",
		Channel: string(model.ChannelEmail),
		Title:   "Your referral signed up",
		Message: fmt.Sprintf("%s joined using your referral code %s.", maskEmail(req.Email), referral.Code),
	})

	return &dto.TrackReferralResponse{
		ReferralId: referral.Id,
		Status:     string(model.ReferralStatusConfirmed),
	}, nil
}

// maskEmail keeps the first character of the local part: j***@example.com.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func (s *referralService) ProcessReferralSale(ctx context.Context, req *dto.ProcessSaleRequest) (*dto.ProcessSaleResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ReferralRepository()

	referral, err := repo.FindOne(ctx, specification.ByID{ID: req.ReferralId})
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, errors.New("referral not found")
	}
	if referral.Status != model.ReferralStatusConfirmed {
		return nil, errors.New("referral not confirmed")
	}

	tier, err := s.performanceTier(ctx, repo, referral.ReferrerId)
	if err != nil {
		return nil, err
	}
	rule, ok := s.rules.Lookup(tier)
	if !ok {
		return nil, fmt.Errorf("no commission rule for tier %s", tier)
	}

	// Below the rule's minimum the sale is ignored: no state change, no
	// commission, no error.
	if req.SaleAmount < rule.MinimumSale {
		return &dto.ProcessSaleResult{Processed: false, Tier: tier}, nil
	}

	commission := req.SaleAmount*rule.Percentage/100 + rule.FlatAmount

	updated, err := repo.UpdateWhereStatus(ctx, referral.Id, model.ReferralStatusConfirmed, map[string]interface{}{
		"status":     model.ReferralStatusPaid,
		"commission": commission,
	})
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, errors.New("referral already processed")
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     &referral.ReferrerId,
		Action:     "REFERRAL_SALE_PROCESSED",
		Resource:   "referral",
		ResourceId: strPtr(referral.Id.String()),
		NewData: map[string]interface{}{
			"sale_amount": req.SaleAmount,
			"commission":  commission,
			"tier":        tier,
		},
	})
	s.notification.Send(ctx, &dto.SendNotificationRequest{
		UserId:  referral.ReferrerId,
		Type:    "COMMISSION_EARNED",
		Channel: string(model.ChannelEmail),
		Title:   "Commission earned",
		Message: fmt.Sprintf("You earned a $%.2f commission on a referral sale.", commission),
		Data:    map[string]interface{}{"commission": commission, "tier": tier},
	})

	return &dto.ProcessSaleResult{Processed: true, Tier: tier, Commission: commission}, nil
}

// performanceTier resolves the referrer's commission tier from their paid
// referral history: at least 10 sales and $500 earned puts them in TIER_3,
// at least 5 and $200 in TIER_2, everyone else in TIER_1.
func (s *referralService) performanceTier(ctx context.Context, repo contract.ReferralRepository, referrerId uuid.UUID) (string, error) {
	sales, err := repo.CountByReferrerAndStatus(ctx, referrerId, model.ReferralStatusPaid)
	if err != nil {
		return "", err
	}
	earned, err := repo.SumCommissionByReferrerAndStatus(ctx, referrerId, model.ReferralStatusPaid)
	if err != nil {
		return "", err
	}

	switch {
	case sales >= 10 && earned >= 500:
		return ReferralTier3, nil
	case sales >= 5 && earned >= 200:
		return ReferralTier2, nil
	default:
		return ReferralTier1, nil
	}
}

func (s *referralService) RequestPayout(ctx context.Context, req *dto.RequestPayoutRequest) (*dto.PayoutResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ReferralRepository()

	referrals, err := repo.FindAll(ctx, specification.ByIDs{IDs: req.CommissionIds})
	if err != nil {
		return nil, err
	}
	if len(referrals) != len(req.CommissionIds) {
		return nil, errors.New("commission not found")
	}

	var total float64
	ids := make(datatypes.JSONSlice[string], 0, len(referrals))
	for _, referral := range referrals {
		if referral.ReferrerId != req.ReferrerId {
			return nil, errors.New("commission does not belong to referrer")
		}
		if referral.Status != model.ReferralStatusPaid {
			return nil, errors.New("commission not eligible for payout")
		}
		if referral.PaidOutAt != nil {
			return nil, errors.New("commission already paid out")
		}
		if referral.PayoutId != nil {
			return nil, errors.New("commission already in a pending payout")
		}
		total += referral.Commission
		ids = append(ids, referral.Id.String())
	}
	if total < payoutMinimumAmount {
		return nil, fmt.Errorf("payout total $%.2f is below the $%.2f minimum", total, payoutMinimumAmount)
	}

	payout := &model.CommissionPayout{
		Id:            uuid.New(),
		ReferrerId:    req.ReferrerId,
		ReferralIds:   ids,
		TotalAmount:   total,
		PaymentMethod: req.PaymentMethod,
		Status:        model.PayoutStatusPending,
	}
	if req.PaymentDetails != nil {
		if data, err := json.Marshal(req.PaymentDetails); err == nil {
			payout.PaymentDetails = datatypes.JSON(data)
		}
	}

	// Claim the commissions before creating the payout row. A commission
	// stays claimed until the payout is processed, so a second request
	// cannot double-count it while this one is pending.
	reserved, err := repo.ReserveForPayout(ctx, req.CommissionIds, payout.Id)
	if err != nil {
		return nil, err
	}
	if reserved != int64(len(req.CommissionIds)) {
		if relErr := repo.ReleasePayoutReservation(ctx, payout.Id); relErr != nil {
			s.logger.Warn("ReferralService", "Failed to release partial payout reservation", map[string]interface{}{
				"payout_id": payout.Id.String(),
				"error":     relErr.Error(),
			})
		}
		return nil, errors.New("commission already in a pending payout")
	}

	if err := repo.CreatePayout(ctx, payout); err != nil {
		if relErr := repo.ReleasePayoutReservation(ctx, payout.Id); relErr != nil {
			s.logger.Warn("ReferralService", "Failed to release payout reservation", map[string]interface{}{
				"payout_id": payout.Id.String(),
				"error":     relErr.Error(),
			})
		}
		return nil, err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     &req.ReferrerId,
		Action:     "PAYOUT_REQUESTED",
		Resource:   "payout",
		ResourceId: strPtr(payout.Id.String()),
		NewData:    map[string]interface{}{"total_amount": total, "commissions": len(ids)},
	})
	if _, err := s.notification.SendToRole(ctx, AdminRole, &dto.SendNotificationRequest{
		Type:    "PAYOUT_REQUESTED",
		Title:   "Payout request pending",
		Message: fmt.Sprintf("A payout of $%.2f is awaiting review.", total),
		Data:    map[string]interface{}{"payoutId": payout.Id.String()},
	}); err != nil {
		s.logger.Warn("ReferralService", "Failed to notify admins about payout request", map[string]interface{}{
			"payout_id": payout.Id.String(),
			"error":     err.Error(),
		})
	}

	return payoutToResponse(payout), nil
}

func (s *referralService) ProcessPayout(ctx context.Context, payoutId, adminUserId uuid.UUID, req *dto.ProcessPayoutRequest) (*dto.PayoutResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ReferralRepository()

	payout, err := repo.FindOnePayout(ctx, specification.ByID{ID: payoutId})
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, errors.New("payout not found")
	}

	newStatus := model.PayoutStatusRejected
	if req.Approved {
		newStatus = model.PayoutStatusApproved
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       newStatus,
		"processed_by": adminUserId,
		"processed_at": now,
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	updated, err := repo.UpdatePayoutWhereStatus(ctx, payoutId, model.PayoutStatusPending, updates)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, errors.New("payout already processed")
	}

	if req.Approved {
		referralIds := make([]uuid.UUID, 0, len(payout.ReferralIds))
		for _, raw := range payout.ReferralIds {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			referralIds = append(referralIds, id)
		}
		if err := repo.MarkPaidOut(ctx, referralIds, payout.Id, now); err != nil {
			s.logger.Error("ReferralService", "Failed to stamp commissions as paid out", map[string]interface{}{
				"payout_id": payout.Id.String(),
				"error":     err.Error(),
			})
		}

		// External disbursement is not integrated; record the intent only.
		s.logger.Info("ReferralService", "Payout approved, external transfer pending manual processing", map[string]interface{}{
			"payout_id":      payout.Id.String(),
			"referrer_id":    payout.ReferrerId.String(),
			"total_amount":   payout.TotalAmount,
			"payment_method": payout.PaymentMethod,
		})
	} else {
		// Rejected commissions become requestable again.
		if err := repo.ReleasePayoutReservation(ctx, payout.Id); err != nil {
			s.logger.Error("ReferralService", "Failed to release rejected payout reservation", map[string]interface{}{
				"payout_id": payout.Id.String(),
				"error":     err.Error(),
			})
		}
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     &adminUserId,
		Action:     "PAYOUT_PROCESSED",
		Resource:   "payout",
		ResourceId: strPtr(payout.Id.String()),
		OldData:    map[string]interface{}{"status": string(model.PayoutStatusPending)},
		NewData:    map[string]interface{}{"status": string(newStatus)},
	})

	notifTitle := "Payout rejected"
	notifMessage := "Your payout request was rejected. Contact support for details."
	if req.Approved {
		notifTitle = "Payout approved"
		notifMessage = fmt.Sprintf("Your payout of $%.2f has been approved.", payout.TotalAmount)
	}
	s.notification.Send(ctx, &dto.SendNotificationRequest{
		UserId:  payout.ReferrerId,
		Type:    "PAYOUT_PROCESSED",
		Channel: string(model.ChannelEmail),
		Title:   notifTitle,
		Message: notifMessage,
	})

	payout.Status = newStatus
	return payoutToResponse(payout), nil
}

func (s *referralService) GetReferralStats(ctx context.Context, referrerId uuid.UUID) (*dto.ReferralStats, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ReferralRepository()

	total, err := repo.Count(ctx, specification.ByReferrerID{ReferrerID: referrerId})
	if err != nil {
		return nil, err
	}
	pending, err := repo.CountByReferrerAndStatus(ctx, referrerId, model.ReferralStatusPending)
	if err != nil {
		return nil, err
	}
	confirmed, err := repo.CountByReferrerAndStatus(ctx, referrerId, model.ReferralStatusConfirmed)
	if err != nil {
		return nil, err
	}
	paid, err := repo.CountByReferrerAndStatus(ctx, referrerId, model.ReferralStatusPaid)
	if err != nil {
		return nil, err
	}
	earned, err := repo.SumCommissionByReferrerAndStatus(ctx, referrerId, model.ReferralStatusPaid)
	if err != nil {
		return nil, err
	}

	tier, err := s.performanceTier(ctx, repo, referrerId)
	if err != nil {
		return nil, err
	}

	return &dto.ReferralStats{
		ReferrerId:      referrerId,
		TotalReferrals:  total,
		Pending:         pending,
		Confirmed:       confirmed,
		Paid:            paid,
		TotalCommission: earned,
		CurrentTier:     tier,
	}, nil
}

func (s *referralService) GetReferralAnalytics(ctx context.Context, start, end time.Time) (*dto.ReferralAnalytics, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ReferralRepository()

	byStatus, err := repo.GroupByStatusBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	totalCommission, err := repo.SumCommissionBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	analytics := &dto.ReferralAnalytics{
		Start:           start,
		End:             end,
		ByStatus:        make(map[string]int64, len(byStatus)),
		TotalCommission: totalCommission,
	}
	for status, count := range byStatus {
		analytics.ByStatus[string(status)] = count
		analytics.TotalReferrals += count
	}
	return analytics, nil
}

func payoutToResponse(payout *model.CommissionPayout) *dto.PayoutResponse {
	return &dto.PayoutResponse{
		PayoutId:    payout.Id,
		TotalAmount: payout.TotalAmount,
		Status:      string(payout.Status),
		CreatedAt:   payout.CreatedAt,
	}
}
