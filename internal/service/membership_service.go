package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"member-portal-be/internal/dto"
	"member-portal-be/internal/model"
	"member-portal-be/internal/pkg/logger"
	"member-portal-be/internal/pkg/payment"
	"member-portal-be/internal/repository/specification"
	"member-portal-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Expiry arithmetic uses fixed 30-day months.
const membershipMonth = 30 * 24 * time.Hour

// Lookahead bands, in days, for expiry reminders. Each band is one day wide
// and produces at most one notification per user.
var expiryWindows = []int{30, 7, 1}

const AdminRole = "admin"

type IMembershipService interface {
	GetMembershipStatus(ctx context.Context, userId uuid.UUID) (*dto.MembershipStatusResponse, error)
	UpgradeMembership(ctx context.Context, req *dto.UpgradeMembershipRequest) (*dto.UpgradeMembershipResponse, error)
	RenewMembership(ctx context.Context, req *dto.RenewMembershipRequest) (*dto.RenewMembershipResponse, error)
	CheckExpiringMemberships(ctx context.Context) (*dto.ExpiryCheckResult, error)
	SuspendMembership(ctx context.Context, userId uuid.UUID, reason string, actorId *uuid.UUID) error
	ReactivateMembership(ctx context.Context, userId uuid.UUID, actorId *uuid.UUID) error
	SubmitFeedback(ctx context.Context, req *dto.SubmitFeedbackRequest) (*dto.FeedbackResponse, error)
	ProcessFeedback(ctx context.Context, feedbackId uuid.UUID, req *dto.ProcessFeedbackRequest, actorId *uuid.UUID) (*dto.FeedbackResponse, error)
	GetMembershipAnalytics(ctx context.Context, start, end time.Time) (*dto.MembershipAnalytics, error)
}

type membershipService struct {
	uowFactory   unitofwork.RepositoryFactory
	tiers        *TierTable
	payments     payment.IPaymentProcessor
	audit        IAuditService
	notification INotificationService
	logger       logger.ILogger
}

func NewMembershipService(
	uowFactory unitofwork.RepositoryFactory,
	tiers *TierTable,
	payments payment.IPaymentProcessor,
	audit IAuditService,
	notification INotificationService,
	log logger.ILogger,
) IMembershipService {
	return &membershipService{
		uowFactory:   uowFactory,
		tiers:        tiers,
		payments:     payments,
		audit:        audit,
		notification: notification,
		logger:       log,
	}
}

func (s *membershipService) GetMembershipStatus(ctx context.Context, userId uuid.UUID) (*dto.MembershipStatusResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	res := &dto.MembershipStatusResponse{
		UserId:              user.Id,
		MemberType:          string(user.MemberType),
		MembershipExpiresAt: user.MembershipExpiresAt,
		IsActive:            user.IsActive,
	}
	if user.MembershipExpiresAt != nil {
		now := time.Now()
		res.IsExpired = user.MembershipExpiresAt.Before(now)
		days := int(math.Ceil(user.MembershipExpiresAt.Sub(now).Hours() / 24))
		res.DaysUntilExpiry = &days
	}
	return res, nil
}

func (s *membershipService) UpgradeMembership(ctx context.Context, req *dto.UpgradeMembershipRequest) (*dto.UpgradeMembershipResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: req.UserId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	target, ok := s.tiers.Lookup(model.MemberType(req.TargetTier))
	if !ok {
		return nil, errors.New("unknown membership tier")
	}
	current, ok := s.tiers.Lookup(user.MemberType)
	if !ok {
		return nil, errors.New("unknown membership tier")
	}
	if target.Ordinal <= current.Ordinal {
		return nil, errors.New("target tier must be higher than current tier")
	}

	amount := s.applyPromo(target.Price, req.PromoCode)

	var paymentId *string
	if amount > 0 {
		charge, err := s.payments.ProcessPayment(ctx, &payment.ChargeRequest{
			UserId:          user.Id,
			Email:           user.Email,
			FullName:        user.FullName,
			Amount:          amount,
			Description:     fmt.Sprintf("Membership upgrade to %s", target.Name),
			PaymentMethodId: req.PaymentMethodId,
		})
		if err != nil {
			return nil, fmt.Errorf("payment failed: %w", err)
		}
		paymentId = &charge.Id
	}

	var expiresAt *time.Time
	if target.DurationMonths > 0 {
		exp := time.Now().Add(time.Duration(target.DurationMonths) * membershipMonth)
		expiresAt = &exp
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.UserRepository().UpdateMembership(ctx, user.Id, target.Name, expiresAt); err != nil {
		uow.Rollback()
		return nil, err
	}
	renewal := &model.MembershipRenewal{
		UserId:     user.Id,
		OldTier:    current.Name,
		NewTier:    target.Name,
		AmountPaid: amount,
		ExpiresAt:  expiresAt,
		PaymentRef: paymentId,
		Status:     model.RenewalStatusCompleted,
	}
	if err := uow.MembershipRepository().CreateRenewal(ctx, renewal); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     &user.Id,
		Action:     "MEMBERSHIP_UPGRADED",
		Resource:   "membership",
		ResourceId: strPtr(user.Id.String()),
		OldData:    map[string]interface{}{"member_type": string(current.Name)},
		NewData:    map[string]interface{}{"member_type": string(target.Name), "amount_paid": amount},
	})
	s.notification.Send(ctx, &dto.SendNotificationRequest{
		UserId:  user.Id,
		Type:    "MEMBERSHIP_UPGRADED",
		Channel: string(model.ChannelEmail),
		Title:   "Membership upgraded",
		Message: fmt.Sprintf("Your membership is now %s.", target.Name),
		Data:    map[string]interface{}{"newTier": string(target.Name)},
	})

	return &dto.UpgradeMembershipResponse{
		OldTier:    string(current.Name),
		NewTier:    string(target.Name),
		ExpiresAt:  expiresAt,
		AmountPaid: amount,
		PaymentId:  paymentId,
	}, nil
}

// applyPromo is the pricing hook for promotional codes. No promo campaigns
// are defined yet, so every code passes through at full price.
func (s *membershipService) applyPromo(price float64, promoCode *string) float64 {
	return price
}

func (s *membershipService) RenewMembership(ctx context.Context, req *dto.RenewMembershipRequest) (*dto.RenewMembershipResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: req.UserId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}

	tier, ok := s.tiers.Lookup(user.MemberType)
	if !ok {
		return nil, errors.New("unknown membership tier")
	}

	months := req.Months
	if months == 0 {
		months = 12
	}

	// Non-expiring tiers carry no term to divide by; fall back to an
	// annual term so the monthly rate is still price/12.
	termMonths := tier.DurationMonths
	if termMonths == 0 {
		termMonths = 12
	}
	monthlyRate := tier.Price / float64(termMonths)
	amount := monthlyRate * float64(months)

	var paymentId *string
	if amount > 0 {
		charge, err := s.payments.ProcessPayment(ctx, &payment.ChargeRequest{
			UserId:          user.Id,
			Email:           user.Email,
			FullName:        user.FullName,
			Amount:          amount,
			Description:     fmt.Sprintf("Membership renewal (%d months)", months),
			PaymentMethodId: req.PaymentMethodId,
		})
		if err != nil {
			return nil, fmt.Errorf("payment failed: %w", err)
		}
		paymentId = &charge.Id
	}

	// Extend from whichever is later: the current expiry or now. Renewing
	// early never loses time already paid for. Non-expiring tiers keep a
	// nil expiry.
	var newExpiry *time.Time
	if tier.DurationMonths > 0 {
		base := time.Now()
		if user.MembershipExpiresAt != nil && user.MembershipExpiresAt.After(base) {
			base = *user.MembershipExpiresAt
		}
		extended := base.Add(time.Duration(months) * membershipMonth)
		newExpiry = &extended
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.UserRepository().UpdateMembership(ctx, user.Id, user.MemberType, newExpiry); err != nil {
		uow.Rollback()
		return nil, err
	}
	renewal := &model.MembershipRenewal{
		UserId:     user.Id,
		OldTier:    user.MemberType,
		NewTier:    user.MemberType,
		AmountPaid: amount,
		ExpiresAt:  newExpiry,
		PaymentRef: paymentId,
		Status:     model.RenewalStatusCompleted,
	}
	if err := uow.MembershipRepository().CreateRenewal(ctx, renewal); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     &user.Id,
		Action:     "MEMBERSHIP_RENEWED",
		Resource:   "membership",
		ResourceId: strPtr(user.Id.String()),
		NewData:    map[string]interface{}{"months": months, "expires_at": newExpiry, "amount_paid": amount},
	})
	renewMessage := "Your membership has been renewed."
	if newExpiry != nil {
		renewMessage = fmt.Sprintf("Your membership has been extended to %s.", newExpiry.Format("January 2, 2006"))
	}
	s.notification.Send(ctx, &dto.SendNotificationRequest{
		UserId:  user.Id,
		Type:    "MEMBERSHIP_RENEWED",
		Channel: string(model.ChannelEmail),
		Title:   "Membership renewed",
		Message: renewMessage,
	})

	return &dto.RenewMembershipResponse{
		MemberType: string(user.MemberType),
		Months:     months,
		ExpiresAt:  newExpiry,
		AmountPaid: amount,
		PaymentId:  paymentId,
	}, nil
}

// CheckExpiringMemberships scans the 30, 7 and 1 day lookahead bands and
// reminds each member at most once per band. Meant to run daily.
func (s *membershipService) CheckExpiringMemberships(ctx context.Context) (*dto.ExpiryCheckResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	result := &dto.ExpiryCheckResult{NotifiedByWindow: make(map[int]int)}
	now := time.Now()

	for _, window := range expiryWindows {
		bandStart := now.Add(time.Duration(window-1) * 24 * time.Hour)
		bandEnd := now.Add(time.Duration(window) * 24 * time.Hour)

		users, err := uow.UserRepository().FindExpiringBetween(ctx, bandStart, bandEnd)
		if err != nil {
			return nil, err
		}

		notifType := fmt.Sprintf("MEMBERSHIP_EXPIRING_%d", window)
		for _, user := range users {
			if !user.IsActive {
				continue
			}

			// Guard against double sends when the job runs more than once a
			// day or a member sits on a band boundary.
			recent, err := uow.NotificationRepository().HasRecentByType(ctx, user.Id, notifType, now.Add(-24*time.Hour))
			if err != nil {
				s.logger.Warn("MembershipService", "Expiry reminder dedup check failed", map[string]interface{}{
					"user_id": user.Id.String(),
					"error":   err.Error(),
				})
				continue
			}
			if recent {
				result.SkippedDuplicates++
				continue
			}

			s.notification.Send(ctx, &dto.SendNotificationRequest{
				UserId:  user.Id,
				Type:    notifType,
				Channel: string(model.ChannelEmail),
				Title:   "Membership expiring soon",
				Message: fmt.Sprintf("Your %s membership expires in %d day(s). Renew now to keep your benefits.", user.MemberType, window),
				Data:    map[string]interface{}{"daysRemaining": window},
			})
			result.NotifiedByWindow[window]++
		}
	}
	return result, nil
}

func (s *membershipService) SuspendMembership(ctx context.Context, userId uuid.UUID, reason string, actorId *uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}
	if !user.IsActive {
		return errors.New("membership already suspended")
	}

	if err := uow.UserRepository().SetActive(ctx, userId, false); err != nil {
		return err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     actorId,
		Action:     "MEMBER_SUSPENDED",
		Resource:   "membership",
		ResourceId: strPtr(userId.String()),
		NewData:    map[string]interface{}{"reason": reason},
	})
	s.notification.Send(ctx, &dto.SendNotificationRequest{
		UserId:  userId,
		Type:    "ACCOUNT_SUSPENDED",
		Channel: string(model.ChannelEmail),
		Title:   "Membership suspended",
		Message: "Your membership has been suspended. Contact support for details.",
	})
	return nil
}

func (s *membershipService) ReactivateMembership(ctx context.Context, userId uuid.UUID, actorId *uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}
	if user.IsActive {
		return errors.New("membership already active")
	}

	if err := uow.UserRepository().SetActive(ctx, userId, true); err != nil {
		return err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     actorId,
		Action:     "MEMBER_REACTIVATED",
		Resource:   "membership",
		ResourceId: strPtr(userId.String()),
	})
	s.notification.Send(ctx, &dto.SendNotificationRequest{
		UserId:  userId,
		Type:    "ACCOUNT_REACTIVATED",
		Channel: string(model.ChannelEmail),
		Title:   "Membership reactivated",
		Message: "Welcome back! Your membership is active again.",
	})
	return nil
}

func (s *membershipService) SubmitFeedback(ctx context.Context, req *dto.SubmitFeedbackRequest) (*dto.FeedbackResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	feedback := &model.MemberFeedback{
		Category: req.Category,
		Message:  req.Message,
		Status:   model.FeedbackStatusNew,
	}
	if !req.Anonymous {
		feedback.UserId = &req.UserId
	}

	if err := uow.MembershipRepository().CreateFeedback(ctx, feedback); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     feedback.UserId,
		Action:     "FEEDBACK_SUBMITTED",
		Resource:   "feedback",
		ResourceId: strPtr(feedback.Id.String()),
		NewData:    map[string]interface{}{"category": req.Category, "anonymous": req.Anonymous},
	})
	if _, err := s.notification.SendToRole(ctx, AdminRole, &dto.SendNotificationRequest{
		Type:    "FEEDBACK_RECEIVED",
		Title:   "New member feedback",
		Message: fmt.Sprintf("New %s feedback received.", req.Category),
		Data:    map[string]interface{}{"feedbackId": feedback.Id.String()},
	}); err != nil {
		s.logger.Warn("MembershipService", "Failed to notify admins about feedback", map[string]interface{}{
			"feedback_id": feedback.Id.String(),
			"error":       err.Error(),
		})
	}

	return feedbackToResponse(feedback), nil
}

func (s *membershipService) ProcessFeedback(ctx context.Context, feedbackId uuid.UUID, req *dto.ProcessFeedbackRequest, actorId *uuid.UUID) (*dto.FeedbackResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	feedback, err := uow.MembershipRepository().FindOneFeedback(ctx, specification.ByID{ID: feedbackId})
	if err != nil {
		return nil, err
	}
	if feedback == nil {
		return nil, errors.New("feedback not found")
	}
	if feedback.Status == model.FeedbackStatusResolved {
		return nil, errors.New("feedback already resolved")
	}

	feedback.Status = model.FeedbackStatus(req.Status)
	if req.AdminNotes != nil {
		feedback.AdminNotes = req.AdminNotes
	}
	if err := uow.MembershipRepository().UpdateFeedback(ctx, feedback); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &dto.AuditEntry{
		UserId:     actorId,
		Action:     "FEEDBACK_PROCESSED",
		Resource:   "feedback",
		ResourceId: strPtr(feedback.Id.String()),
		NewData:    map[string]interface{}{"status": req.Status},
	})
	if feedback.UserId != nil {
		s.notification.Send(ctx, &dto.SendNotificationRequest{
			UserId:  *feedback.UserId,
			Type:    "FEEDBACK_PROCESSED",
			Title:   "Feedback update",
			Message: fmt.Sprintf("Your feedback has been marked %s.", req.Status),
		})
	}

	return feedbackToResponse(feedback), nil
}

func (s *membershipService) GetMembershipAnalytics(ctx context.Context, start, end time.Time) (*dto.MembershipAnalytics, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	users := uow.UserRepository()
	memberships := uow.MembershipRepository()

	total, err := users.Count(ctx)
	if err != nil {
		return nil, err
	}
	active, err := users.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	newMembers, err := users.CountCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	byType, err := users.CountByMemberType(ctx)
	if err != nil {
		return nil, err
	}
	renewals, err := memberships.CountRenewalsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	renewalsByTier, err := memberships.GroupRenewalsByNewTier(ctx, start, end)
	if err != nil {
		return nil, err
	}
	revenue, err := memberships.SumRenewalAmountBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	analytics := &dto.MembershipAnalytics{
		Start:          start,
		End:            end,
		TotalMembers:   total,
		ActiveMembers:  active,
		NewMembers:     newMembers,
		MembersByTier:  make(map[string]int64, len(byType)),
		Renewals:       renewals,
		RenewalsByTier: make(map[string]int64, len(renewalsByTier)),
		Revenue:        revenue,
	}
	for tier, count := range byType {
		analytics.MembersByTier[string(tier)] = count
	}
	for tier, count := range renewalsByTier {
		analytics.RenewalsByTier[string(tier)] = count
	}
	return analytics, nil
}

func feedbackToResponse(feedback *model.MemberFeedback) *dto.FeedbackResponse {
	return &dto.FeedbackResponse{
		Id:        feedback.Id,
		UserId:    feedback.UserId,
		Category:  feedback.Category,
		Status:    string(feedback.Status),
		CreatedAt: feedback.CreatedAt,
	}
}

func strPtr(s string) *string {
	return &s
}
