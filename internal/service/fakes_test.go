package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"member-portal-be/internal/model"
	"member-portal-be/internal/pkg/payment"
	"member-portal-be/internal/repository/contract"
	"member-portal-be/internal/repository/specification"
	"member-portal-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// In-memory repository fakes. Specifications are interpreted by type switch
// on the concrete spec structs the services actually use.

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// --- user repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) add(user *model.User) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	r.users[user.Id] = user
	return user
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.add(user)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Id] = user
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if user, found := r.users[byID.ID]; found {
				copied := *user
				return &copied, nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, user := range r.users {
		copied := *user
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) GetUsersByRole(ctx context.Context, role string) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, user := range r.users {
		if user.Role == role {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateMembership(ctx context.Context, userId uuid.UUID, tier model.MemberType, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, found := r.users[userId]
	if !found {
		return errors.New("user not found")
	}
	user.MemberType = tier
	user.MembershipExpiresAt = expiresAt
	return nil
}

func (r *fakeUserRepo) SetActive(ctx context.Context, userId uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, found := r.users[userId]
	if !found {
		return errors.New("user not found")
	}
	user.IsActive = active
	return nil
}

func (r *fakeUserRepo) FindExpiringBetween(ctx context.Context, start, end time.Time) ([]*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.User
	for _, user := range r.users {
		if user.MembershipExpiresAt == nil {
			continue
		}
		exp := *user.MembershipExpiresAt
		if !exp.Before(start) && exp.Before(end) {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) CountActive(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, user := range r.users {
		if user.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) CountByMemberType(ctx context.Context) (map[model.MemberType]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.MemberType]int64)
	for _, user := range r.users {
		out[user.MemberType]++
	}
	return out, nil
}

func (r *fakeUserRepo) CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, user := range r.users {
		if !user.CreatedAt.Before(start) && user.CreatedAt.Before(end) {
			count++
		}
	}
	return count, nil
}

// --- membership repository ---

type fakeMembershipRepo struct {
	mu       sync.Mutex
	renewals []*model.MembershipRenewal
	feedback map[uuid.UUID]*model.MemberFeedback
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{feedback: make(map[uuid.UUID]*model.MemberFeedback)}
}

func (r *fakeMembershipRepo) CreateRenewal(ctx context.Context, renewal *model.MembershipRenewal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if renewal.Id == uuid.Nil {
		renewal.Id = uuid.New()
	}
	renewal.CreatedAt = time.Now()
	r.renewals = append(r.renewals, renewal)
	return nil
}

func (r *fakeMembershipRepo) FindRenewals(ctx context.Context, specs ...specification.Specification) ([]*model.MembershipRenewal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.MembershipRenewal(nil), r.renewals...), nil
}

func (r *fakeMembershipRepo) FindAllTiers(ctx context.Context) ([]model.MembershipTier, error) {
	return nil, nil
}

func (r *fakeMembershipRepo) CreateFeedback(ctx context.Context, feedback *model.MemberFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if feedback.Id == uuid.Nil {
		feedback.Id = uuid.New()
	}
	feedback.CreatedAt = time.Now()
	r.feedback[feedback.Id] = feedback
	return nil
}

func (r *fakeMembershipRepo) FindOneFeedback(ctx context.Context, specs ...specification.Specification) (*model.MemberFeedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if feedback, found := r.feedback[byID.ID]; found {
				copied := *feedback
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeMembershipRepo) UpdateFeedback(ctx context.Context, feedback *model.MemberFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback[feedback.Id] = feedback
	return nil
}

func (r *fakeMembershipRepo) CountRenewalsBetween(ctx context.Context, start, end time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.renewals)), nil
}

func (r *fakeMembershipRepo) SumRenewalAmountBetween(ctx context.Context, start, end time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, renewal := range r.renewals {
		sum += renewal.AmountPaid
	}
	return sum, nil
}

func (r *fakeMembershipRepo) GroupRenewalsByNewTier(ctx context.Context, start, end time.Time) (map[model.MemberType]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.MemberType]int64)
	for _, renewal := range r.renewals {
		out[renewal.NewTier]++
	}
	return out, nil
}

// --- referral repository ---

type fakeReferralRepo struct {
	mu        sync.Mutex
	referrals map[uuid.UUID]*model.Referral
	payouts   map[uuid.UUID]*model.CommissionPayout
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{
		referrals: make(map[uuid.UUID]*model.Referral),
		payouts:   make(map[uuid.UUID]*model.CommissionPayout),
	}
}

func (r *fakeReferralRepo) add(referral *model.Referral) *model.Referral {
	r.mu.Lock()
	defer r.mu.Unlock()
	if referral.Id == uuid.Nil {
		referral.Id = uuid.New()
	}
	r.referrals[referral.Id] = referral
	return referral
}

func (r *fakeReferralRepo) matches(referral *model.Referral, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if referral.Id != s.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range s.IDs {
				if referral.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.ByCode:
			if referral.Code != s.Code {
				return false
			}
		case specification.ByReferrerID:
			if referral.ReferrerId != s.ReferrerID {
				return false
			}
		case specification.ByStatus:
			if string(referral.Status) != s.Status {
				return false
			}
		}
	}
	return true
}

func (r *fakeReferralRepo) Create(ctx context.Context, referral *model.Referral) error {
	r.add(referral)
	return nil
}

func (r *fakeReferralRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*model.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, referral := range r.referrals {
		if r.matches(referral, specs) {
			copied := *referral
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeReferralRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Referral
	for _, referral := range r.referrals {
		if r.matches(referral, specs) {
			copied := *referral
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReferralRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeReferralRepo) UpdateWhereStatus(ctx context.Context, id uuid.UUID, expected model.ReferralStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	referral, found := r.referrals[id]
	if !found || referral.Status != expected {
		return false, nil
	}
	if status, ok := updates["status"].(model.ReferralStatus); ok {
		referral.Status = status
	}
	if email, ok := updates["referred_email"].(string); ok {
		referral.ReferredEmail = &email
	}
	if confirmedAt, ok := updates["confirmed_at"].(time.Time); ok {
		referral.ConfirmedAt = &confirmedAt
	}
	if commission, ok := updates["commission"].(float64); ok {
		referral.Commission = commission
	}
	return true, nil
}

func (r *fakeReferralRepo) MarkPaidOut(ctx context.Context, ids []uuid.UUID, payoutId uuid.UUID, paidAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if referral, found := r.referrals[id]; found {
			paid := paidAt
			referral.PaidOutAt = &paid
			pid := payoutId
			referral.PayoutId = &pid
		}
	}
	return nil
}

func (r *fakeReferralRepo) ReserveForPayout(ctx context.Context, ids []uuid.UUID, payoutId uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var reserved int64
	for _, id := range ids {
		referral, found := r.referrals[id]
		if !found || referral.Status != model.ReferralStatusPaid || referral.PayoutId != nil {
			continue
		}
		pid := payoutId
		referral.PayoutId = &pid
		reserved++
	}
	return reserved, nil
}

func (r *fakeReferralRepo) ReleasePayoutReservation(ctx context.Context, payoutId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, referral := range r.referrals {
		if referral.PayoutId != nil && *referral.PayoutId == payoutId && referral.PaidOutAt == nil {
			referral.PayoutId = nil
		}
	}
	return nil
}

func (r *fakeReferralRepo) CountByReferrerAndStatus(ctx context.Context, referrerId uuid.UUID, status model.ReferralStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, referral := range r.referrals {
		if referral.ReferrerId == referrerId && referral.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeReferralRepo) SumCommissionByReferrerAndStatus(ctx context.Context, referrerId uuid.UUID, status model.ReferralStatus) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, referral := range r.referrals {
		if referral.ReferrerId == referrerId && referral.Status == status {
			sum += referral.Commission
		}
	}
	return sum, nil
}

func (r *fakeReferralRepo) FindAllCommissionRules(ctx context.Context) ([]model.CommissionRule, error) {
	return nil, nil
}

func (r *fakeReferralRepo) CreatePayout(ctx context.Context, payout *model.CommissionPayout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payout.Id == uuid.Nil {
		payout.Id = uuid.New()
	}
	payout.CreatedAt = time.Now()
	r.payouts[payout.Id] = payout
	return nil
}

func (r *fakeReferralRepo) FindOnePayout(ctx context.Context, specs ...specification.Specification) (*model.CommissionPayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if payout, found := r.payouts[byID.ID]; found {
				copied := *payout
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeReferralRepo) FindPayouts(ctx context.Context, specs ...specification.Specification) ([]*model.CommissionPayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CommissionPayout
	for _, payout := range r.payouts {
		copied := *payout
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeReferralRepo) UpdatePayoutWhereStatus(ctx context.Context, id uuid.UUID, expected model.PayoutStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payout, found := r.payouts[id]
	if !found || payout.Status != expected {
		return false, nil
	}
	if status, ok := updates["status"].(model.PayoutStatus); ok {
		payout.Status = status
	}
	if notes, ok := updates["notes"].(string); ok {
		payout.Notes = &notes
	}
	if processedBy, ok := updates["processed_by"].(uuid.UUID); ok {
		payout.ProcessedBy = &processedBy
	}
	if processedAt, ok := updates["processed_at"].(time.Time); ok {
		payout.ProcessedAt = &processedAt
	}
	return true, nil
}

func (r *fakeReferralRepo) GroupByStatusBetween(ctx context.Context, start, end time.Time) (map[model.ReferralStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.ReferralStatus]int64)
	for _, referral := range r.referrals {
		out[referral.Status]++
	}
	return out, nil
}

func (r *fakeReferralRepo) SumCommissionBetween(ctx context.Context, start, end time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, referral := range r.referrals {
		sum += referral.Commission
	}
	return sum, nil
}

// --- notification repository ---

type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*model.Notification
	templates     map[string]*model.NotificationTemplate
	createErr     error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{templates: make(map[string]*model.NotificationTemplate)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if notification.Id == uuid.Nil {
		notification.Id = uuid.New()
	}
	notification.CreatedAt = time.Now()
	r.notifications = append(r.notifications, notification)
	return nil
}

func (r *fakeNotificationRepo) FindByUser(ctx context.Context, userId uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Notification
	for _, notification := range r.notifications {
		if notification.UserId == userId {
			all = append(all, *notification)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeNotificationRepo) GetUnreadCount(ctx context.Context, userId uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, notification := range r.notifications {
		if notification.UserId == userId && !notification.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAsRead(ctx context.Context, id, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notification := range r.notifications {
		if notification.Id == id && notification.UserId == userId {
			now := time.Now()
			notification.IsRead = true
			notification.ReadAt = &now
			return nil
		}
	}
	return errors.New("notification not found")
}

func (r *fakeNotificationRepo) MarkAllAsRead(ctx context.Context, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, notification := range r.notifications {
		if notification.UserId == userId && !notification.IsRead {
			notification.IsRead = true
			notification.ReadAt = &now
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Delete(ctx context.Context, id, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, notification := range r.notifications {
		if notification.Id == id && notification.UserId == userId {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return errors.New("notification not found")
}

func (r *fakeNotificationRepo) GetActiveTemplateByType(ctx context.Context, notifType string) (*model.NotificationTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	template, found := r.templates[notifType]
	if !found || !template.IsActive {
		return nil, nil
	}
	copied := *template
	return &copied, nil
}

func (r *fakeNotificationRepo) HasRecentByType(ctx context.Context, userId uuid.UUID, notifType string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, notification := range r.notifications {
		if notification.UserId == userId && notification.Type == notifType && notification.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

// --- audit repository ---

type fakeAuditRepo struct {
	mu           sync.Mutex
	logs         []*model.AuditLog
	createErr    error
	failedLogins []contract.IPActivity
	highVolume   []contract.UserActivity
	offHours     []contract.UserActivity
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if entry.Id == uuid.Nil {
		entry.Id = uuid.New()
	}
	r.logs = append(r.logs, entry)
	return nil
}

func (r *fakeAuditRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, offset := -1, 0
	for _, spec := range specs {
		if p, ok := spec.(specification.Pagination); ok {
			limit, offset = p.Limit, p.Offset
		}
	}

	all := append([]*model.AuditLog(nil), r.logs...)
	if limit < 0 {
		return all, nil
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.logs)), nil
}

func (r *fakeAuditRepo) GroupFailedLoginsByIP(ctx context.Context, since time.Time, minCount int64) ([]contract.IPActivity, error) {
	return r.failedLogins, nil
}

func (r *fakeAuditRepo) GroupDataAccessByUser(ctx context.Context, since time.Time, minCount int64) ([]contract.UserActivity, error) {
	return r.highVolume, nil
}

func (r *fakeAuditRepo) GroupOffHoursByUser(ctx context.Context, since time.Time, dayStartHour, dayEndHour int, minCount int64) ([]contract.UserActivity, error) {
	return r.offHours, nil
}

func (r *fakeAuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.AuditLog
	var deleted int64
	for _, entry := range r.logs {
		if entry.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	r.logs = kept
	return deleted, nil
}

// --- unit of work ---

type fakeUow struct {
	users         *fakeUserRepo
	memberships   *fakeMembershipRepo
	referrals     *fakeReferralRepo
	notifications *fakeNotificationRepo
	audits        *fakeAuditRepo
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) UserRepository() contract.UserRepository                 { return u.users }
func (u *fakeUow) MembershipRepository() contract.MembershipRepository     { return u.memberships }
func (u *fakeUow) ReferralRepository() contract.ReferralRepository         { return u.referrals }
func (u *fakeUow) NotificationRepository() contract.NotificationRepository { return u.notifications }
func (u *fakeUow) AuditRepository() contract.AuditRepository               { return u.audits }

type fakeFactory struct {
	uow *fakeUow
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{uow: &fakeUow{
		users:         newFakeUserRepo(),
		memberships:   newFakeMembershipRepo(),
		referrals:     newFakeReferralRepo(),
		notifications: newFakeNotificationRepo(),
		audits:        newFakeAuditRepo(),
	}}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

// --- collaborators ---

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	fail error
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) Send(toEmail, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentEmail{To: toEmail, Subject: subject, Body: htmlBody})
	return nil
}

type fakeSms struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (s *fakeSms) Send(toPhone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, toPhone)
	return nil
}

type fakePush struct {
	mu        sync.Mutex
	pushed    []uuid.UUID
	connected bool
}

func (p *fakePush) Push(userId uuid.UUID, payload interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, userId)
	return p.connected
}

type fakePaymentProcessor struct {
	mu      sync.Mutex
	charges []payment.ChargeRequest
	fail    error
}

func (p *fakePaymentProcessor) ProcessPayment(ctx context.Context, req *payment.ChargeRequest) (*payment.ChargeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return nil, p.fail
	}
	p.charges = append(p.charges, *req)
	return &payment.ChargeResult{Id: "charge-" + uuid.NewString()}, nil
}

type capturedMessage struct {
	Topic   string
	Message *message.Message
}

type fakePublisher struct {
	mu        sync.Mutex
	published []capturedMessage
	fail      error
}

func (p *fakePublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	for _, msg := range messages {
		p.published = append(p.published, capturedMessage{Topic: topic, Message: msg})
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// --- wired test environment ---

type testEnv struct {
	factory   *fakeFactory
	mailer    *fakeMailer
	sms       *fakeSms
	push      *fakePush
	payments  *fakePaymentProcessor
	publisher *fakePublisher

	audit        IAuditService
	notification INotificationService
	membership   IMembershipService
	referral     IReferralService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		factory:   newFakeFactory(),
		mailer:    &fakeMailer{},
		sms:       &fakeSms{},
		push:      &fakePush{},
		payments:  &fakePaymentProcessor{},
		publisher: &fakePublisher{},
	}
	log := nopLogger{}
	env.audit = NewAuditService(env.factory, env.publisher, log)
	env.notification = NewNotificationService(env.factory, env.mailer, env.sms, env.push, log)
	env.membership = NewMembershipService(env.factory, DefaultTierTable(), env.payments, env.audit, env.notification, log)
	env.referral = NewReferralService(env.factory, DefaultCommissionTable(), env.audit, env.notification, log)
	return env
}

func (e *testEnv) addUser(memberType model.MemberType) *model.User {
	id := uuid.New()
	return e.factory.uow.users.add(&model.User{
		Id:                 id,
		Email:              id.String()[:8] + "@example.com",
		FullName:           "Test Member",
		Role:               "member",
		MemberType:         memberType,
		EmailNotifications: true,
		PushNotifications:  true,
		IsActive:           true,
		CreatedAt:          time.Now(),
	})
}

func byIDSpec(id uuid.UUID) specification.Specification {
	return specification.ByID{ID: id}
}

// auditActions returns the actions persisted so far, in insert order.
func (e *testEnv) auditActions() []string {
	repo := e.factory.uow.audits
	repo.mu.Lock()
	defer repo.mu.Unlock()
	actions := make([]string, 0, len(repo.logs))
	for _, entry := range repo.logs {
		actions = append(actions, entry.Action)
	}
	return actions
}
