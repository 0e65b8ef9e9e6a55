package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"member-portal-be/internal/dto"
	"member-portal-be/internal/model"
	"member-portal-be/internal/pkg/logger"
	"member-portal-be/internal/pkg/mailer"
	"member-portal-be/internal/pkg/sms"
	"member-portal-be/internal/repository/specification"
	"member-portal-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const bulkBatchSize = 50

// PushSender delivers a payload to a connected user over the realtime
// channel. Returns false when the user has no open connection.
type PushSender interface {
	Push(userId uuid.UUID, payload interface{}) bool
}

type INotificationService interface {
	// Send writes the in-app row and, when the requested channel matches the
	// user's opt-in, dispatches it. Best-effort: failures land in the result,
	// never in an error.
	Send(ctx context.Context, req *dto.SendNotificationRequest) *dto.SendResult

	SendBulk(ctx context.Context, reqs []*dto.SendNotificationRequest) *dto.BulkSendResult
	SendToRole(ctx context.Context, role string, req *dto.SendNotificationRequest) (*dto.BulkSendResult, error)

	GetUserNotifications(ctx context.Context, userId uuid.UUID, limit, offset int) (*dto.NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userId uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, id, userId uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userId uuid.UUID) error
	DeleteNotification(ctx context.Context, id, userId uuid.UUID) error
}

type notificationService struct {
	uowFactory unitofwork.RepositoryFactory
	mailer     mailer.IEmailService
	smsSender  sms.IProvider
	push       PushSender
	logger     logger.ILogger
}

func NewNotificationService(
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	smsSender sms.IProvider,
	push PushSender,
	log logger.ILogger,
) INotificationService {
	return &notificationService{
		uowFactory: uowFactory,
		mailer:     emailService,
		smsSender:  smsSender,
		push:       push,
		logger:     log,
	}
}

func (s *notificationService) Send(ctx context.Context, req *dto.SendNotificationRequest) *dto.SendResult {
	if req.ScheduledFor != nil {
		if delay := time.Until(*req.ScheduledFor); delay > 0 {
			return s.schedule(req, delay)
		}
	}
	return s.dispatch(ctx, req)
}

// schedule defers the dispatch with a process-local timer. Not durable: a
// restart before the timer fires drops the send.
func (s *notificationService) schedule(req *dto.SendNotificationRequest, delay time.Duration) *dto.SendResult {
	deferred := *req
	deferred.ScheduledFor = nil

	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.dispatch(ctx, &deferred)
	})

	return &dto.SendResult{
		Channel:   s.channelOf(req),
		Scheduled: true,
	}
}

func (s *notificationService) channelOf(req *dto.SendNotificationRequest) string {
	if req.Channel == "" {
		return string(model.ChannelInApp)
	}
	return req.Channel
}

func (s *notificationService) dispatch(ctx context.Context, req *dto.SendNotificationRequest) *dto.SendResult {
	channel := s.channelOf(req)
	result := &dto.SendResult{Channel: channel}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	row := &model.Notification{
		UserId:  req.UserId,
		Type:    req.Type,
		Channel: model.NotificationChannel(channel),
		Title:   req.Title,
		Message: req.Message,
	}
	if req.Data != nil {
		if data, err := json.Marshal(req.Data); err == nil {
			row.Data = datatypes.JSON(data)
		}
	}

	if err := uow.NotificationRepository().Create(ctx, row); err != nil {
		s.logger.Error("NotificationService", "Failed to persist notification", map[string]interface{}{
			"user_id": req.UserId.String(),
			"type":    req.Type,
			"error":   err.Error(),
		})
		result.Degraded = append(result.Degraded, fmt.Sprintf("persist failed: %v", err))
	} else {
		result.NotificationId = &row.Id
	}

	if channel == string(model.ChannelInApp) {
		result.Delivered = result.NotificationId != nil
		return result
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: req.UserId})
	if err != nil || user == nil {
		result.Degraded = append(result.Degraded, "recipient lookup failed")
		return result
	}

	switch channel {
	case string(model.ChannelEmail):
		s.dispatchEmail(ctx, uow, user, req, result)
	case string(model.ChannelSms):
		s.dispatchSms(user, req, result)
	case string(model.ChannelPush):
		s.dispatchPush(user, req, row, result)
	}
	return result
}

func (s *notificationService) dispatchEmail(ctx context.Context, uow unitofwork.UnitOfWork, user *model.User, req *dto.SendNotificationRequest, result *dto.SendResult) {
	if !user.EmailNotifications {
		return
	}

	subject := req.Title
	body := req.Message

	template, err := uow.NotificationRepository().GetActiveTemplateByType(ctx, req.Type)
	if err != nil {
		result.Degraded = append(result.Degraded, "template lookup failed")
	} else if template != nil {
		values := s.templateValues(user, req)
		subject = renderTemplate(template.Subject, values)
		body = renderTemplate(template.HtmlBody, values)
	}

	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		s.logger.Error("NotificationService", "Failed to send email", map[string]interface{}{
			"user_id": user.Id.String(),
			"type":    req.Type,
			"error":   err.Error(),
		})
		result.Degraded = append(result.Degraded, fmt.Sprintf("email failed: %v", err))
		return
	}
	result.Delivered = true
}

func (s *notificationService) dispatchSms(user *model.User, req *dto.SendNotificationRequest, result *dto.SendResult) {
	if !user.SmsNotifications {
		return
	}
	if user.Phone == nil || *user.Phone == "" {
		result.Degraded = append(result.Degraded, "no phone number on file")
		return
	}

	if err := s.smsSender.Send(*user.Phone, req.Message); err != nil {
		s.logger.Error("NotificationService", "Failed to send SMS", map[string]interface{}{
			"user_id": user.Id.String(),
			"error":   err.Error(),
		})
		result.Degraded = append(result.Degraded, fmt.Sprintf("sms failed: %v", err))
		return
	}
	result.Delivered = true
}

func (s *notificationService) dispatchPush(user *model.User, req *dto.SendNotificationRequest, row *model.Notification, result *dto.SendResult) {
	if !user.PushNotifications {
		return
	}
	if s.push == nil {
		result.Degraded = append(result.Degraded, "push channel unavailable")
		return
	}

	payload := map[string]interface{}{
		"type":    req.Type,
		"title":   req.Title,
		"message": req.Message,
		"data":    req.Data,
	}
	if result.NotificationId != nil {
		payload["id"] = result.NotificationId.String()
	}

	result.Delivered = s.push.Push(user.Id, payload)
}

func (s *notificationService) templateValues(user *model.User, req *dto.SendNotificationRequest) map[string]string {
	values := map[string]string{
		"title":    req.Title,
		"message":  req.Message,
		"fullName": user.FullName,
		"email":    user.Email,
	}
	for k, v := range req.Data {
		values[k] = fmt.Sprintf("%v", v)
	}
	return values
}

// renderTemplate replaces every {{name}} placeholder literally. Unknown
// placeholders are left in place.
func renderTemplate(body string, values map[string]string) string {
	for k, v := range values {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body
}

// SendBulk processes requests in batches of 50; each batch settles all its
// sends concurrently before the next batch starts.
func (s *notificationService) SendBulk(ctx context.Context, reqs []*dto.SendNotificationRequest) *dto.BulkSendResult {
	result := &dto.BulkSendResult{Requested: len(reqs)}

	for start := 0; start < len(reqs); start += bulkBatchSize {
		end := start + bulkBatchSize
		if end > len(reqs) {
			end = len(reqs)
		}
		batch := reqs[start:end]

		outcomes := make([]*dto.SendResult, len(batch))
		var wg sync.WaitGroup
		for i, req := range batch {
			wg.Add(1)
			go func(i int, req *dto.SendNotificationRequest) {
				defer wg.Done()
				outcomes[i] = s.Send(ctx, req)
			}(i, req)
		}
		wg.Wait()

		for _, outcome := range outcomes {
			if outcome.NotificationId != nil || outcome.Scheduled {
				result.Sent++
			} else {
				result.Failed++
			}
		}
	}
	return result
}

func (s *notificationService) SendToRole(ctx context.Context, role string, req *dto.SendNotificationRequest) (*dto.BulkSendResult, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	users, err := uow.UserRepository().GetUsersByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	reqs := make([]*dto.SendNotificationRequest, 0, len(users))
	for _, user := range users {
		userReq := *req
		userReq.UserId = user.Id
		reqs = append(reqs, &userReq)
	}
	return s.SendBulk(ctx, reqs), nil
}

func (s *notificationService) GetUserNotifications(ctx context.Context, userId uuid.UUID, limit, offset int) (*dto.NotificationListResponse, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	notifications, total, err := uow.NotificationRepository().FindByUser(ctx, userId, limit, offset)
	if err != nil {
		return nil, err
	}

	return &dto.NotificationListResponse{
		Notifications: notifications,
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userId uuid.UUID) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.NotificationRepository().GetUnreadCount(ctx, userId)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.NotificationRepository().MarkAsRead(ctx, id, userId)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.NotificationRepository().MarkAllAsRead(ctx, userId)
}

func (s *notificationService) DeleteNotification(ctx context.Context, id, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.NotificationRepository().Delete(ctx, id, userId)
}
