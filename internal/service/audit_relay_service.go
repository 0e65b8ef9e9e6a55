package service

import (
	"context"
	"encoding/json"
	"time"

	"member-portal-be/internal/pkg/logger"
	"member-portal-be/pkg/events"
	pkgnats "member-portal-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

// IAuditRelayService drains the in-process critical-audit topic and forwards
// each entry to the external JetStream sink. A sink outage never blocks the
// publisher side; failed forwards are logged and dropped.
type IAuditRelayService interface {
	Start(ctx context.Context) error
}

type auditRelayService struct {
	subscriber message.Subscriber
	sink       *pkgnats.Publisher
	logger     logger.ILogger
}

func NewAuditRelayService(subscriber message.Subscriber, sink *pkgnats.Publisher, log logger.ILogger) IAuditRelayService {
	return &auditRelayService{
		subscriber: subscriber,
		sink:       sink,
		logger:     log,
	}
}

func (s *auditRelayService) Start(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, CriticalAuditTopic)
	if err != nil {
		return err
	}

	go s.run(ctx, messages)
	return nil
}

func (s *auditRelayService) run(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		s.forward(ctx, msg)
		msg.Ack()
	}
}

func (s *auditRelayService) forward(ctx context.Context, msg *message.Message) {
	if s.sink == nil {
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Warn("AuditRelayService", "Dropping malformed critical audit message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	action := msg.Metadata.Get("action")
	if action == "" {
		action = "UNKNOWN"
	}

	event := events.BaseEvent{
		Type:       action,
		Data:       payload,
		OccurredAt: time.Now(),
	}
	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Error("AuditRelayService", "Failed to forward critical audit event", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
	}
}
