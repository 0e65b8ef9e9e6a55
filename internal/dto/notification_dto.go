package dto

import (
	"time"

	"member-portal-be/internal/model"

	"github.com/google/uuid"
)

type SendNotificationRequest struct {
	UserId       uuid.UUID              `json:"user_id" validate:"required"`
	Type         string                 `json:"type" validate:"required"`
	Channel      string                 `json:"channel" validate:"omitempty,oneof=IN_APP EMAIL SMS PUSH"`
	Title        string                 `json:"title" validate:"required"`
	Message      string                 `json:"message" validate:"required"`
	Data         map[string]interface{} `json:"data,omitempty"`
	ScheduledFor *time.Time             `json:"scheduled_for,omitempty"`
}

// SendResult is the explicit best-effort outcome of a send. A send never
// fails the calling operation; anything that went wrong on the way out is
// recorded in Degraded instead.
type SendResult struct {
	NotificationId *uuid.UUID `json:"notification_id,omitempty"`
	Channel        string     `json:"channel"`
	Delivered      bool       `json:"delivered"` // external channel actually dispatched
	Scheduled      bool       `json:"scheduled"` // deferred by ScheduledFor
	Degraded       []string   `json:"degraded,omitempty"`
}

type BulkSendResult struct {
	Requested int `json:"requested"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

type NotificationListResponse struct {
	Notifications []model.Notification `json:"notifications"`
	Total         int64                `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}
