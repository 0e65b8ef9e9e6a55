package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "IN_APP"
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSms   NotificationChannel = "SMS"
	ChannelPush  NotificationChannel = "PUSH"
)

// Notification stores the per-user in-app message history. A row is written
// for every send, independent of whether email/SMS/push also fired.
type Notification struct {
	Id           uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID           `gorm:"type:uuid;not null;index:idx_notifications_user_created,priority:1;index:idx_notifications_user_unread,priority:1"`
	Type         string              `gorm:"type:varchar(50);not null;index"`
	Channel      NotificationChannel `gorm:"type:varchar(10);not null;default:'IN_APP'"`
	Title        string              `gorm:"type:varchar(200);not null"`
	Message      string              `gorm:"type:text;not null"`
	Data         datatypes.JSON      `gorm:"type:jsonb"`
	IsRead       bool                `gorm:"default:false;index:idx_notifications_user_unread,priority:2"`
	ReadAt       *time.Time          ``
	ScheduledFor *time.Time          ``
	CreatedAt    time.Time           `gorm:"default:CURRENT_TIMESTAMP;index:idx_notifications_user_created,priority:2"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationTemplate holds the HTML email body for a notification type.
// Placeholders use {{name}} syntax and are replaced literally.
type NotificationTemplate struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Type      string    `gorm:"type:varchar(50);unique;not null"`
	Subject   string    `gorm:"type:varchar(200);not null"`
	HtmlBody  string    `gorm:"type:text;not null"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

func (NotificationTemplate) TableName() string {
	return "notification_templates"
}
