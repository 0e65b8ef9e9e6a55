package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog is append-only. Rows are only ever removed by the age-based
// retention cleanup.
type AuditLog struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId     *uuid.UUID     `gorm:"type:uuid;index"`
	Action     string         `gorm:"type:varchar(100);not null;index"`
	Resource   string         `gorm:"type:varchar(100);not null;index"`
	ResourceId *string        `gorm:"type:varchar(100)"`
	OldData    datatypes.JSON `gorm:"type:jsonb"`
	NewData    datatypes.JSON `gorm:"type:jsonb"`
	IpAddress  string         `gorm:"type:varchar(45)"`
	UserAgent  string         `gorm:"type:text"`
	CreatedAt  time.Time      `gorm:"default:now();not null;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
