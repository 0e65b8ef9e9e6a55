package dto

import (
	"time"

	"member-portal-be/internal/model"

	"github.com/google/uuid"
)

type AuditEntry struct {
	UserId     *uuid.UUID             `json:"user_id,omitempty"`
	Action     string                 `json:"action" validate:"required"`
	Resource   string                 `json:"resource" validate:"required"`
	ResourceId *string                `json:"resource_id,omitempty"`
	OldData    map[string]interface{} `json:"old_data,omitempty"`
	NewData    map[string]interface{} `json:"new_data,omitempty"`
	IpAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
}

// LogResult is the best-effort outcome of an audit write. A failed write
// never propagates to the caller; the reason lands in Degraded.
type LogResult struct {
	Logged   bool     `json:"logged"`
	Critical bool     `json:"critical"`
	Degraded []string `json:"degraded,omitempty"`
}

type AuditLogQuery struct {
	UserId     *uuid.UUID `json:"user_id,omitempty"`
	Action     string     `json:"action,omitempty"` // substring match
	Resource   string     `json:"resource,omitempty"`
	ResourceId string     `json:"resource_id,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}

type AuditLogPage struct {
	Logs  []*model.AuditLog `json:"logs"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type SuspiciousIP struct {
	IpAddress string `json:"ip_address"`
	Count     int64  `json:"count"`
}

type SuspiciousUser struct {
	UserId uuid.UUID `json:"user_id"`
	Count  int64     `json:"count"`
}

type SuspiciousActivityReport struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	WindowStart     time.Time        `json:"window_start"`
	FailedLoginIPs  []SuspiciousIP   `json:"failed_login_ips"`
	HighVolumeUsers []SuspiciousUser `json:"high_volume_users"`
	OffHoursUsers   []SuspiciousUser `json:"off_hours_users"`
}
