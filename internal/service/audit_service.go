package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"member-portal-be/internal/dto"
	"member-portal-be/internal/model"
	"member-portal-be/internal/pkg/logger"
	"member-portal-be/internal/repository/specification"
	"member-portal-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/datatypes"
)

// CriticalAuditTopic carries critical audit entries on the in-process bus;
// the relay service forwards them to the external sink.
const CriticalAuditTopic = "audit.critical"

const (
	suspiciousWindow            = 24 * time.Hour
	failedLoginThreshold  int64 = 10
	dataAccessThreshold   int64 = 100
	offHoursThreshold     int64 = 20
	businessHoursStart          = 6
	businessHoursEnd            = 22
	exportBatchSize             = 100
	DefaultRetentionDays        = 365
)

// sensitiveFields are redacted (case-insensitive, recursive) from audit
// payloads before they are written anywhere.
var sensitiveFields = map[string]struct{}{
	"password":             {},
	"twofactorsecret":      {},
	"resettoken":           {},
	"socialsecuritynumber": {},
	"bankaccount":          {},
	"creditcard":           {},
}

// criticalActions are additionally forwarded to the external audit sink.
var criticalActions = map[string]struct{}{
	"USER_DELETED":         {},
	"ADMIN_ACCESS_GRANTED": {},
	"ADMIN_ACCESS_REVOKED": {},
	"PAYMENT_REFUNDED":     {},
	"DATA_EXPORTED":        {},
	"SECURITY_BREACH":      {},
	"BULK_DELETE":          {},
}

type IAuditService interface {
	// Log is best-effort: it never returns an error, so an audit miss can
	// never abort the business operation that triggered it.
	Log(ctx context.Context, entry *dto.AuditEntry) *dto.LogResult

	GetAuditLogs(ctx context.Context, q *dto.AuditLogQuery) (*dto.AuditLogPage, error)
	ExportAuditLogs(ctx context.Context, q *dto.AuditLogQuery, format string) ([]byte, error)
	DetectSuspiciousActivity(ctx context.Context) (*dto.SuspiciousActivityReport, error)
	CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error)
}

type auditService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  message.Publisher
	logger     logger.ILogger
}

func NewAuditService(uowFactory unitofwork.RepositoryFactory, publisher message.Publisher, log logger.ILogger) IAuditService {
	return &auditService{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     log,
	}
}

func (s *auditService) Log(ctx context.Context, entry *dto.AuditEntry) *dto.LogResult {
	result := &dto.LogResult{}
	_, result.Critical = criticalActions[entry.Action]

	row := &model.AuditLog{
		UserId:     entry.UserId,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceId: entry.ResourceId,
		IpAddress:  entry.IpAddress,
		UserAgent:  entry.UserAgent,
		CreatedAt:  time.Now(),
	}

	redactedOld := RedactSensitive(entry.OldData)
	redactedNew := RedactSensitive(entry.NewData)

	if redactedOld != nil {
		if data, err := json.Marshal(redactedOld); err == nil {
			row.OldData = datatypes.JSON(data)
		}
	}
	if redactedNew != nil {
		if data, err := json.Marshal(redactedNew); err == nil {
			row.NewData = datatypes.JSON(data)
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AuditRepository().Create(ctx, row); err != nil {
		s.logger.Error("AuditService", "Failed to persist audit entry", map[string]interface{}{
			"action": entry.Action,
			"error":  err.Error(),
		})
		result.Degraded = append(result.Degraded, fmt.Sprintf("persist failed: %v", err))
	} else {
		result.Logged = true
	}

	if result.Critical {
		s.forwardCritical(entry, redactedOld, redactedNew, result)
	}

	return result
}

func (s *auditService) forwardCritical(entry *dto.AuditEntry, oldData, newData map[string]interface{}, result *dto.LogResult) {
	if s.publisher == nil {
		result.Degraded = append(result.Degraded, "critical sink unavailable")
		return
	}

	payload := map[string]interface{}{
		"action":      entry.Action,
		"resource":    entry.Resource,
		"resource_id": entry.ResourceId,
		"ip_address":  entry.IpAddress,
		"old_data":    oldData,
		"new_data":    newData,
		"occurred_at": time.Now(),
	}
	if entry.UserId != nil {
		payload["user_id"] = entry.UserId.String()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		result.Degraded = append(result.Degraded, fmt.Sprintf("critical marshal failed: %v", err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("action", entry.Action)

	if err := s.publisher.Publish(CriticalAuditTopic, msg); err != nil {
		s.logger.Error("AuditService", "Failed to forward critical audit entry", map[string]interface{}{
			"action": entry.Action,
			"error":  err.Error(),
		})
		result.Degraded = append(result.Degraded, fmt.Sprintf("critical forward failed: %v", err))
	}
}

// RedactSensitive returns a deep copy of data with every sensitive field
// replaced by "[REDACTED]", matching keys case-insensitively at any depth.
func RedactSensitive(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}

	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, sensitive := sensitiveFields[strings.ToLower(k)]; sensitive {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		return RedactSensitive(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}

func (s *auditService) buildSpecs(q *dto.AuditLogQuery) []specification.Specification {
	var specs []specification.Specification
	if q.UserId != nil {
		specs = append(specs, specification.ByActorID{UserID: *q.UserId})
	}
	if q.Action != "" {
		specs = append(specs, specification.ActionContains{Action: q.Action})
	}
	if q.Resource != "" {
		specs = append(specs, specification.ByResource{Resource: q.Resource})
	}
	if q.ResourceId != "" {
		specs = append(specs, specification.ByResourceID{ResourceID: q.ResourceId})
	}
	if q.StartDate != nil || q.EndDate != nil {
		start := time.Time{}
		end := time.Now().AddDate(100, 0, 0)
		if q.StartDate != nil {
			start = *q.StartDate
		}
		if q.EndDate != nil {
			end = *q.EndDate
		}
		specs = append(specs, specification.CreatedBetween{Start: start, End: end})
	}
	return specs
}

func (s *auditService) GetAuditLogs(ctx context.Context, q *dto.AuditLogQuery) (*dto.AuditLogPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 500 {
		q.Limit = 50
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.AuditRepository()
	specs := s.buildSpecs(q)

	total, err := repo.Count(ctx, specs...)
	if err != nil {
		return nil, err
	}

	pageSpecs := append(specs, specification.Pagination{
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	})
	logs, err := repo.FindAll(ctx, pageSpecs...)
	if err != nil {
		return nil, err
	}

	return &dto.AuditLogPage{
		Logs:  logs,
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
	}, nil
}

// ExportAuditLogs streams matching rows in batches of 100 and renders them
// as CSV or JSON.
func (s *auditService) ExportAuditLogs(ctx context.Context, q *dto.AuditLogQuery, format string) ([]byte, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.AuditRepository()
	specs := s.buildSpecs(q)

	var all []*model.AuditLog
	for offset := 0; ; offset += exportBatchSize {
		batchSpecs := append(specs, specification.Pagination{Limit: exportBatchSize, Offset: offset})
		batch, err := repo.FindAll(ctx, batchSpecs...)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < exportBatchSize {
			break
		}
	}

	switch strings.ToLower(format) {
	case "json":
		return json.Marshal(all)
	case "csv", "":
		return renderCSV(all)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func renderCSV(logs []*model.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "user_id", "action", "resource", "resource_id", "ip_address", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, entry := range logs {
		userId := ""
		if entry.UserId != nil {
			userId = entry.UserId.String()
		}
		resourceId := ""
		if entry.ResourceId != nil {
			resourceId = *entry.ResourceId
		}
		record := []string{
			entry.Id.String(),
			userId,
			entry.Action,
			entry.Resource,
			resourceId,
			entry.IpAddress,
			entry.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *auditService) DetectSuspiciousActivity(ctx context.Context) (*dto.SuspiciousActivityReport, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.AuditRepository()

	now := time.Now()
	since := now.Add(-suspiciousWindow)

	failedLogins, err := repo.GroupFailedLoginsByIP(ctx, since, failedLoginThreshold)
	if err != nil {
		return nil, err
	}

	highVolume, err := repo.GroupDataAccessByUser(ctx, since, dataAccessThreshold)
	if err != nil {
		return nil, err
	}

	offHours, err := repo.GroupOffHoursByUser(ctx, since, businessHoursStart, businessHoursEnd, offHoursThreshold)
	if err != nil {
		return nil, err
	}

	report := &dto.SuspiciousActivityReport{
		GeneratedAt: now,
		WindowStart: since,
	}
	for _, row := range failedLogins {
		report.FailedLoginIPs = append(report.FailedLoginIPs, dto.SuspiciousIP{IpAddress: row.IpAddress, Count: row.Count})
	}
	for _, row := range highVolume {
		report.HighVolumeUsers = append(report.HighVolumeUsers, dto.SuspiciousUser{UserId: row.UserId, Count: row.Count})
	}
	for _, row := range offHours {
		report.OffHoursUsers = append(report.OffHoursUsers, dto.SuspiciousUser{UserId: row.UserId, Count: row.Count})
	}
	return report, nil
}

func (s *auditService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	uow := s.uowFactory.NewUnitOfWork(ctx)

	deleted, err := uow.AuditRepository().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.logger.Info("AuditService", "Audit retention cleanup completed", map[string]interface{}{
		"deleted":        deleted,
		"retention_days": strconv.Itoa(retentionDays),
	})
	return deleted, nil
}
