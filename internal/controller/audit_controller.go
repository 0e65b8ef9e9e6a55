package controller

import (
	"member-portal-be/internal/dto"
	"member-portal-be/internal/pkg/serverutils"
	"member-portal-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAuditController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
	Suspicious(ctx *fiber.Ctx) error
	Cleanup(ctx *fiber.Ctx) error
}

type auditController struct {
	auditService service.IAuditService
}

func NewAuditController(auditService service.IAuditService) IAuditController {
	return &auditController{
		auditService: auditService,
	}
}

func (c *auditController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/audit/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Use(serverutils.RequireRole(service.AdminRole))

	h.Get("logs", c.List)
	h.Get("export", c.Export)
	h.Get("suspicious", c.Suspicious)
	h.Delete("cleanup", c.Cleanup)
}

func (c *auditController) buildQuery(ctx *fiber.Ctx) (*dto.AuditLogQuery, error) {
	q := &dto.AuditLogQuery{
		Action:     ctx.Query("action"),
		Resource:   ctx.Query("resource"),
		ResourceId: ctx.Query("resource_id"),
		Page:       ctx.QueryInt("page", 1),
		Limit:      ctx.QueryInt("limit", 50),
	}

	if raw := ctx.Query("user_id"); raw != "" {
		userId, err := uuid.Parse(raw)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid user id")
		}
		q.UserId = &userId
	}
	if raw := ctx.Query("start"); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid start date")
		}
		q.StartDate = &start
	}
	if raw := ctx.Query("end"); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid end date")
		}
		q.EndDate = &end
	}
	return q, nil
}

func (c *auditController) List(ctx *fiber.Ctx) error {
	q, err := c.buildQuery(ctx)
	if err != nil {
		return err
	}

	res, err := c.auditService.GetAuditLogs(ctx.Context(), q)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get audit logs", res))
}

func (c *auditController) Export(ctx *fiber.Ctx) error {
	q, err := c.buildQuery(ctx)
	if err != nil {
		return err
	}
	format := ctx.Query("format", "csv")

	data, err := c.auditService.ExportAuditLogs(ctx.Context(), q, format)
	if err != nil {
		return err
	}

	contentType := "text/csv"
	filename := "audit-logs.csv"
	if format == "json" {
		contentType = "application/json"
		filename = "audit-logs.json"
	}
	ctx.Set("Content-Type", contentType)
	ctx.Set("Content-Disposition", "attachment; filename="+filename)
	return ctx.Send(data)
}

func (c *auditController) Suspicious(ctx *fiber.Ctx) error {
	res, err := c.auditService.DetectSuspiciousActivity(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success detect suspicious activity", res))
}

func (c *auditController) Cleanup(ctx *fiber.Ctx) error {
	retentionDays := ctx.QueryInt("retention_days", service.DefaultRetentionDays)

	deleted, err := c.auditService.CleanupOldLogs(ctx.Context(), retentionDays)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success cleanup audit logs", fiber.Map{"deleted": deleted}))
}
