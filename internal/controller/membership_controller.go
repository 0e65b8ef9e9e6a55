package controller

import (
	"time"

	"member-portal-be/internal/dto"
	"member-portal-be/internal/pkg/serverutils"
	"member-portal-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IMembershipController interface {
	RegisterRoutes(r fiber.Router)
	Status(ctx *fiber.Ctx) error
	Upgrade(ctx *fiber.Ctx) error
	Renew(ctx *fiber.Ctx) error
	CheckExpiring(ctx *fiber.Ctx) error
	Suspend(ctx *fiber.Ctx) error
	Reactivate(ctx *fiber.Ctx) error
	SubmitFeedback(ctx *fiber.Ctx) error
	ProcessFeedback(ctx *fiber.Ctx) error
	Analytics(ctx *fiber.Ctx) error
}

type membershipController struct {
	membershipService service.IMembershipService
}

func NewMembershipController(membershipService service.IMembershipService) IMembershipController {
	return &membershipController{
		membershipService: membershipService,
	}
}

func (c *membershipController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/membership/v1")
	h.Use(serverutils.JwtMiddleware)

	h.Get("status", c.Status)
	h.Post("upgrade", c.Upgrade)
	h.Post("renew", c.Renew)
	h.Post("feedback", c.SubmitFeedback)

	admin := h.Group("", serverutils.RequireRole(service.AdminRole))
	admin.Post("check-expiring", c.CheckExpiring)
	admin.Post(":id/suspend", c.Suspend)
	admin.Post(":id/reactivate", c.Reactivate)
	admin.Put("feedback/:id", c.ProcessFeedback)
	admin.Get("analytics", c.Analytics)
}

func (c *membershipController) Status(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	res, err := c.membershipService.GetMembershipStatus(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get membership status", res))
}

func (c *membershipController) Upgrade(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.UpgradeMembershipRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.UserId = userId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.membershipService.UpgradeMembership(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success upgrade membership", res))
}

func (c *membershipController) Renew(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.RenewMembershipRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.UserId = userId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.membershipService.RenewMembership(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success renew membership", res))
}

func (c *membershipController) CheckExpiring(ctx *fiber.Ctx) error {
	res, err := c.membershipService.CheckExpiringMemberships(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success check expiring memberships", res))
}

func (c *membershipController) Suspend(ctx *fiber.Ctx) error {
	actorId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}
	targetId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	ctx.BodyParser(&body)

	if err := c.membershipService.SuspendMembership(ctx.Context(), targetId, body.Reason, &actorId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success suspend membership", nil))
}

func (c *membershipController) Reactivate(ctx *fiber.Ctx) error {
	actorId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}
	targetId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	if err := c.membershipService.ReactivateMembership(ctx.Context(), targetId, &actorId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success reactivate membership", nil))
}

func (c *membershipController) SubmitFeedback(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.SubmitFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.UserId = userId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.membershipService.SubmitFeedback(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success submit feedback", res))
}

func (c *membershipController) ProcessFeedback(ctx *fiber.Ctx) error {
	actorId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}
	feedbackId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid feedback id")
	}

	var req dto.ProcessFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.membershipService.ProcessFeedback(ctx.Context(), feedbackId, &req, &actorId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success process feedback", res))
}

func (c *membershipController) Analytics(ctx *fiber.Ctx) error {
	start, end, err := parseDateRange(ctx)
	if err != nil {
		return err
	}

	res, err := c.membershipService.GetMembershipAnalytics(ctx.Context(), start, end)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get membership analytics", res))
}

// parseDateRange reads start/end query params (RFC3339 or YYYY-MM-DD),
// defaulting to the trailing 30 days.
func parseDateRange(ctx *fiber.Ctx) (time.Time, time.Time, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if raw := ctx.Query("start"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return start, end, fiber.NewError(fiber.StatusBadRequest, "invalid start date")
		}
		start = parsed
	}
	if raw := ctx.Query("end"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return start, end, fiber.NewError(fiber.StatusBadRequest, "invalid end date")
		}
		end = parsed
	}
	return start, end, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
