package controller

import (
	"member-portal-be/internal/dto"
	"member-portal-be/internal/pkg/serverutils"
	"member-portal-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IReferralController interface {
	RegisterRoutes(r fiber.Router)
	GenerateCode(ctx *fiber.Ctx) error
	Track(ctx *fiber.Ctx) error
	ProcessSale(ctx *fiber.Ctx) error
	RequestPayout(ctx *fiber.Ctx) error
	ProcessPayout(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Analytics(ctx *fiber.Ctx) error
}

type referralController struct {
	referralService service.IReferralService
}

func NewReferralController(referralService service.IReferralService) IReferralController {
	return &referralController{
		referralService: referralService,
	}
}

func (c *referralController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/referral/v1")

	// Track is hit during signup, before the referred user has an account.
	h.Post("track", c.Track)

	auth := h.Group("", serverutils.JwtMiddleware)
	auth.Post("code", c.GenerateCode)
	auth.Post("payout", c.RequestPayout)
	auth.Get("stats", c.Stats)

	admin := auth.Group("", serverutils.RequireRole(service.AdminRole))
	admin.Post("sale", c.ProcessSale)
	admin.Put("payout/:id", c.ProcessPayout)
	admin.Get("analytics", c.Analytics)
}

func (c *referralController) GenerateCode(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.GenerateReferralCodeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.UserId = userId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.referralService.GenerateReferralCode(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success generate referral code", res))
}

func (c *referralController) Track(ctx *fiber.Ctx) error {
	var req dto.TrackReferralRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.referralService.TrackReferral(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success track referral", res))
}

func (c *referralController) ProcessSale(ctx *fiber.Ctx) error {
	var req dto.ProcessSaleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.referralService.ProcessReferralSale(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success process referral sale", res))
}

func (c *referralController) RequestPayout(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	var req dto.RequestPayoutRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.ReferrerId = userId

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.referralService.RequestPayout(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success request payout", res))
}

func (c *referralController) ProcessPayout(ctx *fiber.Ctx) error {
	adminId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}
	payoutId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payout id")
	}

	var req dto.ProcessPayoutRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.referralService.ProcessPayout(ctx.Context(), payoutId, adminId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success process payout", res))
}

func (c *referralController) Stats(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	res, err := c.referralService.GetReferralStats(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get referral stats", res))
}

func (c *referralController) Analytics(ctx *fiber.Ctx) error {
	start, end, err := parseDateRange(ctx)
	if err != nil {
		return err
	}

	res, err := c.referralService.GetReferralAnalytics(ctx.Context(), start, end)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get referral analytics", res))
}
