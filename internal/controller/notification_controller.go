package controller

import (
	"os"

	"member-portal-be/internal/dto"
	"member-portal-be/internal/pkg/logger"
	"member-portal-be/internal/pkg/serverutils"
	"member-portal-be/internal/service"
	internalWS "member-portal-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type INotificationController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	UnreadCount(ctx *fiber.Ctx) error
	MarkAsRead(ctx *fiber.Ctx) error
	MarkAllAsRead(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	SendToRole(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type notificationController struct {
	notificationService service.INotificationService
	hub                 *internalWS.Hub
	logger              logger.ILogger
}

func NewNotificationController(notificationService service.INotificationService, hub *internalWS.Hub, log logger.ILogger) INotificationController {
	return &notificationController{
		notificationService: notificationService,
		hub:                 hub,
		logger:              log,
	}
}

func (c *notificationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/notification/v1")

	// Websocket handshake carries the token itself, no middleware here.
	h.Get("ws", c.ServeWs)

	auth := h.Group("", serverutils.JwtMiddleware)
	auth.Get("", c.List)
	auth.Get("unread-count", c.UnreadCount)
	auth.Put("read-all", c.MarkAllAsRead)
	auth.Put(":id/read", c.MarkAsRead)
	auth.Delete(":id", c.Delete)

	admin := auth.Group("", serverutils.RequireRole(service.AdminRole))
	admin.Post("send", c.Send)
	admin.Post("broadcast", c.SendToRole)
}

func (c *notificationController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.notificationService.GetUserNotifications(ctx.Context(), userId, limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get notifications", res))
}

func (c *notificationController) UnreadCount(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	count, err := c.notificationService.GetUnreadCount(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get unread count", fiber.Map{"count": count}))
}

func (c *notificationController) MarkAsRead(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid notification id")
	}

	if err := c.notificationService.MarkAsRead(ctx.Context(), id, userId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success mark notification as read", nil))
}

func (c *notificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}

	if err := c.notificationService.MarkAllAsRead(ctx.Context(), userId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success mark all notifications as read", nil))
}

func (c *notificationController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserIDFromCtx(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid notification id")
	}

	if err := c.notificationService.DeleteNotification(ctx.Context(), id, userId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success delete notification", nil))
}

func (c *notificationController) Send(ctx *fiber.Ctx) error {
	var req dto.SendNotificationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res := c.notificationService.Send(ctx.Context(), &req)
	return ctx.JSON(serverutils.SuccessResponse("Success send notification", res))
}

func (c *notificationController) SendToRole(ctx *fiber.Ctx) error {
	var body struct {
		Role string `json:"role" validate:"required"`
		dto.SendNotificationRequest
	}
	if err := ctx.BodyParser(&body); err != nil {
		return err
	}
	if body.Role == "" || body.Type == "" || body.Title == "" || body.Message == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "role, type, title and message are required")
	}

	res, err := c.notificationService.SendToRole(ctx.Context(), body.Role, &body.SendNotificationRequest)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success broadcast notification", res))
}

// ServeWs authenticates the handshake (token query param or Authorization
// header) and upgrades to the push channel.
func (c *notificationController) ServeWs(ctx *fiber.Ctx) error {
	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
	}

	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			c.logger.Info("NotificationController", "WebSocket session started", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(c.hub, conn, userID)
			c.logger.Info("NotificationController", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
