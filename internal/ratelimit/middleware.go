package ratelimit

import (
	"github.com/gofiber/fiber/v2"
)

// KeyFunc derives the rate-limit key from the request.
type KeyFunc func(c *fiber.Ctx) string

// ByIP keys the limiter on the client address.
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}

// ByUser keys the limiter on the authenticated user, falling back to IP for
// anonymous requests.
func ByUser(c *fiber.Ctx) string {
	if userId, ok := c.Locals("user_id").(string); ok && userId != "" {
		return "user:" + userId
	}
	return ByIP(c)
}

// Middleware rejects requests over the limit with 429.
func Middleware(limiter Limiter, keyFn KeyFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow(keyFn(c)) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, try again later",
			})
		}
		return c.Next()
	}
}
