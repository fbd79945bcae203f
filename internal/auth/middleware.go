package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"post-webhook/internal/api"
	"post-webhook/internal/content"
)

// AuthMiddleware validates the bearer token and sets the UserContext on the request.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return api.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return api.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return api.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("user", &content.UserContext{
			ID:    claims.Subject,
			Roles: claims.Roles,
		})

		return c.Next()
	}
}

// RequireCapability rejects users whose roles do not grant capability.
func RequireCapability(capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return api.UnauthorizedError("Missing auth token")
		}
		if !user.Can(capability) {
			return api.ForbiddenError("You don't have permission.")
		}
		return c.Next()
	}
}

// GetUser extracts the UserContext from a Fiber context.
func GetUser(c *fiber.Ctx) *content.UserContext {
	user, _ := c.Locals("user").(*content.UserContext)
	return user
}
