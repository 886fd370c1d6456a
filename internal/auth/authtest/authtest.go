// Package authtest provides a lightweight stand-in for the JWT middleware so
// handler tests can authenticate with plain headers.
package authtest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/wichananm65/techstore-backend/internal/auth"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderAdmin  = "X-Admin"
)

// Middleware injects a *jwt.Token into locals when X-User-ID is present.
// X-Admin: 1 marks the caller as an administrator.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := c.Get(HeaderUserID); id != "" {
			claims := jwt.MapClaims{"user_id": id, "is_admin": c.Get(HeaderAdmin) == "1"}
			c.Locals(auth.ContextKey, &jwt.Token{Claims: claims, Valid: true})
		}
		return c.Next()
	}
}

// RequireUser mirrors the real middleware's 401 for anonymous callers.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := auth.UserIDFromCtx(c); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		return c.Next()
	}
}
