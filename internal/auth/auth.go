package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"
)

// ContextKey is where the JWT middleware stores the parsed *jwt.Token.
const ContextKey = "user"

// CookieName is the http-only cookie carrying the session token.
const CookieName = "token"

// Claims is the identity carried by a session token.
type Claims struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// IssueToken signs an HS256 token for the given identity.
func IssueToken(secret []byte, ttl time.Duration, cl Claims) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  cl.UserID,
		"email":    cl.Email,
		"is_admin": cl.IsAdmin,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Middleware validates the bearer token or the session cookie.
func Middleware(secret []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  secret,
		ContextKey:  ContextKey,
		TokenLookup: "header:Authorization,cookie:" + CookieName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	})
}

// AdminCheck reports whether userID is an administrator right now. Deleted
// users report false with a nil error.
type AdminCheck func(ctx context.Context, userID string) (bool, error)

// RequireAdmin rejects authenticated callers that are not administrators.
// With a non-nil check the is_admin claim must still hold for the stored
// account, so demoted or deleted admins lose access before their token ends.
func RequireAdmin(check AdminCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := UserIDFromCtx(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		if !IsAdminFromCtx(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "admin access required"})
		}
		if check != nil {
			ok, err := check(c.UserContext(), id)
			if err != nil {
				return err
			}
			if !ok {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "admin access required"})
			}
		}
		return c.Next()
	}
}

func mapClaims(c *fiber.Ctx) (jwt.MapClaims, bool) {
	tok, ok := c.Locals(ContextKey).(*jwt.Token)
	if !ok || tok == nil {
		return nil, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	return claims, ok
}

// UserIDFromCtx extracts the user_id claim from the token stored in locals.
func UserIDFromCtx(c *fiber.Ctx) (string, error) {
	claims, ok := mapClaims(c)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	switch v := claims["user_id"].(type) {
	case string:
		if v == "" {
			return "", fiber.ErrUnauthorized
		}
		return v, nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", fiber.ErrUnauthorized
	}
}

// IsAdminFromCtx reports whether the token carries the is_admin claim.
func IsAdminFromCtx(c *fiber.Ctx) bool {
	claims, ok := mapClaims(c)
	if !ok {
		return false
	}
	admin, _ := claims["is_admin"].(bool)
	return admin
}

// SetTokenCookie stores the session token in an http-only cookie.
func SetTokenCookie(c *fiber.Ctx, token string, ttl time.Duration, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearTokenCookie expires the session cookie.
func ClearTokenCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
