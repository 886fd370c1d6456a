package user

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/techstore-backend/internal/auth"
)

// TokenConfig controls how session tokens are issued.
type TokenConfig struct {
	Secret       []byte
	TTL          time.Duration
	SecureCookie bool
}

type Handler struct {
	service *Service
	tokens  TokenConfig
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type adminCreateRequest struct {
	RegisterInput
	IsAdmin bool `json:"isAdmin"`
}

func NewHandler(service *Service, tokens TokenConfig) *Handler {
	return &Handler{service: service, tokens: tokens}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/auth/me", h.me)
	r.Patch("/auth/me", h.updateMe)
	r.Post("/auth/change-password", h.changePassword)
}

func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/users", h.listUsers)
	r.Post("/users", h.createUser)
	r.Get("/users/:id", h.getUser)
	r.Put("/users/:id", h.updateUser)
	r.Delete("/users/:id", h.deleteUser)
}

func (h *Handler) issue(c *fiber.Ctx, u User) (string, error) {
	token, err := auth.IssueToken(h.tokens.Secret, h.tokens.TTL, auth.Claims{
		UserID:  u.ID,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	})
	if err != nil {
		return "", err
	}
	auth.SetTokenCookie(c, token, h.tokens.TTL, h.tokens.SecureCookie)
	return token, nil
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(RegisterInput)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if ves := payload.Validate(); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing or invalid fields", "errors": ves})
	}

	created, err := h.service.Register(c.UserContext(), *payload)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Email already exists"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to register"})
	}

	token, err := h.issue(c, created)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": created, "token": token})
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(loginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if payload.Email == "" || payload.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Email and password are required"})
	}

	u, err := h.service.Authenticate(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to login"})
	}

	token, err := h.issue(c, u)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    u,
		"token":   token,
	})
}

func (h *Handler) logout(c *fiber.Ctx) error {
	auth.ClearTokenCookie(c, h.tokens.SecureCookie)
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handler) me(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	u, err := h.service.Get(c.UserContext(), userID)
	if err != nil {
		return userError(c, err)
	}
	return c.JSON(u)
}

// updateMe lets a customer edit their own profile. Admin flag and password
// go through dedicated paths.
func (h *Handler) updateMe(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	patch := new(Patch)
	if err := c.BodyParser(patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	patch.IsAdmin = nil
	patch.Password = nil

	updated, ves, err := h.service.Update(c.UserContext(), userID, *patch)
	if err != nil {
		return userError(c, err)
	}
	if len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	return c.JSON(updated)
}

func (h *Handler) changePassword(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(changePasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if payload.CurrentPassword == "" || payload.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "currentPassword and newPassword are required"})
	}

	u, err := h.service.ChangePassword(c.UserContext(), userID, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		return userError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated", "user": u})
}

func (h *Handler) listUsers(c *fiber.Ctx) error {
	users, err := h.service.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to fetch users"})
	}
	return c.JSON(users)
}

func (h *Handler) getUser(c *fiber.Ctx) error {
	u, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return userError(c, err)
	}
	return c.JSON(u)
}

func (h *Handler) createUser(c *fiber.Ctx) error {
	payload := new(adminCreateRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if ves := payload.RegisterInput.Validate(); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}

	created, err := h.service.Create(c.UserContext(), payload.RegisterInput, payload.IsAdmin)
	if err != nil {
		return userError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateUser(c *fiber.Ctx) error {
	patch := new(Patch)
	if err := c.BodyParser(patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}

	updated, ves, err := h.service.Update(c.UserContext(), c.Params("id"), *patch)
	if err != nil {
		return userError(c, err)
	}
	if len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	return c.JSON(updated)
}

func (h *Handler) deleteUser(c *fiber.Ctx) error {
	actorID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Delete(c.UserContext(), actorID, c.Params("id")); err != nil {
		return userError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

func userError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
	case errors.Is(err, ErrEmailExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Email already exists"})
	case errors.Is(err, ErrSelfDelete):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Current password is incorrect"})
	case errors.Is(err, ErrWeakPassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
