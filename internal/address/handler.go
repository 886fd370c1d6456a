package address

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/techstore-backend/internal/auth"
)

// Handler delegates address operations to the address service.
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/addresses", h.list)
	r.Post("/addresses", h.add)
	r.Put("/addresses/:id", h.update)
	r.Delete("/addresses/:id", h.delete)
}

func (h *Handler) list(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	addrs, err := h.service.List(c.UserContext(), userID)
	if err != nil {
		return addressError(c, err)
	}
	return c.JSON(addrs)
}

func (h *Handler) add(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	addr, err := h.service.Add(c.UserContext(), userID, *payload)
	if err != nil {
		return addressError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(addr)
}

func (h *Handler) update(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	payload := new(Input)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	addr, err := h.service.Update(c.UserContext(), userID, c.Params("id"), *payload)
	if err != nil {
		return addressError(c, err)
	}
	return c.JSON(addr)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return addressError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func addressError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "address not found"})
	case errors.Is(err, ErrLineRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"line": err.Error()}})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
}
