package coupon

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type validateRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/coupons/validate", h.validate)
}

func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/coupons", h.list)
	r.Post("/coupons", h.create)
	r.Get("/coupons/:id", h.get)
	r.Put("/coupons/:id", h.update)
	r.Delete("/coupons/:id", h.delete)
	r.Post("/coupons/:id/toggle", h.toggle)
}

func (h *Handler) validate(c *fiber.Ctx) error {
	req := new(validateRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"code": "code is required"}})
	}
	if req.Subtotal.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"subtotal": "subtotal must be >= 0"}})
	}
	q, err := h.service.Quote(c.UserContext(), req.Code, req.Subtotal)
	if err != nil {
		return couponError(c, err)
	}
	return c.JSON(q)
}

func (h *Handler) list(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to fetch coupons"})
	}
	return c.JSON(coupons)
}

func (h *Handler) get(c *fiber.Ctx) error {
	cp, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return couponError(c, err)
	}
	return c.JSON(cp)
}

func (h *Handler) create(c *fiber.Ctx) error {
	in := new(Input)
	if err := c.BodyParser(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	created, ves, err := h.service.Create(c.UserContext(), *in)
	if err != nil {
		return couponError(c, err)
	}
	if len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) update(c *fiber.Ctx) error {
	in := new(Input)
	if err := c.BodyParser(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	updated, ves, err := h.service.Update(c.UserContext(), c.Params("id"), *in)
	if err != nil {
		return couponError(c, err)
	}
	if len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	return c.JSON(updated)
}

func (h *Handler) toggle(c *fiber.Ctx) error {
	cp, err := h.service.Toggle(c.UserContext(), c.Params("id"))
	if err != nil {
		return couponError(c, err)
	}
	return c.JSON(cp)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return couponError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Coupon deleted successfully"})
}

func couponError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Coupon not found"})
	case errors.Is(err, ErrInactive), errors.Is(err, ErrExpired):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrCodeExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	default:
		slog.ErrorContext(c.UserContext(), "coupon request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to process coupon"})
	}
}
