package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/techstore-backend/internal/auth"
	"github.com/wichananm65/techstore-backend/internal/product"
)

// HeaderIdempotencyKey takes precedence over the body's idempotencyKey.
const HeaderIdempotencyKey = "Idempotency-Key"

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/orders", h.place)
	r.Get("/orders", h.listMine)
	r.Get("/orders/:id", h.getMine)
}

func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/orders", h.list)
	r.Get("/orders/:id", h.get)
	r.Patch("/orders/:id/status", h.updateStatus)
}

func (h *Handler) place(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	in := new(PlaceInput)
	if err := c.BodyParser(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if key := c.Get(HeaderIdempotencyKey); key != "" {
		in.IdempotencyKey = key
	}

	o, created, ves, err := h.service.Place(c.UserContext(), userID, *in)
	if err != nil {
		return orderError(c, err)
	}
	if len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	if !created {
		return c.JSON(o)
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

func (h *Handler) listMine(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orders, err := h.service.ListForUser(c.UserContext(), userID)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) getMine(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	o, err := h.service.GetForUser(c.UserContext(), userID, c.Params("id"), auth.IsAdminFromCtx(c))
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) list(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(orders)
}

func (h *Handler) get(c *fiber.Ctx) error {
	o, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(o)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	payload := struct {
		Status string `json:"status"`
	}{}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	o, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), payload.Status)
	if err != nil {
		return orderError(c, err)
	}
	return c.JSON(o)
}

func orderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Order not found"})
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"status": err.Error()}})
	case errors.Is(err, ErrInvalidCoupon):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, ErrTotalMismatch),
		errors.Is(err, ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to process order"})
	}
}
