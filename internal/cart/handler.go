package cart

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/techstore-backend/internal/auth"
	"github.com/wichananm65/techstore-backend/internal/product"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

type addRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

type setRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/cart", h.get)
	r.Delete("/cart", h.clear)
	r.Post("/cart/items", h.add)
	r.Put("/cart/items/:productId", h.set)
	r.Delete("/cart/items/:productId", h.remove)
}

func (h *Handler) get(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	v, err := h.service.View(c.UserContext(), userID)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) add(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	req := new(addRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"productId": "productId is required"}})
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	v, err := h.service.Add(c.UserContext(), userID, req.ProductID, qty)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) set(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	req := new(setRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	if req.Quantity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"quantity": "quantity is required"}})
	}
	v, err := h.service.Set(c.UserContext(), userID, c.Params("productId"), *req.Quantity)
	if err != nil {
		return cartError(c, err)
	}
	return c.JSON(v)
}

func (h *Handler) remove(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Remove(c.UserContext(), userID, c.Params("productId")); err != nil {
		return cartError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) clear(c *fiber.Ctx) error {
	userID, err := auth.UserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if err := h.service.Clear(c.UserContext(), userID); err != nil {
		return cartError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func cartError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": fiber.Map{"quantity": err.Error()}})
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	case errors.Is(err, product.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to update cart"})
	}
}
