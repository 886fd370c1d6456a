package webhook

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/webhooks", h.list)
	r.Post("/webhooks", h.create)
	r.Get("/webhooks/:id", h.get)
	r.Put("/webhooks/:id", h.update)
	r.Delete("/webhooks/:id", h.delete)
	r.Post("/webhooks/:id/toggle", h.toggle)
	r.Post("/webhooks/:id/test", h.test)
}

func (h *Handler) list(c *fiber.Ctx) error {
	hooks, err := h.service.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to fetch webhooks"})
	}
	return c.JSON(hooks)
}

func (h *Handler) get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return webhookError(c, err)
	}
	return c.JSON(w)
}

func (h *Handler) create(c *fiber.Ctx) error {
	in := new(Input)
	if err := c.BodyParser(in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}
	created, ves, err := h.service.Create(c.UserContext(), *in)
	if err != nil {
		return webhookError(c, err)
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
		return webhookError(c, err)
	}
	if len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	return c.JSON(updated)
}

func (h *Handler) toggle(c *fiber.Ctx) error {
	w, err := h.service.Toggle(c.UserContext(), c.Params("id"))
	if err != nil {
		return webhookError(c, err)
	}
	return c.JSON(w)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return webhookError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Webhook deleted successfully"})
}

func (h *Handler) test(c *fiber.Ctx) error {
	res, err := h.service.Test(c.UserContext(), c.Params("id"))
	if err != nil {
		return webhookError(c, err)
	}
	return c.JSON(res)
}

func webhookError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Webhook not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}
