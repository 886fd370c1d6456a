package category

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const defaultLimit = 100

// Service provides business logic for categories.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// List returns up to limit category items.
func (s *Service) List(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.repo.List(ctx, limit)
}

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/categories", h.getCategories)
}

func (h *Handler) getCategories(c *fiber.Ctx) error {
	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	items, err := h.service.List(c.UserContext(), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to fetch categories"})
	}
	return c.JSON(items)
}
