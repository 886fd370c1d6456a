package seed

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// InitFunc migrates the schema and applies the seed.
type InitFunc func(ctx context.Context) (Report, error)

type Handler struct {
	enabled bool
	run     InitFunc
	log     *slog.Logger
}

func NewHandler(enabled bool, run InitFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{enabled: enabled, run: run, log: log}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/init", h.init)
}

func (h *Handler) init(c *fiber.Ctx) error {
	if !h.enabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "database initialization is disabled", "status": "error"})
	}
	rep, err := h.run(c.UserContext())
	if err != nil {
		h.log.Error("database initialization failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "database initialization failed", "status": "error"})
	}
	return c.JSON(fiber.Map{
		"message": "database initialized",
		"status":  "success",
		"seeded":  rep,
	})
}
