package product

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the catalog on a router already prefixed with /api.
func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/:id", h.getProduct)
}

// RegisterAdminRoutes mounts product management on the admin group.
func (h *Handler) RegisterAdminRoutes(r fiber.Router) {
	r.Get("/products", h.adminListProducts)
	r.Get("/products/:id", h.adminGetProduct)
	r.Post("/products", h.createProduct)
	r.Put("/products/:id", h.updateProduct)
	r.Delete("/products/:id", h.deleteProduct)
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	IsActive    *bool           `json:"isActive"`
}

func (h *Handler) listProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext(), Filter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to fetch products"})
	}
	return c.JSON(products)
}

func (h *Handler) adminListProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext(), Filter{
		Category:        c.Query("category"),
		Query:           c.Query("q"),
		IncludeInactive: true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to fetch products"})
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	p, err := h.service.GetPublic(c.UserContext(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) adminGetProduct(c *fiber.Ctx) error {
	p, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	req := new(createProductRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}

	p := Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
		Stock:       req.Stock,
		IsActive:    true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	// validate payload and return all validation errors together
	if ves := Validate(p); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}

	created, err := h.service.Create(c.UserContext(), p)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to create product"})
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	patch := new(Patch)
	if err := c.BodyParser(patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid request body"})
	}

	updated, ves, err := h.service.Update(c.UserContext(), c.Params("id"), *patch)
	if err != nil {
		return notFoundOr500(c, err)
	}
	if len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": ves})
	}
	return c.JSON(updated)
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return notFoundOr500(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

func notFoundOr500(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Product not found"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}
