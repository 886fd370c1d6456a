// Package server assembles the HTTP application from the feature handlers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/wichananm65/techstore-backend/internal/address"
	"github.com/wichananm65/techstore-backend/internal/auth"
	"github.com/wichananm65/techstore-backend/internal/cart"
	"github.com/wichananm65/techstore-backend/internal/category"
	"github.com/wichananm65/techstore-backend/internal/coupon"
	"github.com/wichananm65/techstore-backend/internal/logger"
	"github.com/wichananm65/techstore-backend/internal/order"
	"github.com/wichananm65/techstore-backend/internal/product"
	"github.com/wichananm65/techstore-backend/internal/seed"
	"github.com/wichananm65/techstore-backend/internal/user"
	"github.com/wichananm65/techstore-backend/internal/webhook"
)

// Pinger reports database reachability for /health. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	JWTSecret   []byte
	CORSOrigins string
	AppName     string
}

// Deps carries one handler per feature. DB may be nil when running on the
// in-memory repositories.
type Deps struct {
	Users      *user.Handler
	Products   *product.Handler
	Categories *category.Handler
	Carts      *cart.Handler
	Orders     *order.Handler
	Coupons    *coupon.Handler
	Addresses  *address.Handler
	Webhooks   *webhook.Handler
	Init       *seed.Handler
	// Admins confirms admin tokens against the stored account. Nil trusts
	// the token claim alone.
	Admins auth.AdminCheck
	DB     Pinger
}

// authenticated lists the /api prefixes that require a session. Anything
// else under /api is either public or unknown and falls through to 404.
var authenticated = []string{"/auth/me", "/auth/change-password", "/cart", "/orders", "/addresses", "/admin"}

func New(opts Options, deps Deps, log *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      opts.AppName,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.Middleware(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: opts.CORSOrigins != "" && opts.CORSOrigins != "*",
	}))

	app.Get("/health", health(deps.DB))

	api := app.Group("/api")
	deps.Users.RegisterPublicRoutes(api)
	deps.Products.RegisterPublicRoutes(api)
	deps.Categories.RegisterPublicRoutes(api)
	deps.Coupons.RegisterPublicRoutes(api)
	if deps.Init != nil {
		deps.Init.RegisterPublicRoutes(api)
	}

	session := auth.Middleware(opts.JWTSecret)
	for _, prefix := range authenticated {
		api.Use(prefix, session)
	}
	deps.Users.RegisterProtectedRoutes(api)
	deps.Carts.RegisterProtectedRoutes(api)
	deps.Orders.RegisterProtectedRoutes(api)
	deps.Addresses.RegisterProtectedRoutes(api)

	admin := api.Group("/admin", auth.RequireAdmin(deps.Admins))
	deps.Users.RegisterAdminRoutes(admin)
	deps.Products.RegisterAdminRoutes(admin)
	deps.Orders.RegisterAdminRoutes(admin)
	deps.Coupons.RegisterAdminRoutes(admin)
	deps.Webhooks.RegisterAdminRoutes(admin)

	return app
}

func health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.JSON(fiber.Map{"status": "ok", "database": "memory"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": "down"})
		}
		return c.JSON(fiber.Map{"status": "ok", "database": "up"})
	}
}

func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, msg = fe.Code, fe.Message
		} else {
			log.Error("unhandled error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"message": msg})
	}
}
