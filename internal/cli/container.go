package cli

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/techstore-backend/internal/address"
	"github.com/wichananm65/techstore-backend/internal/cart"
	"github.com/wichananm65/techstore-backend/internal/category"
	"github.com/wichananm65/techstore-backend/internal/config"
	"github.com/wichananm65/techstore-backend/internal/coupon"
	"github.com/wichananm65/techstore-backend/internal/database"
	"github.com/wichananm65/techstore-backend/internal/logger"
	"github.com/wichananm65/techstore-backend/internal/notify"
	"github.com/wichananm65/techstore-backend/internal/order"
	"github.com/wichananm65/techstore-backend/internal/product"
	"github.com/wichananm65/techstore-backend/internal/seed"
	"github.com/wichananm65/techstore-backend/internal/server"
	"github.com/wichananm65/techstore-backend/internal/user"
	"github.com/wichananm65/techstore-backend/internal/webhook"
)

const serviceName = "storefront"

// container owns every service of one process.
type container struct {
	cfg *config.Config
	log *slog.Logger
	db  *sql.DB

	products   *product.Service
	categories *category.Service
	users      *user.Service
	coupons    *coupon.Service
	addresses  *address.Service
	carts      *cart.Service
	orders     *order.Service
	webhooks   *webhook.Service
	dispatcher *webhook.Dispatcher
}

func bootstrap(ctx context.Context) (*container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{Service: serviceName, Env: cfg.AppEnv, Level: cfg.LogLevel})
	return newContainer(ctx, cfg, log)
}

func newContainer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*container, error) {
	c := &container{cfg: cfg, log: log}

	var (
		productRepo  product.Repository
		categoryRepo category.Repository
		userRepo     user.Repository
		couponRepo   coupon.Repository
		addressRepo  address.Repository
		cartRepo     cart.Repository
		orderRepo    order.Repository
		webhookRepo  webhook.Repository
	)
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		c.db = db
		productRepo = product.NewPostgresRepository(db)
		categoryRepo = category.NewPostgresRepository(db)
		userRepo = user.NewPostgresRepository(db)
		couponRepo = coupon.NewPostgresRepository(db)
		addressRepo = address.NewPostgresRepository(db)
		cartRepo = cart.NewPostgresRepository(db)
		orderRepo = order.NewPostgresRepository(db)
		webhookRepo = webhook.NewPostgresRepository(db)
		log.Info("using postgres storage")
	} else {
		mem := product.NewInMemoryRepository(nil)
		productRepo = mem
		categoryRepo = category.NewCatalogRepository(mem)
		userRepo = user.NewInMemoryRepository(nil)
		couponRepo = coupon.NewInMemoryRepository(nil)
		addressRepo = address.NewInMemoryRepository(nil)
		cartRepo = cart.NewInMemoryRepository()
		orderRepo = order.NewInMemoryRepository(mem)
		webhookRepo = webhook.NewInMemoryRepository(nil)
		log.Warn("DATABASE_URL is not set, using in-memory storage")
	}

	c.dispatcher = webhook.NewDispatcher(webhookRepo, webhook.DispatcherConfig{
		Timeout:     cfg.Webhook.Timeout,
		MaxAttempts: cfg.Webhook.MaxAttempts,
		Concurrency: cfg.Webhook.Concurrency,
		Backoff:     cfg.Webhook.Backoff,
	}, log)

	c.products = product.NewService(productRepo)
	c.categories = category.NewService(categoryRepo)
	c.users = user.NewService(userRepo, c.dispatcher, log)
	c.coupons = coupon.NewService(couponRepo)
	c.addresses = address.NewService(addressRepo)
	c.carts = cart.NewService(cartRepo, c.products)
	c.orders = order.NewService(orderRepo, order.Deps{
		Catalog:         c.products,
		Coupons:         c.coupons,
		Carts:           c.carts,
		Addresses:       c.addresses,
		Events:          c.dispatcher,
		Log:             log,
		MaxInstallments: cfg.MaxInstallments,
	})
	c.webhooks = webhook.NewService(webhookRepo, c.dispatcher)
	return c, nil
}

// Close drains pending webhook deliveries before closing the database.
func (c *container) Close() {
	c.dispatcher.Wait()
	if c.db != nil {
		_ = c.db.Close()
	}
}

func (c *container) migrate(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	return database.Migrate(ctx, c.db)
}

// initialize migrates the schema and applies the embedded seed.
func (c *container) initialize(ctx context.Context) (seed.Report, error) {
	if err := c.migrate(ctx); err != nil {
		return seed.Report{}, err
	}
	data, err := seed.Default()
	if err != nil {
		return seed.Report{}, err
	}
	s := seed.New(c.products, c.coupons, c.users, c.log)
	return s.Apply(ctx, data, seed.Admin{Email: c.cfg.AdminEmail, Password: c.cfg.AdminPassword})
}

func (c *container) notifier() *notify.Notifier {
	return notify.New(c.users, c.carts, c.dispatcher, c.cfg.AbandonedCartAfter, c.log)
}

func (c *container) app() *fiber.App {
	deps := server.Deps{
		Users: user.NewHandler(c.users, user.TokenConfig{
			Secret:       []byte(c.cfg.JWTSecret),
			TTL:          c.cfg.TokenTTL,
			SecureCookie: !c.cfg.IsDev(),
		}),
		Products:   product.NewHandler(c.products),
		Categories: category.NewHandler(c.categories),
		Carts:      cart.NewHandler(c.carts),
		Orders:     order.NewHandler(c.orders),
		Coupons:    coupon.NewHandler(c.coupons),
		Addresses:  address.NewHandler(c.addresses),
		Webhooks:   webhook.NewHandler(c.webhooks),
		Init:       seed.NewHandler(c.cfg.AllowInit, c.initialize, c.log),
		Admins:     c.users.IsAdmin,
	}
	if c.db != nil {
		deps.DB = c.db
	}
	return server.New(server.Options{
		JWTSecret:   []byte(c.cfg.JWTSecret),
		CORSOrigins: c.cfg.CORSOrigins,
		AppName:     serviceName,
	}, deps, c.log)
}
