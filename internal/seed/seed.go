// Package seed loads the demo catalog and bootstraps the admin account.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/techstore-backend/internal/coupon"
	"github.com/wichananm65/techstore-backend/internal/product"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultData []byte

type ProductSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Image       string `yaml:"image"`
	Category    string `yaml:"category"`
	Stock       int    `yaml:"stock"`
}

type CouponSeed struct {
	Code     string `yaml:"code"`
	Type     string `yaml:"type"`
	Discount string `yaml:"discount"`
}

type Data struct {
	Products []ProductSeed `yaml:"products"`
	Coupons  []CouponSeed  `yaml:"coupons"`
}

// Parse decodes a seed document.
func Parse(raw []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("parse seed data: %w", err)
	}
	return d, nil
}

// Default returns the embedded demo catalog.
func Default() (Data, error) {
	return Parse(defaultData)
}

type Products interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, p product.Product) (product.Product, error)
}

type Coupons interface {
	Create(ctx context.Context, in coupon.Input) (coupon.Coupon, map[string]string, error)
}

type Users interface {
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type Admin struct {
	Email    string
	Password string
}

type Seeder struct {
	products Products
	coupons  Coupons
	users    Users
	log      *slog.Logger
}

func New(products Products, coupons Coupons, users Users, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{products: products, coupons: coupons, users: users, log: log}
}

// Report summarizes what one Apply call wrote.
type Report struct {
	Products     int  `json:"products"`
	Coupons      int  `json:"coupons"`
	AdminCreated bool `json:"adminCreated"`
}

// Apply is safe to run repeatedly: products are only inserted into an empty
// catalog, existing coupon codes are kept, and the admin is only created once.
func (s *Seeder) Apply(ctx context.Context, data Data, admin Admin) (Report, error) {
	var rep Report

	n, err := s.products.Count(ctx)
	if err != nil {
		return rep, fmt.Errorf("count products: %w", err)
	}
	if n == 0 {
		for _, ps := range data.Products {
			price, err := decimal.NewFromString(ps.Price)
			if err != nil {
				return rep, fmt.Errorf("product %q: invalid price %q", ps.Name, ps.Price)
			}
			p := product.Product{
				Name:        ps.Name,
				Description: ps.Description,
				Price:       price,
				Image:       ps.Image,
				Category:    ps.Category,
				Stock:       ps.Stock,
				IsActive:    true,
			}
			if errs := product.Validate(p); len(errs) > 0 {
				return rep, fmt.Errorf("product %q: %v", ps.Name, errs)
			}
			if _, err := s.products.Create(ctx, p); err != nil {
				return rep, fmt.Errorf("create product %q: %w", ps.Name, err)
			}
			rep.Products++
		}
	}

	for _, cs := range data.Coupons {
		cs := cs
		discount, err := decimal.NewFromString(cs.Discount)
		if err != nil {
			return rep, fmt.Errorf("coupon %q: invalid discount %q", cs.Code, cs.Discount)
		}
		_, errs, err := s.coupons.Create(ctx, coupon.Input{Code: &cs.Code, Type: &cs.Type, Discount: &discount})
		switch {
		case errors.Is(err, coupon.ErrCodeExists):
			continue
		case err != nil:
			return rep, fmt.Errorf("create coupon %q: %w", cs.Code, err)
		case len(errs) > 0:
			return rep, fmt.Errorf("coupon %q: %v", cs.Code, errs)
		}
		rep.Coupons++
	}

	if admin.Email != "" {
		created, err := s.users.EnsureAdmin(ctx, admin.Email, admin.Password)
		if err != nil {
			return rep, fmt.Errorf("ensure admin: %w", err)
		}
		rep.AdminCreated = created
	}

	s.log.Info("seed applied", "products", rep.Products, "coupons", rep.Coupons, "admin_created", rep.AdminCreated)
	return rep, nil
}
