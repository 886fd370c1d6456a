package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/techstore-backend/internal/money"
	"github.com/wichananm65/techstore-backend/internal/product"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Catalog resolves product ids to current product data.
type Catalog interface {
	GetMany(ctx context.Context, ids []string) (map[string]product.Product, error)
}

type Service struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog, now: func() time.Time { return time.Now().UTC() }}
}

// View prices the user's cart against the live catalog. Lines whose product
// was deleted or deactivated are left out.
func (s *Service) View(ctx context.Context, userID string) (View, error) {
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.price(ctx, c.Lines)
}

func (s *Service) price(ctx context.Context, lines []Line) (View, error) {
	v := View{Items: []Item{}, Total: decimal.Zero}
	if len(lines) == 0 {
		return v, nil
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return View{}, err
	}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			continue
		}
		lineTotal := money.Round(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		v.Items = append(v.Items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  l.Quantity,
			LineTotal: lineTotal,
			Stock:     p.Stock,
		})
		v.ItemCount += l.Quantity
		v.Total = v.Total.Add(lineTotal)
	}
	return v, nil
}

// Add merges qty units of productID into the cart.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (View, error) {
	if qty < 1 {
		return View{}, ErrInvalidQuantity
	}
	p, err := s.activeProduct(ctx, productID)
	if err != nil {
		return View{}, err
	}
	c, err := s.repo.Get(ctx, userID)
	if err != nil {
		return View{}, err
	}
	have := 0
	for _, l := range c.Lines {
		if l.ProductID == productID {
			have = l.Quantity
		}
	}
	if have+qty > p.Stock {
		return View{}, product.ErrInsufficientStock
	}
	if err := s.repo.Add(ctx, userID, productID, qty, s.now()); err != nil {
		return View{}, err
	}
	return s.View(ctx, userID)
}

// Set replaces the quantity of a line; qty <= 0 removes it.
func (s *Service) Set(ctx context.Context, userID, productID string, qty int) (View, error) {
	if qty > 0 {
		p, err := s.activeProduct(ctx, productID)
		if err != nil {
			return View{}, err
		}
		if qty > p.Stock {
			return View{}, product.ErrInsufficientStock
		}
	}
	if err := s.repo.Set(ctx, userID, productID, qty, s.now()); err != nil {
		return View{}, err
	}
	return s.View(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	return s.repo.Remove(ctx, userID, productID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}

// RemoveProducts drops the given products from the cart, used after checkout.
func (s *Service) RemoveProducts(ctx context.Context, userID string, productIDs []string) error {
	return s.repo.RemoveProducts(ctx, userID, productIDs)
}

// Stale returns carts untouched since cutoff, priced against the catalog.
// Carts whose products have all disappeared are skipped.
func (s *Service) Stale(ctx context.Context, cutoff time.Time) ([]StaleCart, error) {
	carts, err := s.repo.ListStale(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	out := make([]StaleCart, 0, len(carts))
	for _, c := range carts {
		v, err := s.price(ctx, c.Lines)
		if err != nil {
			return nil, err
		}
		if len(v.Items) == 0 {
			continue
		}
		out = append(out, StaleCart{UserID: c.UserID, UpdatedAt: c.UpdatedAt, View: v})
	}
	return out, nil
}

func (s *Service) activeProduct(ctx context.Context, id string) (product.Product, error) {
	found, err := s.catalog.GetMany(ctx, []string{id})
	if err != nil {
		return product.Product{}, err
	}
	p, ok := found[id]
	if !ok || !p.IsActive {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}
