package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wichananm65/techstore-backend/internal/money"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the catalog. Public callers never see inactive products.
func (s *Service) List(ctx context.Context, f Filter) ([]Product, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Query = strings.TrimSpace(f.Query)
	return s.repo.List(ctx, f)
}

// GetPublic returns an active product; inactive ones read as not found.
func (s *Service) GetPublic(ctx context.Context, id string) (Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.IsActive {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetMany returns the requested products keyed by id. Missing ids are absent
// from the map.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	list, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Price = money.Round(p.Price)
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.repo.Create(ctx, p)
}

// Update applies a partial patch and returns the validation errors of the
// merged result, if any.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (Product, map[string]string, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, nil, err
	}
	next := patch.Apply(current)
	if ves := Validate(next); len(ves) > 0 {
		return Product{}, ves, nil
	}
	next.Name = strings.TrimSpace(next.Name)
	next.Price = money.Round(next.Price)
	next.UpdatedAt = s.now()
	updated, err := s.repo.Update(ctx, next)
	return updated, nil, err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Validate reports field errors keyed by JSON name.
func Validate(p Product) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		errs["name"] = "name is required"
	}
	if p.Price.IsNegative() {
		errs["price"] = "price must be >= 0"
	}
	if p.Stock < 0 {
		errs["stock"] = "stock must be >= 0"
	}
	return errs
}
