package product

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	// GetMany returns the products that exist among ids, in no particular order.
	GetMany(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Inventory applies stock deltas atomically: either every delta is applied
// or none is. A delta that would drive stock below zero fails the batch with
// ErrInsufficientStock. Positive deltas for deleted products are dropped.
type Inventory interface {
	AdjustStock(ctx context.Context, deltas map[string]int) error
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// local runs without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Product, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

func matches(p Product, f Filter) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	return true
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.storage))
	for _, p := range r.storage {
		if matches(p, f) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) GetMany(_ context.Context, ids []string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]Product, 0, len(ids))
	for _, p := range r.storage {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = append(r.storage, p)
	return p, nil
}

func (r *InMemoryRepository) Update(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == p.ID {
			r.storage[i] = p
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			r.storage = append(r.storage[:i], r.storage[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.storage), nil
}

// AdjustStock validates the whole batch under the write lock before touching
// any row, so a failing delta leaves every product unchanged.
func (r *InMemoryRepository) AdjustStock(_ context.Context, deltas map[string]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := make(map[string]int, len(r.storage))
	for i, p := range r.storage {
		idx[p.ID] = i
	}
	for id, d := range deltas {
		i, ok := idx[id]
		if !ok {
			if d > 0 {
				continue
			}
			return ErrNotFound
		}
		if d < 0 && (r.storage[i].Stock+d < 0 || !r.storage[i].IsActive) {
			return ErrInsufficientStock
		}
	}
	for id, d := range deltas {
		if i, ok := idx[id]; ok {
			r.storage[i].Stock += d
		}
	}
	return nil
}
