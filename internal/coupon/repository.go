package coupon

import (
	"context"
	"sort"
	"sync"
)

type Repository interface {
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id string) (Coupon, error)
	GetByCode(ctx context.Context, code string) (Coupon, error)
	Create(ctx context.Context, c Coupon) (Coupon, error)
	Update(ctx context.Context, c Coupon) (Coupon, error)
	Delete(ctx context.Context, id string) error
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Coupon
}

func NewInMemoryRepository(seed []Coupon) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Coupon, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Coupon, len(r.storage))
	copy(out, r.storage)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.storage {
		if c.ID == id {
			return c, nil
		}
	}
	return Coupon{}, ErrNotFound
}

func (r *InMemoryRepository) GetByCode(_ context.Context, code string) (Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code = NormalizeCode(code)
	for _, c := range r.storage {
		if c.Code == code {
			return c, nil
		}
	}
	return Coupon{}, ErrNotFound
}

func (r *InMemoryRepository) codeTaken(code, exceptID string) bool {
	for _, c := range r.storage {
		if c.ID != exceptID && c.Code == code {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) Create(_ context.Context, c Coupon) (Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codeTaken(c.Code, "") {
		return Coupon{}, ErrCodeExists
	}
	r.storage = append(r.storage, c)
	return c, nil
}

func (r *InMemoryRepository) Update(_ context.Context, c Coupon) (Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codeTaken(c.Code, c.ID) {
		return Coupon{}, ErrCodeExists
	}
	for i := range r.storage {
		if r.storage[i].ID == c.ID {
			r.storage[i] = c
			return c, nil
		}
	}
	return Coupon{}, ErrNotFound
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
