package address

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("address not found")

type Repository interface {
	List(ctx context.Context, userID string) ([]Address, error)
	Get(ctx context.Context, userID, id string) (Address, error)
	Create(ctx context.Context, a Address) (Address, error)
	Update(ctx context.Context, a Address) (Address, error)
	Delete(ctx context.Context, userID, id string) error
}

// InMemoryRepository for tests
type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[string][]Address // keyed by userID
}

func NewInMemoryRepository(seed map[string][]Address) *InMemoryRepository {
	if seed == nil {
		seed = map[string][]Address{}
	}
	return &InMemoryRepository{data: seed}
}

func (r *InMemoryRepository) List(_ context.Context, userID string) ([]Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Address, len(r.data[userID]))
	copy(out, r.data[userID])
	return out, nil
}

func (r *InMemoryRepository) Get(_ context.Context, userID, id string) (Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.data[userID] {
		if a.ID == id {
			return a, nil
		}
	}
	return Address{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, a Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[a.UserID] = append(r.data[a.UserID], a)
	return a, nil
}

func (r *InMemoryRepository) Update(_ context.Context, a Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.data[a.UserID] {
		if cur.ID == a.ID {
			r.data[a.UserID][i] = a
			return a, nil
		}
	}
	return Address{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	addrs := r.data[userID]
	for i, a := range addrs {
		if a.ID == id {
			r.data[userID] = append(addrs[:i], addrs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
