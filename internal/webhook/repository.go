package webhook

import (
	"context"
	"sort"
	"sync"
)

type Repository interface {
	List(ctx context.Context) ([]Webhook, error)
	GetByID(ctx context.Context, id string) (Webhook, error)
	Create(ctx context.Context, w Webhook) (Webhook, error)
	Update(ctx context.Context, w Webhook) (Webhook, error)
	Delete(ctx context.Context, id string) error
	// ListActiveFor returns the active hooks subscribed to event.
	ListActiveFor(ctx context.Context, event string) ([]Webhook, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Webhook
}

func NewInMemoryRepository(seed []Webhook) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Webhook, 0, len(seed))}
	for _, w := range seed {
		r.storage = append(r.storage, clone(w))
	}
	return r
}

func clone(w Webhook) Webhook {
	w.Events = append([]string(nil), w.Events...)
	return w
}

func (r *InMemoryRepository) List(_ context.Context) ([]Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Webhook, 0, len(r.storage))
	for _, w := range r.storage {
		out = append(out, clone(w))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.storage {
		if w.ID == id {
			return clone(w), nil
		}
	}
	return Webhook{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, w Webhook) (Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage = append(r.storage, clone(w))
	return w, nil
}

func (r *InMemoryRepository) Update(_ context.Context, w Webhook) (Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == w.ID {
			r.storage[i] = clone(w)
			return w, nil
		}
	}
	return Webhook{}, ErrNotFound
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

func (r *InMemoryRepository) ListActiveFor(_ context.Context, event string) ([]Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Webhook, 0)
	for _, w := range r.storage {
		if w.IsActive && w.Subscribed(event) {
			out = append(out, clone(w))
		}
	}
	return out, nil
}
