package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wichananm65/techstore-backend/internal/product"
)

type Repository interface {
	// Create stores o and takes its items out of stock atomically. When the
	// user already placed an order with the same idempotency key, that order
	// is returned with created=false and nothing is written.
	Create(ctx context.Context, o Order) (Order, bool, error)
	Get(ctx context.Context, id string) (Order, error)
	// GetByIdempotencyKey returns ErrNotFound when userID never used key.
	GetByIdempotencyKey(ctx context.Context, userID, key string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns every order, newest first; an empty status means all.
	List(ctx context.Context, status string) ([]Order, error)
	// UpdateStatus moves o from its current status to status. Cancelling
	// puts the items back in stock within the same write.
	UpdateStatus(ctx context.Context, o Order, status string, at time.Time) (Order, error)
}

type InMemoryRepository struct {
	mu        sync.RWMutex
	orders    []Order
	inventory product.Inventory
}

func NewInMemoryRepository(inventory product.Inventory) *InMemoryRepository {
	return &InMemoryRepository{inventory: inventory}
}

func (r *InMemoryRepository) Create(ctx context.Context, o Order) (Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.IdempotencyKey != "" {
		if existing, ok := r.byKey(o.UserID, o.IdempotencyKey); ok {
			return existing, false, nil
		}
	}

	deltas := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		deltas[it.ProductID] -= it.Quantity
	}
	if err := r.inventory.AdjustStock(ctx, deltas); err != nil {
		return Order{}, false, err
	}
	r.orders = append(r.orders, o)
	return o, true, nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) GetByIdempotencyKey(_ context.Context, userID, key string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if o, ok := r.byKey(userID, key); ok {
		return o, nil
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) byKey(userID, key string) (Order, bool) {
	for _, o := range r.orders {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o, true
		}
	}
	return Order{}, false
}

func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *InMemoryRepository) List(_ context.Context, status string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, o Order, status string, at time.Time) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID != o.ID {
			continue
		}
		if r.orders[i].Status != o.Status {
			return Order{}, ErrInvalidTransition
		}
		if status == StatusCancelled {
			if err := r.inventory.AdjustStock(ctx, r.orders[i].restock()); err != nil {
				return Order{}, err
			}
		}
		r.orders[i].Status = status
		r.orders[i].UpdatedAt = at
		return r.orders[i], nil
	}
	return Order{}, ErrNotFound
}

func newestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
}
