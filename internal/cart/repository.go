package cart

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository stores per-user product quantities.
type Repository interface {
	Get(ctx context.Context, userID string) (Cart, error)
	// Add increments the quantity of productID, creating the line if needed.
	Add(ctx context.Context, userID, productID string, qty int, at time.Time) error
	// Set replaces the quantity; qty <= 0 removes the line.
	Set(ctx context.Context, userID, productID string, qty int, at time.Time) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
	RemoveProducts(ctx context.Context, userID string, productIDs []string) error
	// ListStale returns non-empty carts last touched before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]Cart, error)
}

type entry struct {
	qty       int
	updatedAt time.Time
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]map[string]entry
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{carts: map[string]map[string]entry{}}
}

// snapshot must be called with the lock held.
func (r *InMemoryRepository) snapshot(userID string) Cart {
	c := Cart{UserID: userID, Lines: []Line{}}
	type ordered struct {
		Line
		at time.Time
	}
	rows := make([]ordered, 0, len(r.carts[userID]))
	for pid, e := range r.carts[userID] {
		rows = append(rows, ordered{Line: Line{ProductID: pid, Quantity: e.qty}, at: e.updatedAt})
		if e.updatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = e.updatedAt
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].at.Equal(rows[j].at) {
			return rows[i].ProductID < rows[j].ProductID
		}
		return rows[i].at.Before(rows[j].at)
	})
	for _, row := range rows {
		c.Lines = append(c.Lines, row.Line)
	}
	return c
}

func (r *InMemoryRepository) Get(_ context.Context, userID string) (Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(userID), nil
}

func (r *InMemoryRepository) Add(_ context.Context, userID, productID string, qty int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.carts[userID] == nil {
		r.carts[userID] = map[string]entry{}
	}
	e := r.carts[userID][productID]
	e.qty += qty
	e.updatedAt = at
	r.carts[userID][productID] = e
	return nil
}

func (r *InMemoryRepository) Set(_ context.Context, userID, productID string, qty int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if qty <= 0 {
		delete(r.carts[userID], productID)
		return nil
	}
	if r.carts[userID] == nil {
		r.carts[userID] = map[string]entry{}
	}
	r.carts[userID][productID] = entry{qty: qty, updatedAt: at}
	return nil
}

func (r *InMemoryRepository) Remove(_ context.Context, userID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts[userID], productID)
	return nil
}

func (r *InMemoryRepository) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

func (r *InMemoryRepository) RemoveProducts(_ context.Context, userID string, productIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pid := range productIDs {
		delete(r.carts[userID], pid)
	}
	return nil
}

func (r *InMemoryRepository) ListStale(_ context.Context, cutoff time.Time) ([]Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Cart, 0)
	for userID, lines := range r.carts {
		if len(lines) == 0 {
			continue
		}
		c := r.snapshot(userID)
		if c.UpdatedAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
