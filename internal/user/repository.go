package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrSelfDelete         = errors.New("cannot delete your own account")
)

type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id string) error
	ListByBirthday(ctx context.Context, month, day int) ([]User, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []User
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]User, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]User, len(r.storage))
	copy(out, r.storage)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.storage {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.storage {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// emailTaken must be called with the lock held.
func (r *InMemoryRepository) emailTaken(email, exceptID string) bool {
	for _, u := range r.storage {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *InMemoryRepository) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(u.Email, "") {
		return User{}, ErrEmailExists
	}
	r.storage = append(r.storage, u)
	return u, nil
}

func (r *InMemoryRepository) Update(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(u.Email, u.ID) {
		return User{}, ErrEmailExists
	}
	for i := range r.storage {
		if r.storage[i].ID == u.ID {
			r.storage[i] = u
			return u, nil
		}
	}
	return User{}, ErrNotFound
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

func (r *InMemoryRepository) ListByBirthday(_ context.Context, month, day int) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	suffix := fmt.Sprintf("-%02d-%02d", month, day)
	out := make([]User, 0)
	for _, u := range r.storage {
		if len(u.BirthDate) == len(BirthDateLayout) && strings.HasSuffix(u.BirthDate, suffix) {
			out = append(out, u)
		}
	}
	return out, nil
}
