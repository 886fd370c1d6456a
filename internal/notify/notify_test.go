package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wichananm65/techstore-backend/internal/cart"
	"github.com/wichananm65/techstore-backend/internal/logger"
	"github.com/wichananm65/techstore-backend/internal/product"
	"github.com/wichananm65/techstore-backend/internal/user"
	"github.com/wichananm65/techstore-backend/internal/webhook"
)

type published struct {
	event string
	data  any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{event: event, data: data})
}

func fixture(t *testing.T) (*Notifier, *cart.InMemoryRepository, *fakePublisher) {
	t.Helper()
	users := user.NewService(user.NewInMemoryRepository([]user.User{
		{ID: "u1", Name: "Ana", Email: "ana@example.com", BirthDate: "1990-05-17"},
		{ID: "u2", Name: "Bruno", Email: "bruno@example.com", BirthDate: "1988-02-29"},
		{ID: "u3", Name: "Carla", Email: "carla@example.com", BirthDate: "2000-05-18"},
	}), nil, logger.Discard())

	catalog := product.NewService(product.NewInMemoryRepository([]product.Product{
		{ID: "p1", Name: "Smart TV 55 4K", Price: decimal.RequireFromString("1899.99"), Stock: 15, IsActive: true},
	}))
	carts := cart.NewInMemoryRepository()
	pub := &fakePublisher{}
	n := New(users, cart.NewService(carts, catalog), pub, 5*24*time.Hour, logger.Discard())
	return n, carts, pub
}

func TestBirthdays(t *testing.T) {
	n, _, pub := fixture(t)

	sent, err := n.Birthdays(context.Background(), time.Date(2025, 5, 17, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if sent != 1 || len(pub.events) != 1 || pub.events[0].event != webhook.EventBirthday {
		t.Fatalf("unexpected result sent=%d events=%+v", sent, pub.events)
	}
	payload := pub.events[0].data.(BirthdayPayload)
	if payload.Date != "2025-05-17" || payload.Users[0].ID != "u1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestBirthdays_LeapDayInCommonYear(t *testing.T) {
	n, _, pub := fixture(t)

	sent, err := n.Birthdays(context.Background(), time.Date(2025, 2, 28, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if sent != 1 || pub.events[0].data.(BirthdayPayload).Users[0].ID != "u2" {
		t.Fatalf("Feb 29 birthdays should be celebrated on Feb 28, got %+v", pub.events)
	}
}

func TestBirthdays_NoneToday(t *testing.T) {
	n, _, pub := fixture(t)

	sent, err := n.Birthdays(context.Background(), time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if sent != 0 || len(pub.events) != 0 {
		t.Fatalf("expected nothing published, got %+v", pub.events)
	}
}

func TestAbandonedCarts(t *testing.T) {
	n, carts, pub := fixture(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	_ = carts.Add(ctx, "u1", "p1", 2, now.Add(-6*24*time.Hour))
	_ = carts.Add(ctx, "u3", "p1", 1, now.Add(-time.Hour))
	_ = carts.Add(ctx, "deleted", "p1", 1, now.Add(-10*24*time.Hour))

	sent, err := n.AbandonedCarts(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if sent != 1 || len(pub.events) != 1 || pub.events[0].event != webhook.EventAbandonedCart {
		t.Fatalf("unexpected result sent=%d events=%+v", sent, pub.events)
	}
	payload := pub.events[0].data.(AbandonedCartPayload)
	if payload.Email != "ana@example.com" || payload.Cart.ItemCount != 2 || !payload.Cart.Total.Equal(decimal.RequireFromString("3799.98")) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}
