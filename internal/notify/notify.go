// Package notify runs the scheduled customer notifications. Each run publishes
// webhook events and returns how many it sent; scheduling is left to cron.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wichananm65/techstore-backend/internal/cart"
	"github.com/wichananm65/techstore-backend/internal/user"
	"github.com/wichananm65/techstore-backend/internal/webhook"
)

type Users interface {
	Birthdays(ctx context.Context, now time.Time) ([]user.User, error)
	Get(ctx context.Context, id string) (user.User, error)
}

type Carts interface {
	Stale(ctx context.Context, cutoff time.Time) ([]cart.StaleCart, error)
}

type Publisher interface {
	Publish(ctx context.Context, event string, data any)
}

type Notifier struct {
	users        Users
	carts        Carts
	events       Publisher
	abandonAfter time.Duration
	log          *slog.Logger
}

func New(users Users, carts Carts, events Publisher, abandonAfter time.Duration, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{users: users, carts: carts, events: events, abandonAfter: abandonAfter, log: log}
}

type BirthdayPayload struct {
	Date  string      `json:"date"`
	Users []user.User `json:"users"`
}

// Birthdays publishes a single birthday event listing everyone whose birthday
// falls on now's month and day. Nothing is sent when the list is empty.
func (n *Notifier) Birthdays(ctx context.Context, now time.Time) (int, error) {
	users, err := n.users.Birthdays(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		n.log.Info("no birthdays today", "date", now.Format(time.DateOnly))
		return 0, nil
	}
	n.events.Publish(ctx, webhook.EventBirthday, BirthdayPayload{Date: now.Format(time.DateOnly), Users: users})
	n.log.Info("birthday notification published", "users", len(users))
	return len(users), nil
}

type AbandonedCartPayload struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	Cart      cart.View `json:"cart"`
}

// AbandonedCarts publishes one event per cart untouched for longer than the
// configured window.
func (n *Notifier) AbandonedCarts(ctx context.Context, now time.Time) (int, error) {
	stale, err := n.carts.Stale(ctx, now.Add(-n.abandonAfter))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, sc := range stale {
		payload := AbandonedCartPayload{UserID: sc.UserID, UpdatedAt: sc.UpdatedAt, Cart: sc.View}
		u, err := n.users.Get(ctx, sc.UserID)
		switch {
		case err == nil:
			payload.Name, payload.Email = u.Name, u.Email
		case errors.Is(err, user.ErrNotFound):
			n.log.Warn("skipping abandoned cart of deleted user", "user_id", sc.UserID)
			continue
		default:
			return sent, err
		}
		n.events.Publish(ctx, webhook.EventAbandonedCart, payload)
		sent++
	}
	n.log.Info("abandoned cart notifications published", "count", sent)
	return sent, nil
}
